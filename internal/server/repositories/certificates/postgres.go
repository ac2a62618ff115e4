package certificates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cmsauth/internal/common"
	"github.com/dmitrijs2005/cmsauth/internal/dbx"
	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const selectColumns = `uuid, audience, user_id, access_token, access_expired_at,
		       refresh_token, refresh_expired_at, user_agent, client_ip, created_at, updated_at`

// PostgresRepository implements Repository on PostgreSQL. Rotate opens its
// own transaction, so it needs the pool rather than a dbx.DBTX.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository constructs a repository bound to the given pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, c *models.Certificate) error {
	return insert(ctx, r.db, c)
}

func insert(ctx context.Context, q dbx.DBTX, c *models.Certificate) error {
	query := `
		INSERT INTO certificates (uuid, audience, user_id, access_token, access_expired_at,
		                          refresh_token, refresh_expired_at, user_agent, client_ip, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := q.ExecContext(ctx, query,
		c.UUID, string(c.Audience), c.UserID,
		c.AccessToken, c.AccessExpiredAt,
		c.RefreshToken, c.RefreshExpiredAt,
		c.UserAgent, c.ClientIP,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrDuplicateJTI
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (*models.Certificate, error) {
	c := &models.Certificate{}
	err := row.Scan(
		&c.UUID, &c.Audience, &c.UserID,
		&c.AccessToken, &c.AccessExpiredAt,
		&c.RefreshToken, &c.RefreshExpiredAt,
		&c.UserAgent, &c.ClientIP,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresRepository) FindByJTI(ctx context.Context, jti uuid.UUID) (*models.Certificate, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM certificates
		WHERE uuid = $1
	`
	c, err := scanCertificate(r.db.QueryRowContext(ctx, query, jti))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// Rotate deletes the old row and inserts next inside one transaction. The
// DELETE takes the row lock, so of two concurrent rotations of the same jti
// only one sees a row; the other gets common.ErrorNotFound.
func (r *PostgresRepository) Rotate(ctx context.Context, oldJTI uuid.UUID, next *models.Certificate, now time.Time) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `
			DELETE FROM certificates
			WHERE uuid = $1
			RETURNING refresh_expired_at
		`
		var refreshExpiredAt time.Time
		if err := tx.QueryRowContext(ctx, query, oldJTI).Scan(&refreshExpiredAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return common.ErrorNotFound
			}
			return fmt.Errorf("db error: %w", err)
		}

		if !now.Before(refreshExpiredAt) {
			return common.ErrTokenExpired
		}

		return insert(ctx, tx, next)
	})
}

func (r *PostgresRepository) DeleteByJTI(ctx context.Context, jti uuid.UUID) error {
	query := `
		DELETE FROM certificates
		WHERE uuid = $1
	`
	if _, err := r.db.ExecContext(ctx, query, jti); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		DELETE FROM certificates
		WHERE user_id = $1
	`
	return r.execCount(ctx, query, userID)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Certificate, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM certificates
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM certificates
		WHERE refresh_expired_at < $1
	`
	return r.execCount(ctx, query, now)
}

func (r *PostgresRepository) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
