// Package users provides the account store used by the session manager.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cmsauth/internal/common"
	"github.com/dmitrijs2005/cmsauth/internal/dbx"
	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/dmitrijs2005/cmsauth/internal/server/policy"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, username, display_name, user_types, password_hash, salt, is_enabled, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 `

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.UserName, user.DisplayName, user.UserTypes,
		user.PasswordHash, user.Salt, user.IsEnabled, user.CreatedAt, user.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("user %q %w", user.UserName, common.ErrorAlreadyExists)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByLogin(ctx context.Context, login string, audience models.Audience) (*models.User, error) {
	query :=
		`SELECT id, username, display_name, user_types, password_hash, salt,
		        attempted_times, last_attempted_at, last_login_at, last_login_id,
		        is_enabled, is_deleted, created_at, updated_at
		 FROM users
		 WHERE username = $1 AND is_enabled AND NOT is_deleted
		 `

	user := &models.User{}
	var lastAttemptedAt, lastLoginAt sql.NullTime
	var lastLoginID uuid.NullUUID

	err := r.db.QueryRowContext(ctx, query, login).Scan(
		&user.ID, &user.UserName, &user.DisplayName, &user.UserTypes, &user.PasswordHash, &user.Salt,
		&user.AttemptedTimes, &lastAttemptedAt, &lastLoginAt, &lastLoginID,
		&user.IsEnabled, &user.IsDeleted, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lastAttemptedAt.Valid {
		user.LastAttemptedAt = &lastAttemptedAt.Time
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}
	if lastLoginID.Valid {
		user.LastLoginID = &lastLoginID.UUID
	}

	// a manager login never resolves to an open user and vice versa
	if !user.Authenticatable() || policy.AudienceOf(user) != audience {
		return nil, common.ErrorNotFound
	}

	return user, nil
}

// RecordAttempt relies on the row lock taken by UPDATE: concurrent callers
// queue on the row and re-evaluate the lockout predicate against the
// committed counter.
func (r *PostgresRepository) RecordAttempt(ctx context.Context, userID uuid.UUID, now time.Time, l Lockout) error {
	query :=
		`UPDATE users SET attempted_times = attempted_times + 1, last_attempted_at = $2, updated_at = $2
		 WHERE id = $1
		   AND NOT (attempted_times >= $3 AND last_attempted_at IS NOT NULL AND last_attempted_at > $4)
		 RETURNING attempted_times
		 `

	var attempted int
	err := r.db.QueryRowContext(ctx, query, userID, now, l.MaxAttempts, now.Add(-l.Window)).Scan(&attempted)
	if err != nil {
		// the caller has just loaded the row, so a miss means the predicate held
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrAccountLocked
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RecordSuccessfulLogin(ctx context.Context, userID uuid.UUID, now time.Time, loginID uuid.UUID) error {
	query :=
		`UPDATE users SET attempted_times = 0, last_login_at = $2, last_login_id = $3, updated_at = $2
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, now, loginID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
