package certificates

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/cmsauth/internal/common"
	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository for development and tests.
// A single mutex makes every method, Rotate included, atomic.
type MemoryRepository struct {
	mu    sync.Mutex
	certs map[uuid.UUID]models.Certificate
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{certs: make(map[uuid.UUID]models.Certificate)}
}

func (r *MemoryRepository) Insert(ctx context.Context, c *models.Certificate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(c)
}

func (r *MemoryRepository) insertLocked(c *models.Certificate) error {
	if _, ok := r.certs[c.UUID]; ok {
		return common.ErrDuplicateJTI
	}
	r.certs[c.UUID] = *c
	return nil
}

func (r *MemoryRepository) FindByJTI(ctx context.Context, jti uuid.UUID) (*models.Certificate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.certs[jti]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &c, nil
}

func (r *MemoryRepository) Rotate(ctx context.Context, oldJTI uuid.UUID, next *models.Certificate, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.certs[oldJTI]
	if !ok {
		return common.ErrorNotFound
	}
	if !old.IsLive(now) {
		return common.ErrTokenExpired
	}
	if _, taken := r.certs[next.UUID]; taken {
		return common.ErrDuplicateJTI
	}
	delete(r.certs, oldJTI)
	return r.insertLocked(next)
}

func (r *MemoryRepository) DeleteByJTI(ctx context.Context, jti uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.certs, jti)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.deleteWhere(ctx, func(c *models.Certificate) bool { return c.UserID == userID })
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Certificate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*models.Certificate
	for _, c := range r.certs {
		if c.UserID == userID {
			c := c
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *MemoryRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(ctx, func(c *models.Certificate) bool { return c.RefreshExpiredAt.Before(now) })
}

// Len reports how many certificates are stored.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.certs)
}

func (r *MemoryRepository) deleteWhere(ctx context.Context, match func(*models.Certificate) bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for jti, c := range r.certs {
		if match(&c) {
			delete(r.certs, jti)
			n++
		}
	}
	return n, nil
}
