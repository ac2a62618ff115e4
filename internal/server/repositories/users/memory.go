package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/cmsauth/internal/common"
	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/dmitrijs2005/cmsauth/internal/server/policy"
	"github.com/google/uuid"
)

// MemoryRepository keeps accounts in process, keyed by id. The mutex plays
// the role of the row lock guarding the lockout counters.
type MemoryRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[uuid.UUID]*models.User)}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.UserName == user.UserName {
			return nil, fmt.Errorf("user %q %w", user.UserName, common.ErrorAlreadyExists)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	stored := *user
	r.users[user.ID] = &stored
	return user, nil
}

func (r *MemoryRepository) FindByLogin(ctx context.Context, login string, audience models.Audience) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.UserName != login {
			continue
		}
		if !u.Authenticatable() || policy.AudienceOf(u) != audience {
			return nil, common.ErrorNotFound
		}
		found := *u
		return &found, nil
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) RecordAttempt(ctx context.Context, userID uuid.UUID, now time.Time, l Lockout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	if l.Locked(u.AttemptedTimes, u.LastAttemptedAt, now) {
		return common.ErrAccountLocked
	}
	u.AttemptedTimes++
	u.LastAttemptedAt = &now
	u.UpdatedAt = now
	return nil
}

func (r *MemoryRepository) RecordSuccessfulLogin(ctx context.Context, userID uuid.UUID, now time.Time, loginID uuid.UUID) error {
	return r.update(ctx, userID, func(u *models.User) {
		u.AttemptedTimes = 0
		u.LastLoginAt = &now
		u.LastLoginID = &loginID
		u.UpdatedAt = now
	})
}

// Get returns a copy of the stored user, for assertions in tests.
func (r *MemoryRepository) Get(userID uuid.UUID) (*models.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, false
	}
	c := *u
	return &c, true
}

func (r *MemoryRepository) update(ctx context.Context, userID uuid.UUID, fn func(*models.User)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil
	}
	fn(u)
	return nil
}
