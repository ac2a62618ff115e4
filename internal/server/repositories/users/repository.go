package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/google/uuid"
)

// Lockout is the failed-login policy: MaxAttempts counted attempts lock the
// account until Window has passed since the last one.
type Lockout struct {
	MaxAttempts int
	Window      time.Duration
}

// Locked reports whether an account with the given counters is locked at now.
func (l Lockout) Locked(attempted int, lastAttemptedAt *time.Time, now time.Time) bool {
	if attempted < l.MaxAttempts || lastAttemptedAt == nil {
		return false
	}
	return now.Sub(*lastAttemptedAt) < l.Window
}

// Repository reads accounts and maintains the lockout counters. It is the
// only writer of attempted_times.
type Repository interface {
	// Create inserts a new account. Used by provisioning tools only.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByLogin resolves an authenticatable user of the given audience.
	// Disabled, soft-deleted and other-audience users yield
	// common.ErrorNotFound.
	FindByLogin(ctx context.Context, login string, audience models.Audience) (*models.User, error)

	// RecordAttempt counts a password check before it happens: unless the
	// account is locked under l at now, attempted_times is incremented and
	// last_attempted_at stamped in one locked step. A locked account yields
	// common.ErrAccountLocked and is left untouched.
	RecordAttempt(ctx context.Context, userID uuid.UUID, now time.Time, l Lockout) error

	// RecordSuccessfulLogin resets the counter and records the new
	// certificate id as the last login.
	RecordSuccessfulLogin(ctx context.Context, userID uuid.UUID, now time.Time, loginID uuid.UUID) error
}
