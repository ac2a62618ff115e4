// Package certificates declares the store of issued access/refresh pairs.
// The store is the single source of truth for session liveness.
package certificates

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/google/uuid"
)

// Repository persists certificates. Every method is atomic.
type Repository interface {
	// Insert stores a new certificate. It fails with common.ErrDuplicateJTI
	// when the uuid is already taken.
	Insert(ctx context.Context, c *models.Certificate) error

	// FindByJTI returns common.ErrorNotFound when no row has that uuid.
	FindByJTI(ctx context.Context, jti uuid.UUID) (*models.Certificate, error)

	// Rotate replaces the certificate oldJTI with next in one transaction.
	// It fails with common.ErrorNotFound when oldJTI is absent (including a
	// concurrent rotation that won) and with common.ErrTokenExpired when the
	// old refresh token expired at or before now.
	Rotate(ctx context.Context, oldJTI uuid.UUID, next *models.Certificate, now time.Time) error

	// DeleteByJTI is idempotent.
	DeleteByJTI(ctx context.Context, jti uuid.UUID) error

	// DeleteByUser drops every certificate of a user and returns how many
	// rows went away.
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// ListByUser returns the user's certificates, oldest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Certificate, error)

	// SweepExpired deletes rows whose refresh token expired before now.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
