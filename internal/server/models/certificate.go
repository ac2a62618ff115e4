package models

import (
	"time"

	"github.com/google/uuid"
)

// Certificate is the persisted record of one issued access/refresh pair.
// UUID equals the jti claim of both tokens.
type Certificate struct {
	UUID     uuid.UUID
	Audience Audience
	UserID   uuid.UUID

	AccessToken      string
	AccessExpiredAt  time.Time
	RefreshToken     string
	RefreshExpiredAt time.Time

	// Audit only, never consulted for authentication.
	UserAgent string
	ClientIP  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLive reports whether the pair can still be refreshed at now.
func (c *Certificate) IsLive(now time.Time) bool {
	return now.Before(c.RefreshExpiredAt)
}
