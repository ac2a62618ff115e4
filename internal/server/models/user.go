package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the stored account. The core only ever mutates the lockout and
// last-login fields.
type User struct {
	ID          uuid.UUID
	UserName    string
	DisplayName string
	// UserTypes is the raw stored type tag; see policy.AudienceOf.
	UserTypes string

	PasswordHash []byte
	Salt         []byte

	AttemptedTimes  int
	LastAttemptedAt *time.Time
	LastLoginAt     *time.Time
	LastLoginID     *uuid.UUID

	IsEnabled bool
	IsDeleted bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Authenticatable is false for disabled or soft-deleted users.
func (u *User) Authenticatable() bool {
	return u.IsEnabled && !u.IsDeleted
}
