// Package common defines shared constants and sentinel errors used across
// the auth core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound   = errors.New("not found")
	ErrDuplicateJTI = errors.New("duplicate jti")

	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Login errors.
	ErrInvalidCredentials = errors.New("login failed")
	ErrAccountLocked      = errors.New("account temporarily locked")

	// Token errors.
	ErrMissingToken = errors.New("authentication required")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrWrongScope   = errors.New("wrong token scope")

	// Session lifecycle errors.
	ErrRevoked = errors.New("session expired")

	// Authorization errors.
	ErrForbidden = errors.New("not permitted")
)

// Kind returns the logical name of err for logs and metric labels.
// Unrecognised errors are "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrWrongScope):
		return "wrong_scope"
	case errors.Is(err, ErrRevoked):
		return "revoked"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}
