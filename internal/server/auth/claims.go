package auth

import (
	"time"

	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Scope is the intended use of a single token.
type Scope string

const (
	ScopeAccess  Scope = "access"
	ScopeRefresh Scope = "refresh"
)

// Claims is the token payload. Field order is the JSON key order, so
// encoding is canonical and signatures are reproducible.
type Claims struct {
	ID        uuid.UUID        `json:"jti"`
	Subject   uuid.UUID        `json:"sub"`
	Audience  models.Audience  `json:"aud"`
	Scope     Scope            `json:"scope"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
}

var _ jwt.Claims = Claims{}

// NewClaims builds the payload of one token of a pair.
func NewClaims(jti, subject uuid.UUID, audience models.Audience, scope Scope, issuedAt, expiresAt time.Time) Claims {
	return Claims{
		ID:        jti,
		Subject:   subject,
		Audience:  audience,
		Scope:     scope,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c Claims) GetIssuer() (string, error)                   { return "", nil }
func (c Claims) GetSubject() (string, error)                  { return c.Subject.String(), nil }

func (c Claims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings{string(c.Audience)}, nil
}
