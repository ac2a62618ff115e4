// Package auth encodes and decodes the signed bearer tokens and carries the
// request-scoped identity derived from them.
package auth

import (
	"time"

	"github.com/dmitrijs2005/cmsauth/internal/clockx"
	"github.com/dmitrijs2005/cmsauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Encode signs claims with HMAC-SHA256 and returns the compact
// header.payload.signature form.
func Encode(claims Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// Decode verifies the signature and the time claims against now. Errors are
// *DecodeError values; scope is not checked here.
func Decode(tokenString string, key []byte, now time.Time) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if claims.ID == uuid.Nil || claims.Subject == uuid.Nil || claims.IssuedAt == nil {
		return nil, ErrMalformed
	}
	switch claims.Scope {
	case ScopeAccess, ScopeRefresh:
	default:
		return nil, ErrMalformed
	}

	return claims, nil
}

// Codec binds the process-wide signing key to a clock.
type Codec struct {
	key   []byte
	clock clockx.Clock
}

func NewCodec(key []byte, clock clockx.Clock) *Codec {
	return &Codec{key: key, clock: clock}
}

func (c *Codec) Encode(claims Claims) (string, error) {
	return Encode(claims, c.key)
}

// DecodeScoped decodes at the current time and additionally requires scope.
// A token of the other scope yields common.ErrWrongScope.
func (c *Codec) DecodeScoped(tokenString string, scope Scope) (*Claims, error) {
	claims, err := Decode(tokenString, c.key, c.clock.Now())
	if err != nil {
		return nil, err
	}
	if claims.Scope != scope {
		return nil, common.ErrWrongScope
	}
	return claims, nil
}
