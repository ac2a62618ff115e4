package auth

import (
	"errors"

	"github.com/dmitrijs2005/cmsauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Kind classifies why a token failed to decode.
type Kind int

const (
	KindMalformed Kind = iota + 1
	KindBadSignature
	KindExpired
	KindNotYetValid
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindBadSignature:
		return "bad_signature"
	case KindExpired:
		return "expired"
	case KindNotYetValid:
		return "not_yet_valid"
	default:
		return "unknown"
	}
}

// DecodeError is returned by Decode. It matches the Err* kind sentinels
// below and also common.ErrTokenExpired or common.ErrInvalidToken.
type DecodeError struct {
	Kind Kind
	Err  error
}

var (
	ErrMalformed    = &DecodeError{Kind: KindMalformed}
	ErrBadSignature = &DecodeError{Kind: KindBadSignature}
	ErrExpired      = &DecodeError{Kind: KindExpired}
	ErrNotYetValid  = &DecodeError{Kind: KindNotYetValid}
)

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "token " + e.Kind.String()
	}
	return "token " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	return ok && t.Kind == e.Kind
}

func (e *DecodeError) Unwrap() []error {
	public := common.ErrInvalidToken
	if e.Kind == KindExpired {
		public = common.ErrTokenExpired
	}
	if e.Err == nil {
		return []error{public}
	}
	return []error{public, e.Err}
}

// classify maps golang-jwt validation errors onto decode kinds.
func classify(err error) *DecodeError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &DecodeError{Kind: KindMalformed, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &DecodeError{Kind: KindBadSignature, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &DecodeError{Kind: KindExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued), errors.Is(err, jwt.ErrTokenNotValidYet):
		return &DecodeError{Kind: KindNotYetValid, Err: err}
	default:
		return &DecodeError{Kind: KindMalformed, Err: err}
	}
}
