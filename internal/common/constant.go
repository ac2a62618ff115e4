package common

const (
	// AuthorizationHeaderName carries the bearer token on every request.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the encoded token in the Authorization header.
	BearerPrefix = "Bearer "

	// MaxJTIAttempts bounds how many times login regenerates a jti after a
	// duplicate-key conflict.
	MaxJTIAttempts = 3
)
