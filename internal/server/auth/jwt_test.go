package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/cmsauth/internal/clockx"
	"github.com/dmitrijs2005/cmsauth/internal/common"
	"github.com/dmitrijs2005/cmsauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testT = 1_700_000_000

var testKey = []byte("test-secret-32-bytes-000000000000")

func sampleClaims(scope Scope, aud models.Audience, iat int64, ttl int64) Claims {
	return Claims{
		ID:        uuid.New(),
		Subject:   uuid.New(),
		Audience:  aud,
		Scope:     scope,
		IssuedAt:  jwt.NewNumericDate(time.Unix(iat, 0)),
		ExpiresAt: jwt.NewNumericDate(time.Unix(iat+ttl, 0)),
	}
}

func claimSamples() []Claims {
	return []Claims{
		sampleClaims(ScopeAccess, models.AudienceManager, testT, 900),
		sampleClaims(ScopeRefresh, models.AudienceManager, testT, 604800),
		sampleClaims(ScopeAccess, models.AudienceOpen, 1, 1),
		sampleClaims(ScopeRefresh, models.AudienceOpen, testT+12345, 60),
	}
}

func assertSameClaims(t *testing.T, want Claims, got *Claims) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Subject, got.Subject)
	assert.Equal(t, want.Audience, got.Audience)
	assert.Equal(t, want.Scope, got.Scope)
	assert.Equal(t, want.IssuedAt.Unix(), got.IssuedAt.Unix())
	assert.Equal(t, want.ExpiresAt.Unix(), got.ExpiresAt.Unix())
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	for _, c := range claimSamples() {
		tok, err := Encode(c, testKey)
		require.NoError(t, err)

		got, err := Decode(tok, testKey, c.IssuedAt.Time)
		require.NoError(t, err)
		assertSameClaims(t, c, got)
	}
}

func TestDecode_WrongKey(t *testing.T) {
	for _, c := range claimSamples() {
		tok, err := Encode(c, testKey)
		require.NoError(t, err)

		_, err = Decode(tok, []byte("another-secret-32-bytes-111111111"), c.IssuedAt.Time)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBadSignature)
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	}
}

func TestDecode_Expired(t *testing.T) {
	for _, c := range claimSamples() {
		tok, err := Encode(c, testKey)
		require.NoError(t, err)

		_, err = Decode(tok, testKey, c.ExpiresAt.Add(time.Second))
		assert.ErrorIs(t, err, ErrExpired)
		assert.ErrorIs(t, err, common.ErrTokenExpired)

		// exp itself is already outside the validity window
		_, err = Decode(tok, testKey, c.ExpiresAt.Time)
		assert.ErrorIs(t, err, ErrExpired)
	}
}

func TestDecode_NotYetValid(t *testing.T) {
	c := sampleClaims(ScopeAccess, models.AudienceManager, testT, 900)
	tok, err := Encode(c, testKey)
	require.NoError(t, err)

	_, err = Decode(tok, testKey, time.Unix(testT-1, 0))
	assert.ErrorIs(t, err, ErrNotYetValid)
}

func TestDecode_Malformed(t *testing.T) {
	inputs := []string{"", "not.a.jwt", "abc", "a.b.c.d", "eyJhbGciOiJIUzI1NiJ9..sig"}
	for _, in := range inputs {
		_, err := Decode(in, testKey, time.Unix(testT, 0))
		require.Error(t, err, "input %q", in)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", in)
	}
}

func TestDecode_TamperedPayload(t *testing.T) {
	c := sampleClaims(ScopeRefresh, models.AudienceOpen, testT, 900)
	tok, err := Encode(c, testKey)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	forged := strings.Replace(string(payload), `"scope":"refresh"`, `"scope":"access"`, 1)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	_, err = Decode(strings.Join(parts, "."), testKey, time.Unix(testT, 0))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestDecode_RejectsOtherAlgorithms(t *testing.T) {
	c := sampleClaims(ScopeAccess, models.AudienceManager, testT, 900)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, c).SignedString(testKey)
	require.NoError(t, err)

	_, err = Decode(tok, testKey, time.Unix(testT, 0))
	assert.ErrorIs(t, err, ErrBadSignature)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = Decode(none, testKey, time.Unix(testT, 0))
	assert.Error(t, err)
}

func TestEncode_CanonicalHeaderAndPayload(t *testing.T) {
	c := Claims{
		ID:        uuid.MustParse("11111111-1111-4111-8111-111111111111"),
		Subject:   uuid.MustParse("22222222-2222-4222-8222-222222222222"),
		Audience:  models.AudienceManager,
		Scope:     ScopeAccess,
		IssuedAt:  jwt.NewNumericDate(time.Unix(testT, 0)),
		ExpiresAt: jwt.NewNumericDate(time.Unix(testT+900, 0)),
	}
	tok1, err := Encode(c, testKey)
	require.NoError(t, err)
	tok2, err := Encode(c, testKey)
	require.NoError(t, err)
	assert.Equal(t, tok1, tok2)

	parts := strings.Split(tok1, ".")
	require.Len(t, parts, 3)

	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Equal(t, `{"alg":"HS256","typ":"JWT"}`, string(header))

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Equal(t,
		`{"jti":"11111111-1111-4111-8111-111111111111","sub":"22222222-2222-4222-8222-222222222222","aud":"manager","scope":"access","iat":1700000000,"exp":1700000900}`,
		string(payload))
}

func TestCodec_DecodeScoped(t *testing.T) {
	clock := clockx.NewFakeUnix(testT)
	codec := NewCodec(testKey, clock)

	access := sampleClaims(ScopeAccess, models.AudienceManager, testT, 900)
	tok, err := codec.Encode(access)
	require.NoError(t, err)

	got, err := codec.DecodeScoped(tok, ScopeAccess)
	require.NoError(t, err)
	assertSameClaims(t, access, got)

	_, err = codec.DecodeScoped(tok, ScopeRefresh)
	assert.ErrorIs(t, err, common.ErrWrongScope)

	clock.Advance(901 * time.Second)
	_, err = codec.DecodeScoped(tok, ScopeAccess)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestDecodeError_Messages(t *testing.T) {
	err := &DecodeError{Kind: KindExpired, Err: errors.New("boom")}
	assert.Equal(t, "token expired: boom", err.Error())
	assert.Equal(t, "token malformed", ErrMalformed.Error())
	assert.False(t, errors.Is(err, ErrMalformed))
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, IdentityFromContext(ctx))

	id := &Identity{UserID: uuid.New(), Audience: models.AudienceOpen, JTI: uuid.New()}
	ctx = WithIdentity(ctx, id)
	assert.Same(t, id, IdentityFromContext(ctx))
}
