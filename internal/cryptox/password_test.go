package cryptox

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the property loops fast
var testParams = Argon2Params{Time: 1, MemoryKiB: 64, Threads: 1, KeyLen: 32}

func testSalt(i int) []byte {
	return []byte(fmt.Sprintf("salt-%012d", i))
}

func TestHash_Deterministic(t *testing.T) {
	h := NewHasher(testParams)
	salt := testSalt(1)

	d1, err := h.Hash([]byte("hunter2"), salt)
	require.NoError(t, err)
	d2, err := h.Hash([]byte("hunter2"), salt)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(d1, d2))
	assert.Len(t, d1, int(testParams.KeyLen))
}

func TestHash_DifferentSalts(t *testing.T) {
	h := NewHasher(testParams)

	d1, err := h.Hash([]byte("hunter2"), testSalt(1))
	require.NoError(t, err)
	d2, err := h.Hash([]byte("hunter2"), testSalt(2))
	require.NoError(t, err)

	assert.False(t, bytes.Equal(d1, d2))
}

func TestHash_ShortSalt(t *testing.T) {
	h := NewHasher(testParams)
	_, err := h.Hash([]byte("pw"), []byte("short"))
	assert.ErrorIs(t, err, ErrShortSalt)
}

func TestVerify_RoundTripProperty(t *testing.T) {
	h := NewHasher(testParams)
	passwords := []string{"", "a", "hunter2", "correct horse battery staple", "пароль", "p@ss\x00word"}

	for i, p := range passwords {
		salt := testSalt(i)
		digest, err := h.Hash([]byte(p), salt)
		require.NoError(t, err)

		assert.True(t, h.Verify([]byte(p), salt, digest), "password %q must verify", p)

		for _, other := range passwords {
			if other == p {
				continue
			}
			assert.False(t, h.Verify([]byte(other), salt, digest), "password %q must not verify against %q", other, p)
		}
	}
}

func TestVerify_RejectsTruncatedDigest(t *testing.T) {
	h := NewHasher(testParams)
	salt := testSalt(7)
	digest, err := h.Hash([]byte("hunter2"), salt)
	require.NoError(t, err)

	assert.False(t, h.Verify([]byte("hunter2"), salt, digest[:16]))
	assert.False(t, h.Verify([]byte("hunter2"), []byte("short"), digest))
}

func TestArgon2Params_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Argon2Params
		wantErr bool
	}{
		{"defaults", DefaultArgon2Params(), false},
		{"cheap", testParams, false},
		{"zero time", Argon2Params{Time: 0, MemoryKiB: 64, Threads: 1, KeyLen: 32}, true},
		{"zero threads", Argon2Params{Time: 1, MemoryKiB: 64, Threads: 0, KeyLen: 32}, true},
		{"memory below 8*threads", Argon2Params{Time: 1, MemoryKiB: 16, Threads: 4, KeyLen: 32}, true},
		{"short key", Argon2Params{Time: 1, MemoryKiB: 64, Threads: 1, KeyLen: 8}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
