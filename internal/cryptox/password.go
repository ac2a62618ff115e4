// Package cryptox holds the password hasher. It is the only code in the
// module that sees plaintext passwords; it never logs them or their digests.
package cryptox

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// MinSaltLength is the shortest salt accepted by Hash.
const MinSaltLength = 16

var ErrShortSalt = errors.New("salt is too short")

// Argon2Params is the argon2id work factor.
type Argon2Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
}

// DefaultArgon2Params follows the OWASP baseline for argon2id.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Time: 1, MemoryKiB: 64 * 1024, Threads: 4, KeyLen: 32}
}

// Validate reports whether p can be handed to argon2.IDKey.
func (p Argon2Params) Validate() error {
	if p.Time < 1 {
		return fmt.Errorf("argon2 time must be >= 1 (got %d)", p.Time)
	}
	if p.Threads < 1 {
		return fmt.Errorf("argon2 threads must be >= 1 (got %d)", p.Threads)
	}
	if p.MemoryKiB < 8*uint32(p.Threads) {
		return fmt.Errorf("argon2 memory must be >= 8*threads KiB (got %d)", p.MemoryKiB)
	}
	if p.KeyLen < 16 {
		return fmt.Errorf("argon2 key length must be >= 16 (got %d)", p.KeyLen)
	}
	return nil
}

// Hasher derives and verifies salted argon2id password digests. The salt is
// always supplied by the caller.
type Hasher struct {
	params Argon2Params
}

func NewHasher(p Argon2Params) *Hasher {
	return &Hasher{params: p}
}

// Hash returns the fixed-width digest of password under salt. The same
// inputs always yield the same digest.
func (h *Hasher) Hash(password, salt []byte) ([]byte, error) {
	if len(salt) < MinSaltLength {
		return nil, ErrShortSalt
	}
	p := h.params
	return argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Threads, p.KeyLen), nil
}

// Verify reports whether password hashes to digest under salt. The comparison
// is constant time.
func (h *Hasher) Verify(password, salt, digest []byte) bool {
	candidate, err := h.Hash(password, salt)
	if err != nil || len(candidate) != len(digest) {
		return false
	}
	return subtle.ConstantTimeCompare(candidate, digest) == 1
}
