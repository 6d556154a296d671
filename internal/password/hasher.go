// Package password provides one-way password hashing and verification.
package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for new hashes.
const DefaultCost = 12

var ErrEmptyPassword = errors.New("password cannot be empty")

// Hasher turns a plaintext password into a verifiable, non-reversible
// digest. Verify must not leak timing information proportional to how
// much of the digest matches.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// BcryptHasher is the production hasher: salted, iterated, adaptive.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// LegacySHA256Hasher verifies unsalted hex-encoded SHA-256 digests as
// produced by the old client-side portal. It exists only so accounts
// imported from that mode can still log in; new hashes must come from
// BcryptHasher.
type LegacySHA256Hasher struct{}

func NewLegacySHA256Hasher() *LegacySHA256Hasher {
	return &LegacySHA256Hasher{}
}

func (h *LegacySHA256Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:]), nil
}

func (h *LegacySHA256Hasher) Verify(plaintext, digest string) bool {
	sum := sha256.Sum256([]byte(plaintext))
	computed := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}
