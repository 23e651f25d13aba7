// Package credentials hashes and verifies user secrets. Secrets are never
// stored or compared in plaintext.
package credentials

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinSecretLength is the shortest secret accepted by Hash.
const MinSecretLength = 8

var (
	// ErrSecretTooShort is returned for secrets shorter than MinSecretLength.
	ErrSecretTooShort = errors.New("credentials: secret too short")

	// ErrMismatch is returned when a secret does not match its hash.
	ErrMismatch = errors.New("credentials: secret does not match")
)

// Hasher produces salted bcrypt hashes at a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, falling back to bcrypt.DefaultCost
// when cost is outside bcrypt's accepted range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the salted hash of secret.
func (h *Hasher) Hash(secret string) (string, error) {
	if len(secret) < MinSecretLength {
		return "", ErrSecretTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify compares secret against a hash produced by Hash.
func Verify(hash, secret string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
