package authkit

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost is the bcrypt work factor used for stored passwords.
const DefaultPasswordCost = 10

// PasswordHasher hashes and verifies plaintext passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher builds a hasher. A cost outside bcrypt's range falls back
// to DefaultPasswordCost.
func NewPasswordHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultPasswordCost
	}
	return PasswordHasher{cost: cost}
}

// Hash returns a salted digest; hashing the same input twice yields different digests.
func (hasher PasswordHasher) Hash(plaintext string) (string, error) {
	cost := hasher.cost
	if cost == 0 {
		cost = DefaultPasswordCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("password.hash: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest.
func (hasher PasswordHasher) Verify(plaintext string, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
