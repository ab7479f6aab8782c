package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword derives a bcrypt hash of the plaintext at the given cost.
// The cost comes from configuration so test and production environments
// can trade hashing time for security independently.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// CheckPassword compares a stored bcrypt hash against a plaintext
// candidate.  A nil return means they match; any error, including a
// malformed hash, means the credentials must be rejected.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
