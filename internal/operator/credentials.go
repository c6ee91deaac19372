package operator

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// bcryptCost defines the computational cost for bcrypt hashing.
	// Cost 10 = ~60ms per hash.
	bcryptCost  = 10
	bcryptLimit = 72
)

// ErrEmptyPassword is returned when an empty password is offered for hashing.
var ErrEmptyPassword = errors.New("password cannot be empty")

// HashPassword generates a bcrypt digest of the password for storage.
// The password is never stored in clear form - only the digest is persisted.
//
// Note: Bcrypt has a 72-byte input limit. For longer passwords, we pre-hash
// with SHA-256 to ensure consistent behavior while maintaining security
// properties.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	digest, err := bcrypt.GenerateFromPassword(bcryptInput(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(digest), nil
}

// VerifyPassword performs a one-way comparison of a password against a stored
// bcrypt digest. Returns false for any error condition (empty inputs, invalid
// digest format). The comparison is never reversible.
func VerifyPassword(digest, password string) bool {
	if digest == "" || password == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(digest), bcryptInput(password)) == nil
}

// bcryptInput prepares a password for bcrypt, pre-hashing inputs that exceed
// bcrypt's 72-byte limit. Must be identical for hashing and verification.
func bcryptInput(password string) []byte {
	if len(password) <= bcryptLimit {
		return []byte(password)
	}

	hasher := sha256.New()
	hasher.Write([]byte(password))

	return hasher.Sum(nil)
}
