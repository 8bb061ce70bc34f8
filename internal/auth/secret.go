package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/godilite/staff-perf/internal/repository/models"
)

const (
	minPINLength      = 4
	maxPINLength      = 6
	minPasswordLength = 8
)

// UsesPassword reports whether the role signs in with a password rather
// than a PIN.
func UsesPassword(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleHR
}

// ValidateSecret checks a new PIN or password against the role's rules.
func ValidateSecret(role models.Role, secret string) error {
	if UsesPassword(role) {
		if len(secret) < minPasswordLength {
			return fmt.Errorf("%w: password must be at least %d characters", ErrWeakSecret, minPasswordLength)
		}
		return nil
	}
	if len(secret) < minPINLength || len(secret) > maxPINLength {
		return fmt.Errorf("%w: PIN must be %d to %d digits", ErrWeakSecret, minPINLength, maxPINLength)
	}
	for _, r := range secret {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: PIN must contain digits only", ErrWeakSecret)
		}
	}
	return nil
}

// HashSecret validates and hashes a PIN or password.
func HashSecret(role models.Role, secret string) (string, error) {
	if err := ValidateSecret(role, secret); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckSecret returns ErrInvalidCredentials on mismatch.
func CheckSecret(hash, secret string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidCredentials
	}
	return err
}

// dummyHash is compared against when no usable account exists, so unknown
// and inactive logins cost the same bcrypt work as a wrong secret.
var dummyHash = sync.OnceValue(func() string {
	hashed, err := bcrypt.GenerateFromPassword([]byte("staffperf-no-such-account"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("generate dummy hash: %v", err))
	}
	return string(hashed)
})
