package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is tuned for tens of milliseconds per call on commodity
// hardware. Fixed at startup; read-only afterwards.
const BcryptCost = 12

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the hashed password. Any failure, including a malformed stored digest,
// reports a mismatch so corrupt storage never turns into a bypass or a crash
// at the call site.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrMismatchedHashAndPassword
	}
	return nil
}
