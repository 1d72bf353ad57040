package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword validates a password against a bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AdminCredential is the single configured admin identity. When PasswordHash
// is set it takes precedence over the plaintext Password.
type AdminCredential struct {
	Email        string
	Password     string
	PasswordHash string
}

// Configured reports whether the credential can ever match.
func (c AdminCredential) Configured() bool {
	return strings.TrimSpace(c.Email) != "" && (c.Password != "" || c.PasswordHash != "")
}

// Match compares both fields without short-circuiting on the email, so a
// wrong email and a wrong password cost the same.
func (c AdminCredential) Match(email, password string) bool {
	if !c.Configured() {
		return false
	}
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(c.Email)) == 1
	var passwordOK bool
	if c.PasswordHash != "" {
		passwordOK = CheckPassword(password, c.PasswordHash)
	} else {
		passwordOK = subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	}
	return emailOK && passwordOK
}
