package app

import (
	"fmt"
	"time"

	"leaddesk/pkg/auth"
)

// LoginResult is returned to the admin client after a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login checks the single admin credential and issues an access token. The
// email must match the configured one exactly.
func (a *App) Login(email, password string) (LoginResult, error) {
	if !a.admin.Match(email, password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	token, err := a.tokens.Issue(a.admin.Email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	return LoginResult{
		Token:     token.Value,
		Email:     token.Subject,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// VerifyAdmin validates a bearer token and returns the admin email it was
// issued to. Tokens for any other subject are rejected.
func (a *App) VerifyAdmin(token string) (string, error) {
	subject, err := a.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	if subject != a.admin.Email {
		return "", fmt.Errorf("%w: unexpected subject", auth.ErrInvalidCredential)
	}
	return subject, nil
}
