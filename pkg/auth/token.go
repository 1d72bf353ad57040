package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultTokenIssuer = "leaddesk-admin"
	minSecretLen       = 32
)

var (
	// ErrMissingCredential means no token was presented.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidCredential covers malformed, tampered or foreign tokens.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrExpiredCredential means a correctly signed token is past its expiry.
	ErrExpiredCredential = errors.New("expired credential")
)

// TokenOptions configures claim validation behavior.
type TokenOptions struct {
	Issuer string
	Leeway time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Token is an issued admin credential.
type Token struct {
	Value     string
	Subject   string
	ExpiresAt time.Time
}

// TokenService issues and verifies stateless HS256 admin tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewTokenService builds a token service signing with secret.
func NewTokenService(secret string, ttl time.Duration, opts TokenOptions) (*TokenService, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("token secret must be at least %d bytes", minSecretLen)
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	if opts.Leeway < 0 {
		return nil, errors.New("token leeway must not be negative")
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = defaultTokenIssuer
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		leeway: opts.Leeway,
		now:    now,
	}, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject valid from now until now+TTL.
func (s *TokenService) Issue(subject string) (Token, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Token{}, errors.New("token subject required")
	}
	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, Subject: subject, ExpiresAt: expiresAt}, nil
}

// Verify checks signature first, then expiry, and returns the subject.
func (s *TokenService) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingCredential
	}
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		// The parser checks the signature before any time-based claim, so
		// ErrTokenExpired only appears on authentic tokens.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredCredential
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidCredential
	}
	return claims.Subject, nil
}
