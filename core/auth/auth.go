package auth

import (
	"errors"
	"fmt"

	"github.com/relayhq/chathub/pkg/jwt"
)

// ErrUnauthorized is returned for any token that cannot be trusted:
// malformed, expired, or carrying an invalid signature.
var ErrUnauthorized = errors.New("unauthorized")

// Config holds token validation settings.
type Config struct {
	// SigningSecret is the shared HMAC key tokens are signed with.
	SigningSecret string `env:"JWT_SECRET,required"`
}

// Claims is the authenticated identity carried by a valid token.
type Claims struct {
	jwt.StandardClaims
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Service validates bearer tokens against a single signing key.
type Service struct {
	tokens *jwt.Service
}

// New creates a token validation service.
func New(cfg Config) (*Service, error) {
	svc, err := jwt.NewFromString(cfg.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	return &Service{tokens: svc}, nil
}

// ValidateToken parses and verifies a token, returning its claims. Every
// failure is reported as ErrUnauthorized; the underlying cause is wrapped
// for logging but carries no extra trust distinctions.
func (s *Service) ValidateToken(token string) (Claims, error) {
	var claims Claims
	if err := s.tokens.Parse(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if claims.UserID <= 0 {
		return Claims{}, fmt.Errorf("%w: token has no user id", ErrUnauthorized)
	}
	return claims, nil
}

// IssueToken signs claims into a token. Primarily used by tests and
// tooling; production tokens are minted by the account service.
func (s *Service) IssueToken(claims Claims) (string, error) {
	return s.tokens.Generate(claims)
}
