package jwt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StandardClaims holds the registered JWT claims this package validates.
// Embed it in a custom claims struct to get temporal validation for free.
type StandardClaims struct {
	Subject   string `json:"sub,omitempty"`
	Issuer    string `json:"iss,omitempty"`
	Audience  string `json:"aud,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
	NotBefore int64  `json:"nbf,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Service signs and verifies tokens with a single HMAC-SHA256 key.
type Service struct {
	key []byte
}

// New creates a Service with the given signing key.
func New(key []byte) (*Service, error) {
	if len(key) == 0 {
		return nil, ErrEmptySigningKey
	}
	return &Service{key: key}, nil
}

// NewFromString creates a Service from a string signing key.
func NewFromString(key string) (*Service, error) {
	return New([]byte(key))
}

// Generate produces a signed token for the given claims. Claims may be
// any JSON-serializable value.
func (s *Service) Generate(claims any) (string, error) {
	headerJSON, err := json.Marshal(header{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFailedToSignToken, err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFailedToSignToken, err)
	}

	signing := base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(claimsJSON)

	return signing + "." + s.sign(signing), nil
}

// Parse verifies the token signature and temporal claims, then unmarshals
// the payload into claims (a pointer).
func (s *Service) Parse(token string, claims any) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ErrMalformedToken
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return ErrMalformedToken
	}
	var h header
	if err := json.Unmarshal(headerJSON, &h); err != nil {
		return ErrMalformedToken
	}
	if h.Alg != "HS256" {
		return ErrUnsupportedAlg
	}

	expected := s.sign(parts[0] + "." + parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return ErrSignatureInvalid
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ErrMalformedToken
	}

	var std StandardClaims
	if err := json.Unmarshal(payload, &std); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToParseClaims, err)
	}
	now := time.Now().Unix()
	if std.ExpiresAt != 0 && now >= std.ExpiresAt {
		return ErrExpiredToken
	}
	if std.NotBefore != 0 && now < std.NotBefore {
		return ErrTokenNotYetValid
	}

	if err := json.Unmarshal(payload, claims); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToParseClaims, err)
	}
	return nil
}

func (s *Service) sign(data string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
