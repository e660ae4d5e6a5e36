package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/chathub/pkg/jwt"
)

type testClaims struct {
	jwt.StandardClaims
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func TestService_RoundTrip(t *testing.T) {
	t.Parallel()

	service, err := jwt.NewFromString("test-secret")
	require.NoError(t, err)

	token, err := service.Generate(testClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   "42",
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
		UserID:   42,
		Username: "alice",
		Role:     "member",
	})
	require.NoError(t, err)

	var parsed testClaims
	require.NoError(t, service.Parse(token, &parsed))
	assert.Equal(t, int64(42), parsed.UserID)
	assert.Equal(t, "alice", parsed.Username)
	assert.Equal(t, "member", parsed.Role)
}

func TestService_Parse_Failures(t *testing.T) {
	t.Parallel()

	service, err := jwt.NewFromString("test-secret")
	require.NoError(t, err)

	t.Run("expired token", func(t *testing.T) {
		token, err := service.Generate(testClaims{
			StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(-time.Minute).Unix()},
		})
		require.NoError(t, err)

		var parsed testClaims
		assert.ErrorIs(t, service.Parse(token, &parsed), jwt.ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		token, err := service.Generate(testClaims{
			StandardClaims: jwt.StandardClaims{NotBefore: time.Now().Add(time.Hour).Unix()},
		})
		require.NoError(t, err)

		var parsed testClaims
		assert.ErrorIs(t, service.Parse(token, &parsed), jwt.ErrTokenNotYetValid)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := jwt.NewFromString("other-secret")
		require.NoError(t, err)

		token, err := service.Generate(testClaims{UserID: 1})
		require.NoError(t, err)

		var parsed testClaims
		assert.ErrorIs(t, other.Parse(token, &parsed), jwt.ErrSignatureInvalid)
	})

	t.Run("malformed token", func(t *testing.T) {
		var parsed testClaims
		assert.ErrorIs(t, service.Parse("not-a-token", &parsed), jwt.ErrMalformedToken)
		assert.ErrorIs(t, service.Parse("a.b", &parsed), jwt.ErrMalformedToken)
	})
}

func TestNew_EmptyKey(t *testing.T) {
	t.Parallel()

	_, err := jwt.New(nil)
	assert.ErrorIs(t, err, jwt.ErrEmptySigningKey)
}
