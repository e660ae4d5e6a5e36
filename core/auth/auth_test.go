package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/chathub/core/auth"
	"github.com/relayhq/chathub/pkg/jwt"
)

func newService(t *testing.T) *auth.Service {
	t.Helper()
	svc, err := auth.New(auth.Config{SigningSecret: "test-secret"})
	require.NoError(t, err)
	return svc
}

func TestService_ValidateToken(t *testing.T) {
	t.Parallel()

	svc := newService(t)

	t.Run("valid token round-trips claims", func(t *testing.T) {
		token, err := svc.IssueToken(auth.Claims{
			StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
			UserID:         42,
			Username:       "alice",
			Role:           "member",
		})
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, int64(42), claims.UserID)
		assert.Equal(t, "alice", claims.Username)
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		token, err := svc.IssueToken(auth.Claims{
			StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(-time.Minute).Unix()},
			UserID:         42,
		})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		_, err := svc.ValidateToken("garbage")
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})

	t.Run("token without user id is unauthorized", func(t *testing.T) {
		token, err := svc.IssueToken(auth.Claims{Username: "ghost"})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrUnauthorized)
	})
}

func TestNew_RequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := auth.New(auth.Config{})
	assert.Error(t, err)
}
