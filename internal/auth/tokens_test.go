package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_Session(t *testing.T) {
	tokens := NewTokens("login", "reset")

	t.Run("Session token carries user claims and expires in one hour", func(t *testing.T) {
		token, err := tokens.IssueSession("u-1", "a@x.com", "USER")
		require.NoError(t, err)

		claims, err := tokens.ParseSession(token)
		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.UserID)
		assert.Equal(t, "a@x.com", claims.Email)
		assert.Equal(t, "USER", claims.Role)
		require.NotNil(t, claims.IssuedAt)
		require.NotNil(t, claims.ExpiresAt)
		assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	})

	t.Run("Reset token is not accepted as session", func(t *testing.T) {
		token, err := tokens.IssueReset("u-1", "a@x.com")
		require.NoError(t, err)

		_, err = tokens.ParseSession(token)
		assert.Error(t, err)
	})

	t.Run("Missing secret", func(t *testing.T) {
		_, err := NewTokens("", "").IssueSession("u-1", "a@x.com", "USER")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not configured")
	})
}

func TestTokens_Reset(t *testing.T) {
	tokens := NewTokens("login", "reset")

	t.Run("Reset token verifies and expires in fifteen minutes", func(t *testing.T) {
		token, err := tokens.IssueReset("u-1", "a@x.com")
		require.NoError(t, err)

		claims, err := tokens.VerifyReset(token)
		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.UserID)
		assert.Equal(t, 15*time.Minute, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	})

	t.Run("Expired reset token", func(t *testing.T) {
		old := NewTokens("login", "reset").WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
		token, err := old.IssueReset("u-1", "a@x.com")
		require.NoError(t, err)

		_, err = tokens.VerifyReset(token)
		assert.Error(t, err)
	})

	t.Run("Garbage token", func(t *testing.T) {
		_, err := tokens.VerifyReset("not.a.jwt")
		assert.Error(t, err)
	})
}
