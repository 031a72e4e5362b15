package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithIdentityAndFromContext(t *testing.T) {
	t.Run("Store and retrieve identity from context", func(t *testing.T) {
		id := Identity{IsAuth: true, UserID: "u-1", Role: "USER"}
		ctx := WithIdentity(context.Background(), id)

		assert.Equal(t, id, FromContext(ctx))
	})

	t.Run("Anonymous when identity not in context", func(t *testing.T) {
		id := FromContext(context.Background())

		assert.False(t, id.IsAuth)
		assert.Empty(t, id.UserID)
		assert.Empty(t, id.Role)
	})

	t.Run("Anonymous when context value has wrong type", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), identityKey, "not-an-identity")

		assert.False(t, FromContext(ctx).IsAuth)
	})

	t.Run("Admin role is case-insensitive", func(t *testing.T) {
		assert.True(t, Identity{Role: "ADMIN"}.IsAdmin())
		assert.True(t, Identity{Role: "admin"}.IsAdmin())
		assert.False(t, Identity{Role: "USER"}.IsAdmin())
	})
}

func TestExtractTokenFromHeader(t *testing.T) {
	t.Run("Valid Bearer token", func(t *testing.T) {
		assert.Equal(t, "token123", extractTokenFromHeader("Bearer token123"))
	})

	t.Run("Invalid format - no Bearer prefix", func(t *testing.T) {
		assert.Equal(t, "", extractTokenFromHeader("NotBearer token123"))
	})

	t.Run("Invalid format - no space", func(t *testing.T) {
		assert.Equal(t, "", extractTokenFromHeader("Bearertoken123"))
	})

	t.Run("Empty header", func(t *testing.T) {
		assert.Equal(t, "", extractTokenFromHeader(""))
	})
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "test_login_secret"
	tokens := NewTokens(secret, "test_reset_secret")

	// тестовый обработчик печатает то, что middleware положил в контекст
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := FromContext(r.Context())
		if id.IsAuth {
			fmt.Fprintf(w, "User ID: %s, role: %s", id.UserID, id.Role)
		} else {
			fmt.Fprint(w, "No user ID in context")
		}
	})
	handler := AuthMiddleware(tokens)(testHandler)

	serve := func(header string) string {
		req := httptest.NewRequest("POST", "/query", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Body.String()
	}

	t.Run("Valid token", func(t *testing.T) {
		token, err := tokens.IssueSession("123", "a@x.com", "ADMIN")
		require.NoError(t, err)

		assert.Equal(t, "User ID: 123, role: ADMIN", serve("Bearer "+token))
	})

	t.Run("Invalid token signature", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"userId": "123",
			"exp":    time.Now().Add(time.Hour).Unix(),
		})
		tokenString, err := token.SignedString([]byte("wrong_secret"))
		require.NoError(t, err)

		assert.Equal(t, "No user ID in context", serve("Bearer "+tokenString))
	})

	t.Run("Expired token", func(t *testing.T) {
		past := NewTokens(secret, "").WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
		token, err := past.IssueSession("123", "a@x.com", "USER")
		require.NoError(t, err)

		assert.Equal(t, "No user ID in context", serve("Bearer "+token))
	})

	t.Run("Token without userId", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"email": "a@x.com",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})
		tokenString, err := token.SignedString([]byte(secret))
		require.NoError(t, err)

		assert.Equal(t, "No user ID in context", serve("Bearer "+tokenString))
	})

	t.Run("No token", func(t *testing.T) {
		assert.Equal(t, "No user ID in context", serve(""))
	})

	t.Run("Invalid token format", func(t *testing.T) {
		assert.Equal(t, "No user ID in context", serve("InvalidFormat"))
	})
}
