// internal/auth/context.go
package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const identityKey = contextKey("identity")

// Identity - данные о вызывающем пользователе, доступные каждому резолверу.
type Identity struct {
	IsAuth bool
	UserID string
	Role   string
}

// IsAdmin - роль сравнивается без учета регистра.
func (i Identity) IsAdmin() bool {
	return strings.EqualFold(i.Role, "admin")
}

// Сохраняет Identity в контексте
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Достает Identity из контекста. Если ее нет - вызов анонимный.
func FromContext(ctx context.Context) Identity {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok {
		return Identity{}
	}
	return id
}

// SessionParser проверяет токен сессии и возвращает его claims.
type SessionParser interface {
	ParseSession(token string) (*SessionClaims, error)
}

// Для извлечения пользователя из JWT и помещения в context
func AuthMiddleware(tokens SessionParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := extractTokenFromHeader(r.Header.Get("Authorization"))
			if tokenStr == "" {
				next.ServeHTTP(w, r) // неавторизованный доступ пропускаем
				return
			}

			claims, err := tokens.ParseSession(tokenStr)
			if err != nil {
				next.ServeHTTP(w, r) // невалидный токен тоже пропускаем
				return
			}

			ctx := WithIdentity(r.Context(), Identity{
				IsAuth: true,
				UserID: claims.UserID,
				Role:   claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractTokenFromHeader(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}
