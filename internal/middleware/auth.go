// internal/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gurkanbulca/workhub/pkg/auth"
)

// ContextKeys for storing request metadata
type ContextKey string

const (
	ContextKeyUserID   ContextKey = "user_id"
	ContextKeyUserName ContextKey = "user_name"
	ContextKeyUserRole ContextKey = "user_role"
	ContextKeyClaims   ContextKey = "claims"
)

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	tokenManager *auth.TokenManager
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(tokenManager *auth.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tokenManager}
}

// Wrap returns a handler that rejects requests without a valid bearer token
// and stores the verified claims in the request context.
func (a *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeAuthError(w, "authorization token is not provided")
			return
		}

		claims, err := a.tokenManager.Verify(token)
		if err != nil {
			writeAuthError(w, "invalid or expired token")
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, ContextKeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, ContextKeyUserName, claims.FullName)
		ctx = context.WithValue(ctx, ContextKeyUserRole, claims.SystemRole)
		ctx = context.WithValue(ctx, ContextKeyClaims, claims)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext retrieves the authenticated user ID from context
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyUserID).(string)
	return id, ok
}

// ClaimsFromContext retrieves the verified token claims from context
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*auth.Claims)
	return claims, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
