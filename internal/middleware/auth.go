package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/akuru-app/akuru/internal/auth"
	"github.com/akuru-app/akuru/pkg/utils"
)

type contextKey string

const claimsKey contextKey = "auth-claims"

// RequireAuth rejects requests without a valid bearer access token and
// stores the verified claims on the request context.
func RequireAuth(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				utils.RespondError(w, http.StatusUnauthorized, "Token is missing")
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			claims, err := tokens.VerifyAccess(token)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "Token is invalid")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// ClaimsFrom returns the verified claims placed by RequireAuth.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}
