package middleware

import (
	"net/http"
	"strings"

	"github.com/shashiranjanraj/billbook/pkg/auth"
	"github.com/shashiranjanraj/billbook/pkg/logger"
	"github.com/shashiranjanraj/billbook/pkg/response"
)

// Auth verifies the bearer token and stores its claims in the request
// context; handlers read the owner with auth.UserID(ctx).
//
// Browsers cannot set headers on websocket upgrades, so a "token" query
// parameter is accepted for Upgrade requests only.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearer(r)
		if token == "" {
			response.Unauthorized(w, "Unauthorized")
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			logger.WithCtx(r.Context()).Debug("token rejected", "error", err)
			response.Unauthorized(w, "Invalid token")
			return
		}

		ctx := auth.WithClaims(r.Context(), claims)
		ctx = logger.InjectLogger(ctx, logger.WithCtx(ctx).With("user_id", claims.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("token")
	}
	return ""
}
