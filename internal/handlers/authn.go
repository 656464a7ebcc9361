package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/playtube/backend/internal/logging"
)

type ctxKey string

const callerKey ctxKey = "caller"

// requireAuth verifies the caller's access token (cookie first, then the
// Authorization header) and attaches the caller's user ID to the request
// context.
func requireAuth(tokens TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := accessTokenFromRequest(r)
			if token == "" {
				respondError(ctx, w, newAPIError(http.StatusUnauthorized, "unauthorized request"))
				return
			}

			claims, err := tokens.VerifyAccess(token)
			if err != nil {
				logging.FromContext(ctx).Warn("access token rejected", "error", err)
				respondError(ctx, w, newAPIError(http.StatusUnauthorized, "invalid access token"))
				return
			}

			ctx = context.WithValue(ctx, callerKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// maybeAuth attaches the caller's user ID when a valid access token is
// present but never rejects the request. Used on public routes whose
// responses vary for the resource owner.
func maybeAuth(tokens TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := accessTokenFromRequest(r); token != "" {
				if claims, err := tokens.VerifyAccess(token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), callerKey, claims.UserID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func accessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(accessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

// callerID returns the authenticated user's ID, or "" when the request did
// not pass through requireAuth.
func callerID(ctx context.Context) string {
	if id, ok := ctx.Value(callerKey).(string); ok {
		return id
	}
	return ""
}
