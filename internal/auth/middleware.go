package auth

import (
	"context"
	"net/http"
)

// TokenCookie is the HttpOnly cookie holding the signed JWT.
const TokenCookie = "token"

// contextKey is package-private so no other package can read or shadow the
// identity stored in a request context.
type contextKey string

const userIDKey contextKey = "userID"

// OptionalAuth identifies the caller without ever rejecting the request.
//
// A valid token cookie puts the user ID into the context; a missing, expired
// or forged one leaves the request anonymous. Deciding what an anonymous
// visitor may do is not this middleware's job: pages that need a signed-in
// user redirect to the login entry point themselves.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil && userID != "" {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous callers with 401. It guards the JSON
// endpoints under /auth; HTML-style pages use the login redirect instead.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil || userID == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns a copy of ctx carrying userID as the acting identity.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the acting user's ID, or ("", false) for an
// anonymous request.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(TokenCookie)
	if err != nil {
		// http.ErrNoCookie: anonymous, not a failure
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
