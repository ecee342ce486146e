// Package middleware provides HTTP middleware for session authentication and
// request correlation.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/auth"
)

// ErrMissingToken is passed to the failure handler when no token was sent.
var ErrMissingToken = errors.New("no session token")

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// userKey is the context key for storing the authenticated user.
const userKey ContextKey = "user"

// SessionResolver resolves a client token to its owner.
// *auth.Service implements it.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*auth.User, error)
}

// FailureHandler writes the response for a rejected request.
type FailureHandler func(w http.ResponseWriter, r *http.Request, err error)

// Auth resolves the session token from the Authorization header or the
// session cookie and stores the user in the request context. Requests without
// a live session are passed to onFail.
func Auth(sessions SessionResolver, cookieName string, onFail FailureHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, cookieName)
			if token == "" {
				onFail(w, r, ErrMissingToken)
				return
			}

			user, err := sessions.ResolveSession(r.Context(), token)
			if err != nil {
				onFail(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// TokenFromRequest returns the bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Handle case-insensitive "Bearer" prefix
		parts := strings.Fields(authHeader)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFrom returns the authenticated user stored by Auth, if any.
func UserFrom(ctx context.Context) (*auth.User, bool) {
	user, ok := ctx.Value(userKey).(*auth.User)
	return user, ok && user != nil
}
