package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"lumina/internal/httputil"
	"lumina/internal/model"
	"lumina/internal/service"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// SessionKey is the context key for the caller's live session
	SessionKey contextKey = "session"

	// SessionCookie is read when no Authorization header is sent
	SessionCookie = "session_token"
)

// TokenParser validates session tokens.
type TokenParser interface {
	Parse(token string) (*model.SessionClaims, error)
}

// SessionLookup resolves a session id to its live session.
type SessionLookup interface {
	Get(sessionID string) (*service.Session, error)
}

// SessionMiddleware validates the session token and loads the session.
// Checks the Authorization header first, then falls back to a cookie.
func SessionMiddleware(tokens TokenParser, sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := TokenFromRequest(r)
			if tokenString == "" {
				httputil.WriteUnauthorized(w, "Missing session token")
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				if errors.Is(err, model.ErrSessionTokenExpired) {
					httputil.WriteUnauthorizedWithCode(w, model.CodeSessionExpired, "Session token has expired")
					return
				}
				httputil.WriteUnauthorizedWithCode(w, model.CodeSessionInvalid, "Invalid session token")
				return
			}

			session, err := sessions.Get(claims.SessionID)
			if err != nil || session.DeviceID() != claims.DeviceID {
				// Token is well formed but the session ended or the server restarted.
				httputil.WriteUnauthorizedWithCode(w, model.CodeSessionExpired, "Session no longer exists")
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest returns the session token from the Authorization header,
// or from the session cookie when no header is sent.
func TokenFromRequest(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// GetSessionFromContext extracts the session placed by SessionMiddleware.
func GetSessionFromContext(ctx context.Context) (*service.Session, bool) {
	s, ok := ctx.Value(SessionKey).(*service.Session)
	return s, ok && s != nil
}

// WithSession returns ctx carrying s. Used by tests to skip token handling.
func WithSession(ctx context.Context, s *service.Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}
