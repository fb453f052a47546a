package middleware

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/cinegate/cinegate/internal/session"
)

type contextKey string

const sessionKey contextKey = "session"

// SessionAuth resolves the session token of every request and stores the
// result in its context. Requests are never rejected here; operations that
// need an identity check for it themselves.
func SessionAuth(res *session.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := res.Resolve(r)
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFromContext returns the session stored by SessionAuth, or an
// Anonymous session when none is present.
func SessionFromContext(ctx context.Context) session.Session {
	sess, ok := ctx.Value(sessionKey).(session.Session)
	if !ok {
		return session.Session{State: session.Anonymous}
	}
	return sess
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
