// Package session resolves the identity of an inbound request from its
// signed session token and carries it to the handlers.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cinegate/cinegate/internal/crypto"
	"github.com/cinegate/cinegate/internal/metrics"
	"github.com/cinegate/cinegate/internal/model"
)

// CookieName is the single cookie carrying the session token.
const CookieName = "auth_token"

// State is the outcome of resolving a request.
type State int

const (
	Anonymous State = iota
	Verified
)

func (s State) String() string {
	if s == Verified {
		return "verified"
	}
	return "anonymous"
}

// Session is the resolved identity of one request. User is set only in
// the Verified state. Reason records why a presented token was rejected.
type Session struct {
	State  State
	User   *model.User
	Reason error
}

// Authenticated reports whether the session carries a user.
func (s Session) Authenticated() bool {
	return s.State == Verified && s.User != nil
}

// Username returns the resolved username, or "" when anonymous.
func (s Session) Username() string {
	if !s.Authenticated() {
		return ""
	}
	return s.User.Username
}

var errUnknownUser = errors.New("token user no longer exists")

// TokenVerifier verifies a session token and returns its username.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserLookup finds a user by username.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// Resolver turns a raw request into a Session. It never fails: any problem
// with the token yields an Anonymous session.
type Resolver struct {
	tokens  TokenVerifier
	users   UserLookup
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewResolver creates a Resolver.
func NewResolver(tokens TokenVerifier, users UserLookup, logger *slog.Logger, rec metrics.Recorder) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Resolver{tokens: tokens, users: users, logger: logger, metrics: rec}
}

// Resolve extracts and verifies the session token of r.
func (res *Resolver) Resolve(r *http.Request) Session {
	sess := res.resolve(r)
	res.metrics.RecordSession(sess.State.String())
	return sess
}

func (res *Resolver) resolve(r *http.Request) Session {
	token := tokenFromRequest(r)
	if token == "" {
		return Session{State: Anonymous}
	}

	username, err := res.tokens.Verify(token)
	if err != nil {
		res.logger.Debug("session token rejected",
			slog.String("reason", reasonLabel(err)),
			slog.String("path", r.URL.Path),
		)
		return Session{State: Anonymous, Reason: err}
	}

	user, err := res.users.GetByUsername(r.Context(), username)
	if err != nil {
		res.logger.Debug("session user not found", slog.String("username", username))
		return Session{State: Anonymous, Reason: errUnknownUser}
	}

	return Session{State: Verified, User: user}
}

// tokenFromRequest reads the session cookie, falling back to a Bearer
// Authorization header for non-browser clients.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		return strings.TrimSpace(token)
	}
	return ""
}

func reasonLabel(err error) string {
	switch {
	case errors.Is(err, crypto.ErrTokenExpired):
		return "expired"
	case errors.Is(err, crypto.ErrTokenBadSignature):
		return "bad_signature"
	case errors.Is(err, crypto.ErrTokenMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}

// CookieSink lets an operation set or clear the session cookie on the response.
type CookieSink interface {
	SetToken(token string)
	Clear()
}

// CookieWriter writes the session cookie to an http.ResponseWriter.
type CookieWriter struct {
	w      http.ResponseWriter
	secure bool
	ttl    time.Duration
}

// NewCookieWriter creates a CookieWriter. secure adds the Secure attribute.
func NewCookieWriter(w http.ResponseWriter, secure bool, ttl time.Duration) *CookieWriter {
	return &CookieWriter{w: w, secure: secure, ttl: ttl}
}

// SetToken sets the session cookie with a lifetime matching the token's.
func (c *CookieWriter) SetToken(token string) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		Expires:  time.Now().Add(c.ttl),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear expires the session cookie.
func (c *CookieWriter) Clear() {
	http.SetCookie(c.w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// RequestContext is the per-request value every operation receives: the
// resolved session and the capability to change the session cookie.
type RequestContext struct {
	Session Session
	Cookies CookieSink
}

// User returns the resolved user, or nil when anonymous.
func (rc RequestContext) User() *model.User {
	if !rc.Session.Authenticated() {
		return nil
	}
	return rc.Session.User
}
