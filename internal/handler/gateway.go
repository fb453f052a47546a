package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/goccy/go-json"

	"github.com/cinegate/cinegate/internal/middleware"
	"github.com/cinegate/cinegate/internal/model"
	"github.com/cinegate/cinegate/internal/service"
	"github.com/cinegate/cinegate/internal/session"
	"github.com/cinegate/cinegate/internal/tmdb"
	"github.com/cinegate/cinegate/internal/validation"
)

const maxRequestBody = 1 << 20 // 1MB

var errUnknownOperation = errors.New("unknown operation")

// Request is the body of POST /graphql.
type Request struct {
	Operation string          `json:"operation"`
	Variables json.RawMessage `json:"variables"`
}

type operation func(ctx context.Context, rc session.RequestContext, vars json.RawMessage) (any, error)

type idVars struct {
	ID int `json:"id" validate:"required,gt=0"`
}

type searchVars struct {
	Keyword string `json:"keyword" validate:"max=200"`
}

type creditsVars struct {
	ID   int    `json:"id" validate:"required,gt=0"`
	Type string `json:"type" validate:"required"`
}

// GatewayConfig holds the request-independent settings of a Gateway.
type GatewayConfig struct {
	SecureCookies  bool
	TokenTTL       time.Duration
	ListOperations bool
}

// Gateway dispatches named operations to the services. Every call gets the
// session resolved by middleware.SessionAuth and a cookie writer bound to
// the response.
type Gateway struct {
	auth      *service.AuthService
	media     *service.MediaService
	favorites *service.FavoritesService
	cfg       GatewayConfig
	ops       map[string]operation
}

// NewGateway creates a Gateway and builds its operation table.
func NewGateway(auth *service.AuthService, media *service.MediaService, favorites *service.FavoritesService, cfg GatewayConfig) *Gateway {
	g := &Gateway{auth: auth, media: media, favorites: favorites, cfg: cfg}
	g.ops = map[string]operation{
		// queries
		"movie":     g.movie,
		"tvseries":  g.tvseries,
		"trending":  g.trending,
		"search":    g.search,
		"credits":   g.credits,
		"me":        g.me,
		"favorites": g.resolveFavorites,

		// mutations
		"register":       g.register,
		"login":          g.login,
		"logout":         g.logout,
		"addFavorite":    g.addFavorite,
		"removeFavorite": g.removeFavorite,
	}
	if cfg.ListOperations {
		g.ops["__operations"] = g.operations
	}
	return g
}

// HandleGraphQL handles POST /graphql requests.
func (g *Gateway) HandleGraphQL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	op, ok := g.ops[req.Operation]
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse(errUnknownOperation.Error()+": "+req.Operation))
		return
	}

	rc := session.RequestContext{
		Session: middleware.SessionFromContext(r.Context()),
		Cookies: session.NewCookieWriter(w, g.cfg.SecureCookies, g.cfg.TokenTTL),
	}

	data, err := op(r.Context(), rc, req.Variables)
	if err != nil {
		status, msg := mapError(err)
		if status >= http.StatusInternalServerError {
			slog.Error("operation failed",
				slog.String("operation", req.Operation),
				slog.String("error", err.Error()),
			)
		}
		writeJSON(w, status, errorResponse(msg))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (g *Gateway) movie(ctx context.Context, _ session.RequestContext, raw json.RawMessage) (any, error) {
	var v idVars
	if err := decodeVars(raw, &v); err != nil {
		return nil, err
	}
	return g.media.Item(ctx, model.KindMovie, v.ID)
}

func (g *Gateway) tvseries(ctx context.Context, _ session.RequestContext, raw json.RawMessage) (any, error) {
	var v idVars
	if err := decodeVars(raw, &v); err != nil {
		return nil, err
	}
	return g.media.Item(ctx, model.KindSeries, v.ID)
}

func (g *Gateway) trending(ctx context.Context, rc session.RequestContext, _ json.RawMessage) (any, error) {
	return g.media.Trending(ctx, rc)
}

func (g *Gateway) search(ctx context.Context, rc session.RequestContext, raw json.RawMessage) (any, error) {
	var v searchVars
	if err := decodeVars(raw, &v); err != nil {
		return nil, err
	}
	return g.media.Search(ctx, rc, v.Keyword)
}

func (g *Gateway) credits(ctx context.Context, _ session.RequestContext, raw json.RawMessage) (any, error) {
	var v creditsVars
	if err := decodeVars(raw, &v); err != nil {
		return nil, err
	}
	kind, err := model.ParseMediaKind(v.Type)
	if err != nil {
		return nil, err
	}
	return g.media.Credits(ctx, kind, v.ID)
}

func (g *Gateway) me(_ context.Context, rc session.RequestContext, _ json.RawMessage) (any, error) {
	return g.auth.Me(rc), nil
}

func (g *Gateway) resolveFavorites(ctx context.Context, rc session.RequestContext, _ json.RawMessage) (any, error) {
	return g.favorites.Resolve(ctx, rc)
}

func (g *Gateway) register(ctx context.Context, rc session.RequestContext, raw json.RawMessage) (any, error) {
	var v model.CredentialsRequest
	if err := decodeVars(raw, &v); err != nil {
		return nil, err
	}
	return g.auth.Register(ctx, rc, v)
}

func (g *Gateway) login(ctx context.Context, rc session.RequestContext, raw json.RawMessage) (any, error) {
	var v model.CredentialsRequest
	if err := decodeVars(raw, &v); err != nil {
		return nil, err
	}
	return g.auth.Login(ctx, rc, v)
}

func (g *Gateway) logout(_ context.Context, rc session.RequestContext, _ json.RawMessage) (any, error) {
	return g.auth.Logout(rc), nil
}

func (g *Gateway) addFavorite(ctx context.Context, rc session.RequestContext, raw json.RawMessage) (any, error) {
	// Identity before arguments, so anonymous callers always see 401.
	if rc.User() == nil {
		return nil, service.ErrAuthenticationRequired
	}
	var v model.FavoriteRequest
	if err := decodeVars(raw, &v); err != nil {
		return nil, err
	}
	return g.favorites.Add(ctx, rc, v)
}

func (g *Gateway) removeFavorite(ctx context.Context, rc session.RequestContext, raw json.RawMessage) (any, error) {
	if rc.User() == nil {
		return nil, service.ErrAuthenticationRequired
	}
	var v model.RemoveFavoriteRequest
	if err := decodeVars(raw, &v); err != nil {
		return nil, err
	}
	return g.favorites.Remove(ctx, rc, v.ID)
}

func (g *Gateway) operations(context.Context, session.RequestContext, json.RawMessage) (any, error) {
	names := make([]string, 0, len(g.ops))
	for name := range g.ops {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// decodeVars decodes and validates the variables of an operation. Missing
// variables decode as an empty object so validation reports them.
func decodeVars(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &validation.Error{Messages: []string{"invalid variables"}}
	}
	return validation.ValidateStruct(v)
}

// mapError converts a service error into a status code and a message safe
// to show the caller.
func mapError(err error) (int, string) {
	var verr *validation.Error
	var serr *tmdb.StatusError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, service.ErrAuthenticationRequired):
		return http.StatusUnauthorized, "Not authenticated"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, service.ErrDuplicateUser):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, service.ErrUsernameRequired),
		errors.Is(err, service.ErrPasswordRequired),
		errors.Is(err, model.ErrInvalidMediaKind):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound:
		return http.StatusNotFound, "not found"
	case errors.Is(err, tmdb.ErrUpstream):
		return http.StatusBadGateway, "provider unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) map[string]string {
	return map[string]string{"error": msg}
}
