package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cinegate/cinegate/internal/middleware"
	"github.com/cinegate/cinegate/internal/session"
)

// RouterConfig wires the HTTP surface of the gateway.
type RouterConfig struct {
	Gateway        *Gateway
	Resolver       *session.Resolver
	Metrics        http.Handler
	ClientURL      string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter builds the chi router: health and metrics endpoints plus the
// session-aware operation endpoint.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.ClientURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	// The limiter keys on the socket address; forwarding headers are
	// client-controlled.
	r.Group(func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		r.Use(middleware.SessionAuth(cfg.Resolver))
		r.Post("/graphql", cfg.Gateway.HandleGraphQL)
	})

	return r
}
