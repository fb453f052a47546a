package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/cinegate/cinegate/internal/config"
	"github.com/cinegate/cinegate/internal/crypto"
	"github.com/cinegate/cinegate/internal/handler"
	"github.com/cinegate/cinegate/internal/logger"
	"github.com/cinegate/cinegate/internal/metrics"
	"github.com/cinegate/cinegate/internal/repository"
	"github.com/cinegate/cinegate/internal/service"
	"github.com/cinegate/cinegate/internal/session"
	"github.com/cinegate/cinegate/internal/tmdb"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.SetupDefault(os.Stdout, cfg.LogLevel)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	provider := tmdb.NewClient(tmdb.Config{
		BaseURL: cfg.ProviderBaseURL,
		APIKey:  cfg.ProviderAPIKey,
		Timeout: cfg.ProviderTimeout,
	}, nil, log, rec)
	if cfg.ProviderAPIKey == "" {
		log.Warn("API_KEY is empty, provider requests will be rejected")
	}

	userRepo := repository.NewUserRepository()
	tokens := crypto.NewTokenService(cfg.SecretKey, cfg.TokenTTL)

	authService := service.NewAuthService(userRepo, tokens, cfg.BcryptCost, rec)
	mediaService := service.NewMediaService(provider, userRepo)
	favoritesService := service.NewFavoritesService(userRepo, mediaService)

	gateway := handler.NewGateway(authService, mediaService, favoritesService, handler.GatewayConfig{
		SecureCookies:  cfg.Production(),
		TokenTTL:       tokens.TTL(),
		ListOperations: !cfg.Production(),
	})

	router := handler.NewRouter(handler.RouterConfig{
		Gateway:        gateway,
		Resolver:       session.NewResolver(tokens, userRepo, log, rec),
		Metrics:        metrics.Handler(reg),
		ClientURL:      cfg.ClientURL,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
