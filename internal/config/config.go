package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

var ErrSecretRequired = errors.New("SECRET_KEY is not set in the environment variables")

type Config struct {
	Port      string
	Env       string
	ClientURL string
	SecretKey string
	TokenTTL  time.Duration
	LogLevel  string

	BcryptCost int

	ProviderAPIKey  string
	ProviderBaseURL string
	ProviderTimeout time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
}

// Production reports whether the process runs in production mode, which
// turns on Secure cookies and hides the operation listing.
func (c Config) Production() bool {
	return c.Env == "production"
}

// Load reads the configuration from the environment. A missing signing
// secret is an error; the caller must refuse to start.
func Load() (Config, error) {
	env := getEnv("NODE_ENV", "")
	if env == "" {
		env = getEnv("ENV", "development")
	}

	cfg := Config{
		Port:            getEnv("PORT", "4000"),
		Env:             env,
		ClientURL:       getEnv("CLIENT_URL", "http://localhost:3000"),
		SecretKey:       os.Getenv("SECRET_KEY"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ProviderAPIKey:  os.Getenv("API_KEY"),
		ProviderBaseURL: getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
	}

	if cfg.SecretKey == "" {
		return Config{}, ErrSecretRequired
	}

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ProviderTimeout, err = getDuration("PROVIDER_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 10); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 40); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 20); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return f, nil
}
