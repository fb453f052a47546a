// Package tmdb is a read-only client for The Movie Database API, the
// provider behind every media query of the gateway.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/cinegate/cinegate/internal/metrics"
	"github.com/cinegate/cinegate/internal/model"
)

const (
	DefaultBaseURL = "https://api.themoviedb.org/3"

	// maxBodySize caps provider responses; detail pages are well below it.
	maxBodySize = 8 << 20
)

// ErrUpstream marks every provider failure: transport errors, non-200
// responses, undecodable bodies and an open circuit.
var ErrUpstream = errors.New("provider request failed")

// StatusError is returned for non-200 provider responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrUpstream
}

// ResultPage is a paginated provider listing. Results stay raw so callers
// can discriminate each entry by its media_type tag.
type ResultPage struct {
	Page         int               `json:"page"`
	Results      []json.RawMessage `json:"results"`
	TotalPages   int               `json:"total_pages"`
	TotalResults int               `json:"total_results"`
}

type creditsResponse struct {
	ID   int                `json:"id"`
	Cast []model.CastMember `json:"cast"`
}

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// BreakerFailures is the number of consecutive failures that opens the
	// circuit; BreakerTimeout is how long it stays open.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Client fetches movies, series, search results, trending lists and
// credits from the provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.Recorder
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a Client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger, rec metrics.Recorder) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}

	c := &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger,
		metrics:    rec,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "tmdb",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// Client errors (404 for an unknown id) say nothing about provider health.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		// A canceled or timed-out caller says nothing about provider health either.
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("provider circuit state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return c
}

// Movie fetches the details of a movie.
func (c *Client) Movie(ctx context.Context, id int) (*model.Movie, error) {
	var m model.Movie
	if err := c.getJSON(ctx, "movie", "/movie/"+strconv.Itoa(id), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Series fetches the details of a TV series.
func (c *Client) Series(ctx context.Context, id int) (*model.TVSeries, error) {
	var s model.TVSeries
	if err := c.getJSON(ctx, "tv", "/tv/"+strconv.Itoa(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Search runs a multi-kind keyword search: English locale, adult content
// excluded, first page only.
func (c *Client) Search(ctx context.Context, keyword string) (*ResultPage, error) {
	q := url.Values{}
	q.Set("query", keyword)
	q.Set("include_adult", "false")
	q.Set("language", "en-US")
	q.Set("page", "1")

	var page ResultPage
	if err := c.getJSON(ctx, "search", "/search/multi", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Trending fetches today's trending page across all media kinds.
func (c *Client) Trending(ctx context.Context) (*ResultPage, error) {
	var page ResultPage
	if err := c.getJSON(ctx, "trending", "/trending/all/day", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Credits fetches the cast of a movie or series.
func (c *Client) Credits(ctx context.Context, kind model.MediaKind, id int) ([]model.CastMember, error) {
	if kind != model.KindMovie && kind != model.KindSeries {
		return nil, model.ErrInvalidMediaKind
	}

	var resp creditsResponse
	path := fmt.Sprintf("/%s/%d/credits", kind, id)
	if err := c.getJSON(ctx, "credits", path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Cast == nil {
		resp.Cast = []model.CastMember{}
	}
	return resp.Cast, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, q url.Values, v any) error {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.get(ctx, endpoint, path, q)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.metrics.RecordProviderFailure(endpoint, "circuit_open")
			return fmt.Errorf("%w: %w", ErrUpstream, err)
		}
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		c.metrics.RecordProviderFailure(endpoint, "decode")
		c.logger.Error("failed to decode provider response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: decoding response: %w", ErrUpstream, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values) ([]byte, error) {
	reqURL, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing url: %w", ErrUpstream, err)
	}

	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.apiKey)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordProviderFailure(endpoint, "transport")
		c.logger.Error("provider request failed",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	c.metrics.RecordProviderRequest(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("provider returned error status",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.metrics.RecordProviderFailure(endpoint, "read")
		return nil, fmt.Errorf("%w: reading body: %w", ErrUpstream, err)
	}

	return body, nil
}
