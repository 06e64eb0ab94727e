// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/metrics"
	"github.com/cinematch/cinematch/internal/recommend"
)

// Client is a TMDB API client. Every request passes through a rate limiter
// and a circuit breaker; transient failures are retried with doubling
// backoff up to the configured attempt count.
type Client struct {
	cfg        *config.CatalogConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     zerolog.Logger
}

// httpStatusError carries a non-200 response status.
type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("tmdb returned status %d", e.status)
}

// transient reports whether the status is worth retrying.
func (e *httpStatusError) transient() bool {
	return e.status == http.StatusTooManyRequests || e.status >= 500
}

// NewClient creates a TMDB client from configuration.
func NewClient(cfg *config.CatalogConfig, logger zerolog.Logger) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	settings := gobreaker.Settings{
		Name:     "tmdb",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A missing movie is a valid answer and must not trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		logger:  logger.With().Str("component", "tmdb").Logger(),
	}
}

// GetMovie fetches full metadata for one movie.
func (c *Client) GetMovie(ctx context.Context, movieID int) (*Movie, error) {
	body, err := c.get(ctx, "/movie/"+strconv.Itoa(movieID), nil)
	c.observe("get_movie", err)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: movie %d", ErrNotFound, movieID)
		}
		return nil, err
	}

	var movie Movie
	if err := json.Unmarshal(body, &movie); err != nil {
		return nil, fmt.Errorf("decode movie %d: %w", movieID, err)
	}
	return &movie, nil
}

// searchResponse is the TMDB search envelope.
type searchResponse struct {
	Results      []Movie `json:"results"`
	TotalResults int     `json:"total_results"`
}

// SearchMovies returns movies matching the query, in TMDB relevance order.
// Search results carry genre ids only, so Genres is empty on each result.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]Movie, error) {
	params := url.Values{}
	params.Set("query", query)
	body, err := c.get(ctx, "/search/movie", params)
	c.observe("search", err)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return resp.Results, nil
}

// BreakerState returns the circuit breaker state for the status endpoint.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func (c *Client) observe(operation string, err error) {
	switch {
	case err == nil:
		metrics.CatalogRequests.WithLabelValues(operation, "ok").Inc()
	case errors.Is(err, ErrNotFound):
		metrics.CatalogRequests.WithLabelValues(operation, "not_found").Inc()
	default:
		metrics.CatalogRequests.WithLabelValues(operation, "error").Inc()
	}
}

// get performs a GET with retry. The breaker wraps each individual attempt
// so a run of failures opens it; once open, calls fail fast without
// touching the network.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.cfg.APIKey)
	if c.cfg.Language != "" {
		params.Set("language", c.cfg.Language)
	}
	reqURL := c.cfg.BaseURL + path + "?" + params.Encode()

	attempts := c.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := c.cfg.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := c.breaker.Execute(func() ([]byte, error) {
			return c.doRequest(ctx, reqURL)
		})
		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open: %v", recommend.ErrCatalogUnavailable, err)
		}
		if !isTransient(err) {
			return nil, err
		}
		lastErr = err
		c.logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Msg("tmdb request failed, retrying")
	}
	return nil, fmt.Errorf("%w: %d attempts: %v", recommend.ErrCatalogUnavailable, attempts, lastErr)
}

// doRequest performs a single HTTP attempt.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, &httpStatusError{status: resp.StatusCode}
	}
}

// isTransient reports whether an attempt error is worth retrying. Network
// failures and 5xx/429 statuses are transient; everything else, like an
// invalid API key, is not.
func isTransient(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.transient()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	// Anything else from the HTTP client is a network-level failure.
	return true
}
