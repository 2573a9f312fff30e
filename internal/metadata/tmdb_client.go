// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

package metadata

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/roomengine/internal/apperr"
	"github.com/tomtom215/roomengine/internal/metrics"
	"github.com/tomtom215/roomengine/internal/roomtypes"
)

// westernLanguages is the fixed base filter applied to every discover call.
var westernLanguages = []string{"en", "es", "fr", "it", "de", "pt"}

// Config configures a TMDBClient.
type Config struct {
	BaseURL                 string
	APIKey                  string
	Language                string
	MinVoteCount            int
	MinReleaseYear          int
	RateLimitMsPerCall      int
	RetryBaseMs             int
	RetryMaxMs              int
	MaxRetries              int
	CircuitFailureThreshold uint32
	CircuitResetMs          int
	RequestTimeout          time.Duration
}

// TMDBClient is the production Metadata Client implementation.
// A burst-1 rate.Limiter spaces the start of outbound calls to the
// configured cadence. It does not bound how many calls are in flight:
// concurrent callers whose requests outlast the interval overlap.
type TMDBClient struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[interface{}]
}

// NewTMDBClient builds a client ready to serve Discover and GenresFor.
func NewTMDBClient(cfg Config) *TMDBClient {
	settings := gobreaker.Settings{
		Name:        "tmdb-metadata-client",
		MaxRequests: 1,
		Interval:    time.Duration(cfg.CircuitResetMs) * time.Millisecond,
		Timeout:     time.Duration(cfg.CircuitResetMs) * time.Millisecond,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.CircuitFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	}

	return &TMDBClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Every(time.Duration(cfg.RateLimitMsPerCall)*time.Millisecond), 1),
		breaker: gobreaker.NewCircuitBreaker[interface{}](settings),
	}
}

// Healthy reports whether the circuit breaker is not currently open.
func (c *TMDBClient) Healthy() bool {
	return c.breaker.State() != gobreaker.StateOpen
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

type discoverEnvelope struct {
	Page         int       `json:"page"`
	TotalPages   int       `json:"total_pages"`
	TotalResults int       `json:"total_results"`
	Results      []RawItem `json:"results"`
}

type genreEnvelope struct {
	Genres []Genre `json:"genres"`
}

func (c *TMDBClient) endpointSegment(mediaType roomtypes.MediaType) (string, error) {
	switch mediaType {
	case roomtypes.MediaMovie:
		return "movie", nil
	case roomtypes.MediaTV:
		return "tv", nil
	default:
		return "", apperr.New(apperr.Validation, "unknown media type: "+string(mediaType))
	}
}

func genreExprValue(expr GenreExpr, genres []int) string {
	if len(genres) == 0 || expr == GenreNone {
		return ""
	}
	parts := make([]string, len(genres))
	for i, g := range genres {
		parts[i] = strconv.Itoa(g)
	}
	sep := ","
	if expr == GenreAny {
		sep = "|"
	}
	return strings.Join(parts, sep)
}

// Discover fetches one page of candidates. Endpoint selection is exclusive
// by mediaType: there is no code path that can mix movie and TV results
// for a single call.
func (c *TMDBClient) Discover(ctx context.Context, req DiscoverRequest) (*DiscoverResult, error) {
	segment, err := c.endpointSegment(req.MediaType)
	if err != nil {
		return nil, err
	}

	genres := normalizeGenres(req.MediaType, req.Genres)

	q := url.Values{}
	q.Set("api_key", c.cfg.APIKey)
	q.Set("language", c.cfg.Language)
	q.Set("sort_by", "popularity.desc")
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("include_adult", "false")
	q.Set("with_original_language", strings.Join(westernLanguages, "|"))
	q.Set("vote_count.gte", strconv.Itoa(c.cfg.MinVoteCount))

	if genreExpr := genreExprValue(req.Expr, genres); genreExpr != "" {
		q.Set("with_genres", genreExpr)
	}

	dateLowerBound := fmt.Sprintf("%04d-01-01", c.cfg.MinReleaseYear)
	switch req.MediaType {
	case roomtypes.MediaTV:
		q.Set("with_status", "0|2|3|4|5")
		q.Set("first_air_date.gte", dateLowerBound)
	case roomtypes.MediaMovie:
		q.Set("release_date.gte", dateLowerBound)
	}

	var envelope discoverEnvelope
	if err := c.doJSON(ctx, "discover/"+segment, q, &envelope); err != nil {
		return nil, err
	}

	return &DiscoverResult{
		Page:         envelope.Page,
		TotalPages:   envelope.TotalPages,
		TotalResults: envelope.TotalResults,
		Items:        envelope.Results,
	}, nil
}

// GenresFor returns the authoritative genre list for mediaType.
func (c *TMDBClient) GenresFor(ctx context.Context, mediaType roomtypes.MediaType) ([]Genre, error) {
	segment, err := c.endpointSegment(mediaType)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("api_key", c.cfg.APIKey)
	q.Set("language", c.cfg.Language)

	var envelope genreEnvelope
	if err := c.doJSON(ctx, "genre/"+segment+"/list", q, &envelope); err != nil {
		return nil, err
	}
	return envelope.Genres, nil
}

// doJSON performs one rate-limited, retried, circuit-breaker-protected GET
// and decodes the JSON body into out.
func (c *TMDBClient) doJSON(ctx context.Context, path string, q url.Values, out interface{}) error {
	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchWithRetry(ctx, path, q)
	})
	duration := time.Since(start)
	metrics.MetadataRequestDuration.WithLabelValues(path).Observe(duration.Seconds())

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			metrics.MetadataRequests.WithLabelValues(path, "circuit_open").Inc()
			return apperr.Wrap(apperr.UpstreamUnavailable, "metadata provider circuit open", err)
		}
		metrics.MetadataRequests.WithLabelValues(path, "error").Inc()
		return err
	}

	metrics.MetadataRequests.WithLabelValues(path, "success").Inc()
	body := result.([]byte)
	if jsonErr := json.Unmarshal(body, out); jsonErr != nil {
		return apperr.Wrap(apperr.Transient, "decode metadata provider response", jsonErr)
	}
	return nil
}

// fetchWithRetry applies the rate limiter, then retries transient failures
// with exponential backoff and jitter (base, factor 2, capped), making at
// most MaxRetries retries after the first attempt.
func (c *TMDBClient) fetchWithRetry(ctx context.Context, path string, q url.Values) ([]byte, error) {
	base := time.Duration(c.cfg.RetryBaseMs) * time.Millisecond
	maxDelay := time.Duration(c.cfg.RetryMaxMs) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperr.Wrap(apperr.Timeout, "rate limiter wait canceled", err)
		}

		body, retryable, err := c.fetchOnce(ctx, path, q)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable || attempt == c.cfg.MaxRetries {
			break
		}

		delay := base * time.Duration(1<<uint(attempt))
		if delay > maxDelay {
			delay = maxDelay
		}
		delay += time.Duration(rand.Int63n(int64(delay) / 2 + 1))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.Timeout, "context canceled during retry backoff", ctx.Err())
		}
	}

	return nil, lastErr
}

// fetchOnce performs a single HTTP GET. The bool result reports whether the
// failure is worth retrying (network errors and HTTP 429/5xx are; 4xx other
// than 429 are not).
func (c *TMDBClient) fetchOnce(ctx context.Context, path string, q url.Values) ([]byte, bool, error) {
	reqURL := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + path + "?" + q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.Validation, "build metadata provider request", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, true, apperr.Wrap(apperr.Transient, "metadata provider request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, true, apperr.New(apperr.Transient, fmt.Sprintf("metadata provider returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, true, apperr.Wrap(apperr.Transient, "read metadata provider response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, false, apperr.New(apperr.Validation, fmt.Sprintf("metadata provider returned %d: %s", resp.StatusCode, string(body)))
	}

	return body, false, nil
}
