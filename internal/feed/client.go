// Package feed provides the outbound HTTP layer shared by every collector.
// All upstream fetches are routed through the Client, which enforces a
// consistent resilience pattern: circuit breaking, bounded fixed-delay
// retries, and error mapping into the types.AppError taxonomy. The package
// also owns the GBFS discovery Directory (feed-name -> URL cache).
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sony/gobreaker/v2"

	"github.com/jamiefw/flux/internal/types"
)

// RetryPolicy configures the bounded-retry behavior of the Client.
// Attempts are spaced by a fixed Delay; there is no backoff growth because
// the upstream feeds refresh on fixed short intervals and a long backoff
// would outlive the data being fetched.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns the standard policy for feed fetches:
// 5 total attempts, 2 seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Delay:       2 * time.Second,
	}
}

// Fetcher is the interface collectors depend on. Satisfied by *Client;
// faked in tests.
type Fetcher interface {
	// GetBytes performs one logical fetch and returns the raw response body.
	GetBytes(ctx context.Context, rawURL string) ([]byte, error)
	// GetJSON performs one logical fetch and unmarshals the body into v.
	GetJSON(ctx context.Context, rawURL string, v any) error
}

// Client wraps an *http.Client and a circuit breaker to enforce the retry
// policy on all upstream fetches. A single Client is shared by all
// collectors in a process.
type Client struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	policy    RetryPolicy
	userAgent string
	logger    *slog.Logger
	sleepFn   func(time.Duration) // injectable for tests; defaults to time.Sleep
}

var _ Fetcher = (*Client)(nil)

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithSleepFunc overrides the sleep function used between retries.
// Intended for testing to avoid real delays.
func WithSleepFunc(fn func(time.Duration)) ClientOption {
	return func(c *Client) {
		c.sleepFn = fn
	}
}

// NewClient creates a feed Client with the given http client, breaker name,
// retry policy, and user agent.
func NewClient(
	httpClient *http.Client,
	breakerName string,
	policy RetryPolicy,
	userAgent string,
	logger *slog.Logger,
	opts ...ClientOption,
) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	c := &Client{
		client:    httpClient,
		breaker:   cb,
		policy:    policy,
		userAgent: userAgent,
		logger:    logger,
		sleepFn:   time.Sleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// gzipMagic is the two-byte header of a gzip stream. Some agencies serve
// pre-compressed protobuf dumps without a Content-Encoding header, so the
// payload itself is sniffed rather than trusting the response headers.
var gzipMagic = []byte{0x1f, 0x8b}

// GetBytes performs one logical fetch against rawURL with the configured
// retry policy:
//
//   - Transport errors, timeouts, and any non-2xx status are retried up to
//     policy.MaxAttempts total attempts with a fixed delay between attempts.
//   - On success the body is returned, transparently decompressed when it
//     begins with the gzip magic bytes.
//   - Exhausted retries surface as ErrCodeFetchExhausted, distinct from a
//     single-attempt failure (ErrCodeFetchFailed, e.g. a canceled context)
//     and from an open circuit breaker (ErrCodeFetchCircuitOpen), so the
//     orchestrator can skip the run cleanly rather than crash.
//
// Malformed payload bodies are NOT the fetch layer's concern: a 2xx body is
// returned as-is and decode failures propagate from the decoders.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		body, err := c.fetchOnce(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err

		// An open breaker means the upstream is already known-bad; further
		// attempts in this run would only sit out the delay for nothing.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, types.NewAppError(
				types.ErrCodeFetchCircuitOpen,
				fmt.Sprintf("circuit breaker open for %s", hostOf(rawURL)),
				err,
			)
		}

		// A canceled or expired context is the caller's decision, not an
		// upstream fault; surface it without burning the remaining attempts.
		if ctx.Err() != nil {
			return nil, types.NewAppError(
				types.ErrCodeFetchFailed,
				fmt.Sprintf("fetch aborted for %s", hostOf(rawURL)),
				err,
			)
		}

		if attempt < c.policy.MaxAttempts {
			c.logger.WarnContext(ctx, "feed fetch attempt failed, retrying",
				"url_host", hostOf(rawURL),
				"attempt", attempt,
				"max_attempts", c.policy.MaxAttempts,
				"error", err,
			)
			c.sleepFn(c.policy.Delay)
		}
	}

	return nil, types.NewAppErrorWithDetails(
		types.ErrCodeFetchExhausted,
		fmt.Sprintf("fetch exhausted after %d attempts for %s", c.policy.MaxAttempts, hostOf(rawURL)),
		lastErr,
		map[string]any{"attempts": c.policy.MaxAttempts},
	)
}

// fetchOnce performs a single HTTP GET through the circuit breaker and
// returns the (possibly gunzipped) body on a 2xx response.
func (c *Client) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		// Any non-2xx counts as a failure for both the breaker and the
		// retry loop.
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			r.Body.Close()
			return nil, fmt.Errorf("upstream returned %d", r.StatusCode)
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return maybeGunzip(body)
}

// GetJSON performs one logical fetch and unmarshals the response body into v.
// A body that is not valid JSON is a decode error, never retried.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.GetBytes(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return types.NewAppError(
			types.ErrCodeDecodeFailed,
			fmt.Sprintf("response from %s is not valid JSON", hostOf(rawURL)),
			err,
		)
	}
	return nil
}

// maybeGunzip decompresses body when it carries the gzip magic header,
// returning it unchanged otherwise.
func maybeGunzip(body []byte) ([]byte, error) {
	if !bytes.HasPrefix(body, gzipMagic) {
		return body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gzip payload: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// URLWithQuery appends query parameters to a base URL. Credentials passed as
// query parameters are unmasked here and nowhere else.
func URLWithQuery(base string, params url.Values) string {
	if len(params) == 0 {
		return base
	}
	sep := "?"
	if u, err := url.Parse(base); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return base + sep + params.Encode()
}

// hostOf returns the host component of rawURL for logging; query strings may
// contain credentials and full URLs are never logged.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "upstream"
	}
	return u.Host
}
