// Package fetch downloads small files over HTTP with bounded retries.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

var (
	ErrStatus            = errors.New("tilefetch: unexpected http status")
	ErrAttemptsExhausted = errors.New("tilefetch: fetch attempts exhausted")
)

const DefaultUserAgent = "go-tilefetch/1.0 (offline tile downloader)"

// Options configures the HTTP client.
type Options struct {
	// Timeout for individual requests, including reading the body.
	// Default: 10s
	Timeout time.Duration

	// MaxAttempts is the maximum number of requests made for a single URL.
	// Default: 5
	MaxAttempts int

	// Backoff is the fixed pause between attempts.
	// Default: 1s
	Backoff time.Duration

	// UserAgent identifies the client to the tile server.
	UserAgent string

	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 4
	MaxIdleConnsPerHost int

	Logger *slog.Logger
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:             10 * time.Second,
		MaxAttempts:         5,
		Backoff:             time.Second,
		UserAgent:           DefaultUserAgent,
		MaxIdleConnsPerHost: 4,
	}
}

// Client is an HTTP client for fetching tiles.
type Client struct {
	client *http.Client
	opts   Options
	logger *slog.Logger
}

// NewClient creates a new HTTP client with the given options.
// Zero fields are replaced by their defaults.
func NewClient(opts Options) *Client {
	defaults := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = defaults.MaxIdleConnsPerHost
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = opts.MaxIdleConnsPerHost

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts:   opts,
		logger: logger,
	}
}

// Get downloads the body of url.
//
// Non-2xx responses and transport errors are retried up to MaxAttempts times with a fixed
// pause in between. When all attempts fail the returned error wraps ErrAttemptsExhausted
// and the last failure. Context cancellation is returned as is.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := Sleep(ctx, c.opts.Backoff); err != nil {
				return nil, err
			}
		}

		data, err := c.get(ctx, url)
		if err == nil {
			return data, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		c.logger.Warn("tilefetch: request failed", "url", url, "attempt", attempt, "err", err)
		lastErr = err
	}

	return nil, fmt.Errorf("%w: %d attempts: %w", ErrAttemptsExhausted, c.opts.MaxAttempts, lastErr)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

// Sleep waits for d or until ctx is done, returning the context error in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
