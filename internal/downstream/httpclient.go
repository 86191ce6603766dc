package downstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/discovery-service/middleware"
)

// ClientConfig holds configuration for the HTTP client wrapper
type ClientConfig struct {
	// Timeout bounds a single upstream request, headers and body included.
	Timeout time.Duration
	// Transport is the base round tripper; http.DefaultTransport when nil.
	Transport http.RoundTripper
}

// DefaultClientConfig returns sensible defaults
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout: 5 * time.Second,
	}
}

// Client is the HTTP client every Discovery API call goes through. It
// injects X-Request-ID, enforces the per-request timeout, traces the call
// and maps transport failures onto ErrTimeout / ErrUnavailable.
type Client struct {
	baseClient *http.Client
	config     ClientConfig
}

// NewClient creates a new HTTP client wrapper
func NewClient(config ClientConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultClientConfig().Timeout
	}
	return &Client{
		baseClient: &http.Client{
			// per-request timeouts come from the context
			Timeout:   0,
			Transport: &middleware.TracingTransport{Base: config.Transport},
		},
		config: config,
	}
}

// Do executes req. The returned cancel func must be called once the body
// has been consumed; the timeout covers reading the body too.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, context.CancelFunc, error) {
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	req = req.WithContext(ctx)

	// the query string carries the api key, keep it out of the logs
	log := logger.Ctx(ctx).With().
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Logger()

	start := time.Now()
	resp, err := c.baseClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		cancel()
		log.Warn().
			Err(redactURL(err)).
			Dur("duration", duration).
			Msg("downstream_request_failed")
		return nil, nil, c.mapError(err)
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("downstream_request_completed")

	return resp, cancel, nil
}

// mapError converts low-level errors to domain errors. A cancelled caller
// is not an upstream failure and is passed through as context.Canceled.
func (c *Client) mapError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	default:
		// connection refused, DNS errors, etc.
		return ErrUnavailable
	}
}

// redactURL drops the request URL from transport errors; it carries the api
// key.
func redactURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s <redacted>: %w", ue.Op, ue.Err)
	}
	return err
}

// Get is a convenience method for GET requests
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, context.CancelFunc, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return c.Do(ctx, req)
}
