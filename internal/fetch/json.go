package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrCancelled marks a request abandoned because its context was cancelled.
	// It is never a user-facing error.
	ErrCancelled = errors.New("request cancelled")
	// ErrDecode wraps a success response whose body is not valid JSON for the target type.
	ErrDecode = errors.New("unexpected response body")

	errCircuitOpen  = errors.New("service temporarily unavailable")
	errNoHTTPClient = errors.New("http client not configured")
)

// APIError is a non-2xx response, carrying the best human-readable message available.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Recorder receives the outcome of every request issued through a Client.
type Recorder interface {
	ObserveFetch(endpoint, outcome string, elapsed time.Duration)
}

// BreakerConfig controls the optional circuit breaker. Zero values use defaults.
type BreakerConfig struct {
	Enabled     bool
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// Client issues GET requests and decodes JSON bodies. No retries are performed.
type Client struct {
	http     *http.Client
	circuit  *gobreaker.CircuitBreaker
	recorder Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithBreaker guards the client with a circuit breaker that only counts
// transport failures and 5xx responses.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *Client) {
		if !cfg.Enabled {
			return
		}
		if cfg.MaxRequests == 0 {
			cfg.MaxRequests = 5
		}
		if cfg.Interval <= 0 {
			cfg.Interval = 1 * time.Minute
		}
		if cfg.Timeout <= 0 {
			cfg.Timeout = 2 * time.Minute
		}
		c.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:         "openweather",
			MaxRequests:  cfg.MaxRequests,
			Interval:     cfg.Interval,
			Timeout:      cfg.Timeout,
			IsSuccessful: countsAsHealthy,
		})
	}
}

// WithRecorder reports every request outcome to r.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		c.recorder = r
	}
}

// NewClient creates a Client around an existing *http.Client.
func NewClient(httpClient *http.Client, opts ...Option) *Client {
	c := &Client{http: httpClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsCancelled reports whether err stems from a cancelled request.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// Message returns the text to show a user for err, or "" for a cancellation.
func Message(err error) string {
	if err == nil || IsCancelled(err) {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// FetchJSON issues a GET for rawURL and decodes the body into T.
// Query encoding is the caller's responsibility.
func FetchJSON[T any](ctx context.Context, c *Client, rawURL string) (T, error) {
	var zero T
	if c == nil || c.http == nil {
		return zero, errNoHTTPClient
	}

	start := time.Now()
	body, err := c.get(ctx, rawURL)
	if err != nil {
		c.observe(rawURL, outcomeOf(err), time.Since(start))
		return zero, err
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		c.observe(rawURL, "decode_error", time.Since(start))
		return zero, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	c.observe(rawURL, "ok", time.Since(start))
	return out, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, cancelled(ctx.Err())
	}

	do := func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, cancelled(ctx.Err())
			}
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, cancelled(ctx.Err())
			}
			return nil, err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, newAPIError(resp, body)
		}
		return body, nil
	}

	if c.circuit == nil {
		res, err := do()
		if err != nil {
			return nil, err
		}
		return res.([]byte), nil
	}

	res, err := c.circuit.Execute(do)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}
	body, ok := res.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}

// newAPIError prefers a "message" field from a JSON body and falls back to
// "<code> <reason>".
func newAPIError(resp *http.Response, body []byte) *APIError {
	msg := statusText(resp)

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		switch m := payload["message"].(type) {
		case nil:
		case string:
			if m != "" {
				msg = m
			}
		default:
			msg = fmt.Sprint(m)
		}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func statusText(resp *http.Response) string {
	if s := strings.TrimSpace(resp.Status); s != "" && strings.Contains(s, " ") {
		return s
	}
	return strings.TrimSpace(fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// countsAsHealthy keeps cancellations and client-side (4xx) errors from
// tripping the breaker.
func countsAsHealthy(err error) bool {
	if err == nil || IsCancelled(err) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode < 500
	}
	return false
}

func outcomeOf(err error) string {
	var apiErr *APIError
	switch {
	case IsCancelled(err):
		return "cancelled"
	case errors.As(err, &apiErr):
		return fmt.Sprintf("http_%d", apiErr.StatusCode)
	case errors.Is(err, errCircuitOpen):
		return "circuit_open"
	default:
		return "transport_error"
	}
}

func (c *Client) observe(rawURL, outcome string, elapsed time.Duration) {
	if c.recorder == nil {
		return
	}
	endpoint := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		endpoint = u.Path
	}
	c.recorder.ObserveFetch(endpoint, outcome, elapsed)
}
