package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/infra/buildinfo"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// NetworkError is the single failure kind of PostJSON.
type NetworkError struct {
	URL    string
	Status int // 0 when no response arrived
	Cause  error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("network: POST %s: status %d: %v", e.URL, e.Status, e.Cause)
	}
	return fmt.Sprintf("network: POST %s: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// Is reports true for domain.ErrNetwork.
func (e *NetworkError) Is(target error) bool {
	return errors.Is(domain.ErrNetwork, target)
}

// Response decoding failures.
var (
	ErrNotObject = errors.New("response body is not a JSON object")
	ErrEmptyBody = errors.New("response body is empty")
)

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	logger    logger.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		h.client = c
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(h *HTTPClient) {
		h.logger = log
	}
}

// NewHTTPClient creates a new HTTP client. A non-positive timeout means
// DefaultTimeout.
func NewHTTPClient(timeout time.Duration, opts ...Option) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &HTTPClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: buildinfo.UserAgent(),
		logger:    logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON sends body as JSON to url and decodes the answer as a JSON
// object. Non-2xx answers whose body is still a JSON object are returned
// as decoded; the server reports failures inside the object.
func (c *HTTPClient) PostJSON(ctx context.Context, url string, body any) (map[string]any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, &NetworkError{URL: url, Cause: fmt.Errorf("marshal body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, &NetworkError{URL: url, Cause: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.L(ctx).Debug("request failed", "url", url, "error", err)
		return nil, &NetworkError{URL: url, Cause: err}
	}
	defer resp.Body.Close()

	obj, err := decodeObject(io.LimitReader(resp.Body, maxBodyBytes))
	logger.L(ctx).Debug("request completed",
		"url", url,
		"status", resp.StatusCode,
		"took", time.Since(start))
	if err != nil {
		return nil, &NetworkError{URL: url, Status: resp.StatusCode, Cause: err}
	}
	return obj, nil
}

// Probe sends a HEAD request to url and reports whether any HTTP answer
// came back. The status code does not matter; only reachability does.
func (c *HTTPClient) Probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	resp.Body.Close()
	return true
}

func decodeObject(r io.Reader) (map[string]any, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyBody
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}
