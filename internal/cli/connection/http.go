package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Pluto-lin/magma/internal/server/httpserver/handler"
)

// DefaultTimeout bounds every request of an HTTPClient.
const DefaultTimeout = 30 * time.Second

// APIError is a non-2xx response of the operations API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// HTTPClient talks to a magmad operations listener.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for server: a host:port, an http(s)
// URL, or unix:///path/to/magmad.sock for the local admin socket.
func NewHTTPClient(server string) *HTTPClient {
	if path, ok := strings.CutPrefix(server, "unix://"); ok {
		return &HTTPClient{
			baseURL: "http://magmad",
			client: &http.Client{
				Timeout: DefaultTimeout,
				Transport: &http.Transport{
					DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
						var d net.Dialer
						return d.DialContext(ctx, "unix", path)
					},
				},
			},
		}
	}

	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Health calls GET /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil)
}

// Ready calls GET /readyz.
func (c *HTTPClient) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil)
}

// CacheSummary calls GET /admin/v1/cache.
func (c *HTTPClient) CacheSummary(ctx context.Context) (*handler.CacheSummaryResponse, error) {
	var out handler.CacheSummaryResponse
	if err := c.do(ctx, http.MethodGet, "/admin/v1/cache", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CacheEntry calls GET /admin/v1/cache/{username}.
func (c *HTTPClient) CacheEntry(ctx context.Context, username string) (*handler.CacheEntryResponse, error) {
	var out handler.CacheEntryResponse
	if err := c.do(ctx, http.MethodGet, "/admin/v1/cache/"+url.PathEscape(username), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Evict calls POST /admin/v1/cache/{username}/evict.
func (c *HTTPClient) Evict(ctx context.Context, username string) (*handler.EvictResponse, error) {
	var out handler.EvictResponse
	if err := c.do(ctx, http.MethodPost, "/admin/v1/cache/"+url.PathEscape(username)+"/evict", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sweep calls POST /admin/v1/cache/sweep. A negative idle uses the
// server's configured threshold.
func (c *HTTPClient) Sweep(ctx context.Context, idle time.Duration) (*handler.SweepResponse, error) {
	path := "/admin/v1/cache/sweep"
	if idle >= 0 {
		path += "?idle=" + url.QueryEscape(idle.String())
	}
	var out handler.SweepResponse
	if err := c.do(ctx, http.MethodPost, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "magma-auth")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	return ParseResponse(resp, target)
}

// ParseResponse decodes the envelope of resp and unmarshals its data
// into target. Error envelopes become *APIError.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code, apiErr.Message = env.Code, env.Message
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("parse response: %w", decodeErr)
	}
	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}
