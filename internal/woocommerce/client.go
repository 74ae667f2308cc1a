// Package woocommerce wraps the WooCommerce REST API and the cookie-less Store
// API behind small clients that the rest of the storefront builds on.
package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// Client talks to the authenticated WooCommerce REST API (wp-json/wc/v3) using
// consumer-key Basic authentication.
type Client struct {
	baseURL        *url.URL
	consumerKey    string
	consumerSecret string
	version        string
	httpClient     *http.Client
	logger         *zap.Logger
}

// ClientOption customises Client construction.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithAPIVersion overrides the REST namespace, e.g. "wc/v3".
func WithAPIVersion(version string) ClientOption {
	return func(c *Client) {
		if version = strings.Trim(strings.TrimSpace(version), "/"); version != "" {
			c.version = version
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a REST client for the given store base URL and credentials.
func NewClient(baseURL, consumerKey, consumerSecret string, opts ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("woocommerce: invalid base url %q", baseURL)
	}

	client := &Client{
		baseURL:        parsed,
		consumerKey:    strings.TrimSpace(consumerKey),
		consumerSecret: strings.TrimSpace(consumerSecret),
		version:        "wc/v3",
		httpClient:     &http.Client{Timeout: defaultTimeout},
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Request performs an authenticated REST call. path is relative to the API
// namespace ("orders/42", "customers"). Responses outside 2xx become an
// *UpstreamError preserving status and body.
func (c *Client) Request(ctx context.Context, method, path string, query url.Values, body []byte) (json.RawMessage, error) {
	endpoint := c.endpoint(path, query)

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: build request: %w", err)
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("woocommerce: upstream error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: payload}
	}

	return payload, nil
}

// Get fetches path and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	payload, err := c.Request(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decodeInto(payload, out)
}

// Post sends body to path and decodes the response into out when out is non-nil.
func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	encoded, err := encodeBody(body)
	if err != nil {
		return err
	}
	payload, err := c.Request(ctx, http.MethodPost, path, nil, encoded)
	if err != nil {
		return err
	}
	return decodeInto(payload, out)
}

// Put sends body to path and decodes the response into out when out is non-nil.
func (c *Client) Put(ctx context.Context, path string, body any, out any) error {
	encoded, err := encodeBody(body)
	if err != nil {
		return err
	}
	payload, err := c.Request(ctx, http.MethodPut, path, nil, encoded)
	if err != nil {
		return err
	}
	return decodeInto(payload, out)
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/wp-json/" + c.version + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: encode body: %w", err)
	}
	return encoded, nil
}

func decodeInto(payload json.RawMessage, out any) error {
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("woocommerce: decode response: %w", err)
	}
	return nil
}
