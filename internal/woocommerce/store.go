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

// CartTokenHeader carries the anonymous cart session between the browser and
// the Store API. It is relayed verbatim in both directions.
const CartTokenHeader = "Cart-Token"

// StoreResponse is the outcome of a Store API call: the raw JSON body plus the
// upstream headers so the caller can relay the cart token and nonce headers.
type StoreResponse struct {
	Body    json.RawMessage
	Headers http.Header
}

// CartToken extracts the cart token header from the upstream response, if set.
func (r StoreResponse) CartToken() string {
	if r.Headers == nil {
		return ""
	}
	return strings.TrimSpace(r.Headers.Get(CartTokenHeader))
}

// StoreClient talks to the unauthenticated WooCommerce Store API
// (wp-json/wc/store/v1), which manages carts via the Cart-Token header instead
// of cookies.
type StoreClient struct {
	baseURL    *url.URL
	version    string
	httpClient *http.Client
	logger     *zap.Logger
}

// StoreOption customises StoreClient construction.
type StoreOption func(*StoreClient)

// WithStoreHTTPClient replaces the underlying HTTP client.
func WithStoreHTTPClient(client *http.Client) StoreOption {
	return func(c *StoreClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithStoreTimeout sets the per-request timeout.
func WithStoreTimeout(timeout time.Duration) StoreOption {
	return func(c *StoreClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithStoreAPIVersion overrides the Store API namespace, e.g. "wc/store/v1".
func WithStoreAPIVersion(version string) StoreOption {
	return func(c *StoreClient) {
		if version = strings.Trim(strings.TrimSpace(version), "/"); version != "" {
			c.version = version
		}
	}
}

// WithStoreLogger attaches a logger for request diagnostics.
func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(c *StoreClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewStoreClient builds a Store API client for the given store base URL.
func NewStoreClient(baseURL string, opts ...StoreOption) (*StoreClient, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("woocommerce: invalid base url %q", baseURL)
	}

	client := &StoreClient{
		baseURL:    parsed,
		version:    "wc/store/v1",
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Request performs a Store API call. cartToken, when non-empty, is forwarded on
// the Cart-Token header; the upstream response headers are returned so the
// refreshed token can be relayed to the browser. Non-2xx responses become an
// *UpstreamError.
func (c *StoreClient) Request(ctx context.Context, method, path string, query url.Values, body []byte, cartToken string) (StoreResponse, error) {
	endpoint := c.endpoint(path, query)

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return StoreResponse{}, fmt.Errorf("woocommerce: build store request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := strings.TrimSpace(cartToken); token != "" {
		req.Header.Set(CartTokenHeader, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return StoreResponse{}, fmt.Errorf("woocommerce: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return StoreResponse{}, fmt.Errorf("woocommerce: read store response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("woocommerce: store api error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return StoreResponse{}, &UpstreamError{StatusCode: resp.StatusCode, Body: payload}
	}

	return StoreResponse{Body: payload, Headers: resp.Header.Clone()}, nil
}

func (c *StoreClient) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/wp-json/" + c.version + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}
