// Package wordpress bridges WordPress JWT authentication into storefront
// sessions.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidCredentials is returned when WordPress rejects the login.
var ErrInvalidCredentials = errors.New("wordpress: invalid credentials")

// TokenResponse is the payload returned by the JWT auth token endpoint.
type TokenResponse struct {
	Token       string `json:"token"`
	Email       string `json:"user_email"`
	Nicename    string `json:"user_nicename"`
	DisplayName string `json:"user_display_name"`
}

// Profile is the authenticated user record from wp/v2/users/me.
type Profile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Email string `json:"email"`
}

// Client calls the WordPress JWT auth plugin and core user endpoints.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client for the given WordPress base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("wordpress: invalid base url %q", baseURL)
	}

	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Authenticate exchanges username and password for a JWT via the token
// endpoint. Failed logins map to ErrInvalidCredentials.
func (c *Client) Authenticate(ctx context.Context, username, password string) (TokenResponse, error) {
	body, err := json.Marshal(map[string]string{
		"username": strings.TrimSpace(username),
		"password": password,
	})
	if err != nil {
		return TokenResponse{}, fmt.Errorf("wordpress: encode credentials: %w", err)
	}

	status, payload, err := c.do(ctx, http.MethodPost, "jwt-auth/v1/token", body, "")
	if err != nil {
		return TokenResponse{}, err
	}
	if status == http.StatusForbidden || status == http.StatusUnauthorized {
		return TokenResponse{}, ErrInvalidCredentials
	}
	if status != http.StatusOK {
		return TokenResponse{}, fmt.Errorf("wordpress: token endpoint status %d", status)
	}

	var token TokenResponse
	if err := json.Unmarshal(payload, &token); err != nil {
		return TokenResponse{}, fmt.Errorf("wordpress: decode token response: %w", err)
	}
	if strings.TrimSpace(token.Token) == "" {
		return TokenResponse{}, fmt.Errorf("wordpress: token endpoint returned empty token")
	}
	return token, nil
}

// Validate checks a JWT against the token validation endpoint.
func (c *Client) Validate(ctx context.Context, token string) (bool, error) {
	status, _, err := c.do(ctx, http.MethodPost, "jwt-auth/v1/token/validate", nil, token)
	if err != nil {
		return false, err
	}
	return status == http.StatusOK, nil
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context, token string) (Profile, error) {
	status, payload, err := c.do(ctx, http.MethodGet, "wp/v2/users/me?context=edit", nil, token)
	if err != nil {
		return Profile{}, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return Profile{}, ErrInvalidCredentials
	}
	if status != http.StatusOK {
		return Profile{}, fmt.Errorf("wordpress: users/me status %d", status)
	}

	var profile Profile
	if err := json.Unmarshal(payload, &profile); err != nil {
		return Profile{}, fmt.Errorf("wordpress: decode profile: %w", err)
	}
	return profile, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, bearer string) (int, []byte, error) {
	u := *c.baseURL
	trimmed := strings.TrimLeft(path, "/")
	rawPath := trimmed
	rawQuery := ""
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		rawPath = trimmed[:idx]
		rawQuery = trimmed[idx+1:]
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/wp-json/" + rawPath
	u.RawQuery = rawQuery

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("wordpress: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer = strings.TrimSpace(bearer); bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("wordpress: %s %s: %w", method, rawPath, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("wordpress: read response: %w", err)
	}
	return resp.StatusCode, payload, nil
}
