// Package geo resolves a request's country for currency and shipping defaults.
package geo

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/strengthworks/storefront-api/internal/domain"
)

// DefaultFallbackCountry is used whenever the lookup fails for any reason.
const DefaultFallbackCountry = "DE"

// Resolver looks up the country for an IP address against an external
// geolocation endpoint. Failures never propagate: the resolver degrades to the
// configured fallback country so the storefront keeps working.
type Resolver struct {
	endpoint   string
	fallback   string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customises Resolver construction.
type Option func(*Resolver)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithTimeout bounds the lookup.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Resolver) {
		if timeout > 0 {
			r.httpClient.Timeout = timeout
		}
	}
}

// WithFallbackCountry overrides the country returned when the lookup fails.
func WithFallbackCountry(country string) Option {
	return func(r *Resolver) {
		if country = strings.ToUpper(strings.TrimSpace(country)); country != "" {
			r.fallback = country
		}
	}
}

// WithLogger attaches a logger for lookup diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver builds a Resolver for the given lookup endpoint. An empty
// endpoint yields a resolver that always answers with the fallback.
func NewResolver(endpoint string, opts ...Option) *Resolver {
	r := &Resolver{
		endpoint:   strings.TrimSpace(endpoint),
		fallback:   DefaultFallbackCountry,
		httpClient: &http.Client{Timeout: 3 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type lookupResponse struct {
	CountryCode string `json:"country_code"`
	Country     string `json:"country"`
	Region      string `json:"region"`
	City        string `json:"city"`
}

// Resolve returns the location for ip. Any failure, including timeouts,
// malformed responses, and private addresses, returns the fallback country.
func (r *Resolver) Resolve(ctx context.Context, ip string) domain.Location {
	fallback := domain.Location{Country: r.fallback}

	ip = strings.TrimSpace(ip)
	if r.endpoint == "" || ip == "" || net.ParseIP(ip) == nil {
		return fallback
	}

	endpoint := strings.ReplaceAll(r.endpoint, "{ip}", url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		r.logger.Debug("geo: build request failed", zap.Error(err))
		return fallback
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Debug("geo: lookup failed", zap.Error(err))
		return fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Debug("geo: lookup status", zap.Int("status", resp.StatusCode))
		return fallback
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		r.logger.Debug("geo: read response failed", zap.Error(err))
		return fallback
	}

	var parsed lookupResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		r.logger.Debug("geo: decode response failed", zap.Error(err))
		return fallback
	}

	country := strings.ToUpper(strings.TrimSpace(parsed.CountryCode))
	if country == "" {
		country = strings.ToUpper(strings.TrimSpace(parsed.Country))
	}
	if len(country) != 2 {
		return fallback
	}

	return domain.Location{
		Country: country,
		Region:  strings.TrimSpace(parsed.Region),
		City:    strings.TrimSpace(parsed.City),
	}
}

// ClientIP extracts the caller's IP from forwarding headers, falling back to
// the socket address.
func ClientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(real) != nil {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
