package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/strengthworks/storefront-api/internal/platform/httpx"
	"github.com/strengthworks/storefront-api/internal/woocommerce"
)

// proxyGateway abstracts the commerce REST client for the passthrough proxy.
type proxyGateway interface {
	Request(ctx context.Context, method, path string, query url.Values, body []byte) (json.RawMessage, error)
}

// ProxyHandlers forwards allow-listed storefront requests to the commerce
// REST API verbatim: method, path remainder, query string, and body all pass
// through unchanged.
type ProxyHandlers struct {
	gateway         proxyGateway
	allowedPrefixes []string
	debugEnabled    bool
}

// NewProxyHandlers constructs the proxy. Paths are checked against
// allowedPrefixes segment-wise, so "orders" does not admit "orders-secret".
func NewProxyHandlers(gateway proxyGateway, allowedPrefixes []string, debugEnabled bool) *ProxyHandlers {
	prefixes := make([]string, 0, len(allowedPrefixes))
	for _, prefix := range allowedPrefixes {
		if prefix = strings.Trim(strings.TrimSpace(prefix), "/"); prefix != "" {
			prefixes = append(prefixes, prefix)
		}
	}
	return &ProxyHandlers{gateway: gateway, allowedPrefixes: prefixes, debugEnabled: debugEnabled}
}

// Routes wires the proxy endpoints onto the API root.
func (h *ProxyHandlers) Routes(r chi.Router) {
	r.HandleFunc("/woo/*", h.forward)
	if h.debugEnabled {
		r.HandleFunc("/debug/woo/*", h.forwardDebug)
	}
}

func (h *ProxyHandlers) allowed(path string) bool {
	for _, prefix := range h.allowedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func (h *ProxyHandlers) forward(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	path := strings.Trim(chi.URLParam(r, "*"), "/")
	if path == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "missing upstream path", http.StatusBadRequest))
		return
	}
	if !h.allowed(path) {
		httpx.WriteError(ctx, w, httpx.NewError("path_not_allowed", "this upstream path is not exposed", http.StatusForbidden))
		return
	}

	body, err := readProxyBody(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read request body", http.StatusBadRequest))
		return
	}

	payload, err := h.gateway.Request(ctx, r.Method, path, r.URL.Query(), body)
	if err != nil {
		writeUpstreamError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// forwardDebug relays the upstream response verbatim, status and body
// included. It skips the allow-list and only exists outside production.
func (h *ProxyHandlers) forwardDebug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	path := strings.Trim(chi.URLParam(r, "*"), "/")
	if path == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "missing upstream path", http.StatusBadRequest))
		return
	}

	body, err := readProxyBody(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read request body", http.StatusBadRequest))
		return
	}

	payload, err := h.gateway.Request(ctx, r.Method, path, r.URL.Query(), body)
	if err != nil {
		if upstream, ok := woocommerce.AsUpstream(err); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(upstream.StatusCode)
			_, _ = w.Write(upstream.Body)
			return
		}
		writeUpstreamError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func readProxyBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, defaultMaxBodySize))
}
