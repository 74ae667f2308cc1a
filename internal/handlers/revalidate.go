package handlers

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/strengthworks/storefront-api/internal/platform/httpx"
	"github.com/strengthworks/storefront-api/internal/platform/observability"
)

// RevalidateSecretHeader authenticates cache revalidation requests.
const RevalidateSecretHeader = "X-Revalidate-Secret"

// RevalidateHandlers triggers frontend cache revalidation after content
// changes in the store.
type RevalidateHandlers struct {
	secret     string
	webhookURL string
	httpClient *http.Client
}

// NewRevalidateHandlers constructs the revalidation endpoint. An empty secret
// disables the check; an empty webhook URL makes the endpoint acknowledge
// without forwarding.
func NewRevalidateHandlers(secret, webhookURL string) *RevalidateHandlers {
	return &RevalidateHandlers{
		secret:     strings.TrimSpace(secret),
		webhookURL: strings.TrimSpace(webhookURL),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Routes wires the revalidation endpoint onto the API root.
func (h *RevalidateHandlers) Routes(r chi.Router) {
	r.Post("/revalidate", h.revalidate)
}

func (h *RevalidateHandlers) revalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.secret != "" {
		supplied := strings.TrimSpace(r.Header.Get(RevalidateSecretHeader))
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(h.secret)) != 1 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_revalidate_secret", "revalidation secret does not match", http.StatusUnauthorized))
			return
		}
	}

	// The frontend sends a single target as {path|tag, type}; paths is kept
	// as a batch extension.
	var req struct {
		Path  string   `json:"path"`
		Tag   string   `json:"tag"`
		Type  string   `json:"type"`
		Paths []string `json:"paths"`
	}
	if body, err := readLimitedBody(r, defaultMaxBodySize); err == nil {
		_ = json.Unmarshal(body, &req)
	}

	targetType := strings.ToLower(strings.TrimSpace(req.Type))

	var tags []string
	if tag := strings.TrimSpace(req.Tag); tag != "" && targetType != "path" {
		tags = append(tags, tag)
	}

	candidates := append([]string{req.Path}, req.Paths...)
	paths := make([]string, 0, len(candidates))
	if targetType != "tag" {
		for _, path := range candidates {
			if path = strings.TrimSpace(path); path != "" && strings.HasPrefix(path, "/") {
				paths = append(paths, path)
			}
		}
	}
	if len(paths) == 0 && len(tags) == 0 {
		paths = []string{"/"}
	}

	forwarded := false
	if h.webhookURL != "" {
		forwarded = h.forward(r, paths, tags)
	}

	resp := map[string]any{
		"revalidated": true,
		"forwarded":   forwarded,
	}
	if len(paths) > 0 {
		resp["paths"] = paths
	}
	if len(tags) > 0 {
		resp["tags"] = tags
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *RevalidateHandlers) forward(r *http.Request, paths, tags []string) bool {
	logger := observability.FromContext(r.Context())

	body := map[string]any{}
	if len(paths) > 0 {
		body["paths"] = paths
	}
	if len(tags) > 0 {
		body["tags"] = tags
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.webhookURL, bytes.NewReader(payload))
	if err != nil {
		logger.Warn("revalidate: build webhook request failed", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	if h.secret != "" {
		req.Header.Set(RevalidateSecretHeader, h.secret)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		logger.Warn("revalidate: webhook call failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn("revalidate: webhook rejected", zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}
