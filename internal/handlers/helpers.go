// Package handlers exposes the storefront HTTP surface.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/strengthworks/storefront-api/internal/platform/httpx"
	"github.com/strengthworks/storefront-api/internal/platform/observability"
	"github.com/strengthworks/storefront-api/internal/woocommerce"
)

const defaultMaxBodySize = 1 << 20

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, errEmptyBody
	}
	defer r.Body.Close()

	if limit <= 0 {
		limit = defaultMaxBodySize
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	if len(body) == 0 {
		return nil, errEmptyBody
	}
	return body, nil
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "a json request body is required", http.StatusBadRequest))
}

// writeUpstreamError maps commerce gateway failures onto the storefront's
// fixed error envelope. Upstream bodies are logged, never relayed, so internal
// WooCommerce error details stay out of browser responses.
func writeUpstreamError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := observability.FromContext(ctx)
	if upstream, ok := woocommerce.AsUpstream(err); ok {
		logger.Warn("commerce upstream error",
			zap.Int("upstream_status", upstream.StatusCode),
			zap.ByteString("upstream_body", truncate(upstream.Body, 2048)))
		httpx.WriteError(ctx, w, httpx.NewError("upstream_error", "the commerce backend rejected the request", http.StatusBadGateway))
		return
	}
	logger.Error("commerce request failed", zap.Error(err))
	httpx.WriteError(ctx, w, httpx.NewError("upstream_unavailable", "the commerce backend is unavailable", http.StatusBadGateway))
}

func truncate(b []byte, limit int) []byte {
	if len(b) <= limit {
		return b
	}
	return b[:limit]
}
