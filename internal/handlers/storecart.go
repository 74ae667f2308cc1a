package handlers

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/strengthworks/storefront-api/internal/platform/httpx"
	"github.com/strengthworks/storefront-api/internal/woocommerce"
)

// storeGateway abstracts the Store API client.
type storeGateway interface {
	Request(ctx context.Context, method, path string, query url.Values, body []byte, cartToken string) (woocommerce.StoreResponse, error)
}

// StoreCartHandlers relays the browser's WooCommerce Store API cart. The
// Cart-Token header travels in both directions so the anonymous cart session
// survives without cookies.
type StoreCartHandlers struct {
	store storeGateway
}

// NewStoreCartHandlers constructs the Store API cart relay.
func NewStoreCartHandlers(store storeGateway) *StoreCartHandlers {
	return &StoreCartHandlers{store: store}
}

// Routes wires the /store/cart endpoints onto the API root.
func (h *StoreCartHandlers) Routes(r chi.Router) {
	r.HandleFunc("/store/cart", h.relay)
	r.HandleFunc("/store/cart/*", h.relay)
}

func (h *StoreCartHandlers) relay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	path := "cart"
	if rest := strings.Trim(chi.URLParam(r, "*"), "/"); rest != "" {
		path = "cart/" + rest
	}

	var body []byte
	if r.Body != nil {
		defer r.Body.Close()
		data, err := io.ReadAll(io.LimitReader(r.Body, defaultMaxBodySize))
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read request body", http.StatusBadRequest))
			return
		}
		body = data
	}

	resp, err := h.store.Request(ctx, r.Method, path, r.URL.Query(), body, r.Header.Get(woocommerce.CartTokenHeader))
	if err != nil {
		writeUpstreamError(ctx, w, err)
		return
	}

	if token := resp.CartToken(); token != "" {
		w.Header().Set(woocommerce.CartTokenHeader, token)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Body)
}
