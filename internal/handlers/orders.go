package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/strengthworks/storefront-api/internal/domain"
	"github.com/strengthworks/storefront-api/internal/platform/httpx"
	"github.com/strengthworks/storefront-api/internal/services"
)

// orderGetter abstracts the order service.
type orderGetter interface {
	Get(ctx context.Context, orderID int64, orderKey string) (domain.Order, error)
}

// OrderHandlers exposes guest order lookup gated by the per-order key.
type OrderHandlers struct {
	orders orderGetter
}

// NewOrderHandlers constructs the order endpoints.
func NewOrderHandlers(orders orderGetter) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	r.Get("/{orderID}", h.get)
}

func (h *OrderHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id must be a positive integer", http.StatusBadRequest))
		return
	}
	orderKey := strings.TrimSpace(r.URL.Query().Get("key"))
	if orderKey == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order key is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.Get(ctx, orderID, orderKey)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderKeyMismatch):
			httpx.WriteError(ctx, w, httpx.NewError("order_key_mismatch", "order key does not match", http.StatusForbidden))
		case errors.Is(err, services.ErrOrderInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid order reference", http.StatusBadRequest))
		default:
			writeUpstreamError(ctx, w, err)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, order)
}
