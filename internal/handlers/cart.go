package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/strengthworks/storefront-api/internal/cart"
	"github.com/strengthworks/storefront-api/internal/platform/httpx"
)

// CartHandlers exposes the server-side cart store.
type CartHandlers struct {
	store *cart.Store
}

// NewCartHandlers constructs the cart endpoints.
func NewCartHandlers(store *cart.Store) *CartHandlers {
	return &CartHandlers{store: store}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{cartID}", h.get)
	r.Post("/{cartID}/items", h.addItem)
	r.Patch("/{cartID}/items/{key}", h.updateItem)
	r.Delete("/{cartID}/items/{key}", h.removeItem)
	r.Put("/{cartID}/currency", h.setCurrency)
	r.Delete("/{cartID}", h.clear)
}

type cartView struct {
	cart.Cart
	Total          int64  `json:"total"`
	FormattedTotal string `json:"formatted_total"`
}

func viewOf(c cart.Cart, r *http.Request) cartView {
	tag := language.English
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if parsed, _, err := language.ParseAcceptLanguage(accept); err == nil && len(parsed) > 0 {
			tag = parsed[0]
		}
	}
	total := c.Total()
	return cartView{
		Cart:           c,
		Total:          total,
		FormattedTotal: cart.FormatPrice(total, c.Currency, tag),
	}
}

func (h *CartHandlers) create(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusCreated, viewOf(h.store.Create(), r))
}

func (h *CartHandlers) get(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.store.Snapshot(chi.URLParam(r, "cartID"))
	if err != nil {
		writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewOf(snapshot, r))
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, defaultMaxBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req struct {
		ProductID int64  `json:"product_id"`
		Name      string `json:"name"`
		Quantity  int    `json:"quantity"`
		UnitPrice int64  `json:"unit_price"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed json body", http.StatusBadRequest))
		return
	}

	snapshot, err := h.store.Dispatch(chi.URLParam(r, "cartID"), cart.AddItem{
		ProductID: req.ProductID,
		Name:      req.Name,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewOf(snapshot, r))
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, defaultMaxBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed json body", http.StatusBadRequest))
		return
	}

	snapshot, err := h.store.Dispatch(chi.URLParam(r, "cartID"), cart.UpdateQuantity{
		Key:      chi.URLParam(r, "key"),
		Quantity: req.Quantity,
	})
	if err != nil {
		writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewOf(snapshot, r))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.store.Dispatch(chi.URLParam(r, "cartID"), cart.RemoveItem{Key: chi.URLParam(r, "key")})
	if err != nil {
		writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewOf(snapshot, r))
}

func (h *CartHandlers) setCurrency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readLimitedBody(r, defaultMaxBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req struct {
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed json body", http.StatusBadRequest))
		return
	}

	snapshot, err := h.store.Dispatch(chi.URLParam(r, "cartID"), cart.SetCurrency{Currency: req.Currency})
	if err != nil {
		writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewOf(snapshot, r))
}

func (h *CartHandlers) clear(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.store.Dispatch(chi.URLParam(r, "cartID"), cart.Clear{})
	if err != nil {
		writeCartError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewOf(snapshot, r))
}

func writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, cart.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_found", "no cart exists with this id", http.StatusNotFound))
	case errors.Is(err, cart.ErrLineNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("line_not_found", "no cart line exists with this key", http.StatusNotFound))
	case errors.Is(err, cart.ErrFreebieImmutable):
		httpx.WriteError(ctx, w, httpx.NewError("freebie_immutable", "promotional items are managed automatically", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}
