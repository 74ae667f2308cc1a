package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/strengthworks/storefront-api/internal/domain"
	"github.com/strengthworks/storefront-api/internal/platform/auth"
	"github.com/strengthworks/storefront-api/internal/platform/httpx"
	"github.com/strengthworks/storefront-api/internal/services"
)

// addressManager abstracts the customer service address operations.
type addressManager interface {
	Addresses(ctx context.Context, customerID int64) (domain.Address, domain.Address, error)
	UpdateAddresses(ctx context.Context, customerID int64, billing, shipping *domain.Address) (domain.Customer, error)
}

// AddressHandlers exposes the signed-in customer's address book.
type AddressHandlers struct {
	customers addressManager
	verifier  *auth.Verifier
}

// NewAddressHandlers constructs the address endpoints.
func NewAddressHandlers(customers addressManager, verifier *auth.Verifier) *AddressHandlers {
	return &AddressHandlers{customers: customers, verifier: verifier}
}

// Routes wires the /customers endpoints onto the provided router.
func (h *AddressHandlers) Routes(r chi.Router) {
	r.Use(h.verifier.RequireSession())
	r.Get("/addresses", h.get)
	r.Put("/addresses", h.update)
}

func customerIDFromSession(ctx context.Context) (int64, bool) {
	session, ok := auth.SessionFromContext(ctx)
	if !ok || session == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(session.UserID, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *AddressHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerID, ok := customerIDFromSession(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	billing, shipping, err := h.customers.Addresses(ctx, customerID)
	if err != nil {
		writeUpstreamError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]domain.Address{
		"billing":  billing,
		"shipping": shipping,
	})
}

func (h *AddressHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customerID, ok := customerIDFromSession(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, defaultMaxBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req struct {
		Billing  *domain.Address `json:"billing"`
		Shipping *domain.Address `json:"shipping"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed json body", http.StatusBadRequest))
		return
	}

	customer, err := h.customers.UpdateAddresses(ctx, customerID, req.Billing, req.Shipping)
	if err != nil {
		if errors.Is(err, services.ErrCustomerInvalidInput) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "at least one address is required", http.StatusBadRequest))
			return
		}
		writeUpstreamError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]domain.Address{
		"billing":  customer.Billing,
		"shipping": customer.Shipping,
	})
}
