package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/strengthworks/storefront-api/internal/payments"
	"github.com/strengthworks/storefront-api/internal/platform/httpx"
	"github.com/strengthworks/storefront-api/internal/services"
)

// checkoutDriver abstracts the checkout service.
type checkoutDriver interface {
	StartPayment(ctx context.Context, cmd services.StartPaymentCommand) (payments.CheckoutSession, error)
	CompletePayment(ctx context.Context, providerName string, orderID int64, orderKey, sessionID string) (payments.PaymentDetails, error)
}

// CheckoutHandlers starts and completes PSP payments for existing orders.
type CheckoutHandlers struct {
	checkout checkoutDriver
}

// NewCheckoutHandlers constructs the checkout endpoints.
func NewCheckoutHandlers(checkout checkoutDriver) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	r.Post("/stripe", h.start("stripe"))
	r.Post("/paypal", h.start("paypal"))
	r.Post("/paypal/capture", h.capture("paypal"))
}

type startPaymentRequest struct {
	OrderID    int64  `json:"order_id"`
	OrderKey   string `json:"order_key"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
	Locale     string `json:"locale"`
}

func (h *CheckoutHandlers) start(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := readLimitedBody(r, defaultMaxBodySize)
		if err != nil {
			writeBodyError(ctx, w, err)
			return
		}

		var req startPaymentRequest
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed json body", http.StatusBadRequest))
			return
		}
		if req.OrderID <= 0 || strings.TrimSpace(req.OrderKey) == "" {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order_id and order_key are required", http.StatusBadRequest))
			return
		}

		session, err := h.checkout.StartPayment(ctx, services.StartPaymentCommand{
			Provider:       provider,
			OrderID:        req.OrderID,
			OrderKey:       req.OrderKey,
			SuccessURL:     req.SuccessURL,
			CancelURL:      req.CancelURL,
			Locale:         req.Locale,
			IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		})
		if err != nil {
			writeCheckoutError(ctx, w, err)
			return
		}

		httpx.WriteJSON(w, http.StatusCreated, map[string]any{
			"session_id":   session.ID,
			"provider":     session.Provider,
			"redirect_url": session.RedirectURL,
			"expires_at":   session.ExpiresAt,
		})
	}
}

type capturePaymentRequest struct {
	OrderID   int64  `json:"order_id"`
	OrderKey  string `json:"order_key"`
	SessionID string `json:"session_id"`
}

func (h *CheckoutHandlers) capture(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := readLimitedBody(r, defaultMaxBodySize)
		if err != nil {
			writeBodyError(ctx, w, err)
			return
		}

		var req capturePaymentRequest
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed json body", http.StatusBadRequest))
			return
		}
		if req.OrderID <= 0 || strings.TrimSpace(req.OrderKey) == "" || strings.TrimSpace(req.SessionID) == "" {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order_id, order_key and session_id are required", http.StatusBadRequest))
			return
		}

		details, err := h.checkout.CompletePayment(ctx, provider, req.OrderID, req.OrderKey, req.SessionID)
		if err != nil {
			writeCheckoutError(ctx, w, err)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"provider":   details.Provider,
			"session_id": details.SessionID,
			"status":     details.Status,
			"amount":     details.Amount,
			"currency":   details.Currency,
		})
	}
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderKeyMismatch):
		httpx.WriteError(ctx, w, httpx.NewError("order_key_mismatch", "order key does not match", http.StatusForbidden))
	case errors.Is(err, services.ErrOrderInvalidInput), errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid checkout request", http.StatusBadRequest))
	case errors.Is(err, payments.ErrUnsupportedProvider):
		httpx.WriteError(ctx, w, httpx.NewError("provider_unavailable", "this payment provider is not configured", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrCheckoutPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_failed", "the payment provider rejected the request", http.StatusBadGateway))
	default:
		writeUpstreamError(ctx, w, err)
	}
}
