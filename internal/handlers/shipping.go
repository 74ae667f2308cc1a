package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/strengthworks/storefront-api/internal/domain"
	"github.com/strengthworks/storefront-api/internal/geo"
	"github.com/strengthworks/storefront-api/internal/platform/httpx"
	"github.com/strengthworks/storefront-api/internal/services"
)

// shippingQuoter abstracts the shipping service.
type shippingQuoter interface {
	Quote(ctx context.Context, country string) ([]domain.ShippingRate, error)
}

// locationResolver abstracts the geolocation resolver.
type locationResolver interface {
	Resolve(ctx context.Context, ip string) domain.Location
}

// ShippingHandlers quotes shipping rates, defaulting the destination to the
// caller's resolved country.
type ShippingHandlers struct {
	shipping shippingQuoter
	resolver locationResolver
}

// NewShippingHandlers constructs the shipping endpoints.
func NewShippingHandlers(shipping shippingQuoter, resolver locationResolver) *ShippingHandlers {
	return &ShippingHandlers{shipping: shipping, resolver: resolver}
}

// Routes wires the /shipping endpoints onto the provided router.
func (h *ShippingHandlers) Routes(r chi.Router) {
	r.Get("/rates", h.rates)
}

func (h *ShippingHandlers) rates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	country := strings.TrimSpace(r.URL.Query().Get("country"))
	if country == "" && h.resolver != nil {
		country = h.resolver.Resolve(ctx, geo.ClientIP(r)).Country
	}

	rates, err := h.shipping.Quote(ctx, country)
	if err != nil {
		if errors.Is(err, services.ErrShippingInvalidInput) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "country must be a two-letter code", http.StatusBadRequest))
			return
		}
		writeUpstreamError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"country": strings.ToUpper(country),
		"rates":   rates,
	})
}
