package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/strengthworks/storefront-api/internal/geo"
	"github.com/strengthworks/storefront-api/internal/platform/httpx"
)

// GeolocationHandlers resolves the caller's country for currency defaults.
type GeolocationHandlers struct {
	resolver locationResolver
}

// NewGeolocationHandlers constructs the geolocation endpoint.
func NewGeolocationHandlers(resolver locationResolver) *GeolocationHandlers {
	return &GeolocationHandlers{resolver: resolver}
}

// Routes wires the geolocation endpoint onto the API root.
func (h *GeolocationHandlers) Routes(r chi.Router) {
	r.Get("/geolocation", h.locate)
}

func (h *GeolocationHandlers) locate(w http.ResponseWriter, r *http.Request) {
	location := h.resolver.Resolve(r.Context(), geo.ClientIP(r))
	httpx.WriteJSON(w, http.StatusOK, location)
}
