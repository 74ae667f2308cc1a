package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/strengthworks/storefront-api/internal/domain"
	"github.com/strengthworks/storefront-api/internal/platform/httpx"
	"github.com/strengthworks/storefront-api/internal/platform/pagination"
	"github.com/strengthworks/storefront-api/internal/services"
	"github.com/strengthworks/storefront-api/internal/woocommerce"
)

// gatewayLister abstracts the commerce gateway for payment gateway listing.
type gatewayLister interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// courseCatalog abstracts the course service.
type courseCatalog interface {
	List(ctx context.Context, page pagination.Params) ([]domain.Course, error)
	VerifyCertificate(ctx context.Context, code string) (domain.Certificate, error)
}

// CatalogHandlers exposes payment methods and the course catalog.
type CatalogHandlers struct {
	gateway gatewayLister
	courses courseCatalog
}

// NewCatalogHandlers constructs the catalog endpoints.
func NewCatalogHandlers(gateway gatewayLister, courses courseCatalog) *CatalogHandlers {
	return &CatalogHandlers{gateway: gateway, courses: courses}
}

// Routes wires the catalog endpoints onto the API root.
func (h *CatalogHandlers) Routes(r chi.Router) {
	r.Get("/payment-methods", h.paymentMethods)
	if h.courses != nil {
		r.Get("/courses", h.listCourses)
		r.Get("/courses/certificates/{code}", h.verifyCertificate)
	}
}

// paymentMethods lists the enabled payment gateways in checkout display order.
func (h *CatalogHandlers) paymentMethods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var gateways []domain.PaymentGateway
	if err := h.gateway.Get(ctx, "payment_gateways", nil, &gateways); err != nil {
		writeUpstreamError(ctx, w, err)
		return
	}

	enabled := make([]domain.PaymentGateway, 0, len(gateways))
	for _, gw := range gateways {
		if !gw.Enabled {
			continue
		}
		gw.Title = domain.SanitizeText(gw.Title)
		gw.Description = domain.SanitizeText(gw.Description)
		enabled = append(enabled, gw)
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i].Order < enabled[j].Order })

	httpx.WriteJSON(w, http.StatusOK, enabled)
}

func (h *CatalogHandlers) listCourses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, err := pagination.Parse(r.URL.Query())
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid pagination parameters", http.StatusBadRequest))
		return
	}

	courses, err := h.courses.List(ctx, page)
	if err != nil {
		writeUpstreamError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, courses)
}

func (h *CatalogHandlers) verifyCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cert, err := h.courses.VerifyCertificate(ctx, chi.URLParam(r, "code"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCourseInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "certificate code is required", http.StatusBadRequest))
		case errors.Is(err, services.ErrCertificateNotFound):
			httpx.WriteError(ctx, w, httpx.NewError("certificate_not_found", "no certificate exists for this code", http.StatusNotFound))
		default:
			if upstream, ok := woocommerce.AsUpstream(err); ok && upstream.StatusCode == http.StatusNotFound {
				httpx.WriteError(ctx, w, httpx.NewError("certificate_not_found", "no certificate exists for this code", http.StatusNotFound))
				return
			}
			writeUpstreamError(ctx, w, err)
		}
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cert)
}
