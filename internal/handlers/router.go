package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/strengthworks/storefront-api/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers

	auth        RouteRegistrar
	orders      RouteRegistrar
	customers   RouteRegistrar
	catalog     RouteRegistrar
	cart        RouteRegistrar
	checkout    RouteRegistrar
	shipping    RouteRegistrar
	proxy       RouteRegistrar
	revalidate  RouteRegistrar
	geolocation RouteRegistrar

	checkoutMiddlewares []func(http.Handler) http.Handler
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix = "/api/v1"
	defaultTimeout   = 60 * time.Second
)

// NewRouter constructs the chi router with shared middleware and route groups.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		basePath: defaultAPIPrefix,
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()

	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(cfg.basePath, func(api chi.Router) {
		mount := func(path string, registrar RouteRegistrar, groupMW []func(http.Handler) http.Handler) {
			if registrar == nil {
				return
			}
			api.Route(path, func(group chi.Router) {
				for _, mw := range groupMW {
					if mw != nil {
						group.Use(mw)
					}
				}
				registrar(group)
			})
		}

		mount("/auth", cfg.auth, nil)
		mount("/orders", cfg.orders, nil)
		mount("/customers", cfg.customers, nil)
		mount("/cart", cfg.cart, nil)
		mount("/checkout", cfg.checkout, cfg.checkoutMiddlewares)
		mount("/shipping", cfg.shipping, nil)
		if cfg.catalog != nil {
			cfg.catalog(api)
		}
		if cfg.proxy != nil {
			cfg.proxy(api)
		}
		if cfg.revalidate != nil {
			cfg.revalidate(api)
		}
		if cfg.geolocation != nil {
			cfg.geolocation(api)
		}
	})

	return r
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the probe handlers.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// WithAuthRoutes configures the registrar for session endpoints.
func WithAuthRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.auth = reg }
}

// WithOrderRoutes configures the registrar for order endpoints.
func WithOrderRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.orders = reg }
}

// WithCustomerRoutes configures the registrar for customer endpoints.
func WithCustomerRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.customers = reg }
}

// WithCatalogRoutes configures the registrar mounted directly on the API root
// for catalog endpoints (payment methods, courses).
func WithCatalogRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.catalog = reg }
}

// WithCartRoutes configures the registrar for cart endpoints.
func WithCartRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.cart = reg }
}

// WithCheckoutRoutes configures the registrar for checkout endpoints plus the
// middleware guarding them.
func WithCheckoutRoutes(reg RouteRegistrar, mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.checkout = reg
		cfg.checkoutMiddlewares = mw
	}
}

// WithShippingRoutes configures the registrar for shipping endpoints.
func WithShippingRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.shipping = reg }
}

// WithProxyRoutes configures the registrar for the commerce proxy.
func WithProxyRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.proxy = reg }
}

// WithRevalidateRoutes configures the registrar for cache revalidation.
func WithRevalidateRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.revalidate = reg }
}

// WithGeolocationRoutes configures the registrar for geolocation.
func WithGeolocationRoutes(reg RouteRegistrar) Option {
	return func(cfg *routerConfig) { cfg.geolocation = reg }
}
