package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/strengthworks/storefront-api/internal/cart"
	"github.com/strengthworks/storefront-api/internal/geo"
	"github.com/strengthworks/storefront-api/internal/handlers"
	"github.com/strengthworks/storefront-api/internal/payments"
	"github.com/strengthworks/storefront-api/internal/platform/auth"
	"github.com/strengthworks/storefront-api/internal/platform/config"
	"github.com/strengthworks/storefront-api/internal/platform/idempotency"
	"github.com/strengthworks/storefront-api/internal/platform/observability"
	"github.com/strengthworks/storefront-api/internal/platform/secrets"
	"github.com/strengthworks/storefront-api/internal/services"
	"github.com/strengthworks/storefront-api/internal/woocommerce"
	"github.com/strengthworks/storefront-api/internal/wordpress"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	wooClient, err := woocommerce.NewClient(cfg.Woo.BaseURL, cfg.Woo.ConsumerKey, cfg.Woo.ConsumerSecret,
		woocommerce.WithAPIVersion(cfg.Woo.APIVersion),
		woocommerce.WithTimeout(cfg.Woo.Timeout),
		woocommerce.WithLogger(logger.Named("woocommerce")),
	)
	if err != nil {
		logger.Fatal("failed to initialise commerce client", zap.Error(err))
	}

	storeClient, err := woocommerce.NewStoreClient(cfg.Woo.BaseURL,
		woocommerce.WithStoreAPIVersion(cfg.Woo.StoreAPIVersion),
		woocommerce.WithStoreTimeout(cfg.Woo.Timeout),
		woocommerce.WithStoreLogger(logger.Named("store_api")),
	)
	if err != nil {
		logger.Fatal("failed to initialise store api client", zap.Error(err))
	}

	wpClient, err := wordpress.NewClient(cfg.WordPress.BaseURL,
		wordpress.WithLogger(logger.Named("wordpress")),
	)
	if err != nil {
		logger.Fatal("failed to initialise wordpress client", zap.Error(err))
	}

	verifier := auth.NewVerifier(auth.WithSigningSecret(cfg.WordPress.JWTSecret))

	resolver := geo.NewResolver(cfg.Geo.Endpoint,
		geo.WithTimeout(cfg.Geo.Timeout),
		geo.WithFallbackCountry(cfg.Geo.FallbackCountry),
		geo.WithLogger(logger.Named("geo")),
	)

	paymentManager, err := newPaymentManager(logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialise payment providers", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Gateway: wooClient,
		Logger:  logger.Named("orders"),
		Clock:   time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	customerService, err := services.NewCustomerService(services.CustomerServiceDeps{
		Gateway: wooClient,
		Logger:  logger.Named("customers"),
	})
	if err != nil {
		logger.Fatal("failed to initialise customer service", zap.Error(err))
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Orders:        orderService,
		Payments:      paymentManager,
		PublicBaseURL: cfg.Public.BaseURL,
		Logger:        logger.Named("checkout"),
		Clock:         time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	shippingService, err := services.NewShippingService(services.ShippingServiceDeps{
		Gateway:  wooClient,
		Currency: cfg.Cart.DefaultCurrency,
		Logger:   logger.Named("shipping"),
		Timeout:  cfg.Woo.Timeout,
	})
	if err != nil {
		logger.Fatal("failed to initialise shipping service", zap.Error(err))
	}

	courseService, err := services.NewCourseService(services.CourseServiceDeps{
		Gateway:    wooClient,
		CategoryID: cfg.Catalog.CourseCategoryID,
		Logger:     logger.Named("courses"),
	})
	if err != nil {
		logger.Fatal("failed to initialise course service", zap.Error(err))
	}

	sessionService, err := services.NewSessionService(services.SessionServiceDeps{
		WordPress: wpClient,
		Verifier:  verifier,
		Logger:    logger.Named("sessions"),
		Clock:     time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise session service", zap.Error(err))
	}

	cartStore := cart.NewStore(
		cart.WithDefaultCurrency(cfg.Cart.DefaultCurrency),
		cart.WithFreebies(freebiesFromConfig(logger, cfg.Cart.FreebieProducts)),
	)

	idempotencyStore := idempotency.NewMemoryStore()
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithMiddlewareLogger(logger.Named("idempotency")),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	authHandlers := handlers.NewAuthHandlers(customerService, sessionService, verifier)
	orderHandlers := handlers.NewOrderHandlers(orderService)
	addressHandlers := handlers.NewAddressHandlers(customerService, verifier)
	catalogHandlers := handlers.NewCatalogHandlers(wooClient, courseService)
	cartHandlers := handlers.NewCartHandlers(cartStore)
	checkoutHandlers := handlers.NewCheckoutHandlers(checkoutService)
	shippingHandlers := handlers.NewShippingHandlers(shippingService, resolver)
	proxyHandlers := handlers.NewProxyHandlers(wooClient, cfg.Proxy.AllowedPrefixes, !cfg.IsProduction())
	storeCartHandlers := handlers.NewStoreCartHandlers(storeClient)
	revalidateHandlers := handlers.NewRevalidateHandlers(cfg.Revalidate.Secret, cfg.Revalidate.WebhookURL)
	geolocationHandlers := handlers.NewGeolocationHandlers(resolver)
	healthHandlers := handlers.NewHealthHandlers()

	projectID := strings.TrimSpace(envValues["API_TRACE_PROJECT_ID"])
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithAuthRoutes(authHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithCustomerRoutes(addressHandlers.Routes),
		handlers.WithCatalogRoutes(catalogHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes, idempotencyMiddleware),
		handlers.WithShippingRoutes(shippingHandlers.Routes),
		handlers.WithProxyRoutes(func(r chi.Router) {
			proxyHandlers.Routes(r)
			storeCartHandlers.Routes(r)
		}),
		handlers.WithRevalidateRoutes(revalidateHandlers.Routes),
		handlers.WithGeolocationRoutes(geolocationHandlers.Routes),
	)

	healthHandlers.SetReady(true)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("storefront api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newPaymentManager(logger *zap.Logger, cfg config.Config) (*payments.Manager, error) {
	providers := make([]payments.Provider, 0, 2)

	if strings.TrimSpace(cfg.PSP.StripeAPIKey) != "" {
		stripeProvider, err := payments.NewStripeProvider(payments.StripeConfig{
			APIKey: cfg.PSP.StripeAPIKey,
			Logger: logger.Named("stripe"),
			Clock:  time.Now,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, stripeProvider)
	}

	if strings.TrimSpace(cfg.PSP.PayPalClientID) != "" {
		paypalProvider, err := payments.NewPayPalProvider(payments.PayPalConfig{
			ClientID:     cfg.PSP.PayPalClientID,
			ClientSecret: cfg.PSP.PayPalSecret,
			Mode:         cfg.PSP.PayPalMode,
			Logger:       logger.Named("paypal"),
			Clock:        time.Now,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, paypalProvider)
	}

	if len(providers) == 0 {
		logger.Warn("no payment providers configured; checkout endpoints will reject requests")
	}
	return payments.NewManager(providers...), nil
}

// freebiesFromConfig parses the qualifier-to-gift map. Values are either the
// gift product id or "id:display name".
func freebiesFromConfig(logger *zap.Logger, raw map[string]string) map[int64]cart.FreebieProduct {
	freebies := make(map[int64]cart.FreebieProduct, len(raw))
	for qualifierRaw, giftRaw := range raw {
		qualifier, err := strconv.ParseInt(strings.TrimSpace(qualifierRaw), 10, 64)
		if err != nil || qualifier <= 0 {
			logger.Warn("skipping freebie with invalid qualifier id", zap.String("qualifier", qualifierRaw))
			continue
		}
		idPart, name, _ := strings.Cut(giftRaw, ":")
		giftID, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64)
		if err != nil || giftID <= 0 {
			logger.Warn("skipping freebie with invalid gift id", zap.String("gift", giftRaw))
			continue
		}
		freebies[qualifier] = cart.FreebieProduct{
			ProductID: giftID,
			Name:      strings.TrimSpace(name),
		}
	}
	return freebies
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		return strings.TrimSpace(env[key])
	}

	envLabel := strings.ToLower(lookup("API_SECURITY_ENVIRONMENT"))
	if envLabel == "" {
		envLabel = "local"
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithEnvironment(envLabel),
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if projectMap := secretProjectMapFromEnv(env); len(projectMap) > 0 {
		opts = append(opts, secrets.WithProjectMap(projectMap))
	}
	if defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID"); defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile := lookup("API_SECRET_CREDENTIALS_FILE"); credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames lists the secrets the service cannot start without. The
// PSP secrets are only mandatory when the matching provider is configured.
func requiredSecretNames(env map[string]string) []string {
	required := []string{"Woo.ConsumerSecret"}

	if env != nil {
		if strings.TrimSpace(env["API_PSP_STRIPE_API_KEY"]) != "" {
			required = append(required, "PSP.StripeAPIKey")
		}
		if strings.TrimSpace(env["API_PSP_PAYPAL_CLIENT_ID"]) != "" {
			required = append(required, "PSP.PayPalSecret")
		}
	}

	return uniqueStrings(required)
}

func secretProjectMapFromEnv(env map[string]string) map[string]string {
	raw := ""
	if env != nil {
		raw = env["API_SECRET_PROJECT_IDS"]
	}
	projects := make(map[string]string)
	for _, entry := range strings.Split(strings.TrimSpace(raw), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		envLabel := strings.ToLower(strings.TrimSpace(parts[0]))
		project := strings.TrimSpace(parts[1])
		if envLabel == "" || project == "" {
			continue
		}
		projects[envLabel] = project
	}
	return projects
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}
