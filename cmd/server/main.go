package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourorg/storefront/internal/handler"
	"github.com/yourorg/storefront/internal/infrastructure/logger"
	"github.com/yourorg/storefront/internal/infrastructure/redis"
	"github.com/yourorg/storefront/internal/observability/metrics"
	"github.com/yourorg/storefront/internal/observability/tracing"
	"github.com/yourorg/storefront/internal/repository"
	"github.com/yourorg/storefront/internal/security"
	"github.com/yourorg/storefront/internal/security/audit"
	"github.com/yourorg/storefront/internal/security/auth"
	"github.com/yourorg/storefront/internal/security/middleware"
	"github.com/yourorg/storefront/internal/security/ratelimit"
	"github.com/yourorg/storefront/internal/service"
	"github.com/yourorg/storefront/pkg/cache"
	"github.com/yourorg/storefront/pkg/config"
	"github.com/yourorg/storefront/pkg/database"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting storefront server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing (no-op unless an OTLP endpoint is configured)
	shutdownTracing, err := tracing.Init(ctx, log, "storefront", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Database
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	db := pool.GetDB()

	// 5. Redis (session registry)
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 6. Repositories
	txManager := repository.NewTxManager(db, log)
	userRepo := repository.NewPostgresUserRepository(db, log)
	credRepo := repository.NewPostgresCredentialRepository(db, log)
	paymentRepo := repository.NewPostgresPaymentMethodRepository(db, log)
	itemRepo := repository.NewPostgresItemRepository(db, log)
	categoryRepo := repository.NewPostgresCategoryRepository(db, log)
	cartRepo := repository.NewPostgresCartRepository(db, log)
	orderRepo := repository.NewPostgresOrderRepository(db, log)
	shippingRepo := repository.NewPostgresShippingMethodRepository(db, log)
	reportRepo := repository.NewPostgresReportRepository(db, log)

	// 7. Security components
	hasher := auth.NewHasher()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL)
	sessions := auth.NewSessionRegistry(redisClient, log)
	auditLog := audit.NewLogger(log)
	guard := security.NewGuard(tokens, auditLog, log)
	rateLimiter := ratelimit.NewLimiter(100, time.Minute)
	defer rateLimiter.Stop()

	// 8. Services
	ledger := service.NewInventoryLedger(itemRepo, log)
	authSvc := service.NewAuthService(txManager, userRepo, credRepo, paymentRepo, hasher, tokens, sessions, auditLog, log)
	catalogSvc := service.NewCatalogService(itemRepo, categoryRepo, cache.New(), log)
	cartSvc := service.NewCartService(cartRepo, itemRepo, log)
	orderSvc := service.NewOrderService(txManager, orderRepo, cartRepo, shippingRepo, ledger, auditLog, log)
	shippingSvc := service.NewShippingService(shippingRepo, log)
	userSvc := service.NewUserService(txManager, userRepo, credRepo, orderRepo, hasher, auditLog, log)
	profileSvc := service.NewProfileService(userRepo, paymentRepo, log)
	reportSvc := service.NewReportService(reportRepo, log)

	// 9. Handlers
	authHandler := handler.NewAuthHandler(authSvc, guard, log)
	itemsHandler := handler.NewItemsHandler(catalogSvc, guard, log)
	categoriesHandler := handler.NewCategoriesHandler(catalogSvc, guard, log)
	cartHandler := handler.NewCartHandler(cartSvc, guard, log)
	ordersHandler := handler.NewOrdersHandler(orderSvc, guard, log)
	shippingHandler := handler.NewShippingHandler(shippingSvc, guard, log)
	usersHandler := handler.NewUsersHandler(userSvc, guard, log)
	profileHandler := handler.NewProfileHandler(profileSvc, guard, log)
	reportsHandler := handler.NewReportsHandler(reportSvc, guard, log)

	// 10. Routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("POST /api/auth/password", authHandler.ChangePassword)

	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("POST /api/items", itemsHandler.Create)
	mux.HandleFunc("PUT /api/items/{id}", itemsHandler.Update)
	mux.HandleFunc("DELETE /api/items/{id}", itemsHandler.Delete)

	mux.HandleFunc("GET /api/categories", categoriesHandler.List)
	mux.HandleFunc("GET /api/categories/{id}", categoriesHandler.Get)
	mux.HandleFunc("POST /api/categories", categoriesHandler.Create)
	mux.HandleFunc("PUT /api/categories/{id}", categoriesHandler.Update)
	mux.HandleFunc("DELETE /api/categories/{id}", categoriesHandler.Delete)

	mux.HandleFunc("GET /api/cart", cartHandler.View)
	mux.HandleFunc("POST /api/cart", cartHandler.Add)
	mux.HandleFunc("PUT /api/cart/{id}", cartHandler.UpdateLine)
	mux.HandleFunc("DELETE /api/cart/{id}", cartHandler.RemoveLine)

	mux.HandleFunc("POST /api/orders", ordersHandler.Checkout)
	mux.HandleFunc("GET /api/orders", ordersHandler.List)
	mux.HandleFunc("GET /api/orders/{id}", ordersHandler.Get)
	mux.HandleFunc("PUT /api/orders/{id}/status", ordersHandler.UpdateStatus)
	mux.HandleFunc("POST /api/orders/{id}/cancel", ordersHandler.Cancel)

	mux.HandleFunc("GET /api/shipping-methods", shippingHandler.List)
	mux.HandleFunc("GET /api/shipping-methods/{id}", shippingHandler.Get)
	mux.HandleFunc("POST /api/shipping-methods", shippingHandler.Create)
	mux.HandleFunc("PUT /api/shipping-methods/{id}", shippingHandler.Update)
	mux.HandleFunc("DELETE /api/shipping-methods/{id}", shippingHandler.Delete)

	mux.HandleFunc("GET /api/users", usersHandler.List)
	mux.HandleFunc("GET /api/users/{id}", usersHandler.Get)
	mux.HandleFunc("POST /api/users", usersHandler.Create)
	mux.HandleFunc("PUT /api/users/{id}", usersHandler.Update)
	mux.HandleFunc("PUT /api/users/{id}/role", usersHandler.ChangeRole)
	mux.HandleFunc("DELETE /api/users/{id}", usersHandler.Delete)

	mux.HandleFunc("GET /api/profile", profileHandler.Get)
	mux.HandleFunc("PUT /api/profile", profileHandler.Update)
	mux.HandleFunc("POST /api/profile/payment-methods", profileHandler.AddPaymentMethod)
	mux.HandleFunc("DELETE /api/profile/payment-methods/{id}", profileHandler.RemovePaymentMethod)

	mux.HandleFunc("GET /api/reports/sales", reportsHandler.SalesSummary)
	mux.HandleFunc("GET /api/reports/top-items", reportsHandler.TopItems)
	mux.HandleFunc("GET /api/reports/revenue", reportsHandler.Revenue)

	mux.Handle("/metrics", promhttp.Handler())

	// Health and readiness endpoints (no auth required)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		probeCtx, probeCancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer probeCancel()
		if err := pool.Health(probeCtx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database not ready"))
			return
		}
		if err := redisClient.Ping(probeCtx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("redis not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain: request ID -> metrics -> rate limit -> content type -> principal -> CORS/mux
	rootHandler := middleware.RequestID(log)(
		metrics.HTTPMetricsMiddleware(
			middleware.AuthRateLimit(rateLimiter, cfg.AuthRateLimit, cfg.AuthRateWindow)(
				middleware.ValidateJSONContentType(log)(
					middleware.Principal(guard, log)(handlerWithCORS),
				),
			),
		),
	)

	// 11. HTTP server with tracing spans around every request
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "storefront"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("auth_rate_limit", cfg.AuthRateLimit),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == origin {
			return true
		}
	}
	return false
}
