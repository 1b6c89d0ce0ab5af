package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ayo6706/wallet-ledger/internal/api/handler"
	"github.com/ayo6706/wallet-ledger/internal/api/middleware"
	"github.com/ayo6706/wallet-ledger/internal/api/spec"
	"github.com/ayo6706/wallet-ledger/internal/config"
	"github.com/ayo6706/wallet-ledger/internal/domain"
	"github.com/ayo6706/wallet-ledger/internal/gateway"
	"github.com/ayo6706/wallet-ledger/internal/idempotency"
	"github.com/ayo6706/wallet-ledger/internal/service"
)

// Router wires handlers, middleware, and services into the HTTP surface.
type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	redis     redis.Cmdable
	store     service.QueryStore
	gateway   gateway.Gateway
	idemStore *idempotency.Store
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, redisClient redis.Cmdable, store service.QueryStore, gw gateway.Gateway, idemStore *idempotency.Store) *Router {
	return &Router{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		store:     store,
		gateway:   gw,
		idemStore: idemStore,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	// Services
	walletSvc := service.NewWalletService(api.store)
	transferSvc := service.NewTransferService(api.store)
	depositSvc := service.NewDepositService(api.store, api.gateway, api.cfg.DepositCallbackURL)

	// Handlers
	walletHandler := handler.NewWalletHandler(walletSvc, depositSvc)
	transferHandler := handler.NewTransferHandler(walletSvc, transferSvc)
	webhookHandler := handler.NewWebhookHandler(api.gateway, depositSvc)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Get("/livez", healthHandler.Live)
		r.Get("/readyz", healthHandler.Ready)
		r.Get("/openapi.yaml", spec.OpenAPIHandler())
		r.Post("/api/wallet/paystack/webhook", webhookHandler.HandleGatewayWebhook)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Protected routes: identity and scopes are resolved here, before
	// any ledger operation runs.
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Post("/api/wallet", walletHandler.CreateWallet)
		r.With(middleware.RequireScope(domain.ScopeWalletRead)).
			Get("/api/wallet/balance", walletHandler.Balance)
		r.With(middleware.RequireScope(domain.ScopeWalletRead)).
			Get("/api/wallet/transactions", walletHandler.Transactions)
		r.With(middleware.RequireScope(domain.ScopeWalletRead)).
			Get("/api/wallet/deposit/{reference}/status", walletHandler.DepositStatus)
		r.With(middleware.RequireScope(domain.ScopeWalletFund)).
			Post("/api/wallet/deposit", walletHandler.Deposit)
		r.With(
			middleware.RequireScope(domain.ScopeWalletTransfer),
			middleware.IdempotencyMiddleware(api.idemStore, api.logger),
		).Post("/api/transfer", transferHandler.Transfer)
	})

	return r
}
