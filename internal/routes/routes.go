package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/walletcore/p2p-wallet/internal/auth"
	"github.com/walletcore/p2p-wallet/internal/config"
	"github.com/walletcore/p2p-wallet/internal/identity"
	"github.com/walletcore/p2p-wallet/internal/ledger"
	"github.com/walletcore/p2p-wallet/internal/metrics"
	"github.com/walletcore/p2p-wallet/internal/middleware"
	"github.com/walletcore/p2p-wallet/internal/notification"
	"github.com/walletcore/p2p-wallet/internal/onramp"
	"github.com/walletcore/p2p-wallet/internal/payments"
	"github.com/walletcore/p2p-wallet/internal/wallet"
	"github.com/walletcore/p2p-wallet/internal/webhook"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Services holds the domain services shared by the HTTP layer and background workers.
type Services struct {
	Ledger   ledger.Store
	Users    identity.Repository
	Identity *identity.Service
	Auth     *auth.Service
	OnRamp   *onramp.Service
	Payments *payments.Service
	Wallet   *wallet.Service
	Gate     *webhook.Gate
}

// NewServices picks the storage backends and builds the domain services. Without a
// database the in-memory store is used, which is only allowed in development.
func NewServices(d Deps) (*Services, error) {
	var (
		store ledger.Store
		users identity.Repository
	)
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
		users = identity.NewPostgresRepository(d.DB)
	} else {
		if !d.Cfg.IsDevelopment() {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		d.Logger.Warn("DATABASE_URL not set, using in-memory ledger")
		store = ledger.NewInMemory()
		users = identity.NewMemoryRepository()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	onRamps := onramp.NewService(store, onramp.DefaultProviders(), notifier, d.Metrics, d.Logger)

	return &Services{
		Ledger:   store,
		Users:    users,
		Identity: identity.NewService(users),
		Auth:     auth.NewService(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL),
		OnRamp:   onRamps,
		Payments: payments.NewService(store, notifier, d.Metrics, d.Logger),
		Wallet:   wallet.NewService(store),
		Gate:     webhook.NewGate(onRamps),
	}, nil
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps, s *Services) error {
	if d.Cache == nil {
		return fmt.Errorf("redis client is required")
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.Metrics(d.Metrics))

	RegisterHealthRoutes(app, d)
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	// Bank callbacks carry their own idempotency (token + status) and never see
	// the Idempotency-Key middleware.
	RegisterWebhookRoutes(app, webhook.NewHandler(s.Gate, d.Cfg.WebhookSecret, d.Logger))

	api := app.Group("/api/v1")
	RegisterPingRoute(api)
	RegisterIdentityRoutes(api, s.Identity, s.Ledger, d.Logger)
	RegisterAuthRoutes(api, auth.NewHandler(s.Identity, s.Auth), middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit, d.Logger))

	protected := api.Group("", middleware.JWTAuth(s.Auth))
	idempotent := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	RegisterProfileRoute(protected, s.Identity, s.Wallet)
	RegisterWalletRoutes(protected, wallet.NewHandler(s.Wallet))
	RegisterOnRampRoutes(protected, onramp.NewHandler(s.OnRamp), idempotent)
	RegisterPaymentRoutes(protected, payments.NewHandler(s.Payments, s.Users), idempotent)

	return nil
}
