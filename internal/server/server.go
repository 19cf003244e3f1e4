package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/walletcore/p2p-wallet/internal/config"
	"github.com/walletcore/p2p-wallet/internal/metrics"
	"github.com/walletcore/p2p-wallet/internal/onramp"
	"github.com/walletcore/p2p-wallet/internal/routes"
)

// Server wraps the Fiber application, shared dependencies and background workers.
type Server struct {
	app    *fiber.App
	cfg    config.Config
	reaper *onramp.Reaper
	logger *slog.Logger
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, m *metrics.Metrics, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: jsonErrorHandler,
	})

	deps := routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger, Metrics: m}
	services, err := routes.NewServices(deps)
	if err != nil {
		return nil, err
	}
	if err := routes.Setup(app, deps, services); err != nil {
		return nil, err
	}

	reaper := onramp.NewReaper(services.OnRamp, services.Ledger, cfg.OnRampExpiry, cfg.OnRampSweepInterval, logger)
	return &Server{app: app, cfg: cfg, reaper: reaper, logger: logger}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// RunWorkers blocks running background jobs until ctx is cancelled.
func (s *Server) RunWorkers(ctx context.Context) {
	s.logger.Info("stale deposit reaper started",
		slog.Duration("expiry", s.cfg.OnRampExpiry),
		slog.Duration("interval", s.cfg.OnRampSweepInterval),
	)
	s.reaper.Run(ctx)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func jsonErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"message": message})
}
