// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reelvault/reelvault/internal/admin"
	"github.com/reelvault/reelvault/internal/auth"
	"github.com/reelvault/reelvault/internal/catalog"
	"github.com/reelvault/reelvault/internal/config"
	"github.com/reelvault/reelvault/internal/core"
	"github.com/reelvault/reelvault/internal/entitlement"
	"github.com/reelvault/reelvault/internal/health"
	"github.com/reelvault/reelvault/internal/middleware"
	"github.com/reelvault/reelvault/internal/payment"
	"github.com/reelvault/reelvault/internal/security"
	"github.com/reelvault/reelvault/internal/server"
	"github.com/reelvault/reelvault/internal/stream"
	"github.com/reelvault/reelvault/internal/user"
)

const (
	drainDelay      = 5 * time.Second
	janitorInterval = time.Hour
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	edgeSigner, err := stream.NewEdgeSigner(cfg.Storage)
	if err != nil {
		return err
	}

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(authRepo, jwtManager, userSvc, redis.Client)
	authHandler := auth.NewHandler(authSvc)

	catalogRepo := catalog.NewRepository(db.DB)
	catalogSvc := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(catalogSvc)

	entitlementRepo := entitlement.NewRepository(db.DB)
	entitlementSvc := entitlement.NewService(
		entitlementRepo,
		cfg.Access.RecentPurchaseWindow,
		cfg.Strikes.Threshold,
	)
	entitlementHandler := entitlement.NewHandler(entitlementSvc)

	tokenRepo := stream.NewRepository(db.DB)
	streamSvc := stream.NewService(
		edgeSigner,
		tokenRepo,
		entitlementSvc,
		catalogSvc,
		cfg.Storage.URLTTL,
		cfg.Access.TokenTTL,
	)
	streamHandler := stream.NewHandler(streamSvc)

	paymentClient := payment.NewStripeClient(cfg.Payment)
	reconciler := payment.NewReconciler(
		paymentClient,
		entitlementSvc,
		catalogSvc,
		userSvc,
		logger,
	)
	paymentHandler := payment.NewHandler(
		paymentClient,
		reconciler,
		streamSvc,
		logger,
	)

	securityRepo := security.NewRepository(db.DB)
	securitySvc := security.NewService(
		securityRepo,
		entitlementRepo,
		cfg.Strikes.Threshold,
		logger,
	)
	securityHandler := security.NewHandler(securitySvc)

	healthHandler := health.NewHandler(db, redis)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	authenticator := middleware.Authenticator(jwtManager)
	optionalAuth := middleware.OptionalAuth(jwtManager)
	adminOnly := middleware.RequireAdmin

	strikeLimiter := middleware.NewRateLimiter(
		redis.Client,
		middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.StrikeRequests,
				cfg.RateLimit.StrikeRequests,
			),
			KeyFunc:  middleware.KeyByIP,
			FailOpen: true,
		},
	)

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		catalogHandler.RegisterRoutes(r)
		catalogHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		entitlementHandler.RegisterRoutes(r, authenticator)

		paymentHandler.RegisterRoutes(r, optionalAuth)
		paymentHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		streamHandler.RegisterRoutes(r, optionalAuth)

		securityHandler.RegisterRoutes(r, optionalAuth, strikeLimiter.Handler)
		securityHandler.RegisterAdminRoutes(r, authenticator, adminOnly)

		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	go runJanitor(ctx, logger, authRepo, tokenRepo)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

type expiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// runJanitor periodically removes expired refresh and access tokens. Expiry
// is always enforced at read time; this only keeps the tables small.
func runJanitor(ctx context.Context, logger *slog.Logger, stores ...expiredDeleter) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, store := range stores {
				deleted, err := store.DeleteExpired(ctx)
				if err != nil {
					logger.Error("expired token cleanup failed", "error", err)
					continue
				}
				if deleted > 0 {
					logger.Info("expired tokens removed", "count", deleted)
				}
			}
		}
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
