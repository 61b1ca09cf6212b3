// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/paywall-blog/internal/admin"
	"github.com/carterperez-dev/paywall-blog/internal/auth"
	"github.com/carterperez-dev/paywall-blog/internal/config"
	"github.com/carterperez-dev/paywall-blog/internal/content"
	"github.com/carterperez-dev/paywall-blog/internal/core"
	"github.com/carterperez-dev/paywall-blog/internal/health"
	"github.com/carterperez-dev/paywall-blog/internal/mail"
	"github.com/carterperez-dev/paywall-blog/internal/metrics"
	"github.com/carterperez-dev/paywall-blog/internal/middleware"
	"github.com/carterperez-dev/paywall-blog/internal/purchase"
	"github.com/carterperez-dev/paywall-blog/internal/server"
	"github.com/carterperez-dev/paywall-blog/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen,gocyclo // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		configPath = ""
	}

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

	var meters *metrics.Metrics
	if cfg.Metrics.Enabled {
		meters, err = metrics.New(cfg.Otel.ServiceName)
		if err != nil {
			return err
		}
	}

	var (
		db     *core.Database
		ledger purchase.Ledger
	)
	if cfg.Database.URL != "" {
		db, err = core.NewDatabase(ctx, cfg.Database)
		if err != nil {
			return err
		}
		if cfg.Database.AutoMigrate {
			if err := core.Migrate(ctx, db.DB.DB); err != nil {
				return err
			}
		}
		ledger = purchase.NewPostgresLedger(db.DB)
		logger.Info("database connected",
			"max_open_conns", cfg.Database.MaxOpenConns,
			"max_idle_conns", cfg.Database.MaxIdleConns,
		)
	} else {
		logger.Info("no database configured, purchase ledger disabled")
	}

	var (
		rdb         *core.Redis
		redisClient *redis.Client
	)
	if cfg.Redis.URL != "" {
		rdb, err = core.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		redisClient = rdb.Client
		logger.Info("redis connected",
			"pool_size", cfg.Redis.PoolSize,
		)
	} else {
		logger.Info("no redis configured, using in-process rate limits")
	}

	var observer content.Observer
	if meters != nil {
		observer = meters
	}
	library := content.NewLibrary(nil, content.Source{
		Root:       cfg.Content.Root,
		Extensions: cfg.Content.Extensions,
		Transforms: content.PaywallTransforms(content.DefaultWallOptions()),
		Hash:       content.HashRendering,
		Extract:    content.ExtractMetadata,
	}, logger, observer)

	if err := library.Reload(ctx); err != nil {
		return err
	}
	logger.Info("content loaded",
		"root", cfg.Content.Root,
		"items", library.Len(),
	)

	if cfg.Content.Watch {
		go func() {
			if err := library.Watch(ctx); err != nil {
				logger.Error("content watcher stopped", "error", err)
			}
		}()
	}

	tokens, err := auth.NewTokenManager(cfg.Session, cfg.Verify)
	if err != nil {
		return err
	}

	mailer, err := mail.New(ctx, cfg.Mail, logger)
	if err != nil {
		return err
	}

	userStore := user.NewStore(user.NewArgon2Hasher())
	userSvc := user.NewService(userStore, library, logger)
	if err := userSvc.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		return err
	}

	var logins auth.LoginRecorder
	if meters != nil {
		logins = meters
	}
	authSvc := auth.NewService(userSvc, tokens, mailer, cfg.App.PublicURL, logins, logger)
	authHandler := auth.NewHandler(authSvc, auth.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.IsProduction(),
	})
	userHandler := user.NewHandler(userSvc, authHandler, authSvc)

	resolver := auth.NewResolver(tokens, userStore, library, cfg.Session.CookieName, logger)
	contentHandler := content.NewHandler(library, resolver).WithPurchaseSettler(authHandler)

	provider := purchase.NewStripeProvider(cfg.Purchase, nil)
	reconcilerOpts := []purchase.ReconcilerOption{}
	if ledger != nil {
		reconcilerOpts = append(reconcilerOpts, purchase.WithLedger(ledger))
	}
	if rdb != nil {
		reconcilerOpts = append(reconcilerOpts,
			purchase.WithReplayGuard(purchase.NewRedisReplayGuard(redisClient, cfg.Purchase.ReplayTTL)))
	}
	if meters != nil {
		reconcilerOpts = append(reconcilerOpts, purchase.WithWebhookRecorder(meters))
	}
	reconciler := purchase.NewReconciler(provider, userStore, logger, reconcilerOpts...)
	purchaseSvc := purchase.NewService(provider, library, userStore, ledger, cfg.App.PublicURL)
	purchaseHandler := purchase.NewHandler(purchaseSvc, reconciler).WithSessionRefresher(authHandler)

	checks := []health.Check{{Name: "content", Checker: library}}
	adminCfg := admin.HandlerConfig{
		UserStats: userSvc.Stats,
		Content:   library,
	}
	if db != nil {
		checks = append(checks, health.Check{Name: "database", Checker: db, Optional: true})
		adminCfg.DBStats = db.Stats
		adminCfg.DBPing = db.Ping
	}
	if rdb != nil {
		checks = append(checks, health.Check{Name: "redis", Checker: rdb, Optional: true})
		adminCfg.RedisStats = rdb.PoolStats
		adminCfg.RedisPing = rdb.Ping
	}
	healthHandler := health.NewHandler(checks...)
	adminHandler := admin.NewHandler(adminCfg)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recoverer(logger))
	if meters != nil {
		router.Use(meters.Middleware)
	}

	router.Use(
		middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
			Limit: middleware.Window(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			FailOpen:   true,
			BypassFunc: middleware.SkipPaths(purchase.WebhookPath, "/healthz", "/livez", "/readyz"),
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)
	if meters != nil {
		router.Handle(cfg.Metrics.Path, meters.Handler())
	}

	authenticator := middleware.Authenticator(tokens, cfg.Session.CookieName)
	adminOnly := middleware.RequireAdmin

	authHandler.RegisterRoutes(router, authenticator)
	userHandler.RegisterRoutes(router, authenticator)
	userHandler.RegisterAdminRoutes(router, authenticator, adminOnly)
	purchaseHandler.RegisterRoutes(router, authenticator)
	purchaseHandler.RegisterAdminRoutes(router, authenticator, adminOnly)
	adminHandler.RegisterRoutes(router, authenticator, adminOnly)

	contentHandler.RegisterRoutes(router)

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

	if meters != nil {
		if err := meters.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown error", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := rdb.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
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
