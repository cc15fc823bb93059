package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"fintrack/internal/analytics"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentAPI)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	engines := services.NewEngineFactory(res.Store, res.Store, cfg.Strategy(), analytics.Options{
		Location:         cfg.Location(),
		TrendConcurrency: cfg.TrendConcurrency,
		Messages:         analytics.NewMessageFormatter(cfg.Language(), cfg.Currency),
	})

	summaries := cache.NewLRUCache[analytics.Summary](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger.Logger)
	caches.Register(summaries)

	dashboard := services.NewDashboardService(engines, summaries, logger)
	txOpts := []services.TransactionOption{
		services.WithInvalidator(dashboard),
		services.WithTransactionLogger(logger),
	}
	if res.Events != nil {
		txOpts = append(txOpts, services.WithPublisher(res.Events))
	}
	transactions := services.NewTransactionService(res.Store, engines, txOpts...)
	budgets := services.NewBudgetService(res.Store, dashboard, logger)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Transactions:       transactions,
		Budgets:            budgets,
		Dashboard:          dashboard,
		Logger:             logger,
		Backend:            cfg.DataBackend,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrendMaxMonths:     cfg.TrendMaxMonths,
		TrustedProxies:     cfg.TrustedProxies,
		Location:           cfg.Location(),
		Caches:             caches,
		CacheStats:         summaries.Stats,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"strategy", cfg.QueryStrategy,
		"timezone", cfg.Timezone,
		"events", res.Events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
