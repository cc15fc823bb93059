package main

import (
	"context"
	"os"
	"time"
	_ "time/tzdata"

	"fintrack/internal/analytics"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting fintrack-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if cfg.DataBackend == string(backend.MemoryBackend) {
		logger.Warn("Worker is running on the memory backend; it will not see the API's data")
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	if res.Events == nil {
		_ = res.Cleanup()
		logger.Error("Failed to connect to AMQP broker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		os.Exit(1)
	}

	engines := services.NewEngineFactory(res.Store, res.Store, cfg.Strategy(), analytics.Options{
		Location:         cfg.Location(),
		TrendConcurrency: cfg.TrendConcurrency,
		Messages:         analytics.NewMessageFormatter(cfg.Language(), cfg.Currency),
	})
	dashboard := services.NewDashboardService(engines, nil, logger)
	notifier := services.NewLogNotifier(logger)

	processor := services.NewAlertProcessor(res.Events, dashboard, notifier, services.DefaultAlertProcessorConfig())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Alert processor shutdown error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start alert processor", log.FieldError, err)
		os.Exit(1)
	}

	// Sweep for events missed while the worker was down
	if res.Owners != nil {
		sweeper := worker.NewAlertSweeper(res.Owners, dashboard, notifier, cfg.Location(), cfg.AlertSweepInterval, logger)
		go sweeper.Run(ctx)
	} else {
		logger.Info("Store cannot enumerate owners, skipping alert sweeps")
	}

	logger.Info("Worker started",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"sweep_interval", cfg.AlertSweepInterval.String())

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
