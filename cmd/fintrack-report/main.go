package main

import (
	"context"
	"flag"
	"os"
	"path"
	_ "time/tzdata"

	"github.com/google/subcommands"

	"fintrack/internal/analytics"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/services"
)

var dbPath = flag.String("db", "", "SQLite database to report on (defaults to SQLITE_DB_PATH)")

func main() {
	cli.LoadEnvFile()

	// stdout carries the report
	logger := cli.SetupLoggerOutput(os.Getenv("LOG_LEVEL"), log.ComponentReport, os.Stderr)
	cfg := cli.LoadAndValidateConfig(logger)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	report.Register(commander, &report.App{
		Location: cfg.Location(),
		Open: func(ctx context.Context) (*services.DashboardService, func() error, error) {
			p := *dbPath
			if p == "" {
				p = cfg.SQLiteDBPath
			}
			repo := cli.OpenSQLite(logger, p)
			engines := services.NewEngineFactory(repo, repo, cfg.Strategy(), analytics.Options{
				Location:         cfg.Location(),
				TrendConcurrency: cfg.TrendConcurrency,
				Messages:         analytics.NewMessageFormatter(cfg.Language(), cfg.Currency),
			})
			return services.NewDashboardService(engines, nil, logger), repo.Close, nil
		},
	})

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
