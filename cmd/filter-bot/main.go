package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-filter-bot/internal/app"
	"github.com/lueurxax/telegram-filter-bot/internal/platform/config"
	db "github.com/lueurxax/telegram-filter-bot/internal/storage"
)

func main() {
	mode := flag.String("mode", "", "Service mode (bot, reader, worker)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := cfg.DatabaseCfg()

	poolOpts := db.PoolOptions{
		MaxConns:          dbCfg.MaxConnections,
		MinConns:          dbCfg.MinConnections,
		MaxConnIdleTime:   dbCfg.MaxConnIdleTime,
		MaxConnLifetime:   dbCfg.MaxConnLifetime,
		HealthCheckPeriod: dbCfg.HealthCheckPeriod,
	}

	database, err := db.NewWithOptions(ctx, dbCfg.PostgresDSN, poolOpts, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application := app.New(cfg, database, &logger)

	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	if err := runMode(ctx, application, *mode); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode string) error {
	switch mode {
	case "bot":
		return application.RunBot(ctx)
	case "reader":
		return application.RunReader(ctx)
	case "worker":
		return application.RunWorker(ctx)
	default:
		log.Fatalf("Usage: %s --mode=[bot|reader|worker]", os.Args[0])

		return nil
	}
}
