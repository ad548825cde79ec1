package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicbook/booking-engine/internal/booking"
	"github.com/clinicbook/booking-engine/internal/config"
	"github.com/clinicbook/booking-engine/internal/db"
	redisclient "github.com/clinicbook/booking-engine/internal/redis"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "notify-worker").Logger()
	logger.Info().Msg("notify-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	logger.Info().Str("env", cfg.Env).Dur("interval", cfg.NotifyInterval).Msg("running notify worker")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	repo := booking.NewPgRepository(pgPool)
	svc := booking.NewService(repo, redisclient.NopLocker{}, booking.NopNotifier{}, booking.NopFeed{}, cfg, logger)

	// Run once at startup
	runOnce(rootCtx, svc, cfg.NotifyBatch, logger)

	ticker := time.NewTicker(cfg.NotifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping notify worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.NotifyBatch, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, batch int, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.DispatchNotifications(runCtx, batch)
	if err != nil {
		logger.Error().Err(err).Msg("dispatch run error")
		return
	}
	logger.Info().Int("dispatched", n).Dur("took", time.Since(start)).Msg("dispatch run complete")
}
