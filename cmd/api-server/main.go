package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicbook/booking-engine/internal/api"
	"github.com/clinicbook/booking-engine/internal/booking"
	"github.com/clinicbook/booking-engine/internal/config"
	"github.com/clinicbook/booking-engine/internal/db"
	redisclient "github.com/clinicbook/booking-engine/internal/redis"
)

const version = "0.3.0"

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "api-server").Logger()
	logger.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config load error")
	}

	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configuration loaded")

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

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	notifier := booking.NewOutboxNotifier(repo, logger)
	feed := booking.NewRedisFeed(rdb, cfg.FeedChannel, logger)
	svc := booking.NewService(repo, locker, notifier, feed, cfg, logger)

	router := api.NewRouter(api.RouterConfig{
		Service: svc,
		PgPool:  pgPool,
		Redis:   rdb,
		Logger:  logger,
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("api-server stopped")
}
