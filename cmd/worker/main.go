package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"vidnest/accounts/internal/cache"
	"vidnest/accounts/internal/config"
	"vidnest/accounts/internal/database"
	"vidnest/accounts/internal/log"
	"vidnest/accounts/internal/metrics"
	"vidnest/accounts/internal/queue"
	"vidnest/accounts/internal/repository"
	"vidnest/accounts/internal/storage"
	"vidnest/accounts/internal/tasks"
)

func main() {
	cfg, err := config.Load(config.ProcessWorker)
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	objectStore, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}

	// The worker only reads references, so the repository never hashes.
	users := repository.NewUserRepository(dbPool, nil)
	m := metrics.New(nil)
	processor := tasks.NewProcessor(objectStore, users, cfg.Media.SweepGrace, m, logger)
	consumer := queue.NewConsumer(
		client,
		cfg.Media.Stream,
		cfg.Media.Group,
		cfg.Media.Consumer,
		cfg.Media.ClaimInterval,
		logger,
		processor,
	)

	if cfg.Media.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsServer := &http.Server{Addr: cfg.Media.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer metricsServer.Close()
	}

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}
