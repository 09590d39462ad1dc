package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vidnest/accounts/internal/cache"
	"vidnest/accounts/internal/config"
	"vidnest/accounts/internal/database"
	"vidnest/accounts/internal/handlers"
	"vidnest/accounts/internal/jobs"
	"vidnest/accounts/internal/log"
	"vidnest/accounts/internal/metrics"
	"vidnest/accounts/internal/queue"
	"vidnest/accounts/internal/repository"
	"vidnest/accounts/internal/security"
	"vidnest/accounts/internal/server"
	"vidnest/accounts/internal/service"
	"vidnest/accounts/internal/storage"
)

func main() {
	cfg, err := config.Load(config.ProcessAPI)
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Log.Level)

	ctx := context.Background()

	if cfg.Postgres.MigrationsOnStart {
		migrator, err := database.NewMigrator(cfg.Postgres.DSN, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init migrator")
		}
		if err := migrator.Up(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply migrations")
		}
	}

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	hasher := security.NewPasswordHasher(security.Argon2Params{
		Time:    cfg.Security.Password.Time,
		Memory:  cfg.Security.Password.Memory,
		Threads: cfg.Security.Password.Threads,
	})
	issuer, err := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  cfg.Security.JWTAccessSecret,
		RefreshSecret: cfg.Security.JWTRefreshSecret,
		AccessTTL:     cfg.Security.JWTAccessTTL,
		RefreshTTL:    cfg.Security.JWTRefreshTTL,
		Issuer:        cfg.Security.Issuer,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init token issuer")
	}

	m := metrics.New(nil)
	users := repository.NewUserRepository(dbPool, hasher)
	sessions := repository.NewSessionRepository(dbPool)
	producer := queue.NewProducer(redisClient, cfg.Media.Stream)
	media := service.NewMediaService(objectStore, producer, service.MediaConfig{
		MaxBytes:      cfg.Storage.MaxUploadBytes,
		UploadTimeout: cfg.Storage.UploadTimeout,
	}, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg,
		service.NewAuthService(users, sessions, hasher, issuer, media, m, logger),
		service.NewAccountService(users, hasher, media, m, logger),
		handlers.HealthCheck{Name: "postgres", Ping: dbPool.Ping},
		handlers.HealthCheck{Name: "redis", Ping: cache.Ping(redisClient)},
	)
	httpServer := server.NewHTTPServer(cfg, logger, m, handlerSet)

	scheduler := jobs.NewScheduler(producer, cfg.Media.SweepSchedule, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	scheduler.Stop()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
