package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/practicahq/platform/internal/availability"
	appconfig "github.com/practicahq/platform/internal/config"
	"github.com/practicahq/platform/internal/waitlist"
	"github.com/practicahq/platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting waitlist worker", "env", cfg.Env)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer func() { _ = rdb.Close() }()
	} else {
		logger.Warn("REDIS_ADDR not set, offer dedupe disabled")
	}

	source := availability.NewPostgresCalendarSource(pool)
	engine := availability.NewEngine(source, logger, availability.NewMetrics(nil))
	store := waitlist.NewStore(pool)
	matcher := waitlist.NewMatcher(engine, logger)

	worker := waitlist.NewWorker(store, matcher, rdb, nil, logger,
		cfg.WaitlistHorizon, cfg.WaitlistMaxMatches, cfg.WaitlistOfferTTL)

	worker.Run(ctx, cfg.WaitlistSweepInterval)
}
