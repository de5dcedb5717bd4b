package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/BenitoJames/backend-tindahan/internal/config"
	"github.com/BenitoJames/backend-tindahan/internal/jobs"
	"github.com/BenitoJames/backend-tindahan/internal/obs"
)

// The scheduler only emits the sweep tasks. The api process consumes them,
// because it owns the in-memory ledgers the sweeps have to prune.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "scheduler").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task queue")
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	interval := fmt.Sprintf("@every %s", cfg.SweepInterval)
	promoTask, err := jobs.NewPromoSweepTask(time.Time{})
	if err != nil {
		logger.Fatal().Err(err).Msg("build promo sweep task")
	}
	stockTask, err := jobs.NewStockSweepTask(time.Time{})
	if err != nil {
		logger.Fatal().Err(err).Msg("build stock sweep task")
	}
	if _, err := scheduler.Register(interval, promoTask); err != nil {
		logger.Fatal().Err(err).Msg("schedule promo sweep")
	}
	if _, err := scheduler.Register(interval, stockTask); err != nil {
		logger.Fatal().Err(err).Msg("schedule stock sweep")
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("scheduler shutting down")
		scheduler.Shutdown()
	}()

	logger.Info().Str("interval", cfg.SweepInterval.String()).Msg("scheduler starting")
	if err := scheduler.Run(); err != nil {
		logger.Fatal().Err(err).Msg("scheduler stopped")
	}
	logger.Info().Msg("scheduler shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
