// Package main runs the background prediction worker. It consumes predict
// tasks from the Redis-backed queue and shares the orchestrator's fetch and
// cache path with the API server.
package main

import (
	"context"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"stock-hub/cache"
	"stock-hub/config"
	"stock-hub/internal/app"
	"stock-hub/jobs"
	"stock-hub/observability"
	"stock-hub/services"
	"stock-hub/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		observability.Info("No .env file found, using environment variables")
	}

	observability.InitLogger(os.Getenv("ENV") == "production")
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}
	if !cfg.HasRedis() {
		observability.Fatal("REDIS_URL is required for the worker")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.Redis.URL)
	if err != nil {
		observability.Fatal("invalid REDIS_URL", "error", err)
	}

	ctx := context.Background()
	application := app.New(cfg, buildDeps(ctx, cfg))

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues:      map[string]int{cfg.Worker.Queue: 1},
	})

	mux := jobs.NewServeMux(jobs.NewProcessor(application))

	observability.Info("starting prediction worker",
		"queue", cfg.Worker.Queue,
		"concurrency", cfg.Worker.Concurrency)

	// Run blocks until SIGINT/SIGTERM and drains in-flight tasks.
	if err := server.Run(mux); err != nil {
		observability.Fatal("worker stopped", "error", err)
	}
}

// buildDeps wires only what the predict path needs: the cache, the model
// artifact store, the daily series provider chain and its candle fallbacks.
func buildDeps(ctx context.Context, cfg *config.Config) app.Deps {
	deps := app.Deps{}

	deps.Cache = cache.NewStore(ctx, cfg.Redis.URL)
	if deps.Cache == nil {
		observability.Warn("Redis cache unreachable, results only land in the task store")
	}
	deps.Throttle = cache.NewThrottle(deps.Cache, time.Duration(cfg.Prediction.ThrottleWindow)*time.Second)

	if cfg.HasStorage() {
		deps.Models = storage.NewModelStore(ctx, cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.Endpoint)
	}

	if cfg.HasAlphaVantage() {
		deps.Daily = services.NewAlphaVantageService(cfg.AlphaVantage.APIKey)
	} else {
		observability.Warn("ALPHA_VANTAGE_API_KEY not set, primary provider disabled")
	}
	if cfg.HasFinnhub() {
		deps.Candles = append(deps.Candles, services.NewFinnhubService(cfg.Finnhub.APIKey))
	}
	if cfg.HasAlpaca() {
		deps.Candles = append(deps.Candles, services.NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL))
	}

	return deps
}
