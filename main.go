// Package main runs the market-data API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stock-hub/cache"
	"stock-hub/config"
	"stock-hub/internal/api"
	"stock-hub/internal/app"
	"stock-hub/jobs"
	"stock-hub/observability"
	"stock-hub/services"
	"stock-hub/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		observability.Info("No .env file found, using environment variables")
	}

	observability.InitLogger(os.Getenv("ENV") == "production")
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	ctx := context.Background()

	deps := buildDeps(ctx, cfg)
	application := app.New(cfg, deps)

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
	}

	go func() {
		observability.Info("starting API server", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}
	if deps.Cache != nil {
		deps.Cache.Close()
	}
	observability.Info("API server stopped")
}

// buildDeps wires the orchestrator's collaborators from configuration. Every
// missing piece of infrastructure degrades the matching concern instead of
// stopping the process.
func buildDeps(ctx context.Context, cfg *config.Config) app.Deps {
	deps := app.Deps{}

	if cfg.HasRedis() {
		deps.Cache = cache.NewStore(ctx, cfg.Redis.URL)
		if deps.Cache == nil {
			observability.Warn("Redis unreachable, caching disabled")
		}
	} else {
		observability.Warn("REDIS_URL not set, caching and throttling disabled")
	}
	deps.Throttle = cache.NewThrottle(deps.Cache, time.Duration(cfg.Prediction.ThrottleWindow)*time.Second)

	if dispatcher := jobs.NewDispatcher(cfg.Redis.URL, cfg.Worker.Queue); dispatcher != nil {
		deps.Queue = dispatcher
	} else {
		observability.Warn("job queue disabled, predictions run inline")
	}

	if cfg.HasStorage() {
		deps.Models = storage.NewModelStore(ctx, cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.Endpoint)
	}

	if cfg.HasAlphaVantage() {
		av := services.NewAlphaVantageService(cfg.AlphaVantage.APIKey)
		deps.Daily = av
		deps.Overview = av
		deps.Intraday = append(deps.Intraday, av)
		deps.Quotes = append(deps.Quotes, av)
		deps.News = append(deps.News, av)
	} else {
		observability.Warn("ALPHA_VANTAGE_API_KEY not set, primary provider disabled")
	}

	if cfg.HasFinnhub() {
		fh := services.NewFinnhubService(cfg.Finnhub.APIKey)
		deps.Intraday = append(deps.Intraday, fh)
		deps.Quotes = append(deps.Quotes, fh)
		deps.News = append(deps.News, fh)
		deps.Candles = append(deps.Candles, fh)
	}

	if cfg.HasAlpaca() {
		ap := services.NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
		deps.Intraday = append(deps.Intraday, ap)
		deps.Candles = append(deps.Candles, ap)
	}

	return deps
}
