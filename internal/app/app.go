// Package app orchestrates the read path for every market-data endpoint:
// cache lookup, advisory throttle check, the provider fallback chain,
// normalization, and the write back into the cache.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stock-hub/cache"
	"stock-hub/config"
	"stock-hub/jobs"
	"stock-hub/marketdata"
	"stock-hub/models"
	"stock-hub/observability"
	"stock-hub/predict"
	"stock-hub/services"
	"stock-hub/storage"
)

// ErrUnauthorized is returned when the precompute admin key is missing or
// does not match the configured one.
var ErrUnauthorized = errors.New("invalid admin api key")

// DefaultNewsLimit is applied when the caller does not ask for a specific
// article count.
const DefaultNewsLimit = 10

// MaxNewsLimit caps how many articles a single request may ask for.
const MaxNewsLimit = 50

// fallbackCandleDays bounds how much daily history the secondary candle
// providers are asked for. Five years matches the widest serveable range.
const fallbackCandleDays = 1825

// QueueDispatcher is the slice of the job dispatcher the orchestrator needs.
type QueueDispatcher interface {
	EnqueuePredict(ctx context.Context, symbol, modelVersion string) (string, error)
	JobStatus(ctx context.Context, jobID string) (*models.Job, error)
	Healthy(ctx context.Context) bool
}

// Deps carries the orchestrator's collaborators. Every field is optional;
// a nil cache, queue or store degrades that concern instead of failing
// requests.
type Deps struct {
	Cache    *cache.Store
	Throttle *cache.Throttle
	Queue    QueueDispatcher
	Models   *storage.ModelStore

	Daily    services.DailySeriesProvider
	Overview services.OverviewProvider

	// Ordered fallback chains. First entry is tried first.
	Intraday []services.IntradayProvider
	Quotes   []services.QuoteProvider
	News     []services.NewsProvider
	Candles  []services.CandleProvider
}

// App coordinates caching, throttling, upstream providers and the job queue.
type App struct {
	cfg   *config.Config
	cache *cache.Store
	thr   *cache.Throttle
	queue QueueDispatcher
	store *storage.ModelStore

	daily    services.DailySeriesProvider
	overview services.OverviewProvider
	intraday []services.IntradayProvider
	quotes   []services.QuoteProvider
	news     []services.NewsProvider
	candles  []services.CandleProvider

	now func() time.Time
}

// New creates the orchestrator.
func New(cfg *config.Config, deps Deps) *App {
	return &App{
		cfg:      cfg,
		cache:    deps.Cache,
		thr:      deps.Throttle,
		queue:    deps.Queue,
		store:    deps.Models,
		daily:    deps.Daily,
		overview: deps.Overview,
		intraday: deps.Intraday,
		quotes:   deps.Quotes,
		news:     deps.News,
		candles:  deps.Candles,
		now:      time.Now,
	}
}

// GetStock returns the current price, the previous close and the full daily
// history for a symbol. A symbol with no usable quote is an upstream error;
// the daily history rides along when available but never substitutes for
// the quote.
func (a *App) GetStock(ctx context.Context, symbol string) (*models.StockData, error) {
	symbol = normalizeSymbol(symbol)

	quote, err := a.fetchQuote(ctx, symbol)
	if quote == nil {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: no valid quote for %s", services.ErrNoUsableData, symbol)
	}

	series, err := a.dailySeries(ctx, symbol)
	if err != nil {
		observability.WithError(err).Warn("daily history unavailable", "symbol", symbol)
	}

	return &models.StockData{
		Symbol:         symbol,
		Price:          quote.Price,
		PreviousClose:  quote.PreviousClose,
		HistoricalData: series,
	}, nil
}

// GetTimeseries returns the daily series restricted to a symbolic range.
func (a *App) GetTimeseries(ctx context.Context, symbol string, r marketdata.Range) ([]models.PricePoint, error) {
	symbol = normalizeSymbol(symbol)
	key := cache.Key(cache.KindTimeseries, symbol, string(r))

	var cached []models.PricePoint
	if a.cache.Get(ctx, cache.KindTimeseries, key, &cached) {
		return cached, nil
	}

	series, err := a.dailySeries(ctx, symbol)
	if err != nil {
		return nil, err
	}

	filtered := marketdata.Filter(series, r, a.now())
	a.cache.Set(ctx, cache.KindTimeseries, key, filtered)
	return filtered, nil
}

// GetIntraday returns the session-clamped intraday series for the most
// recent trading day with data, together with the market open/closed state.
func (a *App) GetIntraday(ctx context.Context, symbol string) (*models.IntradaySeries, error) {
	symbol = normalizeSymbol(symbol)
	key := cache.Key(cache.KindIntraday, symbol)

	var cached models.IntradaySeries
	if a.cache.Get(ctx, cache.KindIntraday, key, &cached) {
		return &cached, nil
	}

	if len(a.intraday) == 0 {
		return nil, services.ErrNotConfigured
	}
	a.thr.Observe(ctx, key)

	var lastErr error
	var barren *models.IntradaySeries
	for _, provider := range a.intraday {
		candles, err := provider.GetIntradayCandles(ctx, symbol)
		if err != nil {
			lastErr = err
			observability.WithError(err).Warn("intraday provider failed", "provider", provider.Name(), "symbol", symbol)
			continue
		}

		series := marketdata.BuildIntradaySeries(candles, a.now())
		if len(series.Points) == 0 {
			// Candles arrived but none landed inside a serveable session.
			if barren == nil {
				barren = &series
			}
			continue
		}
		a.cache.Set(ctx, cache.KindIntraday, key, series)
		return &series, nil
	}

	if barren != nil {
		return barren, nil
	}
	return nil, lastErr
}

// GetOverview returns descriptive stats for a symbol, enriched with the
// current session's OHLC and volume when a quote is available.
func (a *App) GetOverview(ctx context.Context, symbol string) (*models.OverviewStats, error) {
	symbol = normalizeSymbol(symbol)
	key := cache.Key(cache.KindOverview, symbol)

	var cached models.OverviewStats
	if a.cache.Get(ctx, cache.KindOverview, key, &cached) {
		return &cached, nil
	}

	if a.overview == nil {
		return nil, services.ErrNotConfigured
	}
	a.thr.Observe(ctx, key)

	stats, err := a.overview.GetOverview(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if quote, _ := a.fetchQuote(ctx, symbol); quote != nil {
		mergeQuoteIntoOverview(stats, quote)
	}

	a.cache.Set(ctx, cache.KindOverview, key, stats)
	return stats, nil
}

func mergeQuoteIntoOverview(stats *models.OverviewStats, quote *models.Quote) {
	if quote.Open > 0 {
		stats.Open = &quote.Open
	}
	if quote.High > 0 {
		stats.High = &quote.High
	}
	if quote.Low > 0 {
		stats.Low = &quote.Low
	}
	stats.Close = &quote.Price
	if quote.Volume > 0 {
		stats.Volume = &quote.Volume
	}
}

// GetNews returns standardized articles for a symbol, merged across every
// configured provider, de-duplicated by URL and capped at limit.
func (a *App) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	symbol = normalizeSymbol(symbol)
	if limit <= 0 {
		limit = DefaultNewsLimit
	}
	if limit > MaxNewsLimit {
		limit = MaxNewsLimit
	}
	key := cache.Key(cache.KindNews, symbol, strconv.Itoa(limit))

	var cached []models.NewsArticle
	if a.cache.Get(ctx, cache.KindNews, key, &cached) {
		return cached, nil
	}

	a.thr.Observe(ctx, cache.Key(cache.KindNews, symbol))

	now := a.now()
	var lists [][]models.NewsArticle
	var lastErr error
	for _, provider := range a.news {
		articles, err := provider.GetNews(ctx, symbol, limit)
		if err != nil {
			lastErr = err
			observability.WithError(err).Warn("news provider failed", "provider", provider.Name(), "symbol", symbol)
			continue
		}
		lists = append(lists, marketdata.Standardize(articles, now))
	}

	if len(lists) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, services.ErrNotConfigured
	}

	merged := marketdata.MergeNews(limit, lists...)
	a.cache.Set(ctx, cache.KindNews, key, merged)
	return merged, nil
}

// GetPrediction serves a forecast for a symbol. A cached result is returned
// synchronously. Otherwise the work is handed to the queue and a job handle
// comes back; when the queue is unreachable the forecast is computed inline.
func (a *App) GetPrediction(ctx context.Context, symbol string) (*models.PredictionResult, *models.JobHandle, error) {
	symbol = normalizeSymbol(symbol)

	if cached := a.cachedPrediction(ctx, symbol); cached != nil {
		return cached, nil, nil
	}

	if a.queue != nil {
		jobID, err := a.queue.EnqueuePredict(ctx, symbol, a.cfg.Prediction.ModelVersion)
		if err == nil {
			return nil, &models.JobHandle{ID: jobID}, nil
		}
		observability.WithError(err).Warn("enqueue failed, computing inline", "symbol", symbol)
		observability.GetMetrics().RecordJobFallback(jobs.TypePredict)
	}

	result, err := a.computePrediction(ctx, symbol, "sync")
	if err != nil {
		return nil, nil, err
	}
	return result, nil, nil
}

// PredictSymbol computes and caches a forecast. It is the worker-side entry
// point behind the predict task handler.
func (a *App) PredictSymbol(ctx context.Context, symbol string) (*models.PredictionResult, error) {
	symbol = normalizeSymbol(symbol)
	if cached := a.cachedPrediction(ctx, symbol); cached != nil {
		return cached, nil
	}
	return a.computePrediction(ctx, symbol, "async")
}

func (a *App) cachedPrediction(ctx context.Context, symbol string) *models.PredictionResult {
	key := cache.Key(cache.KindPrediction, symbol, a.cfg.Prediction.ModelVersion)
	var cached models.PredictionResult
	if a.cache.Get(ctx, cache.KindPrediction, key, &cached) {
		return &cached
	}
	return nil
}

// modelName labels forecast artifacts in the model store.
const modelName = "trend"

func (a *App) computePrediction(ctx context.Context, symbol, mode string) (*models.PredictionResult, error) {
	series, err := a.dailySeries(ctx, symbol)
	if err != nil {
		// With every provider down, a previously stored artifact is
		// still a better answer than an error.
		if stored := a.storedForecast(ctx, symbol); stored != nil {
			observability.WithSymbol(symbol).Warn("serving stored forecast, providers unavailable")
			return stored, nil
		}
		return nil, err
	}

	result, err := predict.Forecast(series, a.now())
	if err != nil {
		if errors.Is(err, predict.ErrInsufficientData) {
			return nil, fmt.Errorf("%w: %s", services.ErrNoUsableData, symbol)
		}
		return nil, err
	}

	observability.GetMetrics().RecordPrediction(mode, result.Accuracy)

	key := cache.Key(cache.KindPrediction, symbol, a.cfg.Prediction.ModelVersion)
	a.cache.Set(ctx, cache.KindPrediction, key, result)
	a.persistForecast(ctx, symbol, result)
	return result, nil
}

func (a *App) persistForecast(ctx context.Context, symbol string, result *models.PredictionResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	err = a.store.SaveModel(ctx, modelName, a.cfg.Prediction.ModelVersion, symbol, data)
	if err != nil && !errors.Is(err, storage.ErrNotConfigured) {
		observability.WithError(err).Warn("failed to persist forecast artifact", "symbol", symbol)
	}
}

func (a *App) storedForecast(ctx context.Context, symbol string) *models.PredictionResult {
	data, err := a.store.LoadModel(ctx, modelName, a.cfg.Prediction.ModelVersion, symbol)
	if err != nil {
		return nil
	}
	var result models.PredictionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result
}

// JobStatus looks up a previously enqueued prediction job.
func (a *App) JobStatus(ctx context.Context, jobID string) (*models.Job, error) {
	if a.queue == nil {
		return nil, jobs.ErrQueueUnavailable
	}
	return a.queue.JobStatus(ctx, jobID)
}

// Precompute enqueues prediction jobs for a batch of symbols. The endpoint
// is gated by the admin API key and disabled when none is configured.
func (a *App) Precompute(ctx context.Context, symbols []string, apiKey string) ([]models.JobHandle, error) {
	if !a.cfg.HasAdminKey() || apiKey != a.cfg.HTTP.AdminAPIKey {
		return nil, ErrUnauthorized
	}
	if a.queue == nil {
		return nil, jobs.ErrQueueUnavailable
	}

	handles := make([]models.JobHandle, 0, len(symbols))
	for _, raw := range symbols {
		symbol := normalizeSymbol(raw)
		if symbol == "" {
			continue
		}
		jobID, err := a.queue.EnqueuePredict(ctx, symbol, a.cfg.Prediction.ModelVersion)
		if err != nil {
			return nil, err
		}
		handles = append(handles, models.JobHandle{ID: jobID})
	}
	return handles, nil
}

// StatusReport summarizes infrastructure health for the status endpoint.
type StatusReport struct {
	Time     time.Time                                `json:"time"`
	Cache    bool                                     `json:"cache"`
	Queue    bool                                     `json:"queue"`
	Storage  bool                                     `json:"storage"`
	Breakers map[string]services.CircuitBreakerStatus `json:"breakers"`
}

// Status reports whether the cache, the queue and the model store answer,
// plus the state of every provider circuit breaker. It never errors; a
// missing dependency reports false.
func (a *App) Status(ctx context.Context) StatusReport {
	report := StatusReport{
		Time:     a.now().UTC(),
		Cache:    a.cache.Healthy(ctx),
		Storage:  a.store.Healthy(ctx),
		Breakers: services.GetGlobalRegistry().Status(),
	}
	if a.queue != nil {
		report.Queue = a.queue.Healthy(ctx)
	}
	return report
}

// dailySeries fetches the full daily close series for a symbol, preferring
// the cache, then the primary provider, then the candle fallbacks.
func (a *App) dailySeries(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	key := cache.Key(cache.KindStock, symbol)

	var cached []models.PricePoint
	if a.cache.Get(ctx, cache.KindStock, key, &cached) {
		return cached, nil
	}

	var lastErr error = services.ErrNotConfigured
	if a.daily != nil {
		a.thr.Observe(ctx, key)
		series, err := a.daily.GetDailySeries(ctx, symbol)
		if err == nil && len(series) > 0 {
			a.cache.Set(ctx, cache.KindStock, key, series)
			return series, nil
		}
		if err != nil {
			lastErr = err
			observability.WithError(err).Warn("daily series provider failed", "provider", a.daily.Name(), "symbol", symbol)
		} else {
			lastErr = fmt.Errorf("%w: %s", services.ErrNoUsableData, symbol)
		}
	}

	for _, provider := range a.candles {
		candles, err := provider.GetDailyCandles(ctx, symbol, fallbackCandleDays)
		if err != nil {
			lastErr = err
			observability.WithError(err).Warn("candle fallback failed", "provider", provider.Name(), "symbol", symbol)
			continue
		}
		series := marketdata.FromCandles(candles)
		if len(series) == 0 {
			continue
		}
		a.cache.Set(ctx, cache.KindStock, key, series)
		return series, nil
	}

	return nil, lastErr
}

// fetchQuote walks the quote chain and returns the first valid quote. Valid
// quotes are cached; invalid ones never are. When the chain is exhausted the
// quote is nil: the last provider error rides along, and a nil error means
// every provider answered with an unusable payload.
func (a *App) fetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	key := cache.Key(cache.KindQuote, symbol)

	var cached models.Quote
	if a.cache.Get(ctx, cache.KindQuote, key, &cached) {
		return &cached, nil
	}

	if len(a.quotes) == 0 {
		return nil, services.ErrNotConfigured
	}
	a.thr.Observe(ctx, key)

	var lastErr error
	for _, provider := range a.quotes {
		quote, err := provider.GetQuote(ctx, symbol)
		if err != nil {
			lastErr = err
			observability.WithError(err).Warn("quote provider failed", "provider", provider.Name(), "symbol", symbol)
			continue
		}
		if quote == nil || !quote.Valid() {
			continue
		}
		quote.Symbol = symbol
		a.cache.Set(ctx, cache.KindQuote, key, quote)
		return quote, nil
	}
	return nil, lastErr
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
