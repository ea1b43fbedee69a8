package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/redis/go-redis/v9"

	"stock-hub/cache"
	"stock-hub/config"
	"stock-hub/jobs"
	"stock-hub/marketdata"
	"stock-hub/models"
	"stock-hub/services"
	"stock-hub/storage"
)

type fakeDaily struct {
	series []models.PricePoint
	err    error
	calls  int
}

func (f *fakeDaily) Name() string { return "fake-daily" }

func (f *fakeDaily) GetDailySeries(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	f.calls++
	return f.series, f.err
}

type fakeQuote struct {
	name  string
	quote *models.Quote
	err   error
	calls int
}

func (f *fakeQuote) Name() string { return f.name }

func (f *fakeQuote) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	f.calls++
	return f.quote, f.err
}

type fakeNews struct {
	name     string
	articles []models.NewsArticle
	err      error
}

func (f *fakeNews) Name() string { return f.name }

func (f *fakeNews) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	return f.articles, f.err
}

type fakeCandles struct {
	name    string
	candles []models.Candle
	err     error
	calls   int
}

func (f *fakeCandles) Name() string { return f.name }

func (f *fakeCandles) GetDailyCandles(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	f.calls++
	return f.candles, f.err
}

type fakeIntraday struct {
	name    string
	candles []models.Candle
	err     error
	calls   int
}

func (f *fakeIntraday) Name() string {
	if f.name == "" {
		return "fake-intraday"
	}
	return f.name
}

func (f *fakeIntraday) GetIntradayCandles(ctx context.Context, symbol string) ([]models.Candle, error) {
	f.calls++
	return f.candles, f.err
}

type fakeQueue struct {
	jobID      string
	enqueueErr error
	job        *models.Job
	statusErr  error
	enqueued   []string
}

func (f *fakeQueue) EnqueuePredict(ctx context.Context, symbol, modelVersion string) (string, error) {
	if f.enqueueErr != nil {
		return "", f.enqueueErr
	}
	f.enqueued = append(f.enqueued, symbol)
	return f.jobID, nil
}

func (f *fakeQueue) JobStatus(ctx context.Context, jobID string) (*models.Job, error) {
	return f.job, f.statusErr
}

func (f *fakeQueue) Healthy(ctx context.Context) bool { return true }

func newTestCache(t *testing.T) *cache.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewStoreWithClient(client)
	t.Cleanup(func() { store.Close() })
	return store
}

func dailyPoints(prices ...float64) []models.PricePoint {
	base := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	points := make([]models.PricePoint, 0, len(prices))
	for i, p := range prices {
		d := base.AddDate(0, 0, i)
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
			base = base.AddDate(0, 0, 1)
		}
		points = append(points, models.PricePoint{Date: d.Format("2006-01-02"), Price: p})
	}
	return points
}

func newApp(cfg *config.Config, deps Deps) *App {
	a := New(cfg, deps)
	a.now = func() time.Time { return time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestGetStock_FirstValidQuoteWins(t *testing.T) {
	invalid := &fakeQuote{name: "primary", quote: &models.Quote{Price: 0, PreviousClose: 0}}
	valid := &fakeQuote{name: "secondary", quote: &models.Quote{Price: 101.5, PreviousClose: 100}}
	daily := &fakeDaily{series: dailyPoints(97, 98, 99, 100, 101, 102)}

	app := newApp(config.NewTestConfig(), Deps{
		Daily:  daily,
		Quotes: []services.QuoteProvider{invalid, valid},
	})

	stock, err := app.GetStock(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("GetStock() error = %v", err)
	}
	if stock.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", stock.Symbol)
	}
	if stock.Price != 101.5 || stock.PreviousClose != 100 {
		t.Errorf("quote = %v/%v, want 101.5/100", stock.Price, stock.PreviousClose)
	}
	if invalid.calls != 1 || valid.calls != 1 {
		t.Errorf("provider calls = %d/%d, want 1/1", invalid.calls, valid.calls)
	}
	if len(stock.HistoricalData) != 6 {
		t.Errorf("history length = %d, want 6", len(stock.HistoricalData))
	}
}

func TestGetStock_QuoteChainExhaustedFails(t *testing.T) {
	failing := &fakeQuote{name: "primary", err: services.ErrUpstreamUnavailable}
	daily := &fakeDaily{series: dailyPoints(100, 102)}

	app := newApp(config.NewTestConfig(), Deps{
		Daily:  daily,
		Quotes: []services.QuoteProvider{failing},
	})

	_, err := app.GetStock(context.Background(), "MSFT")
	if !errors.Is(err, services.ErrUpstreamUnavailable) {
		t.Errorf("GetStock() error = %v, want ErrUpstreamUnavailable despite a good series", err)
	}
	if daily.calls != 0 {
		t.Errorf("daily calls = %d, want 0 when the quote already failed", daily.calls)
	}
}

func TestGetStock_InvalidQuotesFail(t *testing.T) {
	invalid := &fakeQuote{name: "primary", quote: &models.Quote{Price: 0, PreviousClose: 0}}
	daily := &fakeDaily{series: dailyPoints(100, 102)}

	app := newApp(config.NewTestConfig(), Deps{
		Daily:  daily,
		Quotes: []services.QuoteProvider{invalid},
	})

	_, err := app.GetStock(context.Background(), "ZZZZ")
	if !errors.Is(err, services.ErrNoUsableData) {
		t.Errorf("GetStock() error = %v, want ErrNoUsableData", err)
	}
}

func TestGetStock_HistoryOptionalWithValidQuote(t *testing.T) {
	valid := &fakeQuote{name: "primary", quote: &models.Quote{Price: 101.5, PreviousClose: 100}}
	daily := &fakeDaily{err: services.ErrUpstreamUnavailable}

	app := newApp(config.NewTestConfig(), Deps{
		Daily:  daily,
		Quotes: []services.QuoteProvider{valid},
	})

	stock, err := app.GetStock(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetStock() error = %v", err)
	}
	if stock.Price != 101.5 {
		t.Errorf("price = %v, want 101.5", stock.Price)
	}
	if len(stock.HistoricalData) != 0 {
		t.Errorf("history length = %d, want 0 when the series provider is down", len(stock.HistoricalData))
	}
}

func TestGetStock_PropagatesProviderError(t *testing.T) {
	daily := &fakeDaily{series: dailyPoints(100, 102)}
	failing := &fakeQuote{name: "primary", err: services.ErrRateLimited}

	app := newApp(config.NewTestConfig(), Deps{
		Daily:  daily,
		Quotes: []services.QuoteProvider{failing},
	})

	_, err := app.GetStock(context.Background(), "AAPL")
	if !errors.Is(err, services.ErrRateLimited) {
		t.Errorf("GetStock() error = %v, want ErrRateLimited", err)
	}
}

func TestDailySeries_CachedAfterFirstFetch(t *testing.T) {
	daily := &fakeDaily{series: dailyPoints(97, 98, 99, 100, 101, 102)}
	app := newApp(config.NewTestConfig(), Deps{
		Cache: newTestCache(t),
		Daily: daily,
	})

	ctx := context.Background()
	first, err := app.GetTimeseries(ctx, "AAPL", marketdata.Range1W)
	if err != nil {
		t.Fatalf("first GetTimeseries() error = %v", err)
	}
	second, err := app.GetTimeseries(ctx, "AAPL", marketdata.Range1W)
	if err != nil {
		t.Fatalf("second GetTimeseries() error = %v", err)
	}
	if daily.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (second hit served from cache)", daily.calls)
	}
	if len(first) != len(second) {
		t.Errorf("cached series length %d != fresh length %d", len(second), len(first))
	}
}

func TestDailySeries_FailOpenWithoutCache(t *testing.T) {
	daily := &fakeDaily{series: dailyPoints(97, 98, 99, 100, 101, 102)}
	app := newApp(config.NewTestConfig(), Deps{Daily: daily})

	ctx := context.Background()
	if _, err := app.GetTimeseries(ctx, "AAPL", marketdata.Range1W); err != nil {
		t.Fatalf("GetTimeseries() error = %v", err)
	}
	if _, err := app.GetTimeseries(ctx, "AAPL", marketdata.Range1W); err != nil {
		t.Fatalf("GetTimeseries() error = %v", err)
	}
	if daily.calls != 2 {
		t.Errorf("provider calls = %d, want 2 without a cache", daily.calls)
	}
}

func TestThrottle_MarksPerSymbol(t *testing.T) {
	store := newTestCache(t)
	thr := cache.NewThrottle(store, time.Minute)
	daily := &fakeDaily{series: dailyPoints(97, 98, 99, 100, 101, 102)}

	app := newApp(config.NewTestConfig(), Deps{Cache: store, Throttle: thr, Daily: daily})

	ctx := context.Background()
	if _, err := app.GetTimeseries(ctx, "AAPL", marketdata.Range1W); err != nil {
		t.Fatalf("GetTimeseries() error = %v", err)
	}

	if !thr.Observe(ctx, cache.Key(cache.KindStock, "AAPL")) {
		t.Error("expected a throttle marker for the fetched symbol")
	}
	if thr.Observe(ctx, cache.Key(cache.KindStock, "MSFT")) {
		t.Error("throttle marker must not span symbols")
	}
}

func TestDailySeries_CandleFallback(t *testing.T) {
	daily := &fakeDaily{err: services.ErrUpstreamUnavailable}
	candles := &fakeCandles{name: "fallback", candles: []models.Candle{
		{Time: time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC), Close: 100},
		{Time: time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), Close: 101},
	}}

	app := newApp(config.NewTestConfig(), Deps{
		Daily:   daily,
		Candles: []services.CandleProvider{candles},
	})

	series, err := app.GetTimeseries(context.Background(), "AAPL", marketdata.Range1W)
	if err != nil {
		t.Fatalf("GetTimeseries() error = %v", err)
	}
	if candles.calls != 1 {
		t.Errorf("fallback calls = %d, want 1", candles.calls)
	}
	if len(series) != 2 || series[1].Price != 101 {
		t.Errorf("series = %v, want two points ending at 101", series)
	}
}

func TestGetTimeseries_AppliesRange(t *testing.T) {
	prices := make([]float64, 400)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	daily := &fakeDaily{series: dailyPoints(prices...)}
	app := New(config.NewTestConfig(), Deps{Daily: daily})
	app.now = func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }

	full, err := app.GetTimeseries(context.Background(), "AAPL", marketdata.Range5Y)
	if err != nil {
		t.Fatalf("GetTimeseries(5Y) error = %v", err)
	}
	month, err := app.GetTimeseries(context.Background(), "AAPL", marketdata.Range1M)
	if err != nil {
		t.Fatalf("GetTimeseries(1M) error = %v", err)
	}
	if len(month) >= len(full) {
		t.Errorf("1M returned %d points, full series %d; want a strict subset", len(month), len(full))
	}
	if len(month) == 0 {
		t.Error("1M returned no points")
	}
}

func TestGetIntraday(t *testing.T) {
	day := time.Date(2024, 6, 14, 0, 0, 0, 0, marketdata.Exchange) // Friday
	intraday := &fakeIntraday{candles: []models.Candle{
		{Time: day.Add(9*time.Hour + 15*time.Minute), Close: 99},  // pre-open, clamped
		{Time: day.Add(10 * time.Hour), Close: 100},
		{Time: day.Add(15*time.Hour + 58*time.Minute), Close: 101},
	}}

	app := New(config.NewTestConfig(), Deps{Intraday: []services.IntradayProvider{intraday}})
	app.now = func() time.Time { return day.Add(17 * time.Hour) }

	series, err := app.GetIntraday(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetIntraday() error = %v", err)
	}
	if len(series.Points) != 2 {
		t.Fatalf("points = %d, want 2 (pre-open candle dropped)", len(series.Points))
	}
	if series.Market != models.MarketClosed {
		t.Errorf("market = %q, want closed at 17:00", series.Market)
	}
}

func TestGetIntraday_NotConfigured(t *testing.T) {
	app := newApp(config.NewTestConfig(), Deps{})
	_, err := app.GetIntraday(context.Background(), "AAPL")
	if !errors.Is(err, services.ErrNotConfigured) {
		t.Errorf("GetIntraday() error = %v, want ErrNotConfigured", err)
	}
}

func TestGetIntraday_FallsBackThroughChain(t *testing.T) {
	day := time.Date(2024, 6, 14, 0, 0, 0, 0, marketdata.Exchange) // Friday
	down := &fakeIntraday{name: "primary", err: services.ErrRateLimited}
	good := &fakeIntraday{name: "secondary", candles: []models.Candle{
		{Time: day.Add(10 * time.Hour), Close: 100},
		{Time: day.Add(15*time.Hour + 58*time.Minute), Close: 101},
	}}

	app := New(config.NewTestConfig(), Deps{Intraday: []services.IntradayProvider{down, good}})
	app.now = func() time.Time { return day.Add(17 * time.Hour) }

	series, err := app.GetIntraday(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetIntraday() error = %v", err)
	}
	if down.calls != 1 || good.calls != 1 {
		t.Errorf("provider calls = %d/%d, want 1/1", down.calls, good.calls)
	}
	if len(series.Points) != 2 {
		t.Errorf("points = %d, want 2 from the fallback provider", len(series.Points))
	}
}

func TestGetIntraday_AllProvidersFail(t *testing.T) {
	down := &fakeIntraday{name: "primary", err: services.ErrUpstreamUnavailable}

	app := newApp(config.NewTestConfig(), Deps{Intraday: []services.IntradayProvider{down}})

	_, err := app.GetIntraday(context.Background(), "AAPL")
	if !errors.Is(err, services.ErrUpstreamUnavailable) {
		t.Errorf("GetIntraday() error = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestGetNews_MergesAndDedupes(t *testing.T) {
	now := time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC)
	primary := &fakeNews{name: "primary", articles: []models.NewsArticle{
		{Title: "Shared story", URL: "https://example.com/a", PublishedAt: now},
		{Title: "Primary only", URL: "https://example.com/b", PublishedAt: now.Add(-time.Hour)},
	}}
	secondary := &fakeNews{name: "secondary", articles: []models.NewsArticle{
		{Title: "Shared story again", URL: "https://example.com/a", PublishedAt: now},
		{Title: "Secondary only", URL: "https://example.com/c", PublishedAt: now.Add(-2 * time.Hour)},
	}}

	app := newApp(config.NewTestConfig(), Deps{
		News: []services.NewsProvider{primary, secondary},
	})

	articles, err := app.GetNews(context.Background(), "AAPL", 10)
	if err != nil {
		t.Fatalf("GetNews() error = %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("articles = %d, want 3 after de-dup", len(articles))
	}
	if articles[0].Title != "Shared story" {
		t.Errorf("first article = %q, want the primary provider's copy of the shared story", articles[0].Title)
	}
}

func TestGetNews_PartialProviderFailure(t *testing.T) {
	working := &fakeNews{name: "working", articles: []models.NewsArticle{
		{Title: "Only story", URL: "https://example.com/a", PublishedAt: time.Now()},
	}}
	broken := &fakeNews{name: "broken", err: services.ErrRateLimited}

	app := newApp(config.NewTestConfig(), Deps{
		News: []services.NewsProvider{broken, working},
	})

	articles, err := app.GetNews(context.Background(), "AAPL", 10)
	if err != nil {
		t.Fatalf("GetNews() error = %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("articles = %d, want 1 from the surviving provider", len(articles))
	}
}

func TestGetNews_AllProvidersFail(t *testing.T) {
	broken := &fakeNews{name: "broken", err: services.ErrUpstreamUnavailable}
	app := newApp(config.NewTestConfig(), Deps{
		News: []services.NewsProvider{broken},
	})

	_, err := app.GetNews(context.Background(), "AAPL", 10)
	if !errors.Is(err, services.ErrUpstreamUnavailable) {
		t.Errorf("GetNews() error = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestGetPrediction_EnqueuesWhenQueueAvailable(t *testing.T) {
	queue := &fakeQueue{jobID: "job-123"}
	daily := &fakeDaily{series: dailyPoints(97, 98, 99, 100, 101, 102)}

	app := newApp(config.NewTestConfig(), Deps{Daily: daily, Queue: queue})

	result, handle, err := app.GetPrediction(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetPrediction() error = %v", err)
	}
	if result != nil {
		t.Errorf("result = %v, want nil when the job was enqueued", result)
	}
	if handle == nil || handle.ID != "job-123" {
		t.Fatalf("handle = %v, want job-123", handle)
	}
	if daily.calls != 0 {
		t.Errorf("provider calls = %d, want 0 (worker fetches the data)", daily.calls)
	}
}

func TestGetPrediction_SyncFallbackWhenQueueUnavailable(t *testing.T) {
	queue := &fakeQueue{enqueueErr: jobs.ErrQueueUnavailable}
	daily := &fakeDaily{series: dailyPoints(97, 98, 99, 100, 101, 102)}

	app := newApp(config.NewTestConfig(), Deps{Daily: daily, Queue: queue})

	result, handle, err := app.GetPrediction(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetPrediction() error = %v", err)
	}
	if handle != nil {
		t.Errorf("handle = %v, want nil on sync fallback", handle)
	}
	if result == nil {
		t.Fatal("result is nil, want an inline forecast")
	}
	if result.Prediction.Price != 101 {
		t.Errorf("predicted price = %v, want 101", result.Prediction.Price)
	}
}

func TestGetPrediction_NoQueueComputesInline(t *testing.T) {
	daily := &fakeDaily{series: dailyPoints(97, 98, 99, 100, 101, 102)}
	app := newApp(config.NewTestConfig(), Deps{Daily: daily})

	result, handle, err := app.GetPrediction(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("GetPrediction() error = %v", err)
	}
	if handle != nil || result == nil {
		t.Fatalf("result/handle = %v/%v, want inline result and no handle", result, handle)
	}
}

func TestGetPrediction_CachedResultServedSynchronously(t *testing.T) {
	queue := &fakeQueue{jobID: "job-123"}
	daily := &fakeDaily{series: dailyPoints(97, 98, 99, 100, 101, 102)}

	app := newApp(config.NewTestConfig(), Deps{
		Cache: newTestCache(t),
		Daily: daily,
		Queue: queue,
	})

	ctx := context.Background()
	// Worker-side computation populates the prediction cache.
	computed, err := app.PredictSymbol(ctx, "AAPL")
	if err != nil {
		t.Fatalf("PredictSymbol() error = %v", err)
	}

	result, handle, err := app.GetPrediction(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetPrediction() error = %v", err)
	}
	if handle != nil {
		t.Errorf("handle = %v, want nil on a cache hit", handle)
	}
	if result == nil || result.Prediction.Price != computed.Prediction.Price {
		t.Errorf("result = %v, want the cached forecast %v", result, computed)
	}
	if len(queue.enqueued) != 0 {
		t.Errorf("enqueued %v, want nothing on a cache hit", queue.enqueued)
	}
}

func TestPredictSymbol_InsufficientData(t *testing.T) {
	daily := &fakeDaily{series: dailyPoints(100)}
	app := newApp(config.NewTestConfig(), Deps{Daily: daily})

	_, err := app.PredictSymbol(context.Background(), "AAPL")
	if !errors.Is(err, services.ErrNoUsableData) {
		t.Errorf("PredictSymbol() error = %v, want ErrNoUsableData", err)
	}
}

func TestJobStatus(t *testing.T) {
	t.Run("no queue", func(t *testing.T) {
		app := newApp(config.NewTestConfig(), Deps{})
		_, err := app.JobStatus(context.Background(), "job-123")
		if !errors.Is(err, jobs.ErrQueueUnavailable) {
			t.Errorf("JobStatus() error = %v, want ErrQueueUnavailable", err)
		}
	})

	t.Run("found", func(t *testing.T) {
		queue := &fakeQueue{job: &models.Job{ID: "job-123", Status: models.JobDone}}
		app := newApp(config.NewTestConfig(), Deps{Queue: queue})
		job, err := app.JobStatus(context.Background(), "job-123")
		if err != nil {
			t.Fatalf("JobStatus() error = %v", err)
		}
		if job.Status != models.JobDone {
			t.Errorf("status = %q, want done", job.Status)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		queue := &fakeQueue{statusErr: jobs.ErrJobNotFound}
		app := newApp(config.NewTestConfig(), Deps{Queue: queue})
		_, err := app.JobStatus(context.Background(), "missing")
		if !errors.Is(err, jobs.ErrJobNotFound) {
			t.Errorf("JobStatus() error = %v, want ErrJobNotFound", err)
		}
	})
}

func TestPrecompute(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.HTTP.AdminAPIKey = "secret"

	t.Run("wrong key", func(t *testing.T) {
		app := newApp(cfg, Deps{Queue: &fakeQueue{jobID: "j"}})
		_, err := app.Precompute(context.Background(), []string{"AAPL"}, "wrong")
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Precompute() error = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("no key configured", func(t *testing.T) {
		app := newApp(config.NewTestConfig(), Deps{Queue: &fakeQueue{jobID: "j"}})
		_, err := app.Precompute(context.Background(), []string{"AAPL"}, "")
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Precompute() error = %v, want ErrUnauthorized when disabled", err)
		}
	})

	t.Run("no queue", func(t *testing.T) {
		app := newApp(cfg, Deps{})
		_, err := app.Precompute(context.Background(), []string{"AAPL"}, "secret")
		if !errors.Is(err, jobs.ErrQueueUnavailable) {
			t.Errorf("Precompute() error = %v, want ErrQueueUnavailable", err)
		}
	})

	t.Run("enqueues each symbol", func(t *testing.T) {
		queue := &fakeQueue{jobID: "j"}
		app := newApp(cfg, Deps{Queue: queue})
		handles, err := app.Precompute(context.Background(), []string{"aapl", " ", "MSFT"}, "secret")
		if err != nil {
			t.Fatalf("Precompute() error = %v", err)
		}
		if len(handles) != 2 {
			t.Errorf("handles = %d, want 2 (blank symbol skipped)", len(handles))
		}
		if fmt.Sprint(queue.enqueued) != "[AAPL MSFT]" {
			t.Errorf("enqueued = %v, want [AAPL MSFT]", queue.enqueued)
		}
	})
}

type memS3 struct {
	objects map[string][]byte
}

func (m *memS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.objects[*params.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *memS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*params.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(m.objects, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *memS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestPredictSymbol_StoredForecastServesWhenProvidersDown(t *testing.T) {
	s3fake := &memS3{objects: make(map[string][]byte)}
	store := storage.NewModelStoreWithClient(s3fake, "models")

	healthy := &fakeDaily{series: dailyPoints(97, 98, 99, 100, 101, 102)}
	app := newApp(config.NewTestConfig(), Deps{Daily: healthy, Models: store})

	ctx := context.Background()
	first, err := app.PredictSymbol(ctx, "AAPL")
	if err != nil {
		t.Fatalf("PredictSymbol() error = %v", err)
	}
	if len(s3fake.objects) != 1 {
		t.Fatalf("stored artifacts = %d, want 1", len(s3fake.objects))
	}

	// Providers go dark; the stored artifact stands in.
	broken := &fakeDaily{err: services.ErrUpstreamUnavailable}
	app = newApp(config.NewTestConfig(), Deps{Daily: broken, Models: store})

	second, err := app.PredictSymbol(ctx, "AAPL")
	if err != nil {
		t.Fatalf("PredictSymbol() with providers down error = %v", err)
	}
	if second.Prediction.Price != first.Prediction.Price {
		t.Errorf("stored forecast price = %v, want %v", second.Prediction.Price, first.Prediction.Price)
	}
}

func TestStatus(t *testing.T) {
	t.Run("nothing configured", func(t *testing.T) {
		app := newApp(config.NewTestConfig(), Deps{})
		report := app.Status(context.Background())
		if report.Cache || report.Queue || report.Storage {
			t.Errorf("report = %+v, want all infrastructure down", report)
		}
	})

	t.Run("cache and queue up", func(t *testing.T) {
		app := newApp(config.NewTestConfig(), Deps{
			Cache: newTestCache(t),
			Queue: &fakeQueue{},
		})
		report := app.Status(context.Background())
		if !report.Cache || !report.Queue {
			t.Errorf("report = %+v, want cache and queue healthy", report)
		}
		if report.Storage {
			t.Error("storage reported healthy without a configured store")
		}
	})
}
