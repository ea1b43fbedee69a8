package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stock-hub/models"
)

// FinnhubService handles communication with the Finnhub API. It is the
// secondary provider, consulted when Alpha Vantage is throttled or down.
type FinnhubService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewFinnhubService creates a new FinnhubService instance
func NewFinnhubService(apiKey string) *FinnhubService {
	return &FinnhubService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://finnhub.io/api/v1",
	}
}

// Name identifies the provider in logs, metrics, and merge priority.
func (s *FinnhubService) Name() string { return "finnhub" }

func (s *FinnhubService) get(ctx context.Context, path string, params url.Values, dest interface{}) error {
	params.Set("token", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrInvalidPayload, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// finnhubQuoteResponse represents the /quote response
type finnhubQuoteResponse struct {
	Current   float64 `json:"c"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Open      float64 `json:"o"`
	PrevClose float64 `json:"pc"`
	Timestamp int64   `json:"t"`
}

// GetQuote returns the latest quote for a symbol. Finnhub answers unknown
// symbols with an all-zero body, which yields an invalid quote.
func (s *FinnhubService) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return WithCircuitBreaker(ctx, BreakerFinnhub, func() (*models.Quote, error) {
		var quote *models.Quote

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("symbol", symbol)

			var resp finnhubQuoteResponse
			if err := s.get(ctx, "/quote", params, &resp); err != nil {
				return err
			}

			var latestDay string
			if resp.Timestamp > 0 {
				latestDay = time.Unix(resp.Timestamp, 0).In(eastern).Format("2006-01-02")
			}

			quote = &models.Quote{
				Symbol:           symbol,
				Price:            resp.Current,
				PreviousClose:    resp.PrevClose,
				Open:             resp.Open,
				High:             resp.High,
				Low:              resp.Low,
				LatestTradingDay: latestDay,
			}
			return nil
		})

		if err != nil {
			return nil, err
		}
		return quote, nil
	})
}

// finnhubNewsItem represents one article from /company-news
type finnhubNewsItem struct {
	ID       int64  `json:"id"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Image    string `json:"image"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// GetNews returns company news for the past week. Articles missing a
// headline or URL are dropped.
func (s *FinnhubService) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	return WithCircuitBreaker(ctx, BreakerFinnhub, func() ([]models.NewsArticle, error) {
		var articles []models.NewsArticle

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			now := time.Now()
			params := url.Values{}
			params.Set("symbol", symbol)
			params.Set("from", now.AddDate(0, 0, -7).Format("2006-01-02"))
			params.Set("to", now.Format("2006-01-02"))

			var items []finnhubNewsItem
			if err := s.get(ctx, "/company-news", params, &items); err != nil {
				return err
			}

			articles = make([]models.NewsArticle, 0, len(items))
			for _, item := range items {
				if item.Headline == "" || item.URL == "" {
					continue
				}

				publishedAt := now
				if item.Datetime > 0 {
					publishedAt = time.Unix(item.Datetime, 0)
				}

				var id string
				if item.ID > 0 {
					id = strconv.FormatInt(item.ID, 10)
				}

				articles = append(articles, models.NewsArticle{
					ID:          id,
					Title:       item.Headline,
					Source:      item.Source,
					URL:         item.URL,
					ImageURL:    item.Image,
					PublishedAt: publishedAt,
					Summary:     item.Summary,
				})
				if limit > 0 && len(articles) >= limit {
					break
				}
			}
			return nil
		})

		if err != nil {
			return nil, err
		}
		return articles, nil
	})
}

// finnhubCandleResponse represents the /stock/candle response
type finnhubCandleResponse struct {
	Close     []float64 `json:"c"`
	High      []float64 `json:"h"`
	Low       []float64 `json:"l"`
	Open      []float64 `json:"o"`
	Status    string    `json:"s"`
	Timestamp []int64   `json:"t"`
	Volume    []float64 `json:"v"`
}

// toCandles maps the parallel arrays of a candle response into models.
// Arrays shorter than the close array leave the matching fields zero.
func (r finnhubCandleResponse) toCandles() []models.Candle {
	candles := make([]models.Candle, 0, len(r.Close))
	for i := range r.Close {
		if i >= len(r.Timestamp) {
			break
		}
		candle := models.Candle{
			Time:  time.Unix(r.Timestamp[i], 0).In(eastern),
			Close: r.Close[i],
		}
		if i < len(r.Open) {
			candle.Open = r.Open[i]
		}
		if i < len(r.High) {
			candle.High = r.High[i]
		}
		if i < len(r.Low) {
			candle.Low = r.Low[i]
		}
		if i < len(r.Volume) {
			candle.Volume = int64(r.Volume[i])
		}
		candles = append(candles, candle)
	}
	return candles
}

func (s *FinnhubService) getCandles(ctx context.Context, symbol, resolution string, from, to time.Time) ([]models.Candle, error) {
	var candles []models.Candle

	err := WithRetry(ctx, DefaultRetryConfig, func() error {
		params := url.Values{}
		params.Set("symbol", symbol)
		params.Set("resolution", resolution)
		params.Set("from", strconv.FormatInt(from.Unix(), 10))
		params.Set("to", strconv.FormatInt(to.Unix(), 10))

		var resp finnhubCandleResponse
		if err := s.get(ctx, "/stock/candle", params, &resp); err != nil {
			return err
		}
		if resp.Status != "ok" || len(resp.Close) == 0 {
			return fmt.Errorf("%w: no candles for %s", ErrInvalidPayload, symbol)
		}

		candles = resp.toCandles()
		return nil
	})

	if err != nil {
		return nil, err
	}
	return candles, nil
}

// GetDailyCandles returns daily candles covering the last `days` calendar
// days, sorted ascending by time.
func (s *FinnhubService) GetDailyCandles(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	return WithCircuitBreaker(ctx, BreakerFinnhub, func() ([]models.Candle, error) {
		now := time.Now()
		return s.getCandles(ctx, symbol, "D", now.AddDate(0, 0, -days), now)
	})
}

// intradayLookbackDays covers the prior-trading-day fallback window the
// session builder walks when the current day has no complete session.
const intradayLookbackDays = 5

// GetIntradayCandles returns 5-minute candles for the last five calendar
// days, sorted ascending by time.
func (s *FinnhubService) GetIntradayCandles(ctx context.Context, symbol string) ([]models.Candle, error) {
	return WithCircuitBreaker(ctx, BreakerFinnhub, func() ([]models.Candle, error) {
		now := time.Now()
		return s.getCandles(ctx, symbol, "5", now.AddDate(0, 0, -intradayLookbackDays), now)
	})
}
