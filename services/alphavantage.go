package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"stock-hub/models"

	"github.com/shopspring/decimal"
)

// eastern is the exchange-local zone for US equities. Intraday timestamps
// from Alpha Vantage carry no offset and are implicitly in this zone.
var eastern = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// AlphaVantageService handles communication with the Alpha Vantage API
type AlphaVantageService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewAlphaVantageService creates a new AlphaVantageService instance
func NewAlphaVantageService(apiKey string) *AlphaVantageService {
	return &AlphaVantageService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://www.alphavantage.co/query",
	}
}

// Name identifies the provider in logs, metrics, and merge priority.
func (s *AlphaVantageService) Name() string { return "alphavantage" }

// avEnvelope captures the soft-error fields Alpha Vantage returns with a
// 200 status. A "Note" or "Information" body means the free-tier quota ran
// out; an "Error Message" body means the request itself was bad.
type avEnvelope struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// fetch performs a query against the API and classifies the response.
func (s *AlphaVantageService) fetch(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("apikey", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidPayload, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrUpstreamUnavailable, err)
	}

	var envelope avEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Note != "" || envelope.Information != "" {
			return nil, ErrRateLimited
		}
		if envelope.ErrorMessage != "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, envelope.ErrorMessage)
		}
	}

	return body, nil
}

// dailySeriesResponse represents the TIME_SERIES_DAILY response
type dailySeriesResponse struct {
	TimeSeries map[string]struct {
		Open   string `json:"1. open"`
		High   string `json:"2. high"`
		Low    string `json:"3. low"`
		Close  string `json:"4. close"`
		Volume string `json:"5. volume"`
	} `json:"Time Series (Daily)"`
}

// GetDailySeries returns daily closing prices sorted ascending by date.
func (s *AlphaVantageService) GetDailySeries(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	return WithCircuitBreaker(ctx, BreakerAlphaVantage, func() ([]models.PricePoint, error) {
		var points []models.PricePoint

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("function", "TIME_SERIES_DAILY")
			params.Set("symbol", symbol)
			params.Set("outputsize", "full")

			body, err := s.fetch(ctx, params)
			if err != nil {
				return err
			}

			var series dailySeriesResponse
			if err := json.Unmarshal(body, &series); err != nil {
				return fmt.Errorf("failed to decode daily series: %w", err)
			}
			if len(series.TimeSeries) == 0 {
				return fmt.Errorf("%w: empty daily series for %s", ErrInvalidPayload, symbol)
			}

			points = make([]models.PricePoint, 0, len(series.TimeSeries))
			for date, bar := range series.TimeSeries {
				closePrice, err := strconv.ParseFloat(bar.Close, 64)
				if err != nil {
					continue
				}
				points = append(points, models.PricePoint{Date: date, Price: closePrice})
			}
			if len(points) == 0 {
				return fmt.Errorf("%w: no parsable closes for %s", ErrInvalidPayload, symbol)
			}

			sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
			return nil
		})

		if err != nil {
			return nil, err
		}
		return points, nil
	})
}

// quoteResponse represents the GLOBAL_QUOTE response
type quoteResponse struct {
	GlobalQuote struct {
		Symbol    string `json:"01. symbol"`
		Open      string `json:"02. open"`
		High      string `json:"03. high"`
		Low       string `json:"04. low"`
		Price     string `json:"05. price"`
		Volume    string `json:"06. volume"`
		LatestDay string `json:"07. latest trading day"`
		PrevClose string `json:"08. previous close"`
	} `json:"Global Quote"`
}

// GetQuote returns the latest quote for a symbol. The returned quote may be
// invalid (zero prices) when the market data is missing; callers must check
// Valid() before using it.
func (s *AlphaVantageService) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return WithCircuitBreaker(ctx, BreakerAlphaVantage, func() (*models.Quote, error) {
		var quote *models.Quote

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("function", "GLOBAL_QUOTE")
			params.Set("symbol", symbol)

			body, err := s.fetch(ctx, params)
			if err != nil {
				return err
			}

			var resp quoteResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to decode quote: %w", err)
			}

			g := resp.GlobalQuote
			price, _ := strconv.ParseFloat(g.Price, 64)
			prevClose, _ := strconv.ParseFloat(g.PrevClose, 64)
			open, _ := strconv.ParseFloat(g.Open, 64)
			high, _ := strconv.ParseFloat(g.High, 64)
			low, _ := strconv.ParseFloat(g.Low, 64)
			var volume int64
			if g.Volume != "" {
				volume, _ = strconv.ParseInt(g.Volume, 10, 64)
			}

			quote = &models.Quote{
				Symbol:           symbol,
				Price:            price,
				PreviousClose:    prevClose,
				Open:             open,
				High:             high,
				Low:              low,
				Volume:           volume,
				LatestTradingDay: g.LatestDay,
			}
			return nil
		})

		if err != nil {
			return nil, err
		}
		return quote, nil
	})
}

// intradayResponse represents the TIME_SERIES_INTRADAY response
type intradayResponse struct {
	TimeSeries map[string]struct {
		Open   string `json:"1. open"`
		High   string `json:"2. high"`
		Low    string `json:"3. low"`
		Close  string `json:"4. close"`
		Volume string `json:"5. volume"`
	} `json:"Time Series (5min)"`
}

// GetIntradayCandles returns 5-minute candles sorted ascending by time.
// Timestamps are parsed in the exchange-local zone.
func (s *AlphaVantageService) GetIntradayCandles(ctx context.Context, symbol string) ([]models.Candle, error) {
	return WithCircuitBreaker(ctx, BreakerAlphaVantage, func() ([]models.Candle, error) {
		var candles []models.Candle

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("function", "TIME_SERIES_INTRADAY")
			params.Set("symbol", symbol)
			params.Set("interval", "5min")
			params.Set("outputsize", "full")

			body, err := s.fetch(ctx, params)
			if err != nil {
				return err
			}

			var resp intradayResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to decode intraday series: %w", err)
			}
			if len(resp.TimeSeries) == 0 {
				return fmt.Errorf("%w: empty intraday series for %s", ErrInvalidPayload, symbol)
			}

			candles = make([]models.Candle, 0, len(resp.TimeSeries))
			for ts, bar := range resp.TimeSeries {
				t, err := time.ParseInLocation("2006-01-02 15:04:05", ts, eastern)
				if err != nil {
					continue
				}
				open, _ := strconv.ParseFloat(bar.Open, 64)
				high, _ := strconv.ParseFloat(bar.High, 64)
				low, _ := strconv.ParseFloat(bar.Low, 64)
				closePrice, err := strconv.ParseFloat(bar.Close, 64)
				if err != nil {
					continue
				}
				var volume int64
				if bar.Volume != "" {
					volume, _ = strconv.ParseInt(bar.Volume, 10, 64)
				}
				candles = append(candles, models.Candle{
					Time:   t,
					Open:   open,
					High:   high,
					Low:    low,
					Close:  closePrice,
					Volume: volume,
				})
			}
			if len(candles) == 0 {
				return fmt.Errorf("%w: no parsable intraday candles for %s", ErrInvalidPayload, symbol)
			}

			sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
			return nil
		})

		if err != nil {
			return nil, err
		}
		return candles, nil
	})
}

// overviewResponse represents the OVERVIEW response
type overviewResponse struct {
	Symbol        string `json:"Symbol"`
	Name          string `json:"Name"`
	Currency      string `json:"Currency"`
	MarketCap     string `json:"MarketCapitalization"`
	PERatio       string `json:"PERatio"`
	EPS           string `json:"EPS"`
	Beta          string `json:"Beta"`
	DividendYield string `json:"DividendYield"`
	Week52High    string `json:"52WeekHigh"`
	Week52Low     string `json:"52WeekLow"`
}

// GetOverview returns descriptive company metrics. Fields the API reports
// as empty or "None" stay nil.
func (s *AlphaVantageService) GetOverview(ctx context.Context, symbol string) (*models.OverviewStats, error) {
	return WithCircuitBreaker(ctx, BreakerAlphaVantage, func() (*models.OverviewStats, error) {
		var stats *models.OverviewStats

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("function", "OVERVIEW")
			params.Set("symbol", symbol)

			body, err := s.fetch(ctx, params)
			if err != nil {
				return err
			}

			var resp overviewResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to decode overview: %w", err)
			}
			if resp.Symbol == "" {
				return fmt.Errorf("%w: empty overview for %s", ErrInvalidPayload, symbol)
			}

			stats = &models.OverviewStats{
				Symbol:        symbol,
				Name:          optionalString(resp.Name),
				Currency:      optionalString(resp.Currency),
				MarketCap:     optionalDecimal(resp.MarketCap),
				PERatio:       optionalFloat(resp.PERatio),
				EPS:           optionalDecimal(resp.EPS),
				Beta:          optionalFloat(resp.Beta),
				DividendYield: optionalFloat(resp.DividendYield),
				Week52High:    optionalDecimal(resp.Week52High),
				Week52Low:     optionalDecimal(resp.Week52Low),
			}
			return nil
		})

		if err != nil {
			return nil, err
		}
		return stats, nil
	})
}

// newsResponse represents the NEWS_SENTIMENT response
type newsResponse struct {
	Feed []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Summary       string `json:"summary"`
		BannerImage   string `json:"banner_image"`
		Source        string `json:"source"`
		TimePublished string `json:"time_published"`
	} `json:"feed"`
}

// GetNews returns recent news for a symbol. Articles missing a title or URL
// are dropped. Timestamps that fail to parse default to the current time.
func (s *AlphaVantageService) GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error) {
	return WithCircuitBreaker(ctx, BreakerAlphaVantage, func() ([]models.NewsArticle, error) {
		var articles []models.NewsArticle

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("function", "NEWS_SENTIMENT")
			params.Set("tickers", symbol)
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}

			body, err := s.fetch(ctx, params)
			if err != nil {
				return err
			}

			var resp newsResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to decode news: %w", err)
			}

			articles = make([]models.NewsArticle, 0, len(resp.Feed))
			for _, item := range resp.Feed {
				if item.Title == "" || item.URL == "" {
					continue
				}

				publishedAt, err := time.Parse("20060102T150405", item.TimePublished)
				if err != nil {
					publishedAt = time.Now()
				}

				articles = append(articles, models.NewsArticle{
					Title:       item.Title,
					Source:      item.Source,
					URL:         item.URL,
					ImageURL:    item.BannerImage,
					PublishedAt: publishedAt,
					Summary:     item.Summary,
				})
			}
			return nil
		})

		if err != nil {
			return nil, err
		}
		return articles, nil
	})
}

// optionalString returns nil for empty or "None" values
func optionalString(s string) *string {
	if s == "" || s == "None" {
		return nil
	}
	return &s
}

// optionalFloat returns nil for values that are empty, "None", or unparsable
func optionalFloat(s string) *float64 {
	if s == "" || s == "None" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// optionalDecimal returns nil for values that are empty, "None", or unparsable
func optionalDecimal(s string) *decimal.Decimal {
	if s == "" || s == "None" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
