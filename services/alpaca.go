package services

import (
	"context"
	"fmt"
	"time"

	"stock-hub/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// AlpacaService is the tertiary candles provider, backed by the Alpaca
// market data API. Only historical bars are used; no trading.
type AlpacaService struct {
	dataClient *marketdata.Client
}

// NewAlpacaService creates a new AlpacaService instance
func NewAlpacaService(apiKey, apiSecret, baseURL string) *AlpacaService {
	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})

	return &AlpacaService{dataClient: dataClient}
}

// Name identifies the provider in logs, metrics, and merge priority.
func (s *AlpacaService) Name() string { return "alpaca" }

func (s *AlpacaService) getBars(symbol string, timeframe marketdata.TimeFrame, lookbackDays int) ([]models.Candle, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -lookbackDays)

	bars, err := s.dataClient.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: timeframe,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: bars for %s: %v", ErrUpstreamUnavailable, symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s", ErrInvalidPayload, symbol)
	}

	candles := make([]models.Candle, 0, len(bars))
	for _, bar := range bars {
		candles = append(candles, models.Candle{
			Time:   bar.Timestamp.In(eastern),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: int64(bar.Volume),
		})
	}

	return candles, nil
}

// GetDailyCandles returns daily candles covering the last `days` calendar
// days, sorted ascending by time.
func (s *AlpacaService) GetDailyCandles(ctx context.Context, symbol string, days int) ([]models.Candle, error) {
	return WithCircuitBreaker(ctx, BreakerAlpaca, func() ([]models.Candle, error) {
		return s.getBars(symbol, marketdata.OneDay, days)
	})
}

// GetIntradayCandles returns 1-minute bars covering the last five calendar
// days, sorted ascending by time.
func (s *AlpacaService) GetIntradayCandles(ctx context.Context, symbol string) ([]models.Candle, error) {
	return WithCircuitBreaker(ctx, BreakerAlpaca, func() ([]models.Candle, error) {
		return s.getBars(symbol, marketdata.OneMin, intradayLookbackDays)
	})
}
