package services

import (
	"context"

	"stock-hub/models"
)

// DailySeriesProvider fetches daily closing prices for a symbol.
type DailySeriesProvider interface {
	Name() string
	GetDailySeries(ctx context.Context, symbol string) ([]models.PricePoint, error)
}

// QuoteProvider fetches the latest quote for a symbol.
type QuoteProvider interface {
	Name() string
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// NewsProvider fetches recent news for a symbol.
type NewsProvider interface {
	Name() string
	GetNews(ctx context.Context, symbol string, limit int) ([]models.NewsArticle, error)
}

// CandleProvider fetches daily candles covering the last N calendar days.
type CandleProvider interface {
	Name() string
	GetDailyCandles(ctx context.Context, symbol string, days int) ([]models.Candle, error)
}

// IntradayProvider fetches intraday candles for a symbol.
type IntradayProvider interface {
	Name() string
	GetIntradayCandles(ctx context.Context, symbol string) ([]models.Candle, error)
}

// OverviewProvider fetches descriptive company metrics for a symbol.
type OverviewProvider interface {
	GetOverview(ctx context.Context, symbol string) (*models.OverviewStats, error)
}

// Compile-time interface verification
var _ DailySeriesProvider = (*AlphaVantageService)(nil)
var _ QuoteProvider = (*AlphaVantageService)(nil)
var _ NewsProvider = (*AlphaVantageService)(nil)
var _ IntradayProvider = (*AlphaVantageService)(nil)
var _ OverviewProvider = (*AlphaVantageService)(nil)
var _ QuoteProvider = (*FinnhubService)(nil)
var _ NewsProvider = (*FinnhubService)(nil)
var _ CandleProvider = (*FinnhubService)(nil)
var _ IntradayProvider = (*FinnhubService)(nil)
var _ CandleProvider = (*AlpacaService)(nil)
var _ IntradayProvider = (*AlpacaService)(nil)
