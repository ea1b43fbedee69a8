package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a single closing price on a calendar day. A daily series is
// a non-empty sequence of PricePoints sorted ascending by date with no
// duplicate dates.
type PricePoint struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Price float64 `json:"price"`
}

// Quote represents the latest trade and prior session close for a symbol.
// A quote is only usable when both Price and PreviousClose are strictly
// positive; anything else must never be cached.
type Quote struct {
	Symbol           string  `json:"symbol"`
	Price            float64 `json:"price"`
	PreviousClose    float64 `json:"previousClose"`
	Open             float64 `json:"open,omitempty"`
	High             float64 `json:"high,omitempty"`
	Low              float64 `json:"low,omitempty"`
	Volume           int64   `json:"volume,omitempty"`
	LatestTradingDay string  `json:"latestTradingDay,omitempty"`
}

// Valid reports whether the quote carries usable price data.
func (q Quote) Valid() bool {
	return q.Price > 0 && q.PreviousClose > 0
}

// Candle is a raw OHLC candle as returned by an upstream provider, before
// session clamping.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// IntradayPoint is a normalized intraday tick restricted to the regular
// trading session.
type IntradayPoint struct {
	Time  string    `json:"time"` // HH:MM, exchange-local
	Price float64   `json:"price"`
	Date  time.Time `json:"date"`
}

// MarketState reports whether the exchange's regular session is open.
type MarketState string

const (
	MarketOpen   MarketState = "open"
	MarketClosed MarketState = "closed"
)

// IntradaySeries holds one trading day's worth of session-clamped points.
type IntradaySeries struct {
	Points []IntradayPoint `json:"points"`
	Market MarketState     `json:"market"`
	AsOf   time.Time       `json:"asOf"`
}

// OverviewStats is a snapshot of descriptive metrics for a symbol. Any field
// the upstream does not supply stays nil and serializes as null.
type OverviewStats struct {
	Symbol        string           `json:"symbol"`
	Name          *string          `json:"name"`
	Currency      *string          `json:"currency"`
	MarketCap     *decimal.Decimal `json:"marketCap"`
	PERatio       *float64         `json:"peRatio"`
	EPS           *decimal.Decimal `json:"eps"`
	Beta          *float64         `json:"beta"`
	DividendYield *float64         `json:"dividendYield"`
	Week52High    *decimal.Decimal `json:"week52High"`
	Week52Low     *decimal.Decimal `json:"week52Low"`
	Open          *float64         `json:"open"`
	High          *float64         `json:"high"`
	Low           *float64         `json:"low"`
	Close         *float64         `json:"close"`
	Volume        *int64           `json:"volume"`
}

// StockData is the combined quote-plus-history payload served for a symbol.
type StockData struct {
	Symbol         string       `json:"symbol"`
	Price          float64      `json:"price"`
	PreviousClose  float64      `json:"previousClose"`
	HistoricalData []PricePoint `json:"historicalData"`
}

// Prediction is the trend-extrapolated forecast for the next trading day.
type Prediction struct {
	Date          string  `json:"date"` // YYYY-MM-DD
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
}

// PredictionResult is the full synchronous prediction response, also the
// payload cached under the prediction key and written by the worker.
type PredictionResult struct {
	Prediction     Prediction   `json:"prediction"`
	Accuracy       float64      `json:"accuracy"`
	HistoricalData []PricePoint `json:"historicalData"`
}
