package cache

import (
	"strings"
	"time"
)

// Data kinds used to build cache keys. Each kind has its own TTL.
const (
	KindStock      = "stock"
	KindQuote      = "quote"
	KindPrediction = "prediction"
	KindIntraday   = "intraday"
	KindTimeseries = "timeseries"
	KindNews       = "news"
	KindOverview   = "overview"
)

// TTLs per data kind. Quote data goes stale quickly, company overviews
// barely change within a day.
const (
	TTLStock      = 30 * time.Minute
	TTLQuote      = 10 * time.Minute
	TTLPrediction = 1 * time.Hour
	TTLIntraday   = 5 * time.Minute
	TTLTimeseries = 30 * time.Minute
	TTLNews       = 10 * time.Minute
	TTLOverview   = 24 * time.Hour
)

// Key builds a cache key from a data kind, a symbol, and optional qualifiers.
// Symbols are uppercased so "aapl" and "AAPL" share an entry.
func Key(kind, symbol string, extra ...string) string {
	parts := make([]string, 0, 2+len(extra))
	parts = append(parts, kind, strings.ToUpper(symbol))
	parts = append(parts, extra...)
	return strings.Join(parts, ":")
}

// TTLFor returns the TTL for a data kind, defaulting to the stock TTL
// for unknown kinds.
func TTLFor(kind string) time.Duration {
	switch kind {
	case KindStock:
		return TTLStock
	case KindQuote:
		return TTLQuote
	case KindPrediction:
		return TTLPrediction
	case KindIntraday:
		return TTLIntraday
	case KindTimeseries:
		return TTLTimeseries
	case KindNews:
		return TTLNews
	case KindOverview:
		return TTLOverview
	default:
		return TTLStock
	}
}
