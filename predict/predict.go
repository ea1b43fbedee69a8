// Package predict implements the moving-average trend forecast. The model
// is deliberately simple: a short moving average plus the average daily
// move over the same window, extrapolated forward. Its outputs are
// deterministic for a given series.
package predict

import (
	"errors"
	"math"
	"time"

	"stock-hub/marketdata"
	"stock-hub/models"
)

// windowSize is the number of trailing closes the moving average and trend
// are computed over.
const windowSize = 5

// confidenceWindow is the number of trailing closes volatility is measured
// over.
const confidenceWindow = 10

// ErrInsufficientData is returned when a series has fewer than two closes.
var ErrInsufficientData = errors.New("need at least two closing prices")

// historyLength caps the historical series echoed back with a forecast.
const historyLength = 30

// Predict extrapolates the price daysAhead trading days forward. The
// forecast is the window's moving average plus daysAhead times the
// window's average daily move, floored at zero.
func Predict(prices []float64, daysAhead int) (float64, error) {
	if len(prices) < 2 {
		return 0, ErrInsufficientData
	}
	if daysAhead < 1 {
		daysAhead = 1
	}

	window := prices
	if len(window) > windowSize {
		window = window[len(window)-windowSize:]
	}

	var sum float64
	for _, p := range window {
		sum += p
	}
	ma := sum / float64(len(window))

	trend := (window[len(window)-1] - window[0]) / float64(len(window)-1)

	forecast := ma + float64(daysAhead)*trend
	if forecast < 0 {
		forecast = 0
	}
	return forecast, nil
}

// Confidence scores a forecast from the series' recent volatility: the
// population coefficient of variation over the trailing window, mapped so
// calm series score near 95 and choppy ones bottom out at 75.
func Confidence(prices []float64) float64 {
	if len(prices) < 2 {
		return 75
	}

	window := prices
	if len(window) > confidenceWindow {
		window = window[len(window)-confidenceWindow:]
	}

	var sum float64
	for _, p := range window {
		sum += p
	}
	mean := sum / float64(len(window))
	if mean <= 0 {
		return 75
	}

	var variance float64
	for _, p := range window {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(window))

	vol := math.Sqrt(variance) / mean
	conf := 85 - vol*100
	if conf < 75 {
		conf = 75
	}
	if conf > 95 {
		conf = 95
	}
	return conf
}

// Forecast builds the full prediction payload for a daily series: the
// next-trading-day forecast, a confidence score, and the trailing history
// the forecast was drawn from.
func Forecast(points []models.PricePoint, now time.Time) (*models.PredictionResult, error) {
	prices := marketdata.Closes(points)

	price, err := Predict(prices, 1)
	if err != nil {
		return nil, err
	}

	last := prices[len(prices)-1]
	var changePercent float64
	if last > 0 {
		changePercent = (price - last) / last * 100
	}

	return &models.PredictionResult{
		Prediction: models.Prediction{
			Date:          marketdata.NextTradingDay(now).Format("2006-01-02"),
			Price:         round2(price),
			ChangePercent: round2(changePercent),
		},
		Accuracy:       round2(Confidence(prices)),
		HistoricalData: marketdata.Tail(points, historyLength),
	}, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
