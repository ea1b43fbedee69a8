// Package marketdata normalizes raw provider output into the shapes the
// rest of the service works with: daily price series, session-clamped
// intraday series, range-filtered history, and de-duplicated news.
package marketdata

import (
	"sort"

	"stock-hub/models"
)

// FromCandles converts daily candles into a daily price series. Duplicate
// dates collapse to the last candle seen for that date; output is sorted
// ascending.
func FromCandles(candles []models.Candle) []models.PricePoint {
	byDate := make(map[string]float64, len(candles))
	for _, c := range candles {
		if c.Close <= 0 {
			continue
		}
		byDate[c.Time.Format("2006-01-02")] = c.Close
	}

	points := make([]models.PricePoint, 0, len(byDate))
	for date, price := range byDate {
		points = append(points, models.PricePoint{Date: date, Price: price})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// Tail returns the last n points of a series, or the whole series when it
// has fewer.
func Tail(points []models.PricePoint, n int) []models.PricePoint {
	if n <= 0 || len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

// Closes extracts the price column from a daily series.
func Closes(points []models.PricePoint) []float64 {
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	return prices
}
