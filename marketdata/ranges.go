package marketdata

import (
	"fmt"
	"strings"
	"time"

	"stock-hub/models"
)

// Range is a named lookback window over a daily series.
type Range string

const (
	Range1D  Range = "1D"
	Range1W  Range = "1W"
	Range1M  Range = "1M"
	Range3M  Range = "3M"
	Range6M  Range = "6M"
	RangeYTD Range = "YTD"
	Range1Y  Range = "1Y"
	Range2Y  Range = "2Y"
	Range5Y  Range = "5Y"
)

// ErrInvalidRange is returned by ParseRange for unrecognized range names.
var ErrInvalidRange = fmt.Errorf("invalid range")

// rangeDays maps each fixed range to its calendar-day offset.
var rangeDays = map[Range]int{
	Range1D: 1,
	Range1W: 7,
	Range1M: 30,
	Range3M: 90,
	Range6M: 182,
	Range1Y: 365,
	Range2Y: 730,
	Range5Y: 1825,
}

// fallbackCounts maps each range to the trading-day tail served when the
// date filter leaves fewer than two points.
var fallbackCounts = map[Range]int{
	Range1D:  2,
	Range1W:  5,
	Range1M:  22,
	Range3M:  66,
	Range6M:  126,
	RangeYTD: 126,
	Range1Y:  252,
	Range2Y:  504,
	Range5Y:  1260,
}

// ParseRange validates a user-supplied range name, case-insensitively.
func ParseRange(s string) (Range, error) {
	r := Range(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := fallbackCounts[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	return r, nil
}

// ValidRanges returns the accepted range names in display order.
func ValidRanges() []Range {
	return []Range{Range1D, Range1W, Range1M, Range3M, Range6M, RangeYTD, Range1Y, Range2Y, Range5Y}
}

// Start returns the inclusive start date of the range relative to now.
func (r Range) Start(now time.Time) time.Time {
	if r == RangeYTD {
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	}
	return now.AddDate(0, 0, -rangeDays[r])
}

// Filter restricts a daily series to the range. When the date cut leaves
// fewer than two points (sparse data, fresh listings, long weekends on 1D)
// it falls back to a fixed trading-day tail so charts always have a line
// to draw.
func Filter(points []models.PricePoint, r Range, now time.Time) []models.PricePoint {
	cutoff := r.Start(now).Format("2006-01-02")

	filtered := make([]models.PricePoint, 0, len(points))
	for _, p := range points {
		if p.Date >= cutoff {
			filtered = append(filtered, p)
		}
	}

	if len(filtered) < 2 {
		return Tail(points, fallbackCounts[r])
	}
	return filtered
}
