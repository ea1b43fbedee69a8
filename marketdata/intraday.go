package marketdata

import (
	"time"

	"stock-hub/models"
)

// Exchange is the zone intraday timestamps are interpreted and clamped in.
var Exchange = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

const (
	sessionOpenHour    = 9
	sessionOpenMinute  = 30
	sessionCloseHour   = 16
	sessionCloseMinute = 0
)

// maxFallbackDays bounds how far back BuildIntradaySeries searches for a
// day with data.
const maxFallbackDays = 5

// InSession reports whether t falls inside the regular trading session,
// 09:30 through 16:00 inclusive, exchange-local.
func InSession(t time.Time) bool {
	local := t.In(Exchange)
	minutes := local.Hour()*60 + local.Minute()
	open := sessionOpenHour*60 + sessionOpenMinute
	close := sessionCloseHour*60 + sessionCloseMinute
	return minutes >= open && minutes <= close
}

// MarketOpenAt reports whether the regular session is open at t: a weekday
// with t inside session hours. Exchange holidays are not modeled; a holiday
// shows as an open market with no fresh data.
func MarketOpenAt(t time.Time) bool {
	local := t.In(Exchange)
	wd := local.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return InSession(local)
}

// PrevTradingDay returns the most recent weekday strictly before d.
func PrevTradingDay(d time.Time) time.Time {
	d = d.AddDate(0, 0, -1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// NextTradingDay returns the next weekday strictly after d.
func NextTradingDay(d time.Time) time.Time {
	d = d.AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// sameExchangeDay reports whether two instants fall on the same
// exchange-local calendar day.
func sameExchangeDay(a, b time.Time) bool {
	ay, am, ad := a.In(Exchange).Date()
	by, bm, bd := b.In(Exchange).Date()
	return ay == by && am == bm && ad == bd
}

// ClampToSession keeps only the candles of the given exchange-local day
// that fall inside the regular session, converted to intraday points
// sorted ascending by time.
func ClampToSession(candles []models.Candle, day time.Time) []models.IntradayPoint {
	points := make([]models.IntradayPoint, 0, len(candles))
	for _, c := range candles {
		if !sameExchangeDay(c.Time, day) || !InSession(c.Time) {
			continue
		}
		local := c.Time.In(Exchange)
		points = append(points, models.IntradayPoint{
			Time:  local.Format("15:04"),
			Price: c.Close,
			Date:  local,
		})
	}
	return points
}

// SessionComplete reports whether a day's points run through the end of
// the session. The final 5-minute bar stamps at 15:55 or 16:00 depending
// on the provider, so anything at or past 15:58 counts as complete.
func SessionComplete(points []models.IntradayPoint) bool {
	if len(points) == 0 {
		return false
	}
	last := points[len(points)-1].Date.In(Exchange)
	return last.Hour()*60+last.Minute() >= 15*60+58
}

// BuildIntradaySeries picks the trading day to serve from raw candles.
// While the market is open today's partial session is served as-is; once
// closed, only a complete session qualifies and the search walks back
// through prior trading days, at most five. If no complete session turns
// up within the lookback, the most recent partial one is served rather
// than nothing.
func BuildIntradaySeries(candles []models.Candle, now time.Time) models.IntradaySeries {
	state := models.MarketClosed
	if MarketOpenAt(now) {
		state = models.MarketOpen
	}

	day := now.In(Exchange)
	if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = PrevTradingDay(day)
	}

	var partial []models.IntradayPoint
	for i := 0; i <= maxFallbackDays; i++ {
		points := ClampToSession(candles, day)
		if len(points) > 0 {
			live := i == 0 && state == models.MarketOpen
			if live || SessionComplete(points) {
				return models.IntradaySeries{Points: points, Market: state, AsOf: now}
			}
			if partial == nil {
				partial = points
			}
		}
		day = PrevTradingDay(day)
	}

	if partial != nil {
		return models.IntradaySeries{Points: partial, Market: state, AsOf: now}
	}
	return models.IntradaySeries{Points: []models.IntradayPoint{}, Market: state, AsOf: now}
}
