// Package entity defines the domain models for the prices feature.
package entity

import (
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the calendar-day format used for persisted and transported dates.
const DateLayout = "2006-01-02"

// PriceBar is one ticker's daily OHLCV observation.
type PriceBar struct {
	Ticker   string    // Upper-cased ticker (e.g., "RY.TO")
	Date     time.Time // Trading day at UTC midnight
	Open     float64   // Opening price
	High     float64   // Highest price of the day
	Low      float64   // Lowest price of the day
	Close    float64   // Closing price
	AdjClose float64   // Close adjusted for splits and dividends
	Volume   int64     // Trading volume
}

// FeaturedBar is a PriceBar with the rolling features derived from its ticker's series.
// Undefined features are invalid null.Float values, never sentinel numbers.
type FeaturedBar struct {
	PriceBar
	DailyReturn null.Float
	MA20        null.Float
	MA50        null.Float
	Vol20       null.Float
}

// SummaryRow is the latest persisted observation of one ticker.
type SummaryRow struct {
	Ticker   string
	Date     time.Time
	AdjClose float64
	MA20     null.Float
	MA50     null.Float
	Vol20    null.Float
}

// LoadCount records how many rows a run persisted for a ticker.
type LoadCount struct {
	Ticker string
	Rows   int
}

// SeriesPoint is one row of the chart read path.
type SeriesPoint struct {
	Date     time.Time
	AdjClose float64
	MA20     null.Float
	MA50     null.Float
}

// NormalizeTicker trims whitespace and upper-cases a ticker.
func NormalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// NormalizeTickers normalizes every ticker, drops empties and duplicates,
// and keeps the first-seen order.
func NormalizeTickers(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		n := NormalizeTicker(t)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ParseDate parses a "YYYY-MM-DD" string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// TruncateDay drops the time-of-day component, keeping the calendar day in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
