package cache

import (
	"time"
)

// RefreshHourUTC is when end-of-day data for the previous session is reliably published.
const RefreshHourUTC = 22

// TimeUntilNextRefresh returns the duration from now until the next RefreshHourUTC.
// Used as the cache TTL when none is configured so cached history expires with the trading day.
func TimeUntilNextRefresh(now time.Time) time.Duration {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), RefreshHourUTC, 0, 0, 0, time.UTC)
	if !now.Before(next) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
