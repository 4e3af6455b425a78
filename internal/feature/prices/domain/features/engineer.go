// Package features derives rolling statistics from a single ticker's price series.
// Everything here is pure: no I/O, and identical input always yields identical output.
package features

import (
	"math"

	"github.com/guregu/null/v6"

	"stock_pipeline/internal/feature/prices/domain/entity"
)

const (
	// MAShortWindow is the observation count of ma_20.
	MAShortWindow = 20
	// MALongWindow is the observation count of ma_50.
	MALongWindow = 50
	// VolWindow is the observation count of vol_20.
	VolWindow = 20
	// TradingDaysPerYear annualizes a daily standard deviation.
	TradingDaysPerYear = 252
)

// Engineer returns series augmented with daily return, MA20, MA50 and annualized
// 20-day volatility. The series must belong to one ticker and be ordered by date;
// the output has the same length and order.
func Engineer(series []entity.PriceBar) []entity.FeaturedBar {
	adj := make([]null.Float, len(series))
	for i, b := range series {
		adj[i] = finite(b.AdjClose)
	}

	returns := DailyReturns(adj)
	ma20 := Window{Size: MAShortWindow}.Apply(adj, Mean)
	ma50 := Window{Size: MALongWindow}.Apply(adj, Mean)
	vol20 := Window{Size: VolWindow}.Apply(returns, annualizedStdDev)

	out := make([]entity.FeaturedBar, len(series))
	for i, b := range series {
		out[i] = entity.FeaturedBar{
			PriceBar:    b,
			DailyReturn: returns[i],
			MA20:        ma20[i],
			MA50:        ma50[i],
			Vol20:       vol20[i],
		}
	}
	return out
}

// DailyReturns computes p[i]/p[i-1] - 1. The first row, and any row whose price
// or previous price is undefined or zero, has no return.
func DailyReturns(prices []null.Float) []null.Float {
	out := make([]null.Float, len(prices))
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if !defined(prev) || !defined(cur) || prev.Float64 == 0 {
			continue
		}
		out[i] = finite(cur.Float64/prev.Float64 - 1)
	}
	return out
}

func annualizedStdDev(window []null.Float) null.Float {
	sd := SampleStdDev(window)
	if !sd.Valid {
		return sd
	}
	return null.FloatFrom(sd.Float64 * math.Sqrt(TradingDaysPerYear))
}
