package features

import (
	"math"

	"github.com/guregu/null/v6"
)

// Window is a trailing window of up to Size observations ending at the current row.
// Early rows use every observation available, so a window is satisfied by one value.
type Window struct {
	Size int
}

// Bounds returns the inclusive index range [max(0, i-Size+1), i].
func (w Window) Bounds(i int) (lo, hi int) {
	lo = i - w.Size + 1
	if lo < 0 {
		lo = 0
	}
	return lo, i
}

// Apply evaluates agg over the window ending at every index of values.
func (w Window) Apply(values []null.Float, agg Aggregate) []null.Float {
	out := make([]null.Float, len(values))
	for i := range values {
		lo, hi := w.Bounds(i)
		out[i] = agg(values[lo : hi+1])
	}
	return out
}

// Aggregate reduces a window of nullable values to one nullable value.
type Aggregate func(window []null.Float) null.Float

// Mean is the arithmetic mean of the defined values; null when none are defined.
func Mean(window []null.Float) null.Float {
	var sum float64
	n := 0
	for _, v := range window {
		if !defined(v) {
			continue
		}
		sum += v.Float64
		n++
	}
	if n == 0 {
		return null.Float{}
	}
	return null.FloatFrom(sum / float64(n))
}

// SampleStdDev is the n-1 standard deviation of the defined values.
// Fewer than two defined values is an insufficient sample and yields null.
func SampleStdDev(window []null.Float) null.Float {
	mean := Mean(window)
	if !mean.Valid {
		return null.Float{}
	}
	var ss float64
	n := 0
	for _, v := range window {
		if !defined(v) {
			continue
		}
		d := v.Float64 - mean.Float64
		ss += d * d
		n++
	}
	if n < 2 {
		return null.Float{}
	}
	return null.FloatFrom(math.Sqrt(ss / float64(n-1)))
}

func defined(v null.Float) bool {
	return v.Valid && !math.IsNaN(v.Float64) && !math.IsInf(v.Float64, 0)
}

// finite wraps a float, mapping NaN and ±Inf to null.
func finite(f float64) null.Float {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}
