// Package dto defines the JSON bodies of the prices HTTP API.
package dto

import (
	"math"

	"github.com/guregu/null/v6"

	"stock_pipeline/internal/feature/prices/domain/entity"
)

// RunRequest is the body of POST /pipeline/run.
type RunRequest struct {
	Tickers  []string `json:"tickers"`            // e.g. ["RY.TO", "SHOP.TO"]
	Start    string   `json:"start"`              // YYYY-MM-DD, inclusive
	End      string   `json:"end"`                // YYYY-MM-DD, inclusive
	Location string   `json:"location,omitempty"` // storage location; must be allowed by the server
	Refresh  bool     `json:"refresh,omitempty"`  // drop cached source data before fetching
}

// RunResponse is the result of a successful run.
type RunResponse struct {
	RunID   string       `json:"run_id"`
	Summary []SummaryRow `json:"summary"`
	Loaded  []LoadCount  `json:"loaded"`
}

// SummaryRow is one ticker's latest observation. Undefined values are null.
type SummaryRow struct {
	Ticker   string     `json:"ticker"`
	Date     string     `json:"date"`
	AdjClose null.Float `json:"adj_close"`
	MA20     null.Float `json:"ma_20"`
	MA50     null.Float `json:"ma_50"`
	Vol20    null.Float `json:"vol_20"`
}

// LoadCount is the number of rows persisted for a ticker.
type LoadCount struct {
	Ticker string `json:"ticker"`
	Rows   int    `json:"rows"`
}

// SeriesPoint is one chart point of GET /prices/:ticker/series.
type SeriesPoint struct {
	Date     string     `json:"date"`
	AdjClose null.Float `json:"adj_close"`
	MA20     null.Float `json:"ma_20"`
	MA50     null.Float `json:"ma_50"`
}

// ErrorResponse carries a failure message verbatim.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewRunResponse converts a run result.
func NewRunResponse(runID string, summary []entity.SummaryRow, loaded []entity.LoadCount) RunResponse {
	out := RunResponse{
		RunID:   runID,
		Summary: make([]SummaryRow, 0, len(summary)),
		Loaded:  make([]LoadCount, 0, len(loaded)),
	}
	for _, s := range summary {
		out.Summary = append(out.Summary, SummaryRow{
			Ticker:   s.Ticker,
			Date:     s.Date.UTC().Format(entity.DateLayout),
			AdjClose: price(s.AdjClose),
			MA20:     s.MA20,
			MA50:     s.MA50,
			Vol20:    s.Vol20,
		})
	}
	for _, l := range loaded {
		out.Loaded = append(out.Loaded, LoadCount{Ticker: l.Ticker, Rows: l.Rows})
	}
	return out
}

// NewSeries converts chart points.
func NewSeries(points []entity.SeriesPoint) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(points))
	for _, p := range points {
		out = append(out, SeriesPoint{
			Date:     p.Date.UTC().Format(entity.DateLayout),
			AdjClose: price(p.AdjClose),
			MA20:     p.MA20,
			MA50:     p.MA50,
		})
	}
	return out
}

// price maps a missing (NaN) price to null; JSON has no NaN.
func price(f float64) null.Float {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}
