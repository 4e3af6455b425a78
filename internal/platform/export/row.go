// Package export writes persisted feature rows to files (csv, json, parquet).
package export

import (
	"math"

	"stock_pipeline/internal/feature/prices/domain/entity"
)

// Row is the flat file layout shared by every format. Column names match the prices table.
type Row struct {
	Ticker      string   `csv:"ticker" json:"ticker" parquet:"ticker"`
	Date        string   `csv:"date" json:"date" parquet:"date"`
	Open        *float64 `csv:"open" json:"open" parquet:"open,optional"`
	High        *float64 `csv:"high" json:"high" parquet:"high,optional"`
	Low         *float64 `csv:"low" json:"low" parquet:"low,optional"`
	Close       *float64 `csv:"close" json:"close" parquet:"close,optional"`
	AdjClose    *float64 `csv:"adj_close" json:"adj_close" parquet:"adj_close,optional"`
	Volume      int64    `csv:"volume" json:"volume" parquet:"volume"`
	DailyReturn *float64 `csv:"daily_return" json:"daily_return" parquet:"daily_return,optional"`
	MA20        *float64 `csv:"ma_20" json:"ma_20" parquet:"ma_20,optional"`
	MA50        *float64 `csv:"ma_50" json:"ma_50" parquet:"ma_50,optional"`
	Vol20       *float64 `csv:"vol_20" json:"vol_20" parquet:"vol_20,optional"`
}

// ToRows flattens featured bars. Missing prices and undefined features become nil.
func ToRows(bars []entity.FeaturedBar) []Row {
	rows := make([]Row, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, Row{
			Ticker:      b.Ticker,
			Date:        b.Date.UTC().Format(entity.DateLayout),
			Open:        price(b.Open),
			High:        price(b.High),
			Low:         price(b.Low),
			Close:       price(b.Close),
			AdjClose:    price(b.AdjClose),
			Volume:      b.Volume,
			DailyReturn: b.DailyReturn.Ptr(),
			MA20:        b.MA20.Ptr(),
			MA50:        b.MA50.Ptr(),
			Vol20:       b.Vol20.Ptr(),
		})
	}
	return rows
}

func price(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
