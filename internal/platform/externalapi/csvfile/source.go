// Package csvfile serves daily price history from per-ticker CSV files.
package csvfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/usecase"
)

// record is one line of a Yahoo-style history export.
type record struct {
	Date     string `csv:"Date"`
	Open     string `csv:"Open"`
	High     string `csv:"High"`
	Low      string `csv:"Low"`
	Close    string `csv:"Close"`
	AdjClose string `csv:"Adj Close"`
	Volume   string `csv:"Volume"`
}

// Source reads <Dir>/<TICKER>.csv.
type Source struct {
	Dir string
}

var _ usecase.PriceSource = (*Source)(nil)

// NewSource creates a Source rooted at dir.
func NewSource(dir string) *Source {
	return &Source{Dir: dir}
}

// Path returns the file backing ticker.
func (s *Source) Path(ticker string) string {
	return filepath.Join(s.Dir, entity.NormalizeTicker(ticker)+".csv")
}

// Fetch loads the ticker's file and keeps the rows dated within [start, end].
// Missing price cells ("", "null") become NaN so that derived features are undefined.
func (s *Source) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]entity.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path(ticker)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no static CSV found at %s", usecase.ErrDataUnavailable, path)
		}
		return nil, err
	}
	defer f.Close()

	var recs []record
	if err := gocsv.Unmarshal(f, &recs); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	from, to := entity.TruncateDay(start), entity.TruncateDay(end)
	byDate := make(map[time.Time]entity.PriceBar, len(recs))
	for i, r := range recs {
		b, err := toBar(r)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, err)
		}
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		b.Ticker = entity.NormalizeTicker(ticker)
		// a repeated date keeps its last line
		byDate[b.Date] = b
	}

	bars := make([]entity.PriceBar, 0, len(byDate))
	for _, b := range byDate {
		bars = append(bars, b)
	}
	slices.SortFunc(bars, func(a, b entity.PriceBar) int { return a.Date.Compare(b.Date) })
	return bars, nil
}

func toBar(r record) (entity.PriceBar, error) {
	d, err := parseDay(r.Date)
	if err != nil {
		return entity.PriceBar{}, fmt.Errorf("parse date %q: %w", r.Date, err)
	}
	o, err := parsePrice(r.Open)
	if err != nil {
		return entity.PriceBar{}, fmt.Errorf("parse open %q: %w", r.Open, err)
	}
	h, err := parsePrice(r.High)
	if err != nil {
		return entity.PriceBar{}, fmt.Errorf("parse high %q: %w", r.High, err)
	}
	l, err := parsePrice(r.Low)
	if err != nil {
		return entity.PriceBar{}, fmt.Errorf("parse low %q: %w", r.Low, err)
	}
	c, err := parsePrice(r.Close)
	if err != nil {
		return entity.PriceBar{}, fmt.Errorf("parse close %q: %w", r.Close, err)
	}
	adj, err := parsePrice(r.AdjClose)
	if err != nil {
		return entity.PriceBar{}, fmt.Errorf("parse adj close %q: %w", r.AdjClose, err)
	}
	vol, err := parseVolume(r.Volume)
	if err != nil {
		return entity.PriceBar{}, fmt.Errorf("parse volume %q: %w", r.Volume, err)
	}
	return entity.PriceBar{Date: d, Open: o, High: h, Low: l, Close: c, AdjClose: adj, Volume: vol}, nil
}

// parseDay accepts "2006-01-02" and timestamps that start with one.
func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(entity.DateLayout) {
		s = s[:len(entity.DateLayout)]
	}
	return entity.ParseDate(s)
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseVolume(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return 0, errors.New("negative volume")
		}
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, errors.New("volume is not a finite number")
	case f < 0:
		return 0, errors.New("negative volume")
	case f >= math.MaxInt64:
		return 0, errors.New("volume out of range")
	}
	return int64(f), nil
}
