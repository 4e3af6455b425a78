package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stock_pipeline/internal/feature/prices/adapters"
	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/usecase"
	"stock_pipeline/internal/platform/db"
)

var baseDay = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return baseDay.AddDate(0, 0, offset)
}

// series builds n consecutive daily bars whose adjusted close is price(i).
func series(n int, price func(i int) float64) []entity.PriceBar {
	out := make([]entity.PriceBar, n)
	for i := range out {
		p := price(i)
		out[i] = entity.PriceBar{Date: day(i), Open: p, High: p, Low: p, Close: p, AdjClose: p, Volume: 1000}
	}
	return out
}

// fakeSource serves fixed histories and counts calls per ticker.
type fakeSource struct {
	data  map[string][]entity.PriceBar
	calls []string
}

func (f *fakeSource) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]entity.PriceBar, error) {
	f.calls = append(f.calls, ticker)
	bars, ok := f.data[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: no history for %s", usecase.ErrDataUnavailable, ticker)
	}
	out := make([]entity.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// mockSource is a func-field PriceSource.
type mockSource struct {
	FetchFunc  func(ctx context.Context, ticker string, start, end time.Time) ([]entity.PriceBar, error)
	FetchCalls int
}

func (m *mockSource) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]entity.PriceBar, error) {
	m.FetchCalls++
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, ticker, start, end)
	}
	return nil, errors.New("FetchFunc is not implemented")
}

// recordingStore is a PriceStore that records the calls it receives.
type recordingStore struct {
	ops      []string
	pruneErr error
	replaced map[string][]entity.FeaturedBar
	summary  []entity.SummaryRow
}

func newRecordingStore() *recordingStore {
	return &recordingStore{replaced: map[string][]entity.FeaturedBar{}}
}

func (s *recordingStore) EnsureSchema(ctx context.Context) error {
	s.ops = append(s.ops, "schema")
	return nil
}

func (s *recordingStore) ReplaceTicker(ctx context.Context, ticker string, rows []entity.FeaturedBar) error {
	s.ops = append(s.ops, "replace "+ticker)
	s.replaced[ticker] = rows
	return nil
}

func (s *recordingStore) PruneTo(ctx context.Context, tickers []string) (int64, error) {
	s.ops = append(s.ops, "prune")
	return 0, s.pruneErr
}

func (s *recordingStore) ReadLatestSummary(ctx context.Context, tickers []string) ([]entity.SummaryRow, error) {
	s.ops = append(s.ops, "summary")
	return s.summary, nil
}

func (s *recordingStore) FindSeries(ctx context.Context, ticker string) ([]entity.SeriesPoint, error) {
	s.ops = append(s.ops, "series "+ticker)
	return nil, nil
}

func (s *recordingStore) FindFeatured(ctx context.Context, ticker string) ([]entity.FeaturedBar, error) {
	s.ops = append(s.ops, "featured "+ticker)
	return s.replaced[ticker], nil
}

func (s *recordingStore) Close() error {
	s.ops = append(s.ops, "close")
	return nil
}

// openerFor always hands out store and counts openings.
func openerFor(store usecase.PriceStore, opened *int) usecase.StoreOpener {
	return func(location string) (usecase.PriceStore, error) {
		*opened++
		return store, nil
	}
}

// sqliteLocation returns a fresh sqlite file path and an opener backed by the gorm adapter.
func sqliteLocation(t *testing.T) (string, usecase.StoreOpener) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.db")
	return path, func(location string) (usecase.PriceStore, error) {
		gdb, err := db.OpenGorm(location)
		if err != nil {
			return nil, err
		}
		return adapters.NewPriceStore(gdb), nil
	}
}

// persisted reads every ticker's rows back through a fresh connection.
func persisted(t *testing.T, open usecase.StoreOpener, location string, tickers ...string) map[string][]entity.FeaturedBar {
	t.Helper()
	store, err := open(location)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	out := map[string][]entity.FeaturedBar{}
	for _, tk := range tickers {
		rows, err := store.FindFeatured(context.Background(), tk)
		require.NoError(t, err)
		if len(rows) > 0 {
			out[tk] = rows
		}
	}
	return out
}

func tickersOf(rows []entity.SummaryRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Ticker)
	}
	return out
}


// invalidatingSource is a fakeSource that also records cache invalidations.
type invalidatingSource struct {
	fakeSource
	invalidated []string
	err         error
}

func (s *invalidatingSource) Invalidate(ctx context.Context, ticker string) error {
	s.invalidated = append(s.invalidated, ticker)
	return s.err
}
