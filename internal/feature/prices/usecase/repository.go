package usecase

import (
	"context"
	"time"

	"stock_pipeline/internal/feature/prices/domain/entity"
)

// PriceSource retrieves a ticker's daily bars.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type PriceSource interface {
	// Fetch returns the bars in [start, end] inclusive, sorted by date ascending.
	// It returns an error wrapping ErrDataUnavailable when the ticker has no data at all;
	// an empty slice means the ticker exists but nothing falls in the range.
	Fetch(ctx context.Context, ticker string, start, end time.Time) ([]entity.PriceBar, error)
}

// CacheInvalidator is implemented by sources that keep fetched bars between runs.
type CacheInvalidator interface {
	// Invalidate drops every kept range of ticker.
	Invalidate(ctx context.Context, ticker string) error
}

// PriceStore is the persisted prices table.
type PriceStore interface {
	// EnsureSchema creates the table if absent. Safe to call on every run.
	EnsureSchema(ctx context.Context) error

	// ReplaceTicker deletes every row of ticker and inserts rows, atomically.
	// Empty rows leave the ticker with no rows.
	ReplaceTicker(ctx context.Context, ticker string, rows []entity.FeaturedBar) error

	// PruneTo deletes every row whose ticker is not in tickers and reports how many went.
	PruneTo(ctx context.Context, tickers []string) (int64, error)

	// ReadLatestSummary returns each ticker's latest row ordered by vol_20 descending, nulls last.
	// Tickers without rows are absent from the result.
	ReadLatestSummary(ctx context.Context, tickers []string) ([]entity.SummaryRow, error)

	// FindSeries returns a ticker's chart points ordered by date ascending.
	FindSeries(ctx context.Context, ticker string) ([]entity.SeriesPoint, error)

	// FindFeatured returns a ticker's persisted rows ordered by date ascending.
	FindFeatured(ctx context.Context, ticker string) ([]entity.FeaturedBar, error)

	// Close releases the underlying connection.
	Close() error
}

// StoreOpener opens the PriceStore at a storage location (a file path or a DSN).
type StoreOpener func(location string) (PriceStore, error)
