package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"stock_pipeline/internal/feature/prices/domain/entity"
)

// SeriesUsecase serves the chart read path: one ticker's persisted series.
type SeriesUsecase struct {
	open StoreOpener
}

// NewSeriesUsecase creates a SeriesUsecase.
func NewSeriesUsecase(open StoreOpener) *SeriesUsecase {
	return &SeriesUsecase{open: open}
}

// GetSeries returns (date, adj_close, ma_20, ma_50) for ticker ordered by date ascending.
func (u *SeriesUsecase) GetSeries(ctx context.Context, location, ticker string) ([]entity.SeriesPoint, error) {
	ticker = entity.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrInvalidRequest)
	}

	store, err := openStore(u.open, location)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("failed to close store", "location", location, "error", err)
		}
	}()

	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store.FindSeries(ctx, ticker)
}
