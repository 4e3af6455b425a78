package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"stock_pipeline/internal/feature/prices/domain/entity"
)

// Exporter writes a ticker's persisted rows to a file in one format.
type Exporter interface {
	Save(rows []entity.FeaturedBar, path string) error
	Extension() string
}

// ExporterFactory picks an Exporter by format name (csv, json, parquet).
type ExporterFactory func(format string) (Exporter, error)

// ExportUsecase dumps a ticker's persisted rows for other tools.
type ExportUsecase struct {
	open      StoreOpener
	exporters ExporterFactory
}

// NewExportUsecase creates an ExportUsecase.
func NewExportUsecase(open StoreOpener, exporters ExporterFactory) *ExportUsecase {
	return &ExportUsecase{open: open, exporters: exporters}
}

// Export writes every persisted row of ticker to path and returns the row count.
func (u *ExportUsecase) Export(ctx context.Context, location, ticker, format, path string) (int, error) {
	ticker = entity.NormalizeTicker(ticker)
	if ticker == "" {
		return 0, fmt.Errorf("%w: ticker is required", ErrInvalidRequest)
	}
	exp, err := u.exporters(format)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	store, err := openStore(u.open, location)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("failed to close store", "location", location, "error", err)
		}
	}()

	if err := store.EnsureSchema(ctx); err != nil {
		return 0, fmt.Errorf("ensure schema: %w", err)
	}
	rows, err := store.FindFeatured(ctx, ticker)
	if err != nil {
		return 0, err
	}
	if err := exp.Save(rows, path); err != nil {
		return 0, fmt.Errorf("export %s as %s: %w", ticker, exp.Extension(), err)
	}

	slog.Info("exported ticker", "ticker", ticker, "rows", len(rows), "format", exp.Extension(), "path", path)
	return len(rows), nil
}
