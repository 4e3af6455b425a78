package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/domain/features"
)

// RunRequest is one pipeline invocation.
type RunRequest struct {
	Tickers  []string  // Requested tickers; normalized before use
	Start    time.Time // First day of the range, inclusive
	End      time.Time // Last day of the range, inclusive
	Location string    // Storage location handed to the StoreOpener
	Refresh  bool      // Drop cached source data for each ticker before fetching it
}

// RunResult is what a successful run returns.
type RunResult struct {
	RunID   string
	Summary []entity.SummaryRow
	Loaded  []entity.LoadCount
}

// PipelineOptions toggles optional orchestration steps.
type PipelineOptions struct {
	// Prune removes tickers outside the current selection before loading.
	Prune bool
}

// DefaultPipelineOptions keeps the store authoritative over exactly the last requested tickers.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{Prune: true}
}

// PipelineUsecase fetches, engineers and persists price features, then summarizes them.
//
// A run is strictly sequential. Runs against the same storage location are not
// coordinated: one writer at a time per location is the caller's responsibility.
type PipelineUsecase struct {
	source PriceSource
	open   StoreOpener
	opts   PipelineOptions
}

// NewPipelineUsecase creates a PipelineUsecase.
func NewPipelineUsecase(source PriceSource, open StoreOpener, opts PipelineOptions) *PipelineUsecase {
	return &PipelineUsecase{source: source, open: open, opts: opts}
}

// Run executes the pipeline for req.
//
// The first ticker the source cannot serve aborts the whole run. Tickers replaced
// before the failure stay committed, and no summary is returned.
func (p *PipelineUsecase) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	tickers, err := validate(req)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := slog.With("run_id", runID, "location", req.Location)
	log.Info("pipeline started", "tickers", tickers, "refresh", req.Refresh,
		"start", req.Start.Format(entity.DateLayout), "end", req.End.Format(entity.DateLayout))

	store, err := openStore(p.open, req.Location)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close store", "error", err)
		}
	}()

	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	if p.opts.Prune {
		pruned, err := store.PruneTo(ctx, tickers)
		if err != nil {
			return nil, fmt.Errorf("prune: %w", err)
		}
		log.Info("pruned stale tickers", "rows", pruned)
	}

	loaded := make([]entity.LoadCount, 0, len(tickers))
	for _, t := range tickers {
		if req.Refresh {
			p.invalidate(ctx, log, t)
		}
		n, err := p.loadOne(ctx, store, t, req.Start, req.End)
		if err != nil {
			if len(loaded) > 0 {
				log.Warn("run aborted after partial load; earlier tickers remain committed",
					"failed_ticker", t, "committed", loaded)
			}
			return nil, err
		}
		log.Info("loaded ticker", "ticker", t, "rows", n)
		loaded = append(loaded, entity.LoadCount{Ticker: t, Rows: n})
	}

	summary, err := store.ReadLatestSummary(ctx, tickers)
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}

	log.Info("pipeline finished", "summary_rows", len(summary))
	return &RunResult{RunID: runID, Summary: summary, Loaded: loaded}, nil
}

// invalidate drops the source's cached ranges of ticker. A cache that cannot be
// cleared only costs freshness, so the run continues.
func (p *PipelineUsecase) invalidate(ctx context.Context, log *slog.Logger, ticker string) {
	inv, ok := p.source.(CacheInvalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx, ticker); err != nil {
		log.Warn("failed to invalidate cached prices", "ticker", ticker, "error", err)
		return
	}
	log.Debug("invalidated cached prices", "ticker", ticker)
}

// loadOne fetches, engineers and replaces a single ticker's rows.
func (p *PipelineUsecase) loadOne(ctx context.Context, store PriceStore, ticker string, start, end time.Time) (int, error) {
	bars, err := p.source.Fetch(ctx, ticker, start, end)
	if err != nil {
		if errors.Is(err, ErrDataUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("fetch %s: %w", ticker, err)
	}

	for i := range bars {
		bars[i].Ticker = ticker
	}
	rows := features.Engineer(bars)

	if err := store.ReplaceTicker(ctx, ticker, rows); err != nil {
		return 0, fmt.Errorf("replace %s: %w", ticker, err)
	}
	return len(rows), nil
}

// validate normalizes the tickers and rejects requests that must not reach storage.
func validate(req RunRequest) ([]string, error) {
	tickers := entity.NormalizeTickers(req.Tickers)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: no tickers selected", ErrInvalidRequest)
	}
	if req.Start.IsZero() || req.End.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", ErrInvalidRequest)
	}
	if req.Start.After(req.End) {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRequest,
			req.Start.Format(entity.DateLayout), req.End.Format(entity.DateLayout))
	}
	return tickers, nil
}

func openStore(open StoreOpener, location string) (PriceStore, error) {
	store, err := open(location)
	if err != nil {
		if errors.Is(err, ErrStorageUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, location, err)
	}
	return store, nil
}
