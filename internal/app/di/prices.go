// Package di wires configured components for the CLI and the HTTP server.
package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stock_pipeline/internal/config"
	"stock_pipeline/internal/feature/prices/adapters"
	"stock_pipeline/internal/feature/prices/usecase"
	"stock_pipeline/internal/platform/cache"
	"stock_pipeline/internal/platform/db"
	"stock_pipeline/internal/platform/export"
	"stock_pipeline/internal/platform/externalapi/csvfile"
	"stock_pipeline/internal/platform/externalapi/twelvedata"
	infrahttp "stock_pipeline/internal/platform/http"
	infraredis "stock_pipeline/internal/platform/redis"
	"stock_pipeline/internal/shared/ratelimiter"
)

// NewStoreOpener opens the gorm-backed prices table at a location.
// Postgres locations are retried for up to retryFor.
func NewStoreOpener(retryFor time.Duration) usecase.StoreOpener {
	return func(location string) (usecase.PriceStore, error) {
		gdb, err := db.Open(location, retryFor)
		if err != nil {
			return nil, err
		}
		return adapters.NewPriceStore(gdb), nil
	}
}

// NewPriceSource builds the configured source, wrapped with the Redis cache when
// REDIS_ADDR is set and reachable. The returned func releases the Redis client.
func NewPriceSource(ctx context.Context, cfg *config.Config) (usecase.PriceSource, func(), error) {
	var src usecase.PriceSource
	switch cfg.Source {
	case config.SourceCSV:
		src = csvfile.NewSource(cfg.DataDir)
	case config.SourceTwelveData:
		tdCfg := twelvedata.NewConfig(cfg.TwelveDataAPIKey, cfg.TwelveDataBaseURL, cfg.HTTPTimeout)
		rl := ratelimiter.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
		client := infrahttp.NewHTTPClient(infrahttp.ClientOptions{Timeout: tdCfg.Timeout, MaxConnsPerHost: 2})
		src = twelvedata.NewSource(tdCfg, client, rl)
	default:
		return nil, nil, fmt.Errorf("unknown source %q", cfg.Source)
	}

	noop := func() {}
	if cfg.RedisAddr == "" {
		return src, noop, nil
	}

	rdb, err := infraredis.NewRedisClient(ctx, infraredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		slog.Warn("Redis unavailable, running without cache", "address", cfg.RedisAddr, "error", err)
		return src, noop, nil
	}

	closeFn := func() {
		if err := rdb.Close(); err != nil {
			slog.Error("failed to close Redis client", "error", err)
		}
	}
	return cache.NewCachingPriceSource(rdb, cfg.CacheTTL, src, cfg.Source), closeFn, nil
}

// NewPipelineUsecase wires the orchestrator.
func NewPipelineUsecase(cfg *config.Config, src usecase.PriceSource) *usecase.PipelineUsecase {
	opts := usecase.DefaultPipelineOptions()
	opts.Prune = cfg.Prune
	return usecase.NewPipelineUsecase(src, NewStoreOpener(cfg.DBConnectTimeout), opts)
}

// NewSeriesUsecase wires the chart read path.
func NewSeriesUsecase(cfg *config.Config) *usecase.SeriesUsecase {
	return usecase.NewSeriesUsecase(NewStoreOpener(cfg.DBConnectTimeout))
}

// NewExportUsecase wires the exporter.
func NewExportUsecase(cfg *config.Config) *usecase.ExportUsecase {
	return usecase.NewExportUsecase(NewStoreOpener(cfg.DBConnectTimeout), export.New)
}

// NewStorageCheck pings the default storage location. Used by /healthz.
func NewStorageCheck(location string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		gdb, err := db.Open(location, 0)
		if err != nil {
			return err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		defer func() { _ = sqlDB.Close() }()
		return sqlDB.PingContext(ctx)
	}
}
