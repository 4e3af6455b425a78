package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guregu/null/v6"
	"github.com/urfave/cli"

	"stock_pipeline/internal/app/di"
	"stock_pipeline/internal/app/router"
	"stock_pipeline/internal/config"
	"stock_pipeline/internal/feature/prices/domain/entity"
	priceshandler "stock_pipeline/internal/feature/prices/transport/handler"
	"stock_pipeline/internal/feature/prices/transport/http/dto"
	"stock_pipeline/internal/feature/prices/usecase"
	healthhandler "stock_pipeline/internal/platform/http/handler"
	"stock_pipeline/internal/platform/logging"
)

const runTimeout = 10 * time.Minute

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "pipeline"
	app.Usage = "daily price feature pipeline"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "optional YAML config file (default ./pipeline.yaml)"},
	}
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "load tickers, engineer features and print the latest summary",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "tickers", Usage: "comma-separated tickers, e.g. RY.TO,SHOP.TO"},
				cli.StringFlag{Name: "start", Usage: "first day YYYY-MM-DD (inclusive)"},
				cli.StringFlag{Name: "end", Usage: "last day YYYY-MM-DD (inclusive)"},
				cli.StringFlag{Name: "db", Usage: "storage location (sqlite path or postgres DSN); overrides DB_PATH"},
				cli.BoolFlag{Name: "json", Usage: "print the result as JSON"},
				cli.BoolFlag{Name: "refresh", Usage: "drop cached source data for the tickers before fetching"},
			},
			Action: runAction,
		},
		{
			Name:  "series",
			Usage: "print a ticker's persisted chart series as JSON",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "ticker"},
				cli.StringFlag{Name: "db", Usage: "storage location; overrides DB_PATH"},
			},
			Action: seriesAction,
		},
		{
			Name:  "export",
			Usage: "write a ticker's persisted rows to a csv, json or parquet file",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "ticker"},
				cli.StringFlag{Name: "format", Value: "csv", Usage: "csv, json or parquet"},
				cli.StringFlag{Name: "out", Usage: "output path (default <TICKER>.<format>)"},
				cli.StringFlag{Name: "db", Usage: "storage location; overrides DB_PATH"},
			},
			Action: exportAction,
		},
		{
			Name:  "serve",
			Usage: "serve the pipeline over HTTP",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "port", Usage: "listen port; overrides SERVER_PORT"},
			},
			Action: serveAction,
		},
	}
	return app
}

// loadConfig reads the configuration, applies the --db override and installs the logger.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.DBPath = db
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}
	start, err := entity.ParseDate(c.String("start"))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("invalid --start %q", c.String("start")), 2)
	}
	end, err := entity.ParseDate(c.String("end"))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("invalid --end %q", c.String("end")), 2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	src, closeSrc, err := di.NewPriceSource(ctx, cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}
	defer closeSrc()

	res, err := di.NewPipelineUsecase(cfg, src).Run(ctx, usecase.RunRequest{
		Tickers:  strings.Split(c.String("tickers"), ","),
		Start:    start,
		End:      end,
		Location: cfg.DBPath,
		Refresh:  c.Bool("refresh"),
	})
	if err != nil {
		return cli.NewExitError(err.Error(), exitCode(err))
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, dto.NewRunResponse(res.RunID, res.Summary, res.Loaded))
	}
	return writeSummary(c.App.Writer, res)
}

func seriesAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}
	points, err := di.NewSeriesUsecase(cfg).GetSeries(context.Background(), cfg.DBPath, c.String("ticker"))
	if err != nil {
		return cli.NewExitError(err.Error(), exitCode(err))
	}
	return writeJSON(c.App.Writer, dto.NewSeries(points))
}

func exportAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}
	ticker, format := c.String("ticker"), strings.ToLower(c.String("format"))
	out := c.String("out")
	if out == "" {
		out = entity.NormalizeTicker(ticker) + "." + format
	}

	n, err := di.NewExportUsecase(cfg).Export(context.Background(), cfg.DBPath, ticker, format, out)
	if err != nil {
		return cli.NewExitError(err.Error(), exitCode(err))
	}
	fmt.Fprintf(c.App.Writer, "wrote %d rows to %s\n", n, out)
	return nil
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}
	if p := c.Int("port"); p > 0 {
		cfg.ServerPort = p
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, closeSrc, err := di.NewPriceSource(ctx, cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}
	defer closeSrc()

	prices := priceshandler.NewPricesHandler(di.NewPipelineUsecase(cfg, src), di.NewSeriesUsecase(cfg),
		cfg.DBPath, cfg.AllowedLocations...)
	r := router.NewRouter(prices, healthhandler.Health(di.NewStorageCheck(cfg.DBPath)), cfg.CORSAllowedOrigins)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr, "source", cfg.Source)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return cli.NewExitError(err.Error(), 1)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// exitCode distinguishes caller mistakes (2) from missing data (3) and storage failures (4).
func exitCode(err error) int {
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest):
		return 2
	case errors.Is(err, usecase.ErrDataUnavailable):
		return 3
	case errors.Is(err, usecase.ErrStorageUnavailable):
		return 4
	default:
		return 1
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSummary(w io.Writer, res *usecase.RunResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tDATE\tADJ_CLOSE\tMA_20\tMA_50\tVOL_20")
	for _, s := range res.Summary {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Ticker, s.Date.Format(entity.DateLayout),
			num(null.FloatFrom(s.AdjClose)), num(s.MA20), num(s.MA50), num(s.Vol20))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, l := range res.Loaded {
		fmt.Fprintf(w, "loaded %s: %d rows\n", l.Ticker, l.Rows)
	}
	return nil
}

// num prints an undefined value as "-".
func num(f null.Float) string {
	if !f.Valid || math.IsNaN(f.Float64) {
		return "-"
	}
	return strconv.FormatFloat(f.Float64, 'f', 4, 64)
}
