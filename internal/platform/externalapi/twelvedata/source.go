package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/usecase"
	"stock_pipeline/internal/platform/externalapi/twelvedata/dto"
	"stock_pipeline/internal/shared/ratelimiter"
)

// maxOutputSize is the largest page the time_series endpoint returns.
const maxOutputSize = 5000

// Source is a PriceSource backed by the Twelve Data time_series endpoint.
// Twelve Data has no adjusted close on this endpoint, so AdjClose mirrors Close.
type Source struct {
	cfg         Config
	client      *http.Client
	rateLimiter ratelimiter.RateLimiterInterface
}

// Compile-time check that Source implements PriceSource.
var _ usecase.PriceSource = (*Source)(nil)

// NewSource creates a Source. A nil rate limiter disables throttling.
func NewSource(cfg Config, client *http.Client, rl ratelimiter.RateLimiterInterface) *Source {
	return &Source{cfg: cfg, client: client, rateLimiter: rl}
}

// Fetch retrieves daily bars for ticker in [start, end] inclusive.
func (s *Source) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]entity.PriceBar, error) {
	if s.rateLimiter != nil {
		if err := s.rateLimiter.WaitIfNeeded(ctx); err != nil {
			return nil, err
		}
	}

	from, to := entity.TruncateDay(start), entity.TruncateDay(end)
	q := url.Values{}
	q.Set("symbol", ticker)
	q.Set("interval", "1day")
	q.Set("start_date", from.Format(entity.DateLayout))
	// end_date is exclusive on the API side
	q.Set("end_date", to.AddDate(0, 0, 1).Format(entity.DateLayout))
	q.Set("order", "ASC")
	q.Set("outputsize", strconv.Itoa(maxOutputSize))
	q.Set("apikey", s.cfg.TwelveDataAPIKey)

	u := fmt.Sprintf("%s/time_series?%s", s.cfg.BaseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: twelvedata has no symbol %s", usecase.ErrDataUnavailable, ticker)
	}
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("twelvedata http %d", res.StatusCode)
	}

	var body dto.TimeSeriesResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Status == "error" {
		return apiError(ticker, body)
	}

	bars := make([]entity.PriceBar, 0, len(body.Values))
	for _, v := range body.Values {
		tm, err := time.Parse("2006-01-02 15:04:05", v.Datetime)
		if err != nil {
			tm, err = time.Parse("2006-01-02", v.Datetime)
			if err != nil {
				return nil, fmt.Errorf("parse time %q: %w", v.Datetime, err)
			}
		}
		o, err := strconv.ParseFloat(v.Open, 64)
		if err != nil {
			return nil, fmt.Errorf("parse open %q: %w", v.Open, err)
		}
		h, err := strconv.ParseFloat(v.High, 64)
		if err != nil {
			return nil, fmt.Errorf("parse high %q: %w", v.High, err)
		}
		l, err := strconv.ParseFloat(v.Low, 64)
		if err != nil {
			return nil, fmt.Errorf("parse low %q: %w", v.Low, err)
		}
		c, err := strconv.ParseFloat(v.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("parse close %q: %w", v.Close, err)
		}
		var vol64 int64
		if v.Volume != "" {
			vol64, err = strconv.ParseInt(v.Volume, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse volume %q: %w", v.Volume, err)
			}
			if vol64 < 0 {
				return nil, fmt.Errorf("parse volume %q: negative volume", v.Volume)
			}
		}

		day := entity.TruncateDay(tm)
		if day.Before(from) || day.After(to) {
			continue
		}
		bars = append(bars, entity.PriceBar{
			Ticker:   entity.NormalizeTicker(ticker),
			Date:     day,
			Open:     o,
			High:     h,
			Low:      l,
			Close:    c,
			AdjClose: c,
			Volume:   vol64,
		})
	}
	slices.SortStableFunc(bars, func(a, b entity.PriceBar) int { return a.Date.Compare(b.Date) })
	return bars, nil
}

// apiError maps an error body. "No data is available" means the symbol exists but the
// range is empty; an unknown symbol means there is no data at all.
func apiError(ticker string, body dto.TimeSeriesResponse) ([]entity.PriceBar, error) {
	msg := strings.ToLower(body.Message)
	switch {
	case strings.Contains(msg, "no data is available"):
		return []entity.PriceBar{}, nil
	case strings.Contains(msg, "not found") || (strings.Contains(msg, "symbol") && body.Code == http.StatusBadRequest):
		return nil, fmt.Errorf("%w: twelvedata: %s", usecase.ErrDataUnavailable, body.Message)
	default:
		return nil, fmt.Errorf("twelvedata: %s", body.Message)
	}
}
