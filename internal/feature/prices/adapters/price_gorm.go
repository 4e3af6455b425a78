// Package adapters provides the persisted prices table for the prices feature.
package adapters

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/guregu/null/v6"
	"gorm.io/gorm"

	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/usecase"
)

// replaceBatchSize keeps a multi-row insert under sqlite's bound-variable limit.
const replaceBatchSize = 200

// createPricesSQLite is the table layout other tools rely on.
const createPricesSQLite = `
CREATE TABLE IF NOT EXISTS prices (
	ticker TEXT NOT NULL,
	date   TEXT NOT NULL,
	open REAL, high REAL, low REAL, close REAL, adj_close REAL,
	volume INTEGER,
	daily_return REAL,
	ma_20 REAL,
	ma_50 REAL,
	vol_20 REAL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (ticker, date)
)`

// createPricesPostgres is the same layout with 8-byte floats; postgres REAL is 4 bytes.
const createPricesPostgres = `
CREATE TABLE IF NOT EXISTS prices (
	ticker TEXT NOT NULL,
	date   TEXT NOT NULL,
	open DOUBLE PRECISION, high DOUBLE PRECISION, low DOUBLE PRECISION,
	close DOUBLE PRECISION, adj_close DOUBLE PRECISION,
	volume BIGINT,
	daily_return DOUBLE PRECISION,
	ma_20 DOUBLE PRECISION,
	ma_50 DOUBLE PRECISION,
	vol_20 DOUBLE PRECISION,
	created_at TEXT NOT NULL,
	PRIMARY KEY (ticker, date)
)`

const latestSummarySQL = `
WITH last AS (
	SELECT ticker, MAX(date) AS d
	FROM prices
	WHERE ticker IN ?
	GROUP BY ticker
)
SELECT p.ticker, p.date, p.adj_close, p.ma_20, p.ma_50, p.vol_20
FROM prices p JOIN last l ON p.ticker = l.ticker AND p.date = l.d
ORDER BY p.vol_20 IS NULL, p.vol_20 DESC, p.ticker ASC`

type priceGorm struct {
	db  *gorm.DB
	now func() time.Time
}

var _ usecase.PriceStore = (*priceGorm)(nil)

// NewPriceStore wraps an open gorm connection as the prices table.
func NewPriceStore(db *gorm.DB) *priceGorm {
	return &priceGorm{db: db, now: time.Now}
}

// PriceModel is one row of the prices table.
type PriceModel struct {
	Ticker      string     `gorm:"column:ticker;primaryKey"`
	Date        string     `gorm:"column:date;primaryKey"`
	Open        null.Float `gorm:"column:open"`
	High        null.Float `gorm:"column:high"`
	Low         null.Float `gorm:"column:low"`
	Close       null.Float `gorm:"column:close"`
	AdjClose    null.Float `gorm:"column:adj_close"`
	Volume      int64      `gorm:"column:volume"`
	DailyReturn null.Float `gorm:"column:daily_return"`
	MA20        null.Float `gorm:"column:ma_20"`
	MA50        null.Float `gorm:"column:ma_50"`
	Vol20       null.Float `gorm:"column:vol_20"`
	LoadedAt    string     `gorm:"column:created_at"`
}

func (PriceModel) TableName() string {
	return "prices"
}

func toModel(e entity.FeaturedBar, ticker, loadedAt string) PriceModel {
	return PriceModel{
		Ticker:      ticker,
		Date:        e.Date.UTC().Format(entity.DateLayout),
		Open:        priceValue(e.Open),
		High:        priceValue(e.High),
		Low:         priceValue(e.Low),
		Close:       priceValue(e.Close),
		AdjClose:    priceValue(e.AdjClose),
		Volume:      e.Volume,
		DailyReturn: e.DailyReturn,
		MA20:        e.MA20,
		MA50:        e.MA50,
		Vol20:       e.Vol20,
		LoadedAt:    loadedAt,
	}
}

func (m PriceModel) toEntity() (entity.FeaturedBar, error) {
	d, err := entity.ParseDate(m.Date)
	if err != nil {
		return entity.FeaturedBar{}, fmt.Errorf("parse date %q: %w", m.Date, err)
	}
	return entity.FeaturedBar{
		PriceBar: entity.PriceBar{
			Ticker:   m.Ticker,
			Date:     d,
			Open:     priceFloat(m.Open),
			High:     priceFloat(m.High),
			Low:      priceFloat(m.Low),
			Close:    priceFloat(m.Close),
			AdjClose: priceFloat(m.AdjClose),
			Volume:   m.Volume,
		},
		DailyReturn: m.DailyReturn,
		MA20:        m.MA20,
		MA50:        m.MA50,
		Vol20:       m.Vol20,
	}, nil
}

// priceValue stores a missing (NaN) price as NULL.
func priceValue(f float64) null.Float {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// priceFloat reads a NULL price back as NaN.
func priceFloat(n null.Float) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

func (r *priceGorm) EnsureSchema(ctx context.Context) error {
	ddl := createPricesSQLite
	if r.db.Dialector.Name() == "postgres" {
		ddl = createPricesPostgres
	}
	if err := r.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return storageErr("create prices table", err)
	}
	return nil
}

func (r *priceGorm) ReplaceTicker(ctx context.Context, ticker string, rows []entity.FeaturedBar) error {
	loadedAt := r.now().UTC().Format(time.RFC3339)
	ms := make([]PriceModel, 0, len(rows))
	for _, e := range rows {
		ms = append(ms, toModel(e, ticker, loadedAt))
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ticker = ?", ticker).Delete(&PriceModel{}).Error; err != nil {
			return err
		}
		if len(ms) == 0 {
			return nil
		}
		return tx.CreateInBatches(&ms, replaceBatchSize).Error
	})
	if err != nil {
		return storageErr("replace "+ticker, err)
	}
	return nil
}

func (r *priceGorm) PruneTo(ctx context.Context, tickers []string) (int64, error) {
	var res *gorm.DB
	if len(tickers) == 0 {
		res = r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&PriceModel{})
	} else {
		res = r.db.WithContext(ctx).Where("ticker NOT IN ?", tickers).Delete(&PriceModel{})
	}
	if res.Error != nil {
		return 0, storageErr("prune", res.Error)
	}
	return res.RowsAffected, nil
}

type summaryRecord struct {
	Ticker   string     `gorm:"column:ticker"`
	Date     string     `gorm:"column:date"`
	AdjClose null.Float `gorm:"column:adj_close"`
	MA20     null.Float `gorm:"column:ma_20"`
	MA50     null.Float `gorm:"column:ma_50"`
	Vol20    null.Float `gorm:"column:vol_20"`
}

func (r *priceGorm) ReadLatestSummary(ctx context.Context, tickers []string) ([]entity.SummaryRow, error) {
	if len(tickers) == 0 {
		return []entity.SummaryRow{}, nil
	}
	var recs []summaryRecord
	if err := r.db.WithContext(ctx).Raw(latestSummarySQL, tickers).Scan(&recs).Error; err != nil {
		return nil, storageErr("read summary", err)
	}

	out := make([]entity.SummaryRow, 0, len(recs))
	for _, rec := range recs {
		d, err := entity.ParseDate(rec.Date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", rec.Date, err)
		}
		out = append(out, entity.SummaryRow{
			Ticker:   rec.Ticker,
			Date:     d,
			AdjClose: priceFloat(rec.AdjClose),
			MA20:     rec.MA20,
			MA50:     rec.MA50,
			Vol20:    rec.Vol20,
		})
	}
	return out, nil
}

type seriesRecord struct {
	Date     string     `gorm:"column:date"`
	AdjClose null.Float `gorm:"column:adj_close"`
	MA20     null.Float `gorm:"column:ma_20"`
	MA50     null.Float `gorm:"column:ma_50"`
}

func (r *priceGorm) FindSeries(ctx context.Context, ticker string) ([]entity.SeriesPoint, error) {
	var recs []seriesRecord
	if err := r.db.WithContext(ctx).
		Model(&PriceModel{}).
		Select("date", "adj_close", "ma_20", "ma_50").
		Where("ticker = ?", ticker).
		Order("date ASC").
		Scan(&recs).Error; err != nil {
		return nil, storageErr("find series", err)
	}

	out := make([]entity.SeriesPoint, 0, len(recs))
	for _, rec := range recs {
		d, err := entity.ParseDate(rec.Date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", rec.Date, err)
		}
		out = append(out, entity.SeriesPoint{Date: d, AdjClose: priceFloat(rec.AdjClose), MA20: rec.MA20, MA50: rec.MA50})
	}
	return out, nil
}

func (r *priceGorm) FindFeatured(ctx context.Context, ticker string) ([]entity.FeaturedBar, error) {
	var ms []PriceModel
	if err := r.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("date ASC").
		Find(&ms).Error; err != nil {
		return nil, storageErr("find rows", err)
	}

	out := make([]entity.FeaturedBar, 0, len(ms))
	for _, m := range ms {
		e, err := m.toEntity()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *priceGorm) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", usecase.ErrStorageUnavailable, op, err)
}
