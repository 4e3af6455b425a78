package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/usecase"
)

// captureExporter keeps what it was asked to save.
type captureExporter struct {
	rows []entity.FeaturedBar
	path string
	err  error
}

func (c *captureExporter) Extension() string { return "capture" }

func (c *captureExporter) Save(rows []entity.FeaturedBar, path string) error {
	c.rows, c.path = rows, path
	return c.err
}

func TestExportUsecase_Export(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	store.replaced["AAA"] = []entity.FeaturedBar{{PriceBar: entity.PriceBar{Ticker: "AAA", Date: day(0)}}}
	opened := 0
	exp := &captureExporter{}
	uc := usecase.NewExportUsecase(openerFor(store, &opened), func(format string) (usecase.Exporter, error) {
		assert.Equal(t, "capture", format)
		return exp, nil
	})

	n, err := uc.Export(context.Background(), "x.db", "aaa", "capture", "/tmp/AAA.capture")

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "/tmp/AAA.capture", exp.path)
	assert.Equal(t, store.replaced["AAA"], exp.rows)
	assert.Equal(t, []string{"schema", "featured AAA", "close"}, store.ops)
}

func TestExportUsecase_Export_Errors(t *testing.T) {
	t.Parallel()

	unknownFormat := func(format string) (usecase.Exporter, error) {
		return nil, errors.New("unsupported export format")
	}

	testCases := []struct {
		name       string
		ticker     string
		factory    usecase.ExporterFactory
		saveErr    error
		wantErr    error
		wantOpened int
	}{
		{"blank ticker", " ", unknownFormat, nil, usecase.ErrInvalidRequest, 0},
		{"unknown format", "AAA", unknownFormat, nil, usecase.ErrInvalidRequest, 0},
		{"save fails", "AAA", nil, errors.New("disk full"), nil, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			opened := 0
			factory := tc.factory
			if factory == nil {
				factory = func(format string) (usecase.Exporter, error) {
					return &captureExporter{err: tc.saveErr}, nil
				}
			}
			uc := usecase.NewExportUsecase(openerFor(newRecordingStore(), &opened), factory)

			_, err := uc.Export(context.Background(), "x.db", tc.ticker, "csv", "out.csv")

			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			if tc.saveErr != nil {
				assert.ErrorIs(t, err, tc.saveErr)
			}
			assert.Equal(t, tc.wantOpened, opened)
		})
	}
}
