package export

import (
	"github.com/parquet-go/parquet-go"

	"stock_pipeline/internal/feature/prices/domain/entity"
)

// ParquetExporter writes rows as a parquet file with optional feature columns.
type ParquetExporter struct{}

func (ParquetExporter) Extension() string { return "parquet" }

func (ParquetExporter) Save(bars []entity.FeaturedBar, path string) error {
	return parquet.WriteFile(path, ToRows(bars))
}
