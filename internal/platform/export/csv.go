package export

import (
	"os"

	"github.com/gocarina/gocsv"

	"stock_pipeline/internal/feature/prices/domain/entity"
)

// CSVExporter writes rows with a header line. Undefined values are empty cells.
type CSVExporter struct{}

func (CSVExporter) Extension() string { return "csv" }

func (CSVExporter) Save(bars []entity.FeaturedBar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gocsv.MarshalFile(ToRows(bars), f); err != nil {
		return err
	}
	return f.Sync()
}
