package export

import (
	"encoding/json"
	"os"

	"stock_pipeline/internal/feature/prices/domain/entity"
)

// JSONExporter writes an indented JSON array. Undefined values are null.
type JSONExporter struct{}

func (JSONExporter) Extension() string { return "json" }

func (JSONExporter) Save(bars []entity.FeaturedBar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(ToRows(bars))
}
