package export

import (
	"fmt"
	"strings"

	"stock_pipeline/internal/feature/prices/usecase"
)

// Formats lists the accepted format names.
var Formats = []string{"csv", "json", "parquet"}

// New returns the exporter for format (csv, json, parquet).
func New(format string) (usecase.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVExporter{}, nil
	case "json":
		return JSONExporter{}, nil
	case "parquet":
		return ParquetExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (use: %s)", format, strings.Join(Formats, ", "))
	}
}
