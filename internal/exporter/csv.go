// Package exporter serializes the final aggregated table to CSV.
package exporter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/labeltally/labeltally/internal/errors"
	"github.com/labeltally/labeltally/pkg/types"
)

// Header is the column layout of the exported report. The leading
// unnamed column is a zero-based row index, matching conventional
// tabular exports.
var Header = []string{"", "username", "user_sub", "label_count"}

// WriteCSV writes rows to path in the order given, overwriting any
// existing file. Parent directories are created as needed.
func WriteCSV(rows []types.AggregatedRow, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewExportError("creating output directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewExportError("creating output file", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(Header); err != nil {
		return errors.NewExportError("writing header", err)
	}

	for i, row := range rows {
		record := []string{
			strconv.Itoa(i),
			row.Username,
			row.Sub,
			strconv.Itoa(row.Count),
		}
		if err := w.Write(record); err != nil {
			return errors.NewExportError("writing row", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return errors.NewExportError("flushing output", err)
	}
	return nil
}
