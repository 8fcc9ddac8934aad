package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is the tabular contract shared by the CSV and PDF exporters: an
// ordered header row plus one string map per event row. Cells missing from
// a row render empty rather than erroring, since not every event carries a
// location or description.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// CSVExporter renders an event table as CSV, for secretaries who want the
// schedule in a spreadsheet.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the dataset, headers first, cells in header order.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}

	record := make([]string, len(data.Headers))
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
