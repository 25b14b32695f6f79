package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// ContentType reports the MIME type of rendered output.
func (e *CSVExporter) ContentType() string { return "text/csv" }

// Render produces CSV encoded bytes for the dataset. Cells that spreadsheet apps would evaluate as formulas are quoted with a leading apostrophe.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Columns) == 0 {
		return nil, fmt.Errorf("csv requires at least one column")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.labels()); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Columns))
		for i, col := range data.Columns {
			record[i] = sanitizeCell(row[col.Key])
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

func sanitizeCell(value string) string {
	if value == "" {
		return value
	}
	if strings.ContainsRune("=+-@\t\r", rune(value[0])) {
		return "'" + value
	}
	return value
}
