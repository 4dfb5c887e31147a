package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders timetable matrices as CSV. Several matrices are written
// one after another, each preceded by its title row and separated by a blank
// line.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the matrices.
func (e *CSVExporter) Render(matrices []Matrix) ([]byte, error) {
	if len(matrices) == 0 {
		return nil, fmt.Errorf("csv requires at least one timetable")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	for i, m := range matrices {
		if err := m.validate(); err != nil {
			return nil, err
		}
		if i > 0 {
			if err := writer.Write([]string{""}); err != nil {
				return nil, fmt.Errorf("write csv separator: %w", err)
			}
		}
		if m.Title != "" {
			if err := writer.Write([]string{m.Title}); err != nil {
				return nil, fmt.Errorf("write csv title: %w", err)
			}
		}
		if err := writer.Write(m.Header()); err != nil {
			return nil, fmt.Errorf("write csv headers: %w", err)
		}
		for _, row := range m.Rows {
			record := make([]string, 0, len(row.Cells)+1)
			record = append(record, row.Time)
			record = append(record, row.Cells...)
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
