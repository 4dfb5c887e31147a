// Package export renders timetable matrices (time rows by day columns) into
// downloadable documents.
package export

import "fmt"

// Matrix is a rendered weekly timetable. Cells[i][j] is the label shown at
// Rows[i] for Days[j]; empty strings denote free cells.
type Matrix struct {
	Title    string
	Subtitle string
	Days     []string
	Rows     []MatrixRow
}

// MatrixRow is one time slot across every day column.
type MatrixRow struct {
	Time  string
	Cells []string
}

// Header returns the column captions including the leading time column.
func (m Matrix) Header() []string {
	header := make([]string, 0, len(m.Days)+1)
	header = append(header, "Time")
	return append(header, m.Days...)
}

func (m Matrix) validate() error {
	if len(m.Days) == 0 {
		return fmt.Errorf("matrix requires at least one day column")
	}
	for i, row := range m.Rows {
		if len(row.Cells) != len(m.Days) {
			return fmt.Errorf("row %d (%s) has %d cells, want %d", i, row.Time, len(row.Cells), len(m.Days))
		}
	}
	return nil
}
