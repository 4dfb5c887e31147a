package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	xlsxMaxSheetName = 31
	xlsxDefaultSheet = "Sheet1"
)

// XLSXExporter renders each timetable matrix on its own worksheet.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render builds a workbook with one sheet per matrix: title, optional
// subtitle, a header row, then one row per time slot.
func (e *XLSXExporter) Render(matrices []Matrix) ([]byte, error) {
	if len(matrices) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one timetable")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, fmt.Errorf("xlsx title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E6E6E6"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx header style: %w", err)
	}
	cellStyle, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return nil, fmt.Errorf("xlsx cell style: %w", err)
	}

	used := make(map[string]int, len(matrices))
	for i, m := range matrices {
		if err := m.validate(); err != nil {
			return nil, err
		}
		sheet := uniqueSheetName(m.Title, i, used)
		index, err := f.NewSheet(sheet)
		if err != nil {
			return nil, fmt.Errorf("xlsx sheet %q: %w", sheet, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}

		row := 1
		if m.Title != "" {
			if err := setRow(f, sheet, row, []string{m.Title}); err != nil {
				return nil, err
			}
			if err := f.SetCellStyle(sheet, "A1", "A1", titleStyle); err != nil {
				return nil, err
			}
			row++
		}
		if m.Subtitle != "" {
			if err := setRow(f, sheet, row, []string{m.Subtitle}); err != nil {
				return nil, err
			}
			row++
		}
		if row > 1 {
			row++
		}

		header := m.Header()
		if err := setRow(f, sheet, row, header); err != nil {
			return nil, err
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(header), row)
		if err := f.SetCellStyle(sheet, first, last, headerStyle); err != nil {
			return nil, err
		}
		bodyStart := row + 1

		for _, r := range m.Rows {
			row++
			values := make([]string, 0, len(r.Cells)+1)
			values = append(values, r.Time)
			values = append(values, r.Cells...)
			if err := setRow(f, sheet, row, values); err != nil {
				return nil, err
			}
		}
		if row >= bodyStart {
			first, _ = excelize.CoordinatesToCellName(1, bodyStart)
			last, _ = excelize.CoordinatesToCellName(len(header), row)
			if err := f.SetCellStyle(sheet, first, last, cellStyle); err != nil {
				return nil, err
			}
		}

		lastCol, _ := excelize.ColumnNumberToName(len(header))
		if err := f.SetColWidth(sheet, "A", "A", 14); err != nil {
			return nil, err
		}
		if len(header) > 1 {
			if err := f.SetColWidth(sheet, "B", lastCol, 24); err != nil {
				return nil, err
			}
		}
	}

	if _, taken := used[xlsxDefaultSheet]; !taken {
		if err := f.DeleteSheet(xlsxDefaultSheet); err != nil {
			return nil, fmt.Errorf("xlsx drop default sheet: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("xlsx set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// uniqueSheetName strips characters Excel forbids in sheet names, truncates to
// the 31 character limit and suffixes duplicates.
func uniqueSheetName(title string, index int, used map[string]int) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	name = strings.Trim(name, "'")
	if name == "" {
		name = fmt.Sprintf("Timetable %d", index+1)
	}
	if len([]rune(name)) > xlsxMaxSheetName {
		name = string([]rune(name)[:xlsxMaxSheetName])
	}
	base := name
	for {
		n := used[name]
		if n == 0 {
			used[name] = 1
			return name
		}
		used[base]++
		suffix := fmt.Sprintf(" (%d)", used[base])
		trimmed := []rune(base)
		if len(trimmed)+len(suffix) > xlsxMaxSheetName {
			trimmed = trimmed[:xlsxMaxSheetName-len(suffix)]
		}
		name = string(trimmed) + suffix
	}
}
