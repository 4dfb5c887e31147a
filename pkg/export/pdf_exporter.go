package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 277.0 // A4 landscape minus margins
	pdfTimeColumn = 27.0
	pdfLineHeight = 4.5
)

// PDFExporter renders one landscape page per timetable matrix.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with a titled grid per matrix.
func (e *PDFExporter) Render(matrices []Matrix) ([]byte, error) {
	if len(matrices) == 0 {
		return nil, fmt.Errorf("pdf requires at least one timetable")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)

	for _, m := range matrices {
		if err := m.validate(); err != nil {
			return nil, err
		}
		pdf.AddPage()
		if m.Title != "" {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 9, strings.ToUpper(m.Title), "", 1, "C", false, 0, "")
		}
		if m.Subtitle != "" {
			pdf.SetFont("Arial", "", 9)
			pdf.CellFormat(0, 6, m.Subtitle, "", 1, "C", false, 0, "")
		}
		pdf.Ln(3)

		dayWidth := (pdfPageWidth - pdfTimeColumn) / float64(len(m.Days))
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(pdfTimeColumn, 8, "Time", "1", 0, "C", true, 0, "")
		for _, day := range m.Days {
			pdf.CellFormat(dayWidth, 8, day, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 8)
		for _, row := range m.Rows {
			lines := 1
			for _, cell := range row.Cells {
				if n := len(pdf.SplitLines([]byte(cell), dayWidth-2)); n > lines {
					lines = n
				}
			}
			height := float64(lines)*pdfLineHeight + 2
			x, y := pdf.GetXY()
			pdf.Rect(x, y, pdfTimeColumn, height, "D")
			pdf.SetXY(x, y+1)
			pdf.MultiCell(pdfTimeColumn, pdfLineHeight, row.Time, "", "C", false)
			for i, cell := range row.Cells {
				cx := x + pdfTimeColumn + float64(i)*dayWidth
				pdf.Rect(cx, y, dayWidth, height, "D")
				pdf.SetXY(cx+1, y+1)
				pdf.MultiCell(dayWidth-2, pdfLineHeight, cell, "", "C", false)
			}
			pdf.SetXY(x, y+height)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
