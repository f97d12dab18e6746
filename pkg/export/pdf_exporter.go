package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfLineHeight  = 4.5
	pdfMarginLeft  = 10.0
	pdfMarginTop   = 12.0
	pdfMarginRight = 10.0
)

// PDFExporter renders a Dataset as a landscape A4 table whose rows grow to
// fit multi-line cells.
type PDFExporter struct {
	// FirstColumnWidth fixes the width of the leading column in mm; zero
	// splits the page evenly.
	FirstColumnWidth float64
}

// NewPDFExporter constructs a PDF exporter with a narrow time column.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{FirstColumnWidth: 28}
}

// Render creates the PDF document.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMarginLeft, pdfMarginTop, pdfMarginRight)
	pdf.SetAutoPageBreak(true, pdfMarginTop)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(data.Title)), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	pageWidth, pageHeight := pdf.GetPageSize()
	widths := e.columnWidths(pageWidth-pdfMarginLeft-pdfMarginRight, len(data.Headers))

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 8, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		lines := 1
		cells := make([][]string, len(data.Headers))
		for i, header := range data.Headers {
			cells[i] = wrapCell(pdf, tr(row[header]), widths[i]-2)
			if len(cells[i]) > lines {
				lines = len(cells[i])
			}
		}
		height := float64(lines)*pdfLineHeight + 2

		if pdf.GetY()+height > pageHeight-pdfMarginTop {
			pdf.AddPage()
		}
		x, y := pdf.GetXY()
		for i := range data.Headers {
			pdf.Rect(x, y, widths[i], height, "D")
			pdf.SetXY(x+1, y+1)
			pdf.MultiCell(widths[i]-2, pdfLineHeight, strings.Join(cells[i], "\n"), "", "L", false)
			x += widths[i]
		}
		pdf.SetXY(pdfMarginLeft, y+height)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) columnWidths(total float64, n int) []float64 {
	widths := make([]float64, n)
	first := e.FirstColumnWidth
	if first <= 0 || n == 1 || first >= total {
		for i := range widths {
			widths[i] = total / float64(n)
		}
		return widths
	}
	widths[0] = first
	rest := (total - first) / float64(n-1)
	for i := 1; i < n; i++ {
		widths[i] = rest
	}
	return widths
}

func wrapCell(pdf *gofpdf.Fpdf, text string, width float64) []string {
	if text == "" {
		return []string{""}
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, part := range pdf.SplitLines([]byte(line), width) {
			out = append(out, string(part))
		}
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}
