package service

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
	"github.com/noah-isme/sma-timetable-viewer/pkg/export"
)

const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"

	lunchCellText = "Lunch break"
	timeHeader    = "Time"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportResult is a rendered grid ready to send as an attachment.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders class grids as downloadable files.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService; nil renderers get the defaults.
func NewExportService(csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger}
}

// ExportGrid renders grid in the requested format (csv when empty).
func (s *ExportService) ExportGrid(grid *dto.ClassGrid, format string) (*ExportResult, error) {
	if format == "" {
		format = ExportFormatCSV
	}
	dataset := GridDataset(grid)
	base := "timetable-" + sanitizeFilename(grid.ClassName)

	switch format {
	case ExportFormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, fmt.Errorf("render csv grid: %w", err)
		}
		return &ExportResult{Filename: base + ".csv", ContentType: "text/csv", Data: data}, nil
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset)
		if err != nil {
			return nil, fmt.Errorf("render pdf grid: %w", err)
		}
		return &ExportResult{Filename: base + ".pdf", ContentType: "application/pdf", Data: data}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// GridDataset lays a grid out as one row per time row and one column per weekday.
func GridDataset(grid *dto.ClassGrid) export.Dataset {
	headers := make([]string, 0, len(grid.Columns)+1)
	headers = append(headers, timeHeader)
	for _, col := range grid.Columns {
		headers = append(headers, col.Label)
	}

	labels := make(map[string]string, len(grid.Columns))
	for _, col := range grid.Columns {
		labels[col.Day.String()] = col.Label
	}

	rows := make([]map[string]string, 0, len(grid.Rows))
	for _, row := range grid.Rows {
		record := map[string]string{timeHeader: row.Label}
		for _, cell := range row.Cells {
			record[labels[cell.Day.String()]] = CellText(cell)
		}
		rows = append(rows, record)
	}

	title := "Class " + grid.ClassName
	if grid.Grade != nil {
		title = fmt.Sprintf("%s (grade %d)", title, *grid.Grade)
	}
	return export.Dataset{Title: title, Headers: headers, Rows: rows}
}

// CellText is the plain-text rendering of a grid cell; lesson cells span
// three lines: subject, teacher, then room and room type.
func CellText(cell dto.GridCell) string {
	switch cell.Kind {
	case dto.CellLesson:
		if cell.Lesson == nil {
			return ""
		}
		return strings.Join([]string{
			cell.Lesson.Subject,
			cell.Lesson.Teacher,
			fmt.Sprintf("%s (%s)", cell.Lesson.Room, cell.Lesson.RoomType),
		}, "\n")
	case dto.CellLunch:
		return lunchCellText
	default:
		return ""
	}
}

func sanitizeFilename(name string) string {
	cleaned := strings.Trim(unsafeFilenameChars.ReplaceAllString(name, "_"), "_")
	if cleaned == "" {
		return "class"
	}
	return cleaned
}
