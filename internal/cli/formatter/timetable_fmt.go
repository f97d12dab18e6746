package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
	"github.com/noah-isme/sma-timetable-viewer/internal/service"
)

// FormatSummary renders the score and class roster of a loaded solution.
func FormatSummary(s *dto.SolutionSummary) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(Header("Solution " + s.JobID))
	b.WriteString("\n")

	if s.Score != nil {
		scoreStyle := StyleGreen
		if !s.Score.Feasible {
			scoreStyle = StyleRed
		}
		fmt.Fprintf(&b, "Score: %s\n", scoreStyle.Render(s.Score.Raw))
	}
	b.WriteString(StyleDim.Render(s.Message))
	b.WriteString("\n")
	if s.Empty {
		return b.String()
	}

	b.WriteString("\n")
	rows := make([][]string, 0, len(s.Classes))
	for _, class := range s.Classes {
		rows = append(rows, []string{class.Name, gradeLabel(class.Grade)})
	}
	b.WriteString(RenderTable([]string{"Class", "Grade"}, rows))
	return b.String()
}

// FormatDiagnostics renders hard then soft constraint results. Violations
// are highlighted.
func FormatDiagnostics(d *dto.ConstraintDiagnostics) string {
	if d == nil || (len(d.Hard) == 0 && len(d.Soft) == 0) {
		return ""
	}
	var b strings.Builder
	if len(d.Hard) > 0 {
		b.WriteString(Header("Hard constraints"))
		b.WriteString("\n")
		b.WriteString(RenderTable([]string{"Constraint", "Score"}, diagnosticRows(d.Hard, StyleRed)))
	}
	if len(d.Soft) > 0 {
		if len(d.Hard) > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Header("Soft constraints"))
		b.WriteString("\n")
		b.WriteString(RenderTable([]string{"Constraint", "Score"}, diagnosticRows(d.Soft, StyleYellow)))
	}
	return b.String()
}

// FormatGrid renders a class's weekly grid, one row per time interval.
func FormatGrid(g *dto.ClassGrid) string {
	if g == nil {
		return ""
	}
	var b strings.Builder
	title := "Class " + g.ClassName
	if g.Grade != nil {
		title += " (grade " + strconv.Itoa(*g.Grade) + ")"
	}
	b.WriteString(Header(title))
	b.WriteString("\n")
	if !g.HasLessons {
		b.WriteString(StyleDim.Render("No lessons scheduled."))
		b.WriteString("\n")
		return b.String()
	}

	headers := make([]string, 0, len(g.Columns)+1)
	headers = append(headers, "Time")
	for _, col := range g.Columns {
		headers = append(headers, col.Label)
	}
	rows := make([][]string, 0, len(g.Rows))
	for _, row := range g.Rows {
		line := make([]string, 0, len(row.Cells)+1)
		line = append(line, row.Label)
		for _, cell := range row.Cells {
			line = append(line, cellLabel(cell))
		}
		rows = append(rows, line)
	}
	b.WriteString(RenderTable(headers, rows))
	return b.String()
}

func cellLabel(cell dto.GridCell) string {
	switch cell.Kind {
	case dto.CellLesson:
		return strings.ReplaceAll(service.CellText(cell), "\n", " · ")
	case dto.CellLunch:
		return StyleYellow.Render(service.CellText(cell))
	default:
		return StyleDim.Render("-")
	}
}

func diagnosticRows(items []dto.ConstraintDiagnostic, violated lipgloss.Style) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		score := item.RawScore
		if item.Violated {
			score = violated.Render(score)
		}
		rows = append(rows, []string{item.Name, score})
	}
	return rows
}

func gradeLabel(grade *int) string {
	if grade == nil {
		return StyleDim.Render("-")
	}
	return strconv.Itoa(*grade)
}
