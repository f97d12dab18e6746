package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
	"github.com/noah-isme/sma-timetable-viewer/internal/models"
)

func grade(n int) *int { return &n }

func TestFormatSummaryListsRoster(t *testing.T) {
	out := FormatSummary(&dto.SolutionSummary{
		JobID:   "job-1",
		Message: "Solution loaded. Select a class to view.",
		Score:   &dto.ScoreSummary{Raw: "0hard/-4soft", Feasible: true},
		Classes: []dto.RosterEntry{{Name: "1A", Grade: grade(1)}, {Name: "Library"}},
	})

	assert.Contains(t, out, "SOLUTION JOB-1")
	assert.Contains(t, out, "0hard/-4soft")
	assert.Contains(t, out, "Solution loaded. Select a class to view.")
	assert.Contains(t, out, "1A")
	assert.Contains(t, out, "Library")
}

func TestFormatSummaryEmptySolutionSkipsRoster(t *testing.T) {
	out := FormatSummary(&dto.SolutionSummary{JobID: "job-2", Empty: true, Message: "No lessons in solution"})
	assert.Contains(t, out, "No lessons in solution")
	assert.NotContains(t, out, "Class")
}

func TestFormatDiagnosticsSections(t *testing.T) {
	out := FormatDiagnostics(&dto.ConstraintDiagnostics{
		Hard: []dto.ConstraintDiagnostic{{Name: "Room conflict", RawScore: "-1hard/0soft", Violated: true}},
		Soft: []dto.ConstraintDiagnostic{{Name: "Subject variety", RawScore: "0hard/-3soft", Violated: true}},
	})
	hard := strings.Index(out, "HARD CONSTRAINTS")
	soft := strings.Index(out, "SOFT CONSTRAINTS")
	assert.True(t, hard >= 0 && soft > hard)
	assert.Contains(t, out, "Room conflict")
	assert.Contains(t, out, "0hard/-3soft")

	assert.Empty(t, FormatDiagnostics(&dto.ConstraintDiagnostics{}))
}

func TestFormatGrid(t *testing.T) {
	out := FormatGrid(&dto.ClassGrid{
		ClassName: "1A",
		Grade:     grade(1),
		Columns: []dto.GridColumn{
			{Day: models.Monday, Label: "Monday"},
			{Day: models.Tuesday, Label: "Tuesday"},
		},
		Rows: []dto.GridRow{{
			TimeRow: dto.TimeRow{Label: "08:00-08:45"},
			Cells: []dto.GridCell{
				{Day: models.Monday, Kind: dto.CellLesson, Lesson: &dto.LessonDetail{Subject: "Math", Teacher: "A. Turing", Room: "R1", RoomType: "NORMAL"}},
				{Day: models.Tuesday, Kind: dto.CellLunch},
			},
		}},
		HasLessons: true,
	})

	assert.Contains(t, out, "CLASS 1A (GRADE 1)")
	assert.Contains(t, out, "08:00-08:45")
	assert.Contains(t, out, "Math · A. Turing · R1 (NORMAL)")
	assert.Contains(t, out, "Lunch break")
}

func TestFormatGridWithoutLessons(t *testing.T) {
	out := FormatGrid(&dto.ClassGrid{ClassName: "2B"})
	assert.Contains(t, out, "No lessons scheduled.")
}

func TestRenderTableAlignsColumns(t *testing.T) {
	out := RenderTable([]string{"A", "B"}, [][]string{{"long value", "x"}, {"s"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "long value  x", lines[2])
	assert.Equal(t, "s", strings.TrimRight(lines[3], " "))
}
