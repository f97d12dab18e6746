package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable-viewer/internal/models"
)

// SubmitCSVRequest carries the non-file fields of a CSV submission.
type SubmitCSVRequest struct {
	ClassCount int `form:"classCount" json:"classCount" validate:"required,min=1"`
}

// CSVUpload is a validated CSV submission ready to forward to the solver.
type CSVUpload struct {
	Rooms       CSVFile
	Teachers    CSVFile
	LunchGroups CSVFile
	Lessons     CSVFile
	ClassCount  int
}

// CSVFile is one uploaded input file.
type CSVFile struct {
	Filename string
	Content  []byte
}

// FetchSolutionRequest identifies the job to (re)load.
type FetchSolutionRequest struct {
	JobID string `json:"jobId" validate:"required,max=128"`
}

// ExportQuery selects the grid export format.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// PollState is a state of the solution poll loop.
type PollState string

const (
	PollStateIdle     PollState = "IDLE"
	PollStatePolling  PollState = "POLLING"
	PollStateReady    PollState = "READY"
	PollStateNotFound PollState = "NOT_FOUND"
	PollStateError    PollState = "ERROR"
)

// Terminal reports whether polling has stopped in this state.
func (s PollState) Terminal() bool {
	return s == PollStateReady || s == PollStateNotFound || s == PollStateError
}

// PollStatus is a point-in-time view of the poll loop.
type PollStatus struct {
	JobID     string    `json:"jobId,omitempty"`
	State     PollState `json:"state"`
	Attempts  int       `json:"attempts"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// JobSubmissionResponse is returned after a job is submitted or re-fetched.
type JobSubmissionResponse struct {
	JobID string     `json:"jobId"`
	Poll  PollStatus `json:"poll"`
}

// ScoreSummary is the overall solution score.
type ScoreSummary struct {
	Raw      string `json:"raw"`
	Hard     int    `json:"hard"`
	Soft     int    `json:"soft"`
	Feasible bool   `json:"feasible"`
}

// ConstraintDiagnostic is one classified constraint result.
type ConstraintDiagnostic struct {
	Name      string `json:"name"`
	RawScore  string `json:"rawScore"`
	HardScore int    `json:"hardScore"`
	SoftScore int    `json:"softScore"`
	Violated  bool   `json:"violated"`
}

// ConstraintDiagnostics groups diagnostics into hard and soft lists, each
// ranked with violations first.
type ConstraintDiagnostics struct {
	Hard []ConstraintDiagnostic `json:"hard"`
	Soft []ConstraintDiagnostic `json:"soft"`
}

// RosterEntry is a class in the class picker.
type RosterEntry struct {
	Name  string `json:"name"`
	Grade *int   `json:"grade"`
}

// TimeRow is a (start, end) interval shown once across all weekdays.
type TimeRow struct {
	Start models.TimeOfDay `json:"start"`
	End   models.TimeOfDay `json:"end"`
	Label string           `json:"label"`
}

// SolutionSummary is the class-independent part of a loaded solution.
type SolutionSummary struct {
	JobID       string                 `json:"jobId"`
	Empty       bool                   `json:"empty"`
	Message     string                 `json:"message"`
	Score       *ScoreSummary          `json:"score,omitempty"`
	Classes     []RosterEntry          `json:"classes"`
	Diagnostics *ConstraintDiagnostics `json:"diagnostics,omitempty"`
	TimeRows    []TimeRow              `json:"timeRows"`
	LoadedAt    time.Time              `json:"loadedAt"`
}

// CellKind tells the presentation layer what a grid cell holds.
type CellKind string

const (
	CellLesson CellKind = "LESSON"
	CellLunch  CellKind = "LUNCH"
	CellEmpty  CellKind = "EMPTY"
)

// LessonDetail is the display form of a scheduled lesson.
type LessonDetail struct {
	Subject  string `json:"subject"`
	Teacher  string `json:"teacher"`
	Room     string `json:"room"`
	RoomType string `json:"roomType"`
}

// GridCell is one (row, weekday) cell.
type GridCell struct {
	Day    models.Weekday `json:"day"`
	Kind   CellKind       `json:"kind"`
	Lesson *LessonDetail  `json:"lesson,omitempty"`
}

// GridRow is a time row with one cell per weekday.
type GridRow struct {
	TimeRow
	Cells []GridCell `json:"cells"`
}

// GridColumn is a weekday heading.
type GridColumn struct {
	Day   models.Weekday `json:"day"`
	Label string         `json:"label"`
}

// ClassGrid is the weekly grid for one class.
type ClassGrid struct {
	ClassName  string       `json:"className"`
	Grade      *int         `json:"grade"`
	Columns    []GridColumn `json:"columns"`
	Rows       []GridRow    `json:"rows"`
	HasLessons bool         `json:"hasLessons"`
}

// SnapshotView pairs stored snapshot metadata with its rebuilt summary.
type SnapshotView struct {
	Snapshot models.SolutionSnapshot `json:"snapshot"`
	Summary  SolutionSummary         `json:"summary"`
}
