package service

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
	"github.com/noah-isme/sma-timetable-viewer/internal/models"
)

const (
	messageSolutionLoaded = "Solution loaded. Select a class to view."
	messageSolutionEmpty  = "The solution contains no lessons."
)

// SolutionView is the immutable, indexed form of one loaded solution. A new
// view is built for every load and never modified afterwards.
type SolutionView struct {
	JobID    string
	LoadedAt time.Time
	// Empty is set when the payload has no lessons; nothing else is populated.
	Empty bool

	Score          dto.ScoreSummary
	Diagnostics    dto.ConstraintDiagnostics
	Roster         []dto.RosterEntry
	LessonsByClass map[string][]models.Lesson
	TimeSlots      []models.TimeSlot
	Rows           []dto.TimeRow
	LunchGroups    []models.LunchGroup

	grades map[string]*int
}

// NormalizeOptions tunes NormalizeSolution.
type NormalizeOptions struct {
	Namespace string
	Now       func() time.Time
}

// NormalizeSolution indexes a solver payload for grid building.
func NormalizeSolution(jobID string, payload *models.SolutionPayload, opts NormalizeOptions) *SolutionView {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	view := &SolutionView{JobID: jobID, LoadedAt: now().UTC()}
	if payload == nil || len(payload.Lessons) == 0 {
		view.Empty = true
		return view
	}

	view.Score = SummarizeScore(payload.Score)
	view.Diagnostics = ClassifyConstraints(payload.ConstraintMatches, opts.Namespace)
	view.LunchGroups = append([]models.LunchGroup(nil), payload.LunchGroups...)

	view.LessonsByClass = make(map[string][]models.Lesson)
	view.grades = make(map[string]*int)
	order := make([]string, 0)
	slots := newSlotSet()

	for _, lesson := range payload.Lessons {
		name := lesson.ClassName()
		if _, seen := view.grades[name]; !seen {
			order = append(order, name)
		}
		view.grades[name] = lesson.ClassGrade()
		view.LessonsByClass[name] = append(view.LessonsByClass[name], lesson)
		if lesson.TimeSlot != nil {
			slots.add(*lesson.TimeSlot)
		}
	}
	for _, group := range payload.LunchGroups {
		for _, slot := range group.LunchTimeSlots {
			slots.add(slot)
		}
	}

	view.Roster = make([]dto.RosterEntry, 0, len(order))
	for _, name := range order {
		view.Roster = append(view.Roster, dto.RosterEntry{Name: name, Grade: view.grades[name]})
	}
	sortRoster(view.Roster)

	view.TimeSlots = slots.sorted()
	view.Rows = BuildTimeRows(view.TimeSlots)
	return view
}

// ClassGrade returns the grade recorded for a class and whether the class exists.
func (v *SolutionView) ClassGrade(name string) (*int, bool) {
	if v == nil || v.grades == nil {
		return nil, false
	}
	grade, ok := v.grades[name]
	return grade, ok
}

// HasClass reports whether the class appears in the roster.
func (v *SolutionView) HasClass(name string) bool {
	_, ok := v.ClassGrade(name)
	return ok
}

// Summary renders the class-independent part of the view.
func (v *SolutionView) Summary() dto.SolutionSummary {
	summary := dto.SolutionSummary{
		JobID:    v.JobID,
		Empty:    v.Empty,
		Classes:  []dto.RosterEntry{},
		TimeRows: []dto.TimeRow{},
		LoadedAt: v.LoadedAt,
	}
	if v.Empty {
		summary.Message = messageSolutionEmpty
		return summary
	}
	score := v.Score
	diagnostics := v.Diagnostics
	summary.Message = messageSolutionLoaded
	summary.Score = &score
	summary.Diagnostics = &diagnostics
	summary.Classes = append(summary.Classes, v.Roster...)
	summary.TimeRows = append(summary.TimeRows, v.Rows...)
	return summary
}

func sortRoster(roster []dto.RosterEntry) {
	gradeOf := func(e dto.RosterEntry) int {
		if e.Grade == nil {
			return math.MaxInt
		}
		return *e.Grade
	}
	sort.SliceStable(roster, func(i, j int) bool {
		gi, gj := gradeOf(roster[i]), gradeOf(roster[j])
		if gi != gj {
			return gi < gj
		}
		return roster[i].Name < roster[j].Name
	})
}

type slotKey struct {
	day   models.Weekday
	start int
}

// slotSet keeps the first slot seen per (day, start).
type slotSet struct {
	index map[slotKey]struct{}
	slots []models.TimeSlot
}

func newSlotSet() *slotSet {
	return &slotSet{index: make(map[slotKey]struct{})}
}

func (s *slotSet) add(slot models.TimeSlot) {
	if !slot.Day.Known() || !slot.Start.Valid {
		return
	}
	key := slotKey{day: slot.Day, start: slot.Start.Minutes}
	if _, exists := s.index[key]; exists {
		return
	}
	s.index[key] = struct{}{}
	s.slots = append(s.slots, slot)
}

func (s *slotSet) sorted() []models.TimeSlot {
	out := append([]models.TimeSlot(nil), s.slots...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Day.Order() != out[j].Day.Order() {
			return out[i].Day.Order() < out[j].Day.Order()
		}
		return out[i].Start.ToMinutes() < out[j].Start.ToMinutes()
	})
	return out
}
