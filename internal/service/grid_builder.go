package service

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
	"github.com/noah-isme/sma-timetable-viewer/internal/models"
)

type rowKey struct {
	start int
	end   int
}

// BuildTimeRows collapses time slots into distinct (start, end) rows ordered
// by start time. Rows are shared by every class so switching classes never
// reorders them.
func BuildTimeRows(slots []models.TimeSlot) []dto.TimeRow {
	seen := make(map[rowKey]struct{}, len(slots))
	rows := make([]dto.TimeRow, 0, len(slots))
	for _, slot := range slots {
		key := rowKey{start: slot.Start.ToMinutes(), end: slot.End.ToMinutes()}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, dto.TimeRow{Start: slot.Start, End: slot.End, Label: rowLabel(slot.Start, slot.End)})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Start.ToMinutes() < rows[j].Start.ToMinutes()
	})
	return rows
}

func rowLabel(start, end models.TimeOfDay) string {
	return fmt.Sprintf("%s - %s", start, end)
}

// WeekColumns returns the fixed Monday to Friday grid columns.
func WeekColumns() []dto.GridColumn {
	cols := make([]dto.GridColumn, 0, len(models.SchoolWeek))
	for _, day := range models.SchoolWeek {
		cols = append(cols, dto.GridColumn{Day: day, Label: day.DisplayName()})
	}
	return cols
}

type cellKey struct {
	day   models.Weekday
	start int
	end   int
}

// BuildGrid resolves every (row, weekday) cell of a class to a lesson, a
// lunch break, or nothing. A class that is not in the view gets an all-empty
// grid with HasLessons unset.
func BuildGrid(view *SolutionView, className string) *dto.ClassGrid {
	grid := &dto.ClassGrid{
		ClassName: className,
		Columns:   WeekColumns(),
		Rows:      []dto.GridRow{},
	}
	if view == nil || view.Empty {
		return grid
	}
	grade, _ := view.ClassGrade(className)
	grid.Grade = grade

	lessons := view.LessonsByClass[className]
	grid.HasLessons = len(lessons) > 0

	byCell := make(map[cellKey]models.Lesson, len(lessons))
	for _, lesson := range lessons {
		if lesson.TimeSlot == nil {
			continue
		}
		ts := lesson.TimeSlot
		byCell[cellKey{day: ts.Day, start: ts.Start.ToMinutes(), end: ts.End.ToMinutes()}] = lesson
	}

	lunch := lunchSlotsForGrade(view.LunchGroups, grade)

	for _, row := range view.Rows {
		gridRow := dto.GridRow{TimeRow: row, Cells: make([]dto.GridCell, 0, len(models.SchoolWeek))}
		for _, day := range models.SchoolWeek {
			cell := dto.GridCell{Day: day, Kind: dto.CellEmpty}
			key := cellKey{day: day, start: row.Start.ToMinutes(), end: row.End.ToMinutes()}
			if lesson, ok := byCell[key]; ok {
				detail := DescribeLesson(lesson)
				cell.Kind = dto.CellLesson
				cell.Lesson = &detail
			} else if overlapsAny(row, lunch) {
				cell.Kind = dto.CellLunch
			}
			gridRow.Cells = append(gridRow.Cells, cell)
		}
		grid.Rows = append(grid.Rows, gridRow)
	}
	return grid
}

// lunchSlotsForGrade returns the lunch intervals of the first group that
// covers grade. An unknown or zero grade has no lunch break.
func lunchSlotsForGrade(groups []models.LunchGroup, grade *int) []models.TimeSlot {
	if grade == nil || *grade == 0 {
		return nil
	}
	for _, group := range groups {
		if group.AppliesToGrade(*grade) {
			return group.LunchTimeSlots
		}
	}
	return nil
}

// overlapsAny ignores the slot's day: a lunch interval marks its row on every
// weekday column.
func overlapsAny(row dto.TimeRow, lunch []models.TimeSlot) bool {
	for _, slot := range lunch {
		if slotOverlaps(row.Start, row.End, slot) {
			return true
		}
	}
	return false
}

// DescribeLesson derives the display fields of a lesson cell.
func DescribeLesson(lesson models.Lesson) dto.LessonDetail {
	detail := dto.LessonDetail{
		Subject:  models.NotAvailable,
		Teacher:  TeacherDisplayName(lesson.Teacher),
		Room:     models.NotAvailable,
		RoomType: models.NotAvailable,
	}
	if tu := lesson.TeachingUnit; tu != nil {
		if tu.Subject != "" {
			detail.Subject = tu.Subject
		}
		detail.RoomType = FormatRoomType(tu.RoomType)
	}
	if lesson.Room != nil && lesson.Room.ID != "" {
		detail.Room = lesson.Room.ID
	}
	return detail
}

// TeacherDisplayName prefers "first last", then the teacher id.
func TeacherDisplayName(t *models.Teacher) string {
	if t == nil {
		return models.NotAvailable
	}
	if name := strings.TrimSpace(t.FirstName + " " + t.LastName); name != "" {
		return name
	}
	if t.ID != "" {
		return t.ID
	}
	return models.NotAvailable
}

// FormatRoomType turns an enum value such as COMPUTER_LAB into "Computer Lab".
func FormatRoomType(raw string) string {
	if raw == "" || raw == models.NotAvailable {
		return models.NotAvailable
	}
	words := strings.Split(raw, "_")
	for i, word := range words {
		r, size := utf8.DecodeRuneInString(word)
		if size == 0 {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
	}
	return strings.Join(words, " ")
}
