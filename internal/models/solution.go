package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// UnknownClassName groups lessons whose class is missing from the payload.
const UnknownClassName = "Unknown"

// DefaultScore is assumed when the solver omits the overall score.
const DefaultScore = "0hard/0soft"

// SchoolClass identifies the class a lesson belongs to. Grade is optional.
type SchoolClass struct {
	ID    *int64 `json:"id,omitempty"`
	Name  string `json:"name"`
	Grade *int   `json:"grade,omitempty"`
}

// Teacher is the lesson's assigned teacher as sent by the solver.
type Teacher struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Room is the room a lesson takes place in.
type Room struct {
	ID       string `json:"id"`
	RoomType string `json:"roomType,omitempty"`
}

// TeachingUnit carries the subject and the room type it requires.
type TeachingUnit struct {
	ID       *int64 `json:"id,omitempty"`
	Subject  string `json:"subject"`
	Grade    *int   `json:"grade,omitempty"`
	RoomType string `json:"roomType"`
}

// TimeSlot is a weekday interval. (Day, Start) identifies it for
// deduplication and (Start, End) groups it into a grid row.
type TimeSlot struct {
	ID    *int64    `json:"id,omitempty"`
	Day   Weekday   `json:"schoolDay"`
	Start TimeOfDay `json:"startTime"`
	End   TimeOfDay `json:"endTime"`
}

// Lesson is one scheduled lesson of the solved timetable. Every nested
// field is optional on the wire.
type Lesson struct {
	ID           *int64        `json:"id,omitempty"`
	SchoolClass  *SchoolClass  `json:"schoolClass,omitempty"`
	Teacher      *Teacher      `json:"teacher,omitempty"`
	Room         *Room         `json:"room,omitempty"`
	TeachingUnit *TeachingUnit `json:"teachingUnit,omitempty"`
	TimeSlot     *TimeSlot     `json:"timeSlot,omitempty"`
}

// ClassName returns the class name or UnknownClassName.
func (l Lesson) ClassName() string {
	if l.SchoolClass == nil || l.SchoolClass.Name == "" {
		return UnknownClassName
	}
	return l.SchoolClass.Name
}

// ClassGrade returns the class grade, nil when absent.
func (l Lesson) ClassGrade() *int {
	if l.SchoolClass == nil {
		return nil
	}
	return l.SchoolClass.Grade
}

// LunchGroup is the lunch policy for an inclusive grade range.
type LunchGroup struct {
	Name           string     `json:"name,omitempty"`
	MinGrade       int        `json:"minGrade"`
	MaxGrade       int        `json:"maxGrade"`
	LunchTimeSlots []TimeSlot `json:"lunchTimeSlots"`
}

// AppliesToGrade reports whether grade falls within the group's range.
func (g LunchGroup) AppliesToGrade(grade int) bool {
	return grade >= g.MinGrade && grade <= g.MaxGrade
}

// ConstraintMatch is one constraint's raw identifier and score string.
type ConstraintMatch struct {
	Name  string `json:"name"`
	Score string `json:"score"`
}

// ConstraintMatches keeps the solver's constraint map in wire order, which
// decides tie-breaking when diagnostics are ranked.
type ConstraintMatches []ConstraintMatch

// UnmarshalJSON decodes a JSON object preserving key order.
func (m *ConstraintMatches) UnmarshalJSON(data []byte) error {
	*m = nil
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode constraint matches: %w", err)
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode constraint matches: expected object, got %v", tok)
	}
	out := ConstraintMatches{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode constraint matches: %w", err)
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode constraint match %q: %w", key, err)
		}
		out = append(out, ConstraintMatch{Name: key, Score: scoreText(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode constraint matches: %w", err)
	}
	*m = out
	return nil
}

// MarshalJSON writes the matches back as an object in the same order.
func (m ConstraintMatches) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, match := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(match.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(match.Score)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func scoreText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

// SolutionPayload is the body of GET /jobs/{jobId}/solution.
type SolutionPayload struct {
	Score             string            `json:"score"`
	Lessons           []Lesson          `json:"lessons"`
	ConstraintMatches ConstraintMatches `json:"constraintMatches"`
	LunchGroups       []LunchGroup      `json:"lunchGroups"`
}

// JobStatus mirrors the solver's job lifecycle.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusSolving   JobStatus = "SOLVING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// JobInfo is the solver's view of a submitted job.
type JobInfo struct {
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
	Error  string    `json:"error,omitempty"`
}
