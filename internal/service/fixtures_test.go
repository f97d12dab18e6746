package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-viewer/internal/models"
)

const sampleSolutionJSON = `{
  "score": "-2hard/-15soft",
  "lessons": [
    {
      "id": 1,
      "schoolClass": {"id": 10, "name": "9B", "grade": 9},
      "teacher": {"id": "T1", "firstName": "Ada", "lastName": "Lovelace"},
      "room": {"id": "R1", "roomType": "STANDARD"},
      "teachingUnit": {"subject": "Math", "roomType": "STANDARD"},
      "timeSlot": {"schoolDay": "MONDAY", "startTime": "08:00:00", "endTime": "08:45:00"}
    },
    {
      "id": 2,
      "schoolClass": {"id": 11, "name": "1B", "grade": 1},
      "teacher": {"id": "T2"},
      "room": {"id": "LAB1"},
      "teachingUnit": {"subject": "Science", "roomType": "COMPUTER_LAB"},
      "timeSlot": {"schoolDay": "TUESDAY", "startTime": [10, 0], "endTime": [10, 45]}
    },
    {
      "id": 3,
      "schoolClass": {"id": 12, "name": "1A", "grade": 1},
      "teacher": {"id": "T3", "firstName": "Grace", "lastName": "Hopper"},
      "room": {"id": "R2"},
      "teachingUnit": {"subject": "Reading", "roomType": "STANDARD"},
      "timeSlot": {"schoolDay": "MONDAY", "startTime": "08:00", "endTime": "08:45"}
    },
    {
      "id": 4,
      "schoolClass": {"id": 10, "name": "9B", "grade": 9},
      "teacher": {"id": "T1", "firstName": "Ada", "lastName": "Lovelace"},
      "room": {"id": "R1"},
      "teachingUnit": {"subject": "Physics", "roomType": "STANDARD"},
      "timeSlot": {"schoolDay": "FRIDAY", "startTime": "11:00", "endTime": "11:45"}
    }
  ],
  "constraintMatches": {
    "com.schoolplanner.timetable.domain.Lesson.Teacher conflict": "-2hard/0soft",
    "pkg.Domain.Class/Room stability": "0hard/-10soft",
    "com.schoolplanner.timetable.domain.TimeTable.Teacher time efficiency": "0hard/5soft",
    "pkg.Domain.Class/Subject variety": "0hard/-5soft",
    "pkg.Domain.Class/Room conflict": "0hard/0soft"
  },
  "lunchGroups": [
    {
      "name": "Primary",
      "minGrade": 1,
      "maxGrade": 6,
      "lunchTimeSlots": [{"schoolDay": "MONDAY", "startTime": "10:10", "endTime": "11:50"}]
    },
    {
      "name": "Secondary",
      "minGrade": 7,
      "maxGrade": 12,
      "lunchTimeSlots": [{"schoolDay": "MONDAY", "startTime": "11:00", "endTime": "12:40"}]
    }
  ]
}`

var fixedNow = time.Date(2024, 9, 2, 8, 30, 0, 0, time.UTC)

func samplePayload(t *testing.T) *models.SolutionPayload {
	t.Helper()
	var payload models.SolutionPayload
	require.NoError(t, json.Unmarshal([]byte(sampleSolutionJSON), &payload))
	return &payload
}

func sampleView(t *testing.T) *SolutionView {
	t.Helper()
	return NormalizeSolution("job-1", samplePayload(t), NormalizeOptions{
		Namespace: DefaultConstraintNamespace,
		Now:       func() time.Time { return fixedNow },
	})
}

func intPtr(v int) *int {
	return &v
}

func clock(h, m int) models.TimeOfDay {
	return models.ClockPair(h, m)
}
