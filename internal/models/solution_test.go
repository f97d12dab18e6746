package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekdayParsing(t *testing.T) {
	assert.Equal(t, Monday, ParseWeekday("MONDAY"))
	assert.Equal(t, Friday, ParseWeekday(" friday "))
	assert.Equal(t, WeekdayUnknown, ParseWeekday("SATURDAY"))
	assert.Equal(t, "Wednesday", Wednesday.DisplayName())
	assert.Equal(t, NotAvailable, WeekdayUnknown.DisplayName())
	assert.Greater(t, WeekdayUnknown.Order(), Friday.Order())

	var d Weekday
	require.NoError(t, json.Unmarshal([]byte(`42`), &d))
	assert.Equal(t, WeekdayUnknown, d)
}

func TestConstraintMatchesKeepWireOrder(t *testing.T) {
	var payload SolutionPayload
	err := json.Unmarshal([]byte(`{
		"score": "-1hard/-3soft",
		"constraintMatches": {
			"z.Teacher conflict": "-1hard/0soft",
			"a.Room stability": "0hard/-3soft",
			"m.Raw": -2
		}
	}`), &payload)
	require.NoError(t, err)

	require.Len(t, payload.ConstraintMatches, 3)
	assert.Equal(t, ConstraintMatch{Name: "z.Teacher conflict", Score: "-1hard/0soft"}, payload.ConstraintMatches[0])
	assert.Equal(t, "a.Room stability", payload.ConstraintMatches[1].Name)
	assert.Equal(t, "-2", payload.ConstraintMatches[2].Score)

	out, err := json.Marshal(payload.ConstraintMatches)
	require.NoError(t, err)
	assert.Equal(t, `{"z.Teacher conflict":"-1hard/0soft","a.Room stability":"0hard/-3soft","m.Raw":"-2"}`, string(out))
}

func TestConstraintMatchesNullAndInvalid(t *testing.T) {
	var m ConstraintMatches
	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	assert.Nil(t, m)

	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &m))
}

func TestLessonAccessors(t *testing.T) {
	grade := 7
	assert.Equal(t, UnknownClassName, Lesson{}.ClassName())
	assert.Nil(t, Lesson{}.ClassGrade())

	l := Lesson{SchoolClass: &SchoolClass{Name: "7A", Grade: &grade}}
	assert.Equal(t, "7A", l.ClassName())
	assert.Equal(t, 7, *l.ClassGrade())

	g := LunchGroup{MinGrade: 7, MaxGrade: 12}
	assert.True(t, g.AppliesToGrade(7))
	assert.False(t, g.AppliesToGrade(6))
}
