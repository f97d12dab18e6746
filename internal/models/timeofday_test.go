package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeOfDayUnmarshal(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		valid bool
	}{
		{"clock string", `"08:05"`, "08:05", true},
		{"clock with seconds", `"13:45:00"`, "13:45", true},
		{"pair", `[10, 0]`, "10:00", true},
		{"triple", `[9, 30, 15]`, "09:30", true},
		{"midnight end", `[24, 0]`, "24:00", true},
		{"null", `null`, NotAvailable, false},
		{"hour out of range", `[25, 0]`, NotAvailable, false},
		{"minute out of range", `"10:75"`, NotAvailable, false},
		{"single element", `[10]`, NotAvailable, false},
		{"fractional", `[10.5, 0]`, NotAvailable, false},
		{"garbage string", `"soon"`, NotAvailable, false},
		{"object", `{"h":1}`, NotAvailable, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var tod TimeOfDay
			require.NoError(t, json.Unmarshal([]byte(tc.input), &tod))
			assert.Equal(t, tc.valid, tod.Valid)
			assert.Equal(t, tc.want, tod.String())
		})
	}
}

func TestTimeOfDayMinutes(t *testing.T) {
	assert.Equal(t, 605, ClockPair(10, 5).ToMinutes())
	assert.Equal(t, UnknownMinutes, TimeOfDay{}.ToMinutes())
	assert.Equal(t, UnknownMinutes, ParseClock("").ToMinutes())
}

func TestTimeOfDayMarshal(t *testing.T) {
	data, err := json.Marshal(struct {
		Start TimeOfDay `json:"start"`
		End   TimeOfDay `json:"end"`
	}{Start: ClockPair(8, 0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"08:00","end":null}`, string(data))
}
