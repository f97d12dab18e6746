package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UnknownMinutes is returned for absent or malformed times of day. Interval
// checks treat it as "no overlap possible".
const UnknownMinutes = -1

// NotAvailable is the display placeholder for missing values.
const NotAvailable = "N/A"

// TimeOfDay is a wall-clock time with minute precision. The solver sends it
// either as "HH:MM[:SS]" or as an [hour, minute] pair; both decode here.
// The zero value is unknown.
type TimeOfDay struct {
	Minutes int
	Valid   bool
}

// ParseClock reads the HH:MM prefix of a colon-delimited time string.
func ParseClock(raw string) TimeOfDay {
	raw = strings.TrimSpace(raw)
	if len(raw) > 5 {
		raw = raw[:5]
	}
	hh, mm, ok := strings.Cut(raw, ":")
	if !ok {
		return TimeOfDay{}
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return TimeOfDay{}
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return TimeOfDay{}
	}
	return ClockPair(hour, minute)
}

// ClockPair builds a time of day from an hour and minute.
func ClockPair(hour, minute int) TimeOfDay {
	if hour < 0 || hour > 24 || minute < 0 || minute > 59 {
		return TimeOfDay{}
	}
	return TimeOfDay{Minutes: hour*60 + minute, Valid: true}
}

// ToMinutes returns minutes since midnight or UnknownMinutes.
func (t TimeOfDay) ToMinutes() int {
	if !t.Valid {
		return UnknownMinutes
	}
	return t.Minutes
}

// String renders the zero-padded HH:MM form, or N/A when unknown.
func (t TimeOfDay) String() string {
	if !t.Valid {
		return NotAvailable
	}
	return fmt.Sprintf("%02d:%02d", t.Minutes/60, t.Minutes%60)
}

// MarshalJSON writes HH:MM or null.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts a string, a numeric [h, m] or [h, m, s] array, or
// null. Anything else decodes to unknown rather than failing the payload.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	*t = TimeOfDay{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*t = ParseClock(s)
	case '[':
		var parts []float64
		if err := json.Unmarshal(data, &parts); err != nil {
			return nil
		}
		if len(parts) < 2 || len(parts) > 3 {
			return nil
		}
		if parts[0] != math.Trunc(parts[0]) || parts[1] != math.Trunc(parts[1]) {
			return nil
		}
		*t = ClockPair(int(parts[0]), int(parts[1]))
	}
	return nil
}
