package models

import (
	"encoding/json"
	"strings"
)

// Weekday is a school day. Only Monday through Friday are scheduled.
type Weekday int

const (
	WeekdayUnknown Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
)

// SchoolWeek lists the grid columns in display order.
var SchoolWeek = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

var weekdayCodes = [...]string{"", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY"}

var weekdayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// ParseWeekday maps a solver day code to a Weekday; unrecognised codes are unknown.
func ParseWeekday(code string) Weekday {
	code = strings.ToUpper(strings.TrimSpace(code))
	for i := 1; i < len(weekdayCodes); i++ {
		if weekdayCodes[i] == code {
			return Weekday(i)
		}
	}
	return WeekdayUnknown
}

// Known reports whether d is one of the five school days.
func (d Weekday) Known() bool {
	return d >= Monday && d <= Friday
}

// String returns the solver code, e.g. MONDAY.
func (d Weekday) String() string {
	if !d.Known() {
		return ""
	}
	return weekdayCodes[d]
}

// DisplayName returns the column heading, e.g. Monday.
func (d Weekday) DisplayName() string {
	if !d.Known() {
		return NotAvailable
	}
	return weekdayNames[d]
}

// Order sorts unknown days after Friday.
func (d Weekday) Order() int {
	if !d.Known() {
		return len(weekdayCodes)
	}
	return int(d)
}

func (d Weekday) MarshalJSON() ([]byte, error) {
	if !d.Known() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Weekday) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		*d = WeekdayUnknown
		return nil
	}
	*d = ParseWeekday(code)
	return nil
}
