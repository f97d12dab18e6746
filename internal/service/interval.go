package service

import "github.com/noah-isme/sma-timetable-viewer/internal/models"

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Intervals that only share an endpoint do not
// overlap, and an unknown bound never overlaps anything.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	if aStart == models.UnknownMinutes || aEnd == models.UnknownMinutes ||
		bStart == models.UnknownMinutes || bEnd == models.UnknownMinutes {
		return false
	}
	return aStart < bEnd && aEnd > bStart
}

func slotOverlaps(start, end models.TimeOfDay, slot models.TimeSlot) bool {
	return Overlaps(start.ToMinutes(), end.ToMinutes(), slot.Start.ToMinutes(), slot.End.ToMinutes())
}
