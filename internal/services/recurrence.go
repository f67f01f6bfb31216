package services

import (
	"fmt"
	"time"
)

// ExpandWeekly walks [start, end] one calendar day at a time, both bounds
// inclusive, and emits an occurrence for every date whose weekday is in the
// set, at start's time-of-day. Weekday numbering is time.Weekday's
// 0=Sunday..6=Saturday. A range containing no matching weekday yields an
// empty slice, not an error.
func ExpandWeekly(
	start time.Time,
	end time.Time,
	weekdays map[time.Weekday]struct{},
) ([]time.Time, error) {
	if len(weekdays) == 0 {
		return nil, fmt.Errorf("%w: at least one weekday required", ErrValidation)
	}

	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())

	occurrences := make([]time.Time, 0)
	for !day.After(last) {
		if _, ok := weekdays[day.Weekday()]; ok {
			occurrences = append(occurrences, time.Date(
				day.Year(), day.Month(), day.Day(),
				start.Hour(), start.Minute(), start.Second(), 0,
				start.Location(),
			))
		}
		day = day.AddDate(0, 0, 1)
	}

	return occurrences, nil
}
