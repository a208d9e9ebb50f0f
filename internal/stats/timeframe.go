package stats

import (
	"time"

	"fintrack/internal/core"
)

// RangeForTimeframe computes the implicit date range a timeframe covers,
// as a pure function of now:
//
//	week  - the ISO week of now, Monday 00:00:00 through Sunday 23:59:59
//	month - the calendar month of now
//	year  - the calendar year of now
//
// Bounds are inclusive and carry now's location.
func RangeForTimeframe(now time.Time, tf core.Timeframe) (start, end time.Time, err error) {
	loc := now.Location()
	switch tf {
	case core.TimeframeWeek:
		// time.Weekday counts Sunday as 0; shift so Monday starts the week.
		offset := int(now.Weekday()) - int(time.Monday)
		if offset < 0 {
			offset += 7
		}
		monday := now.AddDate(0, 0, -offset)
		start = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 7).Add(-time.Second)
	case core.TimeframeMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0).Add(-time.Second)
	case core.TimeframeYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		end = time.Date(now.Year(), time.December, 31, 23, 59, 59, 0, loc)
	default:
		return time.Time{}, time.Time{}, core.ErrInvalidTimeframe
	}
	return start, end, nil
}
