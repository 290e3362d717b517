package crawl

import (
	"time"

	"bars-archive/internal/model"
)

// MissingDays returns the weekdays in [start, end] (inclusive, by UTC date) that are
// not in have, in ascending order. A nil have yields every weekday of the span.
// Saturdays and Sundays carry no market activity and are never requested.
func MissingDays(start, end time.Time, have map[model.Day]bool) []time.Time {
	first := model.DayOf(start).Midnight()
	last := model.DayOf(end).Midnight()

	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if have[model.DayOf(d)] {
			continue
		}
		days = append(days, d)
	}
	return days
}
