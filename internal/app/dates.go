package app

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the accepted -start/-end format.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned for dates not in DateLayout.
var ErrInvalidDate = errors.New("invalid date")

// ParseDate parses s as a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (expected YYYY-MM-DD)", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseSpan parses an inclusive [start, end] span. end before start is rejected.
func ParseSpan(start, end string) (time.Time, time.Time, error) {
	s, err := ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidDate, end, start)
	}
	return s, e, nil
}
