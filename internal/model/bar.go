package model

import (
	"sort"
	"time"
)

// Bar represents one OHLCV minute bar.
// Shared by decoder, store, resampler and serialization (json, csv, parquet).
type Bar struct {
	Timestamp int64   `json:"t" parquet:"t"` // Unix timestamp in milliseconds, UTC
	Open      float64 `json:"o" parquet:"o"`
	High      float64 `json:"h" parquet:"h"`
	Low       float64 `json:"l" parquet:"l"`
	Close     float64 `json:"c" parquet:"c"`
	Volume    float64 `json:"v" parquet:"v"`
}

// Time returns the bar timestamp as a UTC time.
func (b Bar) Time() time.Time {
	return time.UnixMilli(b.Timestamp).UTC()
}

// Series is an ordered sequence of bars.
type Series []Bar

// Sort orders the series by timestamp. Equal timestamps keep their relative order.
func (s Series) Sort() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Timestamp < s[j].Timestamp })
}

// IsStrictlyIncreasing reports whether timestamps are sorted and unique.
func (s Series) IsStrictlyIncreasing() bool {
	for i := 1; i < len(s); i++ {
		if s[i].Timestamp <= s[i-1].Timestamp {
			return false
		}
	}
	return true
}

// Days returns the distinct UTC calendar dates present in the series.
func (s Series) Days() map[Day]bool {
	days := make(map[Day]bool)
	for _, b := range s {
		days[DayOf(b.Time())] = true
	}
	return days
}

// Day is a UTC calendar date.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the UTC calendar date of t.
func DayOf(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day{Year: y, Month: m, Day: d}
}

// Midnight returns 00:00 UTC of the day.
func (d Day) Midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Day) String() string {
	return d.Midnight().Format("2006-01-02")
}
