package resample

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownTimeframe is returned for timeframe names outside the supported set.
var ErrUnknownTimeframe = errors.New("unknown timeframe")

// Timeframe is a bucket width for aggregation.
type Timeframe struct {
	Name     string
	Duration time.Duration
}

// Supported timeframes.
var (
	TF1m  = Timeframe{Name: "1m", Duration: time.Minute}
	TF5m  = Timeframe{Name: "5m", Duration: 5 * time.Minute}
	TF15m = Timeframe{Name: "15m", Duration: 15 * time.Minute}
	TF30m = Timeframe{Name: "30m", Duration: 30 * time.Minute}
	TF1h  = Timeframe{Name: "1h", Duration: time.Hour}
	TF4h  = Timeframe{Name: "4h", Duration: 4 * time.Hour}
	TF1d  = Timeframe{Name: "1d", Duration: 24 * time.Hour}
)

// All lists supported timeframes from finest to coarsest.
var All = []Timeframe{TF1m, TF5m, TF15m, TF30m, TF1h, TF4h, TF1d}

var registry = make(map[string]Timeframe)

func init() {
	for _, tf := range All {
		registry[tf.Name] = tf
	}
}

// ParseTimeframe looks up a timeframe by name, case-insensitively.
func ParseTimeframe(name string) (Timeframe, error) {
	tf, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Timeframe{}, fmt.Errorf("%w: %q", ErrUnknownTimeframe, name)
	}
	return tf, nil
}

// ParseTimeframes parses every name, failing on the first unknown one.
func ParseTimeframes(names []string) ([]Timeframe, error) {
	tfs := make([]Timeframe, 0, len(names))
	for _, n := range names {
		tf, err := ParseTimeframe(n)
		if err != nil {
			return nil, err
		}
		tfs = append(tfs, tf)
	}
	return tfs, nil
}

// BucketStart returns the start of the bucket containing t.
// Buckets are aligned to UTC midnight; 1d is the calendar day.
func (tf Timeframe) BucketStart(t time.Time) time.Time {
	t = t.UTC()
	if tf.Name == TF1d.Name {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return t.Truncate(tf.Duration)
}

func (tf Timeframe) String() string { return tf.Name }
