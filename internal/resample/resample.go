// Package resample aggregates the minute archive into coarser timeframes.
package resample

import (
	"fmt"
	"math"

	"bars-archive/internal/model"
	"bars-archive/internal/store"
)

// Resample folds a sorted, deduplicated series into tf buckets. Each non-empty bucket
// yields one bar stamped at the bucket start: first open, max high, min low, last close,
// summed volume. Empty buckets are omitted.
func Resample(bars model.Series, tf Timeframe) model.Series {
	var out model.Series
	var cur model.Bar
	var curStart int64
	open := false

	for _, b := range bars {
		start := tf.BucketStart(b.Time()).UnixMilli()
		if open && start == curStart {
			cur.High = math.Max(cur.High, b.High)
			cur.Low = math.Min(cur.Low, b.Low)
			cur.Close = b.Close
			cur.Volume += b.Volume
			continue
		}
		if open {
			out = append(out, cur)
		}
		curStart = start
		cur = model.Bar{Timestamp: start, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
		open = true
	}
	if open {
		out = append(out, cur)
	}
	return out
}

// Artifact describes one persisted derived series.
type Artifact struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

// DeriveResult is the outcome of Derive for one key.
type DeriveResult struct {
	OK          bool                `json:"ok"`
	Reason      string              `json:"reason,omitempty"`
	ArchivePath string              `json:"min1_path"`
	Derived     map[string]Artifact `json:"derived,omitempty"`
}

// Derive recomputes every timeframe from the full archive of key and replaces each
// derived artifact. An absent archive is reported in the result, not as an error.
func Derive(s *store.Store, key string, tfs []Timeframe) (DeriveResult, error) {
	res := DeriveResult{ArchivePath: s.ArchivePath(key)}
	bars, err := s.Load(key)
	if err != nil {
		return res, err
	}
	if len(bars) == 0 {
		res.Reason = "empty archive"
		return res, nil
	}

	res.Derived = make(map[string]Artifact, len(tfs))
	for _, tf := range tfs {
		out := Resample(bars, tf)
		path, err := s.SaveDerived(key, tf.Name, out)
		if err != nil {
			return res, fmt.Errorf("derive %s %s: %w", key, tf.Name, err)
		}
		res.Derived[tf.Name] = Artifact{Path: path, Rows: len(out)}
	}
	res.OK = true
	return res, nil
}
