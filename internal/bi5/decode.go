// Package bi5 decodes the vendor's compressed day files of minute candles.
//
// A day file is an LZMA stream whose payload is a sequence of 24-byte records,
// each holding six big-endian int32 values: time offset, open, close, low,
// high, volume.
package bi5

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ulikunitz/xz/lzma"

	"bars-archive/internal/model"
)

const (
	// RecordSize is the byte length of one candle record.
	RecordSize = 24

	// DefaultPriceScale converts integer prices to floats (price = int / scale).
	DefaultPriceScale = 100000

	// Offsets below this bound are seconds since midnight, otherwise milliseconds.
	// A short day whose last candle is early can be misread; kept as the feed documents it.
	msOffsetThreshold = 1_000_000
)

// ErrNoData means the buffer carries no usable candles for the day.
// Callers treat it as an empty day, not as a fault.
var ErrNoData = errors.New("bi5: no data")

type record struct {
	Offset int32
	Open   int32
	Close  int32
	Low    int32
	High   int32
	Volume int32
}

// Decode turns one day's compressed buffer into bars, in input order.
// day is truncated to its UTC midnight. A non-positive scale uses DefaultPriceScale.
func Decode(raw []byte, day time.Time, scale float64) (model.Series, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrNoData)
	}
	r, err := lzma.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: lzma header: %v", ErrNoData, err)
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: lzma stream: %v", ErrNoData, err)
	}
	return decodeRecords(buf, day, scale)
}

func decodeRecords(buf []byte, day time.Time, scale float64) (model.Series, error) {
	if len(buf)%RecordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrNoData, len(buf), RecordSize)
	}
	if scale <= 0 {
		scale = DefaultPriceScale
	}

	recs := make([]record, len(buf)/RecordSize)
	if err := binary.Read(bytes.NewReader(buf), binary.BigEndian, recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoData, err)
	}

	var maxOffset int64
	for i, rec := range recs {
		if off := int64(rec.Offset); i == 0 || off > maxOffset {
			maxOffset = off
		}
	}
	unit := time.Second
	if maxOffset >= msOffsetThreshold {
		unit = time.Millisecond
	}

	base := model.DayOf(day).Midnight()
	bars := make(model.Series, 0, len(recs))
	for _, rec := range recs {
		ts := base.Add(time.Duration(rec.Offset) * unit)
		bars = append(bars, model.Bar{
			Timestamp: ts.UnixMilli(),
			Open:      float64(rec.Open) / scale,
			High:      float64(rec.High) / scale,
			Low:       float64(rec.Low) / scale,
			Close:     float64(rec.Close) / scale,
			Volume:    float64(rec.Volume),
		})
	}
	return bars, nil
}
