package bi5

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/ulikunitz/xz/lzma"

	"bars-archive/internal/model"
)

// Encode writes bars in the day-file layout with second offsets from the day's
// UTC midnight. Prices are multiplied by scale and rounded.
func Encode(bars model.Series, day time.Time, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = DefaultPriceScale
	}
	base := model.DayOf(day).Midnight()
	recs := make([]record, 0, len(bars))
	for _, b := range bars {
		recs = append(recs, record{
			Offset: int32(b.Time().Sub(base) / time.Second),
			Open:   int32(math.Round(b.Open * scale)),
			Close:  int32(math.Round(b.Close * scale)),
			Low:    int32(math.Round(b.Low * scale)),
			High:   int32(math.Round(b.High * scale)),
			Volume: int32(math.Round(b.Volume)),
		})
	}
	var plain bytes.Buffer
	if err := binary.Write(&plain, binary.BigEndian, recs); err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return Compress(plain.Bytes())
}

// Compress wraps a raw record buffer in an LZMA stream.
func Compress(plain []byte) ([]byte, error) {
	var out bytes.Buffer
	w, err := lzma.NewWriter(&out)
	if err != nil {
		return nil, fmt.Errorf("lzma writer: %w", err)
	}
	if _, err := w.Write(plain); err != nil {
		return nil, fmt.Errorf("lzma write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lzma close: %w", err)
	}
	return out.Bytes(), nil
}
