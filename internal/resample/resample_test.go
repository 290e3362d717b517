package resample

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bars-archive/internal/model"
	"bars-archive/internal/saver"
	"bars-archive/internal/store"
)

var t0 = time.Date(2024, 2, 5, 10, 0, 0, 0, time.UTC)

func minuteBar(i int, o, h, l, c, v float64) model.Bar {
	return model.Bar{Timestamp: t0.Add(time.Duration(i) * time.Minute).UnixMilli(), Open: o, High: h, Low: l, Close: c, Volume: v}
}

func fiveMinutes() model.Series {
	return model.Series{
		minuteBar(0, 1, 2, 0.5, 1.5, 10),
		minuteBar(1, 1.5, 2.5, 1, 2, 5),
		minuteBar(2, 2, 2, 1.8, 1.9, 7),
		minuteBar(3, 1.9, 2.2, 1.7, 2, 3),
		minuteBar(4, 2, 2.1, 1.9, 2, 2),
	}
}

func TestResampleFiveMinuteBucket(t *testing.T) {
	out := Resample(fiveMinutes(), TF5m)
	require.Len(t, out, 1)

	b := out[0]
	assert.Equal(t, t0.UnixMilli(), b.Timestamp)
	assert.Equal(t, 1.0, b.Open)
	assert.Equal(t, 2.5, b.High)
	assert.Equal(t, 0.5, b.Low)
	assert.Equal(t, 2.0, b.Close)
	assert.Equal(t, 27.0, b.Volume)
}

func TestResampleOmitsEmptyBuckets(t *testing.T) {
	bars := model.Series{
		minuteBar(0, 1, 1, 1, 1, 1),
		minuteBar(61, 2, 2, 2, 2, 1),
		minuteBar(62, 3, 3, 3, 3, 1),
	}
	out := Resample(bars, TF15m)
	require.Len(t, out, 2)
	assert.Equal(t, t0.UnixMilli(), out[0].Timestamp)
	assert.Equal(t, t0.Add(time.Hour).UnixMilli(), out[1].Timestamp)
	assert.Equal(t, 3.0, out[1].Close)
}

func TestResampleBucketsAreMidnightAligned(t *testing.T) {
	late := time.Date(2024, 2, 5, 23, 30, 0, 0, time.UTC)
	bars := model.Series{
		{Timestamp: late.UnixMilli(), Open: 1, High: 1, Low: 1, Close: 1},
		{Timestamp: late.Add(45 * time.Minute).UnixMilli(), Open: 2, High: 2, Low: 2, Close: 2},
	}

	h4 := Resample(bars, TF4h)
	require.Len(t, h4, 2)
	assert.Equal(t, time.Date(2024, 2, 5, 20, 0, 0, 0, time.UTC).UnixMilli(), h4[0].Timestamp)
	assert.Equal(t, time.Date(2024, 2, 6, 0, 0, 0, 0, time.UTC).UnixMilli(), h4[1].Timestamp)

	d1 := Resample(bars, TF1d)
	require.Len(t, d1, 2)
	assert.Equal(t, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC).UnixMilli(), d1[0].Timestamp)
}

func TestResampleOneMinuteIsIdentity(t *testing.T) {
	bars := fiveMinutes()
	assert.Equal(t, bars, Resample(bars, TF1m))
}

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe("1H")
	require.NoError(t, err)
	assert.Equal(t, TF1h, tf)

	_, err = ParseTimeframe("2h")
	assert.ErrorIs(t, err, ErrUnknownTimeframe)

	_, err = ParseTimeframes([]string{"5m", "1w"})
	assert.ErrorIs(t, err, ErrUnknownTimeframe)
}

func TestDeriveWritesOneArtifactPerTimeframe(t *testing.T) {
	s := store.New(t.TempDir(), "dukascopy", saver.JSONCodec{})

	res, err := Derive(s, "EURUSD", []Timeframe{TF5m})
	require.NoError(t, err)
	assert.False(t, res.OK)

	_, err = s.Merge("EURUSD", nil, fiveMinutes())
	require.NoError(t, err)

	res, err = Derive(s, "EURUSD", []Timeframe{TF5m, TF1h})
	require.NoError(t, err)
	require.True(t, res.OK)
	require.Len(t, res.Derived, 2)
	assert.Equal(t, 1, res.Derived["5m"].Rows)

	_, err = os.Stat(res.Derived["1h"].Path)
	require.NoError(t, err)

	again, err := Derive(s, "EURUSD", []Timeframe{TF5m, TF1h})
	require.NoError(t, err)
	assert.Equal(t, res, again)
}
