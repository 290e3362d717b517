// Package validate repairs or drops bars that break price sanity rules.
package validate

import (
	"math"

	"bars-archive/internal/model"
)

// DefaultMaxJump is the close-to-close fraction at which a bar is treated as a feed glitch.
const DefaultMaxJump = 0.50

// Clean applies, in order:
//  1. drop bars whose open, close, high or low is not a positive finite number;
//  2. set high and low to the max and min of the four prices;
//  3. drop bars whose close moved by maxJump or more against the preceding bar's close.
//
// The previous close in step 3 is taken from the sequence after step 1, so a dropped
// spike still serves as the reference of its successor. The first bar is never dropped
// by step 3. maxJump <= 0 disables step 3.
func Clean(bars model.Series, maxJump float64) model.Series {
	kept := make(model.Series, 0, len(bars))
	for _, b := range bars {
		if !positive(b.Open) || !positive(b.Close) || !positive(b.High) || !positive(b.Low) {
			continue
		}
		hi := math.Max(math.Max(b.Open, b.High), math.Max(b.Low, b.Close))
		lo := math.Min(math.Min(b.Open, b.High), math.Min(b.Low, b.Close))
		b.High, b.Low = hi, lo
		kept = append(kept, b)
	}
	if maxJump <= 0 || len(kept) < 2 {
		return kept
	}

	out := make(model.Series, 0, len(kept))
	out = append(out, kept[0])
	for i := 1; i < len(kept); i++ {
		change := math.Abs(kept[i].Close/kept[i-1].Close - 1)
		if change >= maxJump {
			continue
		}
		out = append(out, kept[i])
	}
	return out
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
