package strategy

import "math"

// NormalizeFraction maps the three accepted spellings of a percentage-like
// input onto a single positive fraction of price:
//
//	-10.0 (signed percent)  -> 0.10
//	 10.0 (percent)         -> 0.10
//	 0.10 (fraction)        -> 0.10
//
// The function is idempotent: applying it to its own output is a no-op,
// because the output is always in [0, 1].
func NormalizeFraction(v float64) float64 {
	v = math.Abs(v)
	if v > 1 {
		return v / 100
	}
	return v
}
