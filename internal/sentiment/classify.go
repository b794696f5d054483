package sentiment

import "math"

// Classify maps a normalized index value onto its band label. Values outside
// [0,100] fall into the nearest edge band; NaN is Neutral.
func Classify(nwNorm float64) Classification {
	if math.IsNaN(nwNorm) {
		return Neutral
	}
	for _, b := range Bands {
		if nwNorm < b.Upper {
			return b.Label
		}
	}
	return Bands[len(Bands)-1].Label
}
