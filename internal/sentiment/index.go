package sentiment

import (
	"errors"
	"fmt"
	"math"
)

// ErrLengthMismatch is returned when scores and weights are not paired.
var ErrLengthMismatch = errors.New("scores and weights differ in length")

const minTotalWeight = 1e-12

// ComputeIndex aggregates per-document scores into the index. nw is the
// weighted sum of net sentiment; nw_norm rescales the weighted average from
// [-1,1] onto [0,100]. Non-finite or non-positive weights contribute nothing.
// An empty corpus yields the neutral default.
func ComputeIndex(scores []Score, weights []float64) (Components, error) {
	if len(scores) != len(weights) {
		return Components{}, fmt.Errorf("%w: %d scores, %d weights", ErrLengthMismatch, len(scores), len(weights))
	}

	var nw, total float64
	for i, s := range scores {
		w := weights[i]
		if !(w > 0) || math.IsInf(w, 0) {
			continue
		}
		net := s.Net()
		if math.IsNaN(net) || math.IsInf(net, 0) {
			continue
		}
		nw += w * net
		total += w
	}

	if total <= minTotalWeight || math.IsInf(total, 0) || math.IsNaN(nw) {
		return NeutralComponents(), nil
	}

	norm := clamp(50+50*(nw/total), 0, 100)
	return Components{
		NW:             nw,
		NWNorm:         norm,
		GSI:            norm,
		Classification: Classify(norm),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(hi, v))
}
