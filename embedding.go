package botsort

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// normalize returns a unit-L2-norm copy of v. Grounded on the teacher's
// postprocess/reid.NormalizeVec, rewritten on gonum/floats' dot product
// instead of a hand-rolled loop, consistent with this module's existing
// gonum dependency.
func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	f64 := toFloat64(v)
	norm := math.Sqrt(floats.Dot(f64, f64))
	if norm == 0 {
		return out
	}

	inv := float32(1 / norm)
	for i := range out {
		out[i] *= inv
	}
	return out
}

// cosineDistance returns 1 - a·b, clipped to [0, +inf) per spec §4.4
// ("embedding_distance ... clipped to >= 0"). This equals 1 - cosine
// similarity only when a and b are unit-norm; the inputs are not normalized
// here. A
// dimension mismatch (rejected upstream at the frame boundary per spec §7,
// but guarded here too since floats.Dot panics on unequal lengths) is
// treated as maximally dissimilar rather than crashing the call.
func cosineDistance(a, b []float32) float32 {
	if len(a) != len(b) {
		return 1
	}

	fa, fb := toFloat64(a), toFloat64(b)
	sim := float32(floats.Dot(fa, fb))
	d := 1 - sim
	if d < 0 {
		return 0
	}
	return d
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
