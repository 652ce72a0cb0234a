package recognition

import "math"

// normTolerance is how far a vector's length may drift from 1.0 before it is
// renormalized. Embedding providers normalize on their side; this only guards
// against float32 round-trip drift and misbehaving callers.
const normTolerance = 1e-3

// Dot returns the dot product of two vectors. For unit-normalized inputs this
// equals their cosine similarity. Accumulates in float64 to limit rounding error.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm returns the L2 norm of a vector.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. The input is never mutated.
// A zero vector is returned as a zero-filled copy; it can never match anything.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := Norm(v)
	if n == 0 {
		return out
	}
	if math.Abs(n-1.0) <= normTolerance {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}
