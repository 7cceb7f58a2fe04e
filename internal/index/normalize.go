package index

import "math"

// normEpsilon keeps the division defined for degenerate all-zero vectors,
// matching v / (||v|| + 1e-12).
const normEpsilon = 1e-12

// Normalize scales v to unit L2 norm in place. A zero vector stays zero.
// The same scaling is applied to stored vectors at build time and to the
// query at search time; squared L2 over unit vectors then orders results
// like cosine similarity.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	inv := 1.0 / (math.Sqrt(sum) + normEpsilon)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}

// NormalizeAll normalizes every row of the matrix in place.
func NormalizeAll(vecs [][]float32) {
	for _, v := range vecs {
		Normalize(v)
	}
}
