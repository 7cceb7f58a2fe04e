package index

// SearchIndex defines the searchable structure over a fixed vector set:
// build from a matrix, exact kNN queries, and binary serialization for
// persistence. Flat is the one production implementation; absence of a
// working index is a construction-time error, not a runtime flag.
type SearchIndex interface {
	// Build constructs the index from the given vectors, replacing any
	// previous contents. All vectors must share one non-zero dimension.
	Build(vectors [][]float32) error

	// Search runs an exact kNN query and returns up to topK matches in
	// ascending distance order.
	Search(query []float32, topK int) ([]Match, error)

	// Len reports the number of stored vectors.
	Len() int

	// Dimension reports the vector dimension, or 0 before Build.
	Dimension() int

	// MarshalBinary serializes the index into a byte slice.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary reconstructs the index from a serialized byte slice.
	UnmarshalBinary(data []byte) error
}

var _ SearchIndex = (*Flat)(nil)
