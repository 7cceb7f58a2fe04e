// Package index implements exact nearest-neighbor search over a fixed set
// of embedding vectors. The index is flat by design: the corpus fits in
// memory and exactness matters more than sublinear lookups at this scale.
package index

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"policyrag/internal/domain"
)

// Match is one search hit: the position of a stored vector and its squared
// Euclidean distance to the query.
type Match struct {
	Index    int
	Distance float32
}

// Flat is a brute-force vector index using squared L2 distance. With
// unit-normalized inputs the ordering is equivalent to cosine similarity.
// It is immutable after Build; rebuilding is the only mutation path.
type Flat struct {
	dim  int
	vecs [][]float32
}

// NewFlat returns an empty index. Build must be called before Search.
func NewFlat() *Flat { return &Flat{} }

// Len reports the number of stored vectors.
func (f *Flat) Len() int { return len(f.vecs) }

// Dimension reports the vector dimension, or 0 before Build.
func (f *Flat) Dimension() int { return f.dim }

// Build stores the given vectors, replacing any previous contents.
// All vectors must share one non-zero dimension.
func (f *Flat) Build(vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("%w: no vectors to index", domain.ErrInvalidInput)
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: zero-dimension vectors", domain.ErrInvalidInput)
	}
	for i := range vectors {
		if len(vectors[i]) != dim {
			return fmt.Errorf("%w: vector %d has dim %d, want %d", domain.ErrInvalidInput, i, len(vectors[i]), dim)
		}
	}
	f.vecs = append([][]float32(nil), vectors...)
	f.dim = dim
	return nil
}

// Search returns up to topK matches in ascending distance order. Ties keep
// insertion order so results are stable across runs.
func (f *Flat) Search(query []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top-k must be positive, got %d", domain.ErrInvalidInput, topK)
	}
	if f.dim == 0 || len(f.vecs) == 0 {
		return nil, fmt.Errorf("%w: index is empty", domain.ErrInvalidInput)
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query dim %d != index dim %d", domain.ErrInvalidInput, len(query), f.dim)
	}
	matches := make([]Match, len(f.vecs))
	for i, v := range f.vecs {
		matches[i] = Match{Index: i, Distance: squaredL2(query, v)}
	}
	sort.SliceStable(matches, func(a, b int) bool { return matches[a].Distance < matches[b].Distance })
	if topK > len(matches) {
		topK = len(matches)
	}
	return matches[:topK], nil
}

// MarshalBinary stores: dim(uint32), n(uint32), then n*dim little-endian
// float32 values in row order.
func (f *Flat) MarshalBinary() ([]byte, error) {
	return EncodeMatrix(f.vecs)
}

// UnmarshalBinary restores the index from bytes produced by MarshalBinary.
func (f *Flat) UnmarshalBinary(data []byte) error {
	vecs, err := DecodeMatrix(data)
	if err != nil {
		return err
	}
	return f.Build(vecs)
}

// EncodeMatrix serializes a rectangular float32 matrix with a
// dim(uint32), n(uint32) header followed by the rows.
func EncodeMatrix(vecs [][]float32) ([]byte, error) {
	dim := 0
	if len(vecs) > 0 {
		dim = len(vecs[0])
	}
	out := make([]byte, 8, 8+4*dim*len(vecs))
	binary.LittleEndian.PutUint32(out[0:4], uint32(dim))
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(vecs)))
	buf := make([]byte, 4)
	for i, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: row %d has dim %d, want %d", domain.ErrInvalidInput, i, len(v), dim)
		}
		for _, x := range v {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
			out = append(out, buf...)
		}
	}
	return out, nil
}

// DecodeMatrix restores a matrix serialized by EncodeMatrix. The payload
// length must agree exactly with the header.
func DecodeMatrix(data []byte) ([][]float32, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: matrix header truncated", domain.ErrCacheCorrupt)
	}
	dim := int(binary.LittleEndian.Uint32(data[0:4]))
	n := int(binary.LittleEndian.Uint32(data[4:8]))
	if len(data) != 8+4*dim*n {
		return nil, fmt.Errorf("%w: matrix payload is %d bytes, want %d", domain.ErrCacheCorrupt, len(data)-8, 4*dim*n)
	}
	off := 8
	vecs := make([][]float32, n)
	for i := 0; i < n; i++ {
		row := make([]float32, dim)
		for j := 0; j < dim; j++ {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		vecs[i] = row
	}
	return vecs, nil
}

func squaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}
