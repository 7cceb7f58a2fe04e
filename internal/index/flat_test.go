package index

import (
	"errors"
	"math"
	"testing"

	"policyrag/internal/domain"
)

func TestFlatSearchOrdering(t *testing.T) {
	idx := NewFlat()
	vecs := [][]float32{
		{0, 1},
		{1, 0},
		{0.7, 0.7},
	}
	if err := idx.Build(vecs); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	matches, err := idx.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	if matches[0].Index != 1 {
		t.Errorf("nearest = %d, want 1", matches[0].Index)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Distance < matches[i-1].Distance {
			t.Errorf("distances not non-decreasing: %v then %v", matches[i-1].Distance, matches[i].Distance)
		}
	}
}

func TestFlatSearchStableTies(t *testing.T) {
	idx := NewFlat()
	// Identical vectors tie exactly; order must follow insertion order.
	vecs := [][]float32{
		{0, 1},
		{1, 0},
		{1, 0},
	}
	if err := idx.Build(vecs); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	matches, err := idx.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if matches[0].Index != 1 || matches[1].Index != 2 {
		t.Errorf("tie order = %d,%d, want 1,2", matches[0].Index, matches[1].Index)
	}
}

func TestFlatSearchTopKClamped(t *testing.T) {
	idx := NewFlat()
	if err := idx.Build([][]float32{{1, 0}}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	matches, err := idx.Search([]float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}

func TestFlatSearchInvalidInput(t *testing.T) {
	idx := NewFlat()
	if _, err := idx.Search([]float32{1, 0}, 3); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty index: got %v, want ErrInvalidInput", err)
	}
	if err := idx.Build([][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := idx.Search([]float32{1, 0}, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("top-k 0: got %v, want ErrInvalidInput", err)
	}
	if _, err := idx.Search([]float32{1, 0, 0}, 3); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("dim mismatch: got %v, want ErrInvalidInput", err)
	}
}

func TestFlatBuildRejectsRaggedInput(t *testing.T) {
	idx := NewFlat()
	err := idx.Build([][]float32{{1, 0}, {1, 0, 0}})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestFlatBinaryRoundTrip(t *testing.T) {
	idx := NewFlat()
	vecs := [][]float32{
		{0.25, -0.5, 0.75},
		{1, 0, 0},
		{-0.1, 0.2, -0.3},
	}
	if err := idx.Build(vecs); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	data, err := idx.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	restored := NewFlat()
	if err := restored.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if restored.Len() != idx.Len() || restored.Dimension() != idx.Dimension() {
		t.Fatalf("restored %dx%d, want %dx%d", restored.Len(), restored.Dimension(), idx.Len(), idx.Dimension())
	}

	query := []float32{0.3, -0.4, 0.5}
	want, err := idx.Search(query, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	got, err := restored.Search(query, 3)
	if err != nil {
		t.Fatalf("Search on restored failed: %v", err)
	}
	for i := range want {
		if got[i].Index != want[i].Index || got[i].Distance != want[i].Distance {
			t.Errorf("result %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDecodeMatrixRejectsTruncated(t *testing.T) {
	data, err := EncodeMatrix([][]float32{{1, 2}, {3, 4}})
	if err != nil {
		t.Fatalf("EncodeMatrix failed: %v", err)
	}
	if _, err := DecodeMatrix(data[:len(data)-3]); !errors.Is(err, domain.ErrCacheCorrupt) {
		t.Errorf("truncated payload: got %v, want ErrCacheCorrupt", err)
	}
	if _, err := DecodeMatrix(data[:4]); !errors.Is(err, domain.ErrCacheCorrupt) {
		t.Errorf("truncated header: got %v, want ErrCacheCorrupt", err)
	}
}

func TestNormalizeUnitNorm(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if norm := math.Sqrt(sum); math.Abs(norm-1) > 1e-6 {
		t.Errorf("norm = %v, want 1", norm)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	Normalize(v)
	for i, x := range v {
		if x != 0 || math.IsNaN(float64(x)) {
			t.Errorf("v[%d] = %v, want 0", i, x)
		}
	}
}
