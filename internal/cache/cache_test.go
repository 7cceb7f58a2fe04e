package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"policyrag/internal/domain"
	"policyrag/internal/index"
	"policyrag/internal/store"
)

func buildFixture(t *testing.T) ([][]float32, *index.Flat, *store.RecordStore) {
	t.Helper()
	matrix := [][]float32{
		{0.6, 0.8},
		{1, 0},
	}
	idx := index.NewFlat()
	if err := idx.Build(matrix); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	recs := store.FromRecords([]domain.Record{
		{Question: "q1", Answer: "a1", Section: "s1"},
		{Question: "q2", Answer: "a2", Section: "s2"},
	})
	return matrix, idx, recs
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vector_index")
	matrix, idx, recs := buildFixture(t)

	if Exists(dir) {
		t.Fatal("Exists true before save")
	}
	if err := Save(dir, matrix, idx, recs); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !Exists(dir) {
		t.Fatal("Exists false after save")
	}

	gotMatrix, gotIdx, gotRecs, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(gotMatrix) != len(matrix) {
		t.Fatalf("got %d vectors, want %d", len(gotMatrix), len(matrix))
	}
	for i := range matrix {
		for j := range matrix[i] {
			if gotMatrix[i][j] != matrix[i][j] {
				t.Errorf("matrix[%d][%d] = %v, want %v", i, j, gotMatrix[i][j], matrix[i][j])
			}
		}
	}
	if gotRecs.Len() != recs.Len() {
		t.Fatalf("got %d records, want %d", gotRecs.Len(), recs.Len())
	}
	for i := 0; i < recs.Len(); i++ {
		if gotRecs.Get(i) != recs.Get(i) {
			t.Errorf("record %d = %+v, want %+v", i, gotRecs.Get(i), recs.Get(i))
		}
	}

	// A fixed query must rank identically on the reloaded index.
	query := []float32{0.7, 0.7}
	want, err := idx.Search(query, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	got, err := gotIdx.Search(query, 2)
	if err != nil {
		t.Fatalf("Search on loaded index failed: %v", err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("match %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLoadMissingArtifactIsNotFound(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vector_index")
	matrix, idx, recs := buildFixture(t)
	if err := Save(dir, matrix, idx, recs); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "metadata.json")); err != nil {
		t.Fatalf("remove metadata: %v", err)
	}

	if Exists(dir) {
		t.Error("Exists true with missing metadata")
	}
	if _, _, _, err := Load(dir); !errors.Is(err, domain.ErrCacheNotFound) {
		t.Errorf("got %v, want ErrCacheNotFound", err)
	}
}

func TestLoadAbsentDirIsNotFound(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never-created")
	if _, _, _, err := Load(dir); !errors.Is(err, domain.ErrCacheNotFound) {
		t.Errorf("got %v, want ErrCacheNotFound", err)
	}
}

func TestLoadGarbageMetadataIsCorrupt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vector_index")
	matrix, idx, recs := buildFixture(t)
	if err := Save(dir, matrix, idx, recs); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("corrupt metadata: %v", err)
	}
	if _, _, _, err := Load(dir); !errors.Is(err, domain.ErrCacheCorrupt) {
		t.Errorf("got %v, want ErrCacheCorrupt", err)
	}
}

func TestLoadLengthMismatchIsCorrupt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vector_index")
	matrix, idx, recs := buildFixture(t)
	if err := Save(dir, matrix, idx, recs); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	meta := `{"questions":["q1"],"answers":["a1"],"sections":["s1"]}`
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), []byte(meta), 0o644); err != nil {
		t.Fatalf("rewrite metadata: %v", err)
	}
	if _, _, _, err := Load(dir); !errors.Is(err, domain.ErrCacheCorrupt) {
		t.Errorf("got %v, want ErrCacheCorrupt", err)
	}
}

func TestLoadTruncatedEmbeddingsIsCorrupt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vector_index")
	matrix, idx, recs := buildFixture(t)
	if err := Save(dir, matrix, idx, recs); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	path := filepath.Join(dir, "embeddings.bin")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read embeddings: %v", err)
	}
	if err := os.WriteFile(path, data[:len(data)-5], 0o644); err != nil {
		t.Fatalf("truncate embeddings: %v", err)
	}
	if _, _, _, err := Load(dir); !errors.Is(err, domain.ErrCacheCorrupt) {
		t.Errorf("got %v, want ErrCacheCorrupt", err)
	}
}

func TestSaveRejectsVectorRecordMismatch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vector_index")
	matrix, idx, _ := buildFixture(t)
	recs := store.FromRecords([]domain.Record{{Question: "q", Answer: "a", Section: "s"}})
	if err := Save(dir, matrix, idx, recs); !errors.Is(err, domain.ErrCacheCorrupt) {
		t.Fatalf("got %v, want ErrCacheCorrupt", err)
	}
}
