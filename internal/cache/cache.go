// Package cache persists a built index to a directory so later runs can
// skip embedding entirely. Three co-dependent artifacts live side by side:
// the raw normalized embedding matrix, the serialized search index, and the
// record metadata. They are written together and only trusted together.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"policyrag/internal/domain"
	"policyrag/internal/index"
	"policyrag/internal/store"
)

const (
	embeddingsFile = "embeddings.bin"
	indexFile      = "index.bin"
	metadataFile   = "metadata.json"
)

type metadata struct {
	Questions []string `json:"questions"`
	Answers   []string `json:"answers"`
	Sections  []string `json:"sections"`
}

// Exists reports whether a directory holds all three artifacts. Partial
// presence reads as "no cache": a crashed save must trigger a rebuild, not
// a partial load.
func Exists(dir string) bool {
	for _, name := range []string{embeddingsFile, indexFile, metadataFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// Save writes the matrix, index and metadata to dir, creating it if absent.
// Each artifact is written to a temp name and renamed into place, so a
// reader never observes a half-written file. Concurrent saves to the same
// directory are not supported and must be serialized by the caller.
func Save(dir string, matrix [][]float32, idx index.SearchIndex, recs *store.RecordStore) error {
	if len(matrix) != recs.Len() {
		return fmt.Errorf("%w: %d vectors for %d records", domain.ErrCacheCorrupt, len(matrix), recs.Len())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	matrixData, err := index.EncodeMatrix(matrix)
	if err != nil {
		return fmt.Errorf("encode embeddings: %w", err)
	}
	indexData, err := idx.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	questions, answers, sections := recs.Columns()
	metaData, err := json.MarshalIndent(metadata{
		Questions: questions,
		Answers:   answers,
		Sections:  sections,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	for _, artifact := range []struct {
		name string
		data []byte
	}{
		{embeddingsFile, matrixData},
		{indexFile, indexData},
		{metadataFile, metaData},
	} {
		if err := writeAtomic(filepath.Join(dir, artifact.name), artifact.data); err != nil {
			return fmt.Errorf("write %s: %w", artifact.name, err)
		}
	}
	return nil
}

// Load reads all three artifacts back. It fails with ErrCacheNotFound when
// any artifact is missing and ErrCacheCorrupt when an artifact does not
// parse or the artifacts disagree about the record count.
func Load(dir string) ([][]float32, *index.Flat, *store.RecordStore, error) {
	if !Exists(dir) {
		return nil, nil, nil, fmt.Errorf("%w: %s", domain.ErrCacheNotFound, dir)
	}

	matrixData, err := os.ReadFile(filepath.Join(dir, embeddingsFile))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read %s: %w", embeddingsFile, err)
	}
	matrix, err := index.DecodeMatrix(matrixData)
	if err != nil {
		return nil, nil, nil, corrupt(embeddingsFile, err)
	}

	indexData, err := os.ReadFile(filepath.Join(dir, indexFile))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read %s: %w", indexFile, err)
	}
	idx := index.NewFlat()
	if err := idx.UnmarshalBinary(indexData); err != nil {
		return nil, nil, nil, corrupt(indexFile, err)
	}

	metaRaw, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read %s: %w", metadataFile, err)
	}
	var meta metadata
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: decode %s: %v", domain.ErrCacheCorrupt, metadataFile, err)
	}
	recs, err := store.New(meta.Questions, meta.Answers, meta.Sections)
	if err != nil {
		return nil, nil, nil, err
	}

	if recs.Len() != idx.Len() || recs.Len() != len(matrix) {
		return nil, nil, nil, fmt.Errorf("%w: %d records, %d indexed vectors, %d raw vectors",
			domain.ErrCacheCorrupt, recs.Len(), idx.Len(), len(matrix))
	}
	return matrix, idx, recs, nil
}

// corrupt maps any artifact decode failure onto ErrCacheCorrupt exactly
// once, whatever the decoder reported.
func corrupt(name string, err error) error {
	if errors.Is(err, domain.ErrCacheCorrupt) {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return fmt.Errorf("%w: decode %s: %v", domain.ErrCacheCorrupt, name, err)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		rmErr := os.Remove(tmp)
		if rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return errors.Join(err, rmErr)
		}
		return err
	}
	return nil
}
