// Package service orchestrates the retrieval lifecycle: build an index
// from a corpus, persist and reload it, and answer ranked similarity
// queries over it.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"policyrag/internal/cache"
	"policyrag/internal/corpus"
	"policyrag/internal/domain"
	"policyrag/internal/index"
	"policyrag/internal/store"
)

// DefaultTopK is the result count used when a caller passes no preference.
const DefaultTopK = 3

// Questions are embedded as passages and queries as queries. The asymmetric
// prefixes match how retrieval embedding models are trained; they must be
// identical between build and query time or distances are meaningless.
const (
	passagePrefix = "passage: "
	queryPrefix   = "query: "
)

// Engine is the retrieval engine: it owns the embedder, the search index
// and the record store. After a successful BuildIndex or LoadIndex the
// engine is immutable and safe for concurrent Retrieve calls; builds and
// loads must not race queries or each other.
type Engine struct {
	embedder domain.Embedder
	log      *zap.Logger

	matrix  [][]float32
	idx     index.SearchIndex
	records *store.RecordStore
	ready   bool
}

// New creates an engine around the given embedder. A nil logger disables
// logging.
func New(embedder domain.Embedder, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{embedder: embedder, log: logger}
}

// Len reports the number of indexed records, 0 before build/load.
func (e *Engine) Len() int {
	if !e.ready {
		return 0
	}
	return e.records.Len()
}

// BuildIndex builds the index from a line-delimited corpus and persists it
// to cacheDir. When cacheDir already holds a complete cache the cache wins:
// the corpus is not read and no embeddings are computed, even if the corpus
// changed since. Clearing the directory is the only way to force a rebuild.
func (e *Engine) BuildIndex(ctx context.Context, corpusPath, cacheDir string) error {
	if cache.Exists(cacheDir) {
		e.log.Info("cache found, skipping embedding", zap.String("dir", cacheDir))
		return e.LoadIndex(cacheDir)
	}

	records, err := corpus.Load(corpusPath)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrCorpusEmpty, corpusPath)
	}
	e.log.Info("corpus loaded",
		zap.String("path", corpusPath),
		zap.Int("records", len(records)))

	passages := make([]string, len(records))
	for i, r := range records {
		passages[i] = passagePrefix + r.Question
	}
	start := time.Now()
	matrix, err := e.embedder.Encode(ctx, passages)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}
	if len(matrix) != len(records) {
		return fmt.Errorf("%w: embedder returned %d vectors for %d records",
			domain.ErrProviderFailure, len(matrix), len(records))
	}
	index.NormalizeAll(matrix)
	e.log.Info("embeddings computed",
		zap.String("model", e.embedder.Name()),
		zap.Int("dimension", e.embedder.Dimension()),
		zap.Duration("elapsed", time.Since(start)))

	idx := index.NewFlat()
	if err := idx.Build(matrix); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	recs := store.FromRecords(records)

	if err := cache.Save(cacheDir, matrix, idx, recs); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	e.log.Info("index cached", zap.String("dir", cacheDir), zap.Int("vectors", idx.Len()))

	e.matrix = matrix
	e.idx = idx
	e.records = recs
	e.ready = true
	return nil
}

// LoadIndex loads a previously built index from cacheDir without touching
// the embedder.
func (e *Engine) LoadIndex(cacheDir string) error {
	matrix, idx, recs, err := cache.Load(cacheDir)
	if err != nil {
		return err
	}
	e.matrix = matrix
	e.idx = idx
	e.records = recs
	e.ready = true
	e.log.Info("index loaded", zap.String("dir", cacheDir), zap.Int("records", recs.Len()))
	return nil
}

// Retrieve embeds the query and returns the topK nearest records by
// ascending squared L2 distance, ranks starting at 1. Asking for more than
// the corpus holds returns everything. The embedder call blocks on an
// external service; bound it through ctx.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) ([]domain.QueryResult, error) {
	if !e.ready {
		return nil, fmt.Errorf("%w: call BuildIndex or LoadIndex first", domain.ErrIndexNotReady)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top-k must be positive, got %d", domain.ErrInvalidInput, topK)
	}
	vecs, err := e.embedder.Encode(ctx, []string{queryPrefix + query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for one query",
			domain.ErrProviderFailure, len(vecs))
	}
	qvec := vecs[0]
	index.Normalize(qvec)

	matches, err := e.idx.Search(qvec, topK)
	if err != nil {
		return nil, err
	}
	results := make([]domain.QueryResult, len(matches))
	for rank, m := range matches {
		rec := e.records.Get(m.Index)
		results[rank] = domain.QueryResult{
			Question: rec.Question,
			Answer:   rec.Answer,
			Section:  rec.Section,
			Distance: m.Distance,
			Rank:     rank + 1,
		}
	}
	return results, nil
}

// Context retrieves for the query and formats the hits into one text block
// for prompt construction. Entries are appended in rank order until the
// next whole entry would push the running total past maxChars; a partial
// entry is never emitted. This path is best-effort: any retrieval failure
// yields an empty string rather than an error.
func (e *Engine) Context(ctx context.Context, query string, maxChars, topK int) string {
	if topK <= 0 {
		topK = DefaultTopK
	}
	results, err := e.Retrieve(ctx, query, topK)
	if err != nil {
		e.log.Warn("context retrieval failed", zap.Error(err))
		return ""
	}
	var parts []string
	total := 0
	for _, r := range results {
		entry := fmt.Sprintf("Q: %s\nA: %s\n[From: %s]", r.Question, r.Answer, r.Section)
		if total+len(entry) > maxChars {
			break
		}
		parts = append(parts, entry)
		total += len(entry)
	}
	return strings.Join(parts, "\n\n")
}
