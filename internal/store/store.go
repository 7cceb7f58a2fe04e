// Package store holds the indexed corpus content. The store is the lookup
// side of the index: search returns positions, the store turns positions
// back into records.
package store

import (
	"fmt"

	"policyrag/internal/domain"
)

// RecordStore keeps questions, answers and sections as three parallel
// slices sharing one length. Positions are the record identity everywhere:
// vector i, metadata row i and record i all describe the same entry.
type RecordStore struct {
	questions []string
	answers   []string
	sections  []string
}

// New builds a RecordStore from parallel slices. A length mismatch means
// the artifacts the slices came from disagree and must not be trusted.
func New(questions, answers, sections []string) (*RecordStore, error) {
	if len(questions) != len(answers) || len(questions) != len(sections) {
		return nil, fmt.Errorf("%w: metadata lengths disagree: %d questions, %d answers, %d sections",
			domain.ErrCacheCorrupt, len(questions), len(answers), len(sections))
	}
	return &RecordStore{questions: questions, answers: answers, sections: sections}, nil
}

// FromRecords builds a RecordStore from an ordered corpus.
func FromRecords(records []domain.Record) *RecordStore {
	s := &RecordStore{
		questions: make([]string, len(records)),
		answers:   make([]string, len(records)),
		sections:  make([]string, len(records)),
	}
	for i, r := range records {
		s.questions[i] = r.Question
		s.answers[i] = r.Answer
		s.sections[i] = r.Section
	}
	return s
}

// Len reports the number of records.
func (s *RecordStore) Len() int { return len(s.questions) }

// Get returns the record at position i. Indices originate from a search
// over the same-sized matrix, so an out-of-range i is a programming error
// and panics rather than returning a recoverable error.
func (s *RecordStore) Get(i int) domain.Record {
	if i < 0 || i >= len(s.questions) {
		panic(fmt.Sprintf("store: index %d out of range [0,%d)", i, len(s.questions)))
	}
	return domain.Record{
		Question: s.questions[i],
		Answer:   s.answers[i],
		Section:  s.sections[i],
	}
}

// Columns exposes the underlying parallel slices for persistence. Callers
// must not mutate them.
func (s *RecordStore) Columns() (questions, answers, sections []string) {
	return s.questions, s.answers, s.sections
}
