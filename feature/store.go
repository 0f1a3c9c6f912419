package feature

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store supplies feature vectors to the decision engine. Implementations
// must be safe for concurrent readers; the engine calls Vector from many
// worker goroutines during a run.
type Store interface {
	// Vector returns the feature vector for one subject, or
	// ErrSubjectNotFound if the store has no data for it.
	Vector(ctx context.Context, subjectID string) (Vector, error)

	// Subjects lists the subject IDs the store has vectors for, in
	// stable (sorted) order.
	Subjects(ctx context.Context) ([]string, error)
}

// MapStore is an in-memory Store backed by a plain map. It is the
// default for tests and single-process runs.
type MapStore struct {
	mu      sync.RWMutex
	vectors map[string]Vector
}

// NewMapStore creates an empty in-memory store.
func NewMapStore() *MapStore {
	return &MapStore{vectors: make(map[string]Vector)}
}

// Set stores a subject's vector, replacing any previous one. The vector
// is copied so later caller mutations do not leak into the store.
func (s *MapStore) Set(subjectID string, vec Vector) {
	copied := make(Vector, len(vec))
	for k, v := range vec {
		copied[k] = v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[subjectID] = copied
}

// Vector returns the stored vector for the subject.
func (s *MapStore) Vector(_ context.Context, subjectID string) (Vector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vec, ok := s.vectors[subjectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSubjectNotFound, subjectID)
	}
	return vec, nil
}

// Subjects returns the stored subject IDs in sorted order.
func (s *MapStore) Subjects(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.vectors))
	for id := range s.vectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
