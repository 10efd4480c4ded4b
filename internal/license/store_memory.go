package license

import (
	"context"
	"sync"
)

// MemoryStore is a mutex-guarded in-process Store. It backs tests and
// single-node deployments that accept losing the record on restart.
type MemoryStore struct {
	mu  sync.Mutex
	rec *Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Read returns a copy of the current record.
func (s *MemoryStore) Read(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, ErrRecordNotFound
	}
	return s.rec.Clone(), nil
}

// Replace installs rec if the stored revision matches expectedRevision.
func (s *MemoryStore) Replace(ctx context.Context, expectedRevision int64, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if s.rec != nil {
		current = s.rec.Revision
	}
	if current != expectedRevision {
		return ErrRevisionConflict
	}

	rec.Revision = expectedRevision + 1
	s.rec = rec.Clone()
	return nil
}
