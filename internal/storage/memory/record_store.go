// Package memory provides an in-memory word count record store for
// development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/wordcount-api/internal/storage"
	"github.com/JakeFAU/wordcount-api/internal/wordcount"
)

// RecordStore keeps records in insertion order.
type RecordStore struct {
	mu      sync.RWMutex
	records []wordcount.Record
	ids     map[string]struct{}
	closed  bool
}

// NewRecordStore constructs a RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{ids: make(map[string]struct{})}
}

// Insert stores a copy of rec.
func (s *RecordStore) Insert(_ context.Context, rec wordcount.Record) (wordcount.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return wordcount.Record{}, storage.Insert(errors.New("store is closed"))
	}
	if _, exists := s.ids[rec.ID]; exists {
		return wordcount.Record{}, storage.Insert(fmt.Errorf("record %q already exists", rec.ID))
	}
	s.ids[rec.ID] = struct{}{}
	s.records = append(s.records, storage.Project(rec, true))
	return rec, nil
}

// Find returns copies of the stored records shaped by q.
func (s *RecordStore) Find(_ context.Context, q wordcount.FindQuery) ([]wordcount.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.Find(errors.New("store is closed"))
	}
	return storage.ApplyQuery(s.records, q), nil
}

// Len reports the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close marks the store closed; later calls fail.
func (s *RecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
