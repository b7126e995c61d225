package storage

import (
	"fmt"
	"sync"

	"github.com/modkit/modkit/pkg/types"
)

// MemStore is an in-memory Store implementation. It exists for tests
// and for running the engine without a data directory; production
// deployments use BoltStore.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]types.ModuleRecord
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]types.ModuleRecord),
	}
}

// GetRecord retrieves the record for a module id
func (s *MemStore) GetRecord(moduleID string) (*types.ModuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[moduleID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, moduleID)
	}
	return &record, nil
}

// PutRecord creates or replaces a record (upsert)
func (s *MemStore) PutRecord(record *types.ModuleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ModuleID] = *record
	return nil
}

// ListRecords returns all module records
func (s *MemStore) ListRecords() ([]*types.ModuleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*types.ModuleRecord, 0, len(s.records))
	for id := range s.records {
		record := s.records[id]
		records = append(records, &record)
	}
	return records, nil
}

// Close is a no-op for the in-memory store
func (s *MemStore) Close() error {
	return nil
}
