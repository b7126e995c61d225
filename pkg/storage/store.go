package storage

import (
	"errors"

	"github.com/modkit/modkit/pkg/types"
)

// ErrNotFound is returned when no record exists for a module id.
// Callers distinguish it from infrastructure faults with errors.Is.
var ErrNotFound = errors.New("module record not found")

// Store defines the interface for module record persistence.
// Implementations must provide atomic single-record reads and writes;
// the routing gate relies on that for its lock-free admission path.
type Store interface {
	// GetRecord returns the record for a module id, or an error
	// wrapping ErrNotFound if none exists.
	GetRecord(moduleID string) (*types.ModuleRecord, error)

	// PutRecord creates or replaces a record (upsert).
	PutRecord(record *types.ModuleRecord) error

	// ListRecords returns all records, including orphaned ones whose
	// module id has no registered descriptor.
	ListRecords() ([]*types.ModuleRecord, error)

	// Utility
	Close() error
}
