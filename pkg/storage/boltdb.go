package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/modkit/modkit/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketModules = []byte("modules")
)

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "modkit.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketModules); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketModules, err)
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// GetRecord retrieves the record for a module id
func (s *BoltStore) GetRecord(moduleID string) (*types.ModuleRecord, error) {
	var record types.ModuleRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketModules)
		data := b.Get([]byte(moduleID))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, moduleID)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// PutRecord creates or replaces a record (upsert)
func (s *BoltStore) PutRecord(record *types.ModuleRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketModules)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put([]byte(record.ModuleID), data)
	})
}

// ListRecords returns all module records
func (s *BoltStore) ListRecords() ([]*types.ModuleRecord, error) {
	var records []*types.ModuleRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketModules)
		return b.ForEach(func(k, v []byte) error {
			var record types.ModuleRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
