package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/modkit/modkit/pkg/types"
)

// storeFactories lets every test run against both implementations.
var storeFactories = map[string]func(t *testing.T) Store{
	"bolt": func(t *testing.T) Store {
		store, err := NewBoltStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewBoltStore() error = %v", err)
		}
		t.Cleanup(func() { store.Close() })
		return store
	},
	"memory": func(t *testing.T) Store {
		return NewMemStore()
	},
}

func TestGetRecordNotFound(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			_, err := store.GetRecord("ghost")
			if err == nil {
				t.Fatal("GetRecord() expected error for missing record")
			}
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("GetRecord() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestPutAndGetRecord(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			record := &types.ModuleRecord{
				ModuleID:         "product",
				Status:           types.StatusInstalled,
				InstalledVersion: "1.0.0",
				BasePath:         "shop",
				InstallDate:      time.Now().UTC(),
			}
			if err := store.PutRecord(record); err != nil {
				t.Fatalf("PutRecord() error = %v", err)
			}

			got, err := store.GetRecord("product")
			if err != nil {
				t.Fatalf("GetRecord() error = %v", err)
			}
			if got.Status != types.StatusInstalled {
				t.Errorf("Status = %q, want %q", got.Status, types.StatusInstalled)
			}
			if got.InstalledVersion != "1.0.0" {
				t.Errorf("InstalledVersion = %q, want %q", got.InstalledVersion, "1.0.0")
			}
			if got.BasePath != "shop" {
				t.Errorf("BasePath = %q, want %q", got.BasePath, "shop")
			}
		})
	}
}

func TestPutRecordUpsert(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			record := &types.ModuleRecord{
				ModuleID:         "product",
				Status:           types.StatusInstalled,
				InstalledVersion: "1.0.0",
			}
			if err := store.PutRecord(record); err != nil {
				t.Fatalf("PutRecord() error = %v", err)
			}

			record.Status = types.StatusNotInstalled
			if err := store.PutRecord(record); err != nil {
				t.Fatalf("PutRecord() upsert error = %v", err)
			}

			got, err := store.GetRecord("product")
			if err != nil {
				t.Fatalf("GetRecord() error = %v", err)
			}
			if got.Status != types.StatusNotInstalled {
				t.Errorf("Status after upsert = %q, want %q", got.Status, types.StatusNotInstalled)
			}
		})
	}
}

func TestListRecords(t *testing.T) {
	for name, newStore := range storeFactories {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)

			records, err := store.ListRecords()
			if err != nil {
				t.Fatalf("ListRecords() error = %v", err)
			}
			if len(records) != 0 {
				t.Fatalf("ListRecords() on empty store = %d records, want 0", len(records))
			}

			for _, id := range []string{"product", "booking", "crm"} {
				if err := store.PutRecord(&types.ModuleRecord{
					ModuleID: id,
					Status:   types.StatusInstalled,
				}); err != nil {
					t.Fatalf("PutRecord(%s) error = %v", id, err)
				}
			}

			records, err = store.ListRecords()
			if err != nil {
				t.Fatalf("ListRecords() error = %v", err)
			}
			if len(records) != 3 {
				t.Errorf("ListRecords() = %d records, want 3", len(records))
			}
		})
	}
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBoltStore(dir)
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	if err := store.PutRecord(&types.ModuleRecord{
		ModuleID:         "product",
		Status:           types.StatusInstalled,
		InstalledVersion: "1.2.0",
	}); err != nil {
		t.Fatalf("PutRecord() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewBoltStore(dir)
	if err != nil {
		t.Fatalf("NewBoltStore() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetRecord("product")
	if err != nil {
		t.Fatalf("GetRecord() after reopen error = %v", err)
	}
	if got.InstalledVersion != "1.2.0" {
		t.Errorf("InstalledVersion after reopen = %q, want %q", got.InstalledVersion, "1.2.0")
	}
}
