/*
Package storage provides BoltDB-backed persistence for module records.

The storage package implements the Store interface using BoltDB as the
underlying database. Each module record is one JSON value keyed by module id
in a single bucket, so a record read or write is a single atomic B+tree
operation.

# Architecture

	┌──────────────── BOLTDB STORAGE ────────────────┐
	│                                                  │
	│  ┌───────────────────────────────────┐          │
	│  │           BoltStore                │          │
	│  │  - File: <dataDir>/modkit.db       │          │
	│  │  - Transactions: ACID with fsync   │          │
	│  └────────────────┬──────────────────┘          │
	│                   │                              │
	│  ┌────────────────▼──────────────────┐          │
	│  │          Bucket Structure          │          │
	│  │  modules  (key: module id,         │          │
	│  │            value: JSON record)     │          │
	│  └───────────────────────────────────┘          │
	└──────────────────────────────────────────────────┘

# Transaction Model

  - Read: db.View() - concurrent, consistent snapshots
  - Write: db.Update() - serialized, atomic commits

The routing gate re-reads a module's record on every request; BoltDB's MVCC
read transactions make that lock-free on the request path. Writes (install,
uninstall, upgrade, path update) are serialised by BoltDB's single-writer
model, which is what gives concurrent installs of the same module one
consistent final record.

# Design Patterns

Upsert Pattern:
  - PutRecord creates or replaces in one operation
  - No separate "exists" check needed

Not-Found Sentinel:
  - GetRecord wraps ErrNotFound so callers can distinguish an absent
    record from an infrastructure fault with errors.Is

Records are never deleted. Uninstall transitions a record's status while
preserving its configured base path and installed version for reinstall.

# MemStore

MemStore is a map-backed Store used by tests; it mirrors BoltStore
semantics including the ErrNotFound wrapping.

# See Also

  - pkg/registry for the state machine driving writes
  - pkg/gate for the per-request read path
  - BoltDB documentation: https://github.com/etcd-io/bbolt
*/
package storage
