// Package store is the data access layer for the field-office registry.
//
// The store receives an already-opened *sql.DB (see dbopen) and owns the
// sources, entities, changes, and fetch_log tables. The changes table is
// append-only; entities are mutated only through the merge resolver and
// the orchestrator.
package store

import "database/sql"

// Store wraps the registry database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
