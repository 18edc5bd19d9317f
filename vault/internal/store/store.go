// Package store provides the data access layer for the document vault.
//
// The store receives an already-opened *sql.DB (see dbopen) so that tests
// can run against an in-memory database with the same schema.
package store

import "database/sql"

// Store wraps the vault database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
