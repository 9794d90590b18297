// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"fmt"

	"pokerbot/models"
)

// Repository is the session persistence contract. Get creates an empty
// session on first access; Save after Delete recreates it. Implementations
// must be safe for concurrent use: the engine serializes operations per
// session, but different sessions run in parallel.
type Repository interface {
	Get(key models.SessionKey) (*models.Session, error)
	Save(s *models.Session) error
	Delete(key models.SessionKey) error
}

// Store backend names accepted by Open.
const (
	TypeMemory   = "memory"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Open constructs the backend selected by storeType. dsn is the Postgres
// connection string or the SQLite file path; it is ignored for memory.
func Open(storeType, dsn string) (Repository, error) {
	switch storeType {
	case TypeMemory:
		return NewMemory(), nil
	case TypeSQLite:
		return OpenSQLite(dsn)
	case TypePostgres:
		return OpenPostgres(dsn)
	}
	return nil, fmt.Errorf("unknown store type %q", storeType)
}
