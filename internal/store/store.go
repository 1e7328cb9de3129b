// Package store is the persistence layer (C5): a single-writer,
// multi-reader SQLite-backed store for the canonical model, built the way
// haasonsaas-nexus's internal/jobs.Store wraps a plain data structure
// behind a small explicit interface, with schema DDL and migration-guard
// conventions grounded on rekal-dev-rekal-cli's db package.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/wilbur182/chatvault/internal/model"
)

// Store owns one *sql.DB. Writes are serialized through writeMu because
// SQLite allows only a single writer at a time regardless of the
// connection pool size; reads draw from the pool concurrently.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// Open opens (creating if absent) the SQLite database at path, applies the
// schema DDL, and checks the recorded schema version against
// CurrentSchemaVersion. A database stamped with a newer version than this
// build understands is refused with a SchemaMismatchError rather than
// silently run against.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("chatvault: open database: %w", err)
	}
	db.SetMaxOpenConns(8)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("chatvault: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("chatvault: enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("chatvault: apply schema: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT version FROM schema_meta LIMIT 1`)
	var version int
	switch err := row.Scan(&version); err {
	case sql.ErrNoRows:
		_, err := s.db.ExecContext(ctx, `INSERT INTO schema_meta(version) VALUES (?)`, CurrentSchemaVersion)
		return err
	case nil:
		if version > CurrentSchemaVersion {
			return &model.SchemaMismatchError{Version: version, Current: CurrentSchemaVersion, Reason: "database was written by a newer build"}
		}
		return nil
	default:
		return fmt.Errorf("chatvault: read schema version: %w", err)
	}
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
