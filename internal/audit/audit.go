// Package audit persists a durable, queryable log of quarantine and
// schema-mismatch events across update passes, backed by SQLite. It
// supplements the in-memory bad-file registry (internal/catalog),
// which only remembers the current state; this package remembers the
// history of how a dataset got there, for the CLI's `history` command.
package audit

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Kind classifies one audit event.
type Kind string

const (
	KindQuarantined     Kind = "quarantined"
	KindSchemaMismatch  Kind = "schema_mismatch"
	KindEscaped         Kind = "escaped"
	KindPersistenceFail Kind = "persistence_failed"
)

// Event is one durable log entry.
type Event struct {
	ID         int64
	DatasetID  string
	Kind       Kind
	DirIndex   int
	FileName   string
	Reason     string
	OccurredAt time.Time
}

// Store is the SQLite-backed audit log.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database at path and
// ensures its schema is current. path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("audit: create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one event.
func (s *Store) Record(ctx context.Context, e Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (dataset_id, kind, dir_index, file_name, reason) VALUES (?, ?, ?, ?, ?)`,
		e.DatasetID, string(e.Kind), e.DirIndex, e.FileName, e.Reason,
	)
	if err != nil {
		return fmt.Errorf("audit: record event: %w", err)
	}
	return nil
}

// History returns every event for datasetID, most recent first.
func (s *Store) History(ctx context.Context, datasetID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, dataset_id, kind, dir_index, file_name, reason, occurred_at
		 FROM events WHERE dataset_id = ? ORDER BY id DESC`,
		datasetID,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: query history: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var kind string
		if err := rows.Scan(&e.ID, &e.DatasetID, &kind, &e.DirIndex, &e.FileName, &e.Reason, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		e.Kind = Kind(kind)
		events = append(events, e)
	}
	return events, rows.Err()
}
