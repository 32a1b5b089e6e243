// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

import (
	"errors"
	"time"
)

// ErrNotFound is returned by HistoryStore.Get for an unknown record ID.
var ErrNotFound = errors.New("not found")

// HistoryStore persists scored documents.
//
// Record IDs are ULIDs, so lexical key order is creation order and List can
// walk newest-first without a secondary index. Concurrent reads are safe;
// writes are serialized by the adapter.
type HistoryStore interface {
	// Save inserts or replaces rec, keyed by rec.ID.
	Save(rec *ScoreRecord) error

	// Get returns the record with the given ID, or ErrNotFound.
	Get(id string) (*ScoreRecord, error)

	// List returns up to limit records, newest first. limit <= 0 means all.
	List(limit int) ([]*ScoreRecord, error)

	// Delete removes a record. Idempotent: deleting a missing ID is not an error.
	Delete(id string) error

	// Close releases the underlying database.
	Close() error
}

// ScoreRecord is one scored document.
type ScoreRecord struct {
	ID      string         `json:"id"`
	Source  string         `json:"source"` // file path, URL, or "-" for inline text
	Kind    string         `json:"kind"`   // "text", "pdf", "html", "url"
	Initial float64        `json:"initial"`
	Score   float64        `json:"score"`
	Matches int            `json:"matches"`
	Markers map[string]int `json:"markers,omitempty"` // phrase -> occurrences
	Words   int            `json:"words"`
	At      time.Time      `json:"at"`
}
