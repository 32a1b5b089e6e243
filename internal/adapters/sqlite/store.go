// Package sqlite implements ports.HistoryStore on SQLite (modernc.org/sqlite,
// pure Go, no cgo). It is the alternative to the bbolt store when the history
// should be queryable with ordinary SQL tools.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/corey/rigor/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	kind       TEXT NOT NULL,
	initial    REAL NOT NULL,
	score      REAL NOT NULL,
	matches    INTEGER NOT NULL,
	markers    TEXT,
	words      INTEGER NOT NULL,
	scored_at  TEXT NOT NULL
);
`

// Store implements ports.HistoryStore backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database with WAL mode enabled.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite wal: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=1000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces rec.
func (s *Store) Save(rec *ports.ScoreRecord) error {
	if rec == nil {
		return fmt.Errorf("nil record")
	}
	if rec.ID == "" {
		return fmt.Errorf("record has no id")
	}
	markers, err := json.Marshal(rec.Markers)
	if err != nil {
		return fmt.Errorf("marshal markers: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO history (id, source, kind, initial, score, matches, markers, words, scored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source=excluded.source, kind=excluded.kind, initial=excluded.initial,
			score=excluded.score, matches=excluded.matches, markers=excluded.markers,
			words=excluded.words, scored_at=excluded.scored_at`,
		rec.ID, rec.Source, rec.Kind, rec.Initial, rec.Score, rec.Matches,
		string(markers), rec.Words, rec.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save record %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record with the given ID, or ports.ErrNotFound.
func (s *Store) Get(id string) (*ports.ScoreRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, source, kind, initial, score, matches, markers, words, scored_at
		FROM history WHERE id=?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]*ports.ScoreRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means no limit
	}
	rows, err := s.db.Query(`
		SELECT id, source, kind, initial, score, matches, markers, words, scored_at
		FROM history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []*ports.ScoreRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a record. Idempotent: deleting a missing ID is not an error.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM history WHERE id=?`, id)
	return err
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM history`).Scan(&n)
	return n, err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*ports.ScoreRecord, error) {
	var (
		rec     ports.ScoreRecord
		markers sql.NullString
		at      string
	)
	err := sc.Scan(&rec.ID, &rec.Source, &rec.Kind, &rec.Initial, &rec.Score,
		&rec.Matches, &markers, &rec.Words, &at)
	if err != nil {
		return nil, err
	}
	if markers.Valid && markers.String != "" && markers.String != "null" {
		if err := json.Unmarshal([]byte(markers.String), &rec.Markers); err != nil {
			return nil, fmt.Errorf("unmarshal markers for %s: %w", rec.ID, err)
		}
	}
	rec.At, err = time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return nil, fmt.Errorf("parse time for %s: %w", rec.ID, err)
	}
	return &rec, nil
}
