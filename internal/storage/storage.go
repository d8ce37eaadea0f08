// Package storage persists the raw snapshot inputs in SQLite and the derived
// JSON documents (history, report, lookup index) as atomically written files.
//
// Snapshots are append-only: a date is ingested once and its counts never
// change afterwards. Re-ingesting the same date replaces the row, which only
// happens when an operator deliberately reloads a corrected file.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

// ErrSnapshotNotFound is returned when no snapshot exists for a date.
var ErrSnapshotNotFound = errors.New("snapshot not found")

const dateLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	date        TEXT PRIMARY KEY,
	source      TEXT NOT NULL DEFAULT '',
	counts      TEXT NOT NULL,
	ingested_at INTEGER NOT NULL
);`

// Storage is the SQLite-backed snapshot store
type Storage struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// New opens (or creates) the snapshot database at path. ":memory:" is
// accepted for tests.
func New(path string) (*Storage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Storage{db: db, path: path}, nil
}

// Close releases the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// UpsertSnapshot stores the counts for one snapshot date.
func (s *Storage) UpsertSnapshot(in *models.SnapshotInput) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	counts, err := json.Marshal(in.Counts)
	if err != nil {
		return fmt.Errorf("failed to marshal counts: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO snapshots (date, source, counts, ingested_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			source = excluded.source,
			counts = excluded.counts,
			ingested_at = excluded.ingested_at`,
		models.Day(in.Date).Format(dateLayout), in.Source, string(counts), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", in.Date.Format(dateLayout), err)
	}
	return nil
}

// GetSnapshot returns the snapshot for date.
func (s *Storage) GetSnapshot(date time.Time) (*models.SnapshotInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT date, source, counts FROM snapshots WHERE date = ?`,
		models.Day(date).Format(dateLayout))
	in, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, date.Format(dateLayout))
	}
	return in, err
}

// HasSnapshot reports whether date has already been ingested.
func (s *Storage) HasSnapshot(date time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM snapshots WHERE date = ?`,
		models.Day(date).Format(dateLayout)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query snapshot: %w", err)
	}
	return n > 0, nil
}

// ListSnapshots returns every stored snapshot ordered by date.
func (s *Storage) ListSnapshots() ([]models.SnapshotInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT date, source, counts FROM snapshots ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.SnapshotInput
	for rows.Next() {
		in, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return out, nil
}

// DeleteSnapshot removes the snapshot for date.
func (s *Storage) DeleteSnapshot(date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM snapshots WHERE date = ?`, models.Day(date).Format(dateLayout))
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, date.Format(dateLayout))
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*models.SnapshotInput, error) {
	var date, source, counts string
	if err := row.Scan(&date, &source, &counts); err != nil {
		return nil, err
	}
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
	}
	in := &models.SnapshotInput{Date: d, Source: source}
	if err := json.Unmarshal([]byte(counts), &in.Counts); err != nil {
		return nil, fmt.Errorf("invalid stored counts for %s: %w", date, err)
	}
	return in, nil
}
