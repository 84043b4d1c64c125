// Package history persists completed build records for inspection across runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one completed (or failed) build.
type Record struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
	Artifacts  int               `json:"artifacts"`
	Error      string            `json:"error,omitempty"`
	Assets     map[string]string `json:"assets,omitempty"`
	Signature  string            `json:"signature,omitempty"`
	SourceRev  string            `json:"source_rev,omitempty"`
	ConfigHash string            `json:"config_hash,omitempty"`
}

// Store persists build records in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens a SQLite-backed history store.
// Use ":memory:" for an in-memory database, or a file path for persistence.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		artifacts INTEGER NOT NULL,
		error TEXT,
		assets TEXT,
		signature TEXT,
		source_rev TEXT,
		config_hash TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_started_at ON builds(started_at);
	CREATE INDEX IF NOT EXISTS idx_status ON builds(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records a completed build.
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var assetsJSON []byte
	if rec.Assets != nil {
		var err error
		assetsJSON, err = json.Marshal(rec.Assets)
		if err != nil {
			return fmt.Errorf("marshal assets: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, status, started_at, duration_ms, artifacts, error, assets, signature, source_rev, config_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Status, rec.StartedAt.Unix(), rec.Duration.Milliseconds(),
		rec.Artifacts, rec.Error, assetsJSON, rec.Signature, rec.SourceRev, rec.ConfigHash,
	)
	if err != nil {
		return fmt.Errorf("insert build record: %w", err)
	}

	return nil
}

// Get retrieves a single build record by ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, started_at, duration_ms, artifacts, error, assets, signature, source_rev, config_hash
		 FROM builds WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("build %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Recent returns the most recent build records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, started_at, duration_ms, artifacts, error, assets, signature, source_rev, config_hash
		 FROM builds ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var startedUnix, durationMS int64
	var assetsJSON []byte

	err := row.Scan(&rec.ID, &rec.Status, &startedUnix, &durationMS, &rec.Artifacts,
		&rec.Error, &assetsJSON, &rec.Signature, &rec.SourceRev, &rec.ConfigHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan build record: %w", err)
	}

	rec.StartedAt = time.Unix(startedUnix, 0)
	rec.Duration = time.Duration(durationMS) * time.Millisecond

	if len(assetsJSON) > 0 {
		if err := json.Unmarshal(assetsJSON, &rec.Assets); err != nil {
			return nil, fmt.Errorf("unmarshal assets: %w", err)
		}
	}

	return &rec, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
