package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

// SQLiteStore backs both contracts with one local database file, for
// local-first operation and tests. ProjectStates are stored as JSON; blobs
// as raw bytes.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	state      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS blobs (
	id         TEXT PRIMARY KEY,
	content    BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db at %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.ProjectState, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT state FROM projects WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project %s: %w", id, err)
	}
	var state models.ProjectState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", id, err)
	}
	return &state, nil
}

func (s *SQLiteStore) Put(ctx context.Context, state *models.ProjectState) error {
	if state == nil || state.ID == "" {
		return fmt.Errorf("project state must carry an id")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode project %s: %w", state.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		state.ID, raw, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write project %s: %w", state.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*models.ProjectState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, state FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()
	var states []*models.ProjectState
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		var state models.ProjectState
		if err := json.Unmarshal(raw, &state); err != nil {
			return nil, fmt.Errorf("failed to decode project %s: %w", id, err)
		}
		states = append(states, &state)
	}
	return states, rows.Err()
}

// Blobs returns the blob-store view of the same database.
func (s *SQLiteStore) Blobs() *SQLiteBlobStore {
	return &SQLiteBlobStore{db: s.db}
}

// SQLiteBlobStore implements BlobStore over the blobs table.
type SQLiteBlobStore struct {
	db *sql.DB
}

func (s *SQLiteBlobStore) Put(ctx context.Context, id string, r io.Reader) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read blob content for %s: %w", id, err)
	}
	// Immutable blobs: keep the first write.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO blobs (id, content, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, content, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write blob %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteBlobStore) Get(ctx context.Context, id string) (io.ReadCloser, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx, `SELECT content FROM blobs WHERE id = ?`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *SQLiteBlobStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteBlobStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM blobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan blob row: %w", err)
		}
		keys = append(keys, id)
	}
	return keys, rows.Err()
}
