package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"darksingularity/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrIOFailure, s.path, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: ping %s: %w", ErrIOFailure, s.path, err)
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: create tables: %w", ErrIOFailure, err)
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, id string, data []byte) error {
	record, err := describe(id, data)
	if err != nil {
		return err
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO snapshots (id, version, state_size, updated_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			state_size = excluded.state_size,
			updated_at = excluded.updated_at,
			payload = excluded.payload
	`, record.ID, record.Version, record.StateSize, time.Now().UTC().Unix(), data)
	if err != nil {
		return fmt.Errorf("%w: save snapshot %s: %w", ErrIOFailure, id, err)
	}
	return nil
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: get snapshot %s: %w", ErrIOFailure, id, err)
	}
	return payload, true, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context) ([]model.SnapshotRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, version, state_size, length(payload)
		FROM snapshots
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: list snapshots: %w", ErrIOFailure, err)
	}
	defer rows.Close()

	var records []model.SnapshotRecord
	for rows.Next() {
		var record model.SnapshotRecord
		if err := rows.Scan(&record.ID, &record.Version, &record.StateSize, &record.Size); err != nil {
			return nil, fmt.Errorf("%w: scan snapshot row: %w", ErrIOFailure, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list snapshots: %w", ErrIOFailure, err)
	}
	return records, nil
}

func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, id string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("%w: delete snapshot %s: %w", ErrIOFailure, id, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrStoreNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			state_size INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
