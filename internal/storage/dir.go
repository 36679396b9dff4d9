package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"darksingularity/internal/model"
)

const snapshotExt = ".dsym"

// DirStore keeps one <id>.dsym file per snapshot in a directory.
type DirStore struct {
	root string

	mu          sync.RWMutex
	initialized bool
}

func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

func (s *DirStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root == "" {
		return errors.New("snapshot directory is required")
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIOFailure, s.root, err)
	}
	s.initialized = true
	return nil
}

func (s *DirStore) SaveSnapshot(_ context.Context, id string, data []byte) error {
	if _, err := describe(id, data); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrStoreNotInitialized
	}
	return WriteSnapshotFile(s.path(id), data)
}

func (s *DirStore) GetSnapshot(_ context.Context, id string) ([]byte, bool, error) {
	if err := validateID(id); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, ErrStoreNotInitialized
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: read snapshot %s: %w", ErrIOFailure, id, err)
	}
	return data, true, nil
}

// ListSnapshots reads the header of every .dsym file in the directory.
// Files with a malformed header are skipped.
func (s *DirStore) ListSnapshots(_ context.Context) ([]model.SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrStoreNotInitialized
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrIOFailure, s.root, err)
	}

	var records []model.SnapshotRecord
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, snapshotExt) || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, name))
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrIOFailure, name, err)
		}
		record, err := describe(strings.TrimSuffix(name, snapshotExt), data)
		if err != nil {
			continue
		}
		records = append(records, record)
	}
	slices.SortFunc(records, func(a, b model.SnapshotRecord) int {
		return strings.Compare(a.ID, b.ID)
	})
	return records, nil
}

func (s *DirStore) DeleteSnapshot(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrStoreNotInitialized
	}
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete snapshot %s: %w", ErrIOFailure, id, err)
	}
	return nil
}

func (s *DirStore) path(id string) string {
	return filepath.Join(s.root, id+snapshotExt)
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSnapshotID)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidSnapshotID, id)
	}
	return nil
}
