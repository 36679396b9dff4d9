package storage

import (
	"context"
	"slices"
	"strings"
	"sync"

	"darksingularity/internal/model"
)

type memoryEntry struct {
	record model.SnapshotRecord
	data   []byte
}

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	snapshots   map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.snapshots = make(map[string]memoryEntry)
	return nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, id string, data []byte) error {
	record, err := describe(id, data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrStoreNotInitialized
	}
	s.snapshots[id] = memoryEntry{record: record, data: slices.Clone(data)}
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, id string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, ErrStoreNotInitialized
	}
	entry, ok := s.snapshots[id]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(entry.data), true, nil
}

func (s *MemoryStore) ListSnapshots(_ context.Context) ([]model.SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrStoreNotInitialized
	}
	records := make([]model.SnapshotRecord, 0, len(s.snapshots))
	for _, entry := range s.snapshots {
		records = append(records, entry.record)
	}
	slices.SortFunc(records, func(a, b model.SnapshotRecord) int {
		return strings.Compare(a.ID, b.ID)
	})
	return records, nil
}

func (s *MemoryStore) DeleteSnapshot(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrStoreNotInitialized
	}
	delete(s.snapshots, id)
	return nil
}
