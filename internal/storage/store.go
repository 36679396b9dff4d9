package storage

import (
	"context"

	"darksingularity/internal/model"
)

// Store persists encoded DSYM snapshots under caller-chosen ids.
type Store interface {
	Init(ctx context.Context) error
	SaveSnapshot(ctx context.Context, id string, data []byte) error
	GetSnapshot(ctx context.Context, id string) ([]byte, bool, error)
	ListSnapshots(ctx context.Context) ([]model.SnapshotRecord, error)
	DeleteSnapshot(ctx context.Context, id string) error
}

// describe validates the id and header of a snapshot about to be stored.
func describe(id string, data []byte) (model.SnapshotRecord, error) {
	if err := validateID(id); err != nil {
		return model.SnapshotRecord{}, err
	}
	version, stateSize, err := ReadHeader(data)
	if err != nil {
		return model.SnapshotRecord{}, err
	}
	return model.SnapshotRecord{
		ID:        id,
		Version:   version,
		StateSize: stateSize,
		Size:      len(data),
	}, nil
}
