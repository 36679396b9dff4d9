package storage

import "errors"

var (
	ErrMalformedSnapshot      = errors.New("malformed snapshot")
	ErrIncompatibleDimensions = errors.New("incompatible snapshot dimensions")
	ErrIOFailure              = errors.New("snapshot io failure")
	ErrInvalidSnapshotID      = errors.New("invalid snapshot id")
	ErrStoreNotInitialized    = errors.New("store is not initialized")
)
