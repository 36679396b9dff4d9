package storage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(filepath.Join(dir, "snapshots.db")),
		"dir":    NewDirStore(filepath.Join(dir, "snapshots")),
	}
	for name, store := range stores {
		if err := store.Init(context.Background()); err != nil {
			t.Fatalf("%s init: %v", name, err)
		}
		t.Cleanup(func() {
			_ = CloseIfSupported(store)
		})
	}
	return stores
}

func TestStoresSnapshotLifecycle(t *testing.T) {
	ctx := context.Background()
	payload, err := EncodeSnapshot(testSnapshot())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.SaveSnapshot(ctx, "beta", payload); err != nil {
				t.Fatalf("save beta: %v", err)
			}
			if err := store.SaveSnapshot(ctx, "alpha", payload); err != nil {
				t.Fatalf("save alpha: %v", err)
			}
			// Overwrite keeps a single record.
			if err := store.SaveSnapshot(ctx, "alpha", payload); err != nil {
				t.Fatalf("overwrite alpha: %v", err)
			}

			got, ok, err := store.GetSnapshot(ctx, "alpha")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !ok || !bytes.Equal(got, payload) {
				t.Fatalf("unexpected payload ok=%t len=%d", ok, len(got))
			}

			records, err := store.ListSnapshots(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(records) != 2 || records[0].ID != "alpha" || records[1].ID != "beta" {
				t.Fatalf("unexpected records: %+v", records)
			}
			if records[0].Version != CurrentSnapshotVersion || records[0].StateSize != 3 || records[0].Size != len(payload) {
				t.Fatalf("unexpected record metadata: %+v", records[0])
			}

			if err := store.DeleteSnapshot(ctx, "alpha"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, ok, err := store.GetSnapshot(ctx, "alpha"); err != nil || ok {
				t.Fatalf("expected alpha deleted ok=%t err=%v", ok, err)
			}
			if err := store.DeleteSnapshot(ctx, "missing"); err != nil {
				t.Fatalf("delete missing: %v", err)
			}
		})
	}
}

func TestStoresRejectInvalidInput(t *testing.T) {
	ctx := context.Background()
	payload, err := EncodeSnapshot(testSnapshot())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.SaveSnapshot(ctx, "bad", []byte("not a snapshot")); !errors.Is(err, ErrMalformedSnapshot) {
				t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
			}
			for _, id := range []string{"", "  ", "../escape", "a/b", ".hidden"} {
				if err := store.SaveSnapshot(ctx, id, payload); !errors.Is(err, ErrInvalidSnapshotID) {
					t.Fatalf("id %q: expected ErrInvalidSnapshotID, got %v", id, err)
				}
			}
		})
	}
}

func TestStoresRequireInit(t *testing.T) {
	ctx := context.Background()
	payload, err := EncodeSnapshot(testSnapshot())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dir := t.TempDir()
	for name, store := range map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(filepath.Join(dir, "x.db")),
		"dir":    NewDirStore(dir),
	} {
		if err := store.SaveSnapshot(ctx, "a", payload); !errors.Is(err, ErrStoreNotInitialized) {
			t.Fatalf("%s: expected ErrStoreNotInitialized, got %v", name, err)
		}
		if _, err := store.ListSnapshots(ctx); !errors.Is(err, ErrStoreNotInitialized) {
			t.Fatalf("%s: expected ErrStoreNotInitialized from list, got %v", name, err)
		}
	}
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected error for empty sqlite path")
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshots.db")
	payload, err := EncodeSnapshot(testSnapshot())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	first := NewSQLiteStore(path)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := first.SaveSnapshot(ctx, "brain", payload); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := NewSQLiteStore(path)
	if err := second.Init(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })
	got, ok, err := second.GetSnapshot(ctx, "brain")
	if err != nil || !ok || !bytes.Equal(got, payload) {
		t.Fatalf("expected persisted payload ok=%t err=%v", ok, err)
	}
}

func TestNewStore(t *testing.T) {
	for _, kind := range []string{"", "memory", "sqlite", "dir"} {
		store, err := NewStore(kind, t.TempDir())
		if err != nil {
			t.Fatalf("new %q store: %v", kind, err)
		}
		if store == nil {
			t.Fatalf("expected non-nil %q store", kind)
		}
	}
	if _, err := NewStore("unknown", ""); err == nil {
		t.Fatal("expected unsupported store error")
	}
}
