package testsupport

import (
	"context"
	"testing"

	"redub/internal/config"
	"redub/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewItem enqueues a new item for tests using the provided store.
func NewItem(t testing.TB, store *queue.Store, sourcePath string, kind queue.MediaKind) *queue.Item {
	t.Helper()

	item, err := store.NewItem(context.Background(), sourcePath, kind)
	if err != nil {
		t.Fatalf("store.NewItem: %v", err)
	}
	return item
}
