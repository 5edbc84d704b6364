package testsupport

import (
	"context"
	"testing"

	"cadence/internal/blob"
	"cadence/internal/config"
	"cadence/internal/queue"
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

// MustOpenBlobStore opens a blob.Store for tests and registers cleanup.
func MustOpenBlobStore(t testing.TB, cfg *config.Config) *blob.Store {
	t.Helper()

	store, err := blob.Open(cfg.BlobDir())
	if err != nil {
		t.Fatalf("blob.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTask enqueues a pending task for tests using the provided store.
func NewTask(t testing.TB, store *queue.Store, blobID, filename string) *queue.Task {
	t.Helper()

	task, err := store.NewTask(context.Background(), blobID, filename, queue.SourceUpload)
	if err != nil {
		t.Fatalf("store.NewTask: %v", err)
	}
	return task
}
