package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// ErrNotFound indicates the requested blob does not exist.
var ErrNotFound = errors.New("blob not found")

var (
	dataPrefix = []byte("blob:")
	metaPrefix = []byte("meta:")
)

// Metadata describes a stored blob.
type Metadata struct {
	Filename    string    `json:"filename,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists opaque binary payloads in BadgerDB. It is the binary
// counterpart to the task store: uploads put bytes here and enqueue a task
// carrying the returned blob id; the worker only ever calls Get.
type Store struct {
	db *badger.DB
}

// Open initializes the blob store in the given directory.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("blob store directory must not be empty")
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory initializes a memory-only blob store for tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory blob store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores a payload with its metadata and returns the generated blob id.
func (s *Store) Put(ctx context.Context, data []byte, meta Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("blob payload must not be empty")
	}

	id := uuid.NewString()
	meta.Size = int64(len(data))
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal blob metadata: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(dataKey(id), data); err != nil {
			return err
		}
		return txn.Set(metaKey(id), metaBytes)
	})
	if err != nil {
		return "", fmt.Errorf("store blob: %w", err)
	}
	return id, nil
}

// Get returns the payload for a blob id.
func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dataKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch blob %s: %w", id, err)
	}
	return data, nil
}

// Stat returns the metadata for a blob id.
func (s *Store) Stat(ctx context.Context, id string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("stat blob %s: %w", id, err)
	}
	return meta, nil
}

// Delete removes a blob and its metadata. Deleting a missing blob is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(dataKey(id)); err != nil {
			return err
		}
		return txn.Delete(metaKey(id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete blob %s: %w", id, err)
	}
	return nil
}

func dataKey(id string) []byte {
	return append(append([]byte{}, dataPrefix...), id...)
}

func metaKey(id string) []byte {
	return append(append([]byte{}, metaPrefix...), id...)
}
