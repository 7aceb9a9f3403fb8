package repo

import (
	"context"
	"sync"
)

// BlobStore is the persistence surface the conversation store writes through:
// a durable key-value blob store. Load reports ok=false when the key has
// never been written, which callers treat as an empty state rather than an
// error.
type BlobStore interface {
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Save(ctx context.Context, key string, data []byte) error
}

// MemoryBlobStore is an in-process BlobStore used by tests and as a harmless
// default when no durable backend is configured.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: map[string][]byte{}}
}

func (m *MemoryBlobStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, true, nil
}

func (m *MemoryBlobStore) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, len(data))
	copy(b, data)
	m.blobs[key] = b
	return nil
}

var _ BlobStore = (*MemoryBlobStore)(nil)
