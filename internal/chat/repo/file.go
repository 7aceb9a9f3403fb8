package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	logx "github.com/remote-model-access/client/pkg/logger"
)

// FileBlobStore persists each key as a JSON file under a base directory.
// Writes go through a temp file plus rename so a crash mid-write cannot
// leave a truncated state file behind.
type FileBlobStore struct {
	baseDir string
	mu      sync.Mutex
}

func NewFileBlobStore(baseDir string) (*FileBlobStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileBlobStore{baseDir: baseDir}, nil
}

func (f *FileBlobStore) path(key string) string {
	return filepath.Join(f.baseDir, key+".json")
}

func (f *FileBlobStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		logx.Error().Err(err).Str("path", f.path(key)).Msg("failed to read state file")
		return nil, false, fmt.Errorf("read state file: %w", err)
	}
	return b, true, nil
}

func (f *FileBlobStore) Save(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		logx.Error().Err(err).Str("path", tmp).Msg("failed to write state file")
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, f.path(key)); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}

var _ BlobStore = (*FileBlobStore)(nil)
