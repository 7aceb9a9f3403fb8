package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	errx "github.com/remote-model-access/client/internal/core/error"
	logx "github.com/remote-model-access/client/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisBlobStore keeps each persisted aggregate under a namespaced Redis
// string key. A zero TTL means the state never expires.
type RedisBlobStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisBlobStore(rdb redis.Cmdable, ttl time.Duration) *RedisBlobStore {
	return &RedisBlobStore{rdb: rdb, ttl: ttl}
}

func (r *RedisBlobStore) blobKey(key string) string {
	return fmt.Sprintf("chat:state:%s", key)
}

func (r *RedisBlobStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.rdb.Get(ctx, r.blobKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		logx.Error().Err(err).Str("key", r.blobKey(key)).Msg("failed to load state blob from redis")
		return nil, false, errx.WrapRedis(err)
	}
	return b, true, nil
}

func (r *RedisBlobStore) Save(ctx context.Context, key string, data []byte) error {
	if err := r.rdb.Set(ctx, r.blobKey(key), data, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", r.blobKey(key)).Msg("failed to save state blob to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ BlobStore = (*RedisBlobStore)(nil)
