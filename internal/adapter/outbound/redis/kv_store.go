package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uniedit/enhancer/internal/port/outbound"
)

// kvStore implements outbound.KVStorePort on Redis strings.
type kvStore struct {
	client redis.UniversalClient
	prefix string
}

// NewKVStore creates a KV store adapter. Every key is namespaced by prefix.
func NewKVStore(client redis.UniversalClient, prefix string) outbound.KVStorePort {
	return &kvStore{client: client, prefix: prefix}
}

func (s *kvStore) key(k string) string {
	return s.prefix + k
}

func (s *kvStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", outbound.ErrKeyNotFound
		}
		return "", err
	}
	return val, nil
}

func (s *kvStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

var _ outbound.KVStorePort = (*kvStore)(nil)
