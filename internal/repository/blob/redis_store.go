package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each scope's blob under prefix+scope.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(scope string) string {
	return s.prefix + scope
}

func (s *RedisStore) Load(ctx context.Context, scope string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.key(scope)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", s.key(scope), err)
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, scope string, blob []byte) error {
	if err := s.rdb.Set(ctx, s.key(scope), blob, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key(scope), err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, scope string) error {
	if err := s.rdb.Del(ctx, s.key(scope)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key(scope), err)
	}
	return nil
}

// Close is a no-op: the client is shared with the websocket hub and closed by
// its owner.
func (s *RedisStore) Close() error {
	return nil
}
