package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// BlobStore keeps index blobs in process memory. Nothing survives a restart,
// which is what the gateway wants when no durable driver is configured.
type BlobStore struct {
	cache *cache.Cache
}

// NewBlobStore creates the store. A ttl of zero keeps blobs until deleted.
func NewBlobStore(ttl time.Duration) *BlobStore {
	expiration := cache.NoExpiration
	if ttl > 0 {
		expiration = ttl
	}
	// purge expired items every 10 minutes
	c := cache.New(expiration, 10*time.Minute)
	return &BlobStore{
		cache: c,
	}
}

func (s *BlobStore) Load(_ context.Context, scope string) ([]byte, error) {
	if x, found := s.cache.Get(scope); found {
		blob := x.([]byte)
		out := make([]byte, len(blob))
		copy(out, blob)
		return out, nil
	}
	return nil, nil
}

func (s *BlobStore) Save(_ context.Context, scope string, blob []byte) error {
	stored := make([]byte, len(blob))
	copy(stored, blob)
	s.cache.Set(scope, stored, cache.DefaultExpiration)
	return nil
}

func (s *BlobStore) Delete(_ context.Context, scope string) error {
	s.cache.Delete(scope)
	return nil
}

func (s *BlobStore) Close() error {
	s.cache.Flush()
	return nil
}
