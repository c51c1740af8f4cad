package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"paperchat/internal/entity"
	"paperchat/internal/pkg/logger"
	"paperchat/internal/repository/blob"
	"paperchat/internal/repository/implementation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionIndex(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	ctx := context.Background()
	require.NoError(t, rdb.Ping(ctx).Err())

	store := blob.NewRedisStore(rdb, "paperchat:it:")
	scope := uuid.NewString()
	defer func() { _ = store.Delete(ctx, scope) }()

	index := implementation.NewSessionIndexRepository(store, scope, logger.NewNopLogger())
	index.Put(ctx, entity.SessionRecord{SessionId: "S1", PaperId: "P1", LastUsedAt: time.Now()})

	got, ok := index.Get(ctx, "P1")
	require.True(t, ok)
	assert.Equal(t, "S1", got.SessionId)

	index.Clear(ctx)
	n, err := rdb.Exists(ctx, "paperchat:it:"+scope).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
