package implementation

import (
	"context"
	"errors"
	"testing"
	"time"

	"paperchat/internal/entity"
	"paperchat/internal/pkg/logger"
	"paperchat/internal/repository/contract"
	"paperchat/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestIndex(store contract.BlobStore) contract.SessionIndexRepository {
	return NewSessionIndexRepository(store, "device-1", logger.NewNopLogger())
}

// flakyStore fails reads or writes on demand.
type flakyStore struct {
	contract.BlobStore
	failLoad bool
	failSave bool
	saves    int
}

func (s *flakyStore) Load(ctx context.Context, scope string) ([]byte, error) {
	if s.failLoad {
		return nil, errors.New("disk unavailable")
	}
	return s.BlobStore.Load(ctx, scope)
}

func (s *flakyStore) Save(ctx context.Context, scope string, blob []byte) error {
	s.saves++
	if s.failSave {
		return errors.New("disk full")
	}
	return s.BlobStore.Save(ctx, scope, blob)
}

func TestSessionIndexPutAndGet(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(memory.NewBlobStore(0))

	_, ok := index.Get(ctx, "P1")
	assert.False(t, ok)

	index.Put(ctx, entity.SessionRecord{SessionId: " S1 ", PaperId: " P1 ", Title: "One", LastUsedAt: t0})

	got, ok := index.Get(ctx, "P1")
	require.True(t, ok)
	assert.Equal(t, "S1", got.SessionId)
	assert.Equal(t, "P1", got.PaperId)
	assert.Equal(t, "One", got.Title)
	assert.True(t, t0.Equal(got.LastUsedAt))
}

func TestSessionIndexPutRejectsIncompleteRecords(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(memory.NewBlobStore(0))

	index.Put(ctx, entity.SessionRecord{SessionId: "", PaperId: "P1", LastUsedAt: t0})
	index.Put(ctx, entity.SessionRecord{SessionId: "S2", PaperId: "  ", LastUsedAt: t0})

	assert.Empty(t, index.All(ctx))
}

func TestSessionIndexNewerWriteWins(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(memory.NewBlobStore(0))

	index.Put(ctx, entity.SessionRecord{SessionId: "S1", PaperId: "P1", LastUsedAt: t0})
	index.Put(ctx, entity.SessionRecord{SessionId: "S2", PaperId: "P1", LastUsedAt: t0.Add(time.Minute)})

	got, ok := index.Get(ctx, "P1")
	require.True(t, ok)
	assert.Equal(t, "S2", got.SessionId)
}

func TestSessionIndexDropsOlderWriteForOtherSession(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(memory.NewBlobStore(0))

	index.Put(ctx, entity.SessionRecord{SessionId: "S2", PaperId: "P1", LastUsedAt: t0})
	index.Put(ctx, entity.SessionRecord{SessionId: "S1", PaperId: "P1", LastUsedAt: t0.Add(-time.Minute)})

	got, ok := index.Get(ctx, "P1")
	require.True(t, ok)
	assert.Equal(t, "S2", got.SessionId)
	assert.True(t, t0.Equal(got.LastUsedAt))
}

func TestSessionIndexReplaceOverridesNewerOtherSession(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(memory.NewBlobStore(0))

	index.Put(ctx, entity.SessionRecord{SessionId: "S2", PaperId: "P1", Title: "Synced", LastUsedAt: t0})
	index.Replace(ctx, entity.SessionRecord{SessionId: "S1", PaperId: "P1", LastUsedAt: t0.Add(-time.Minute)})

	got, ok := index.Get(ctx, "P1")
	require.True(t, ok)
	assert.Equal(t, "S1", got.SessionId)
	assert.True(t, t0.Equal(got.LastUsedAt))
	assert.Equal(t, "", got.Title)

	index.Replace(ctx, entity.SessionRecord{SessionId: "S1", PaperId: "P1", Title: "Mine", LastUsedAt: t0.Add(time.Hour)})
	index.Replace(ctx, entity.SessionRecord{SessionId: "  ", PaperId: "P1", LastUsedAt: t0.Add(2 * time.Hour)})

	got, _ = index.Get(ctx, "P1")
	assert.Equal(t, "S1", got.SessionId)
	assert.Equal(t, "Mine", got.Title)
	assert.True(t, t0.Add(time.Hour).Equal(got.LastUsedAt))
}

func TestSessionIndexOlderWriteForSameSessionKeepsTimestamp(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(memory.NewBlobStore(0))

	index.Put(ctx, entity.SessionRecord{SessionId: "S1", PaperId: "P1", Title: "Old", LastUsedAt: t0})
	index.Put(ctx, entity.SessionRecord{SessionId: "S1", PaperId: "P1", Title: "New", LastUsedAt: t0.Add(-time.Hour)})

	got, ok := index.Get(ctx, "P1")
	require.True(t, ok)
	assert.Equal(t, "New", got.Title)
	assert.True(t, t0.Equal(got.LastUsedAt))
}

func TestSessionIndexBackfillsTitleForSameSession(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(memory.NewBlobStore(0))

	index.Put(ctx, entity.SessionRecord{SessionId: "S1", PaperId: "P1", Title: "Known", LastUsedAt: t0})
	index.Put(ctx, entity.SessionRecord{SessionId: "S1", PaperId: "P1", LastUsedAt: t0.Add(time.Minute)})
	index.Put(ctx, entity.SessionRecord{SessionId: "S9", PaperId: "P2", Title: "Other", LastUsedAt: t0})
	index.Put(ctx, entity.SessionRecord{SessionId: "S10", PaperId: "P2", LastUsedAt: t0.Add(time.Minute)})

	p1, _ := index.Get(ctx, "P1")
	assert.Equal(t, "Known", p1.Title)
	assert.True(t, t0.Add(time.Minute).Equal(p1.LastUsedAt))

	p2, _ := index.Get(ctx, "P2")
	assert.Equal(t, "S10", p2.SessionId)
	assert.Empty(t, p2.Title)
}

func TestSessionIndexEvictIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{BlobStore: memory.NewBlobStore(0)}
	index := newTestIndex(store)

	index.Put(ctx, entity.SessionRecord{SessionId: "S1", PaperId: "P1", LastUsedAt: t0})
	index.Put(ctx, entity.SessionRecord{SessionId: "S2", PaperId: "P2", LastUsedAt: t0})
	require.Equal(t, 2, store.saves)

	index.Evict(ctx, "P1")
	index.Evict(ctx, "P1")
	index.Evict(ctx, "missing")

	assert.Equal(t, 3, store.saves)
	_, ok := index.Get(ctx, "P1")
	assert.False(t, ok)
	_, ok = index.Get(ctx, "P2")
	assert.True(t, ok)
}

func TestSessionIndexAllIsSortedByPaper(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(memory.NewBlobStore(0))

	index.Put(ctx, entity.SessionRecord{SessionId: "S3", PaperId: "P3", LastUsedAt: t0})
	index.Put(ctx, entity.SessionRecord{SessionId: "S1", PaperId: "P1", LastUsedAt: t0})
	index.Put(ctx, entity.SessionRecord{SessionId: "S2", PaperId: "P2", LastUsedAt: t0})

	all := index.All(ctx)
	require.Len(t, all, 3)
	assert.Equal(t, "P1", all[0].PaperId)
	assert.Equal(t, "P2", all[1].PaperId)
	assert.Equal(t, "P3", all[2].PaperId)
}

func TestSessionIndexReadsLegacyBlob(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBlobStore(0)
	require.NoError(t, store.Save(ctx, "device-1", []byte(`{"P1": "S1", "P2": 12, "P3": false}`)))
	index := newTestIndex(store)

	all := index.All(ctx)
	require.Len(t, all, 2)
	assert.Equal(t, "S1", all[0].SessionId)
	assert.Equal(t, "12", all[1].SessionId)

	// the next write upgrades the whole blob to the structured form
	index.Put(ctx, entity.SessionRecord{SessionId: "S4", PaperId: "P4", LastUsedAt: t0})
	blob, err := store.Load(ctx, "device-1")
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"sessionId":"S1"`)
	assert.NotContains(t, string(blob), `"P3"`)
}

func TestSessionIndexUnreadableStoreSkipsWrites(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{BlobStore: memory.NewBlobStore(0)}
	index := newTestIndex(store)
	index.Put(ctx, entity.SessionRecord{SessionId: "S1", PaperId: "P1", LastUsedAt: t0})

	store.failLoad = true

	_, ok := index.Get(ctx, "P1")
	assert.False(t, ok)
	assert.Empty(t, index.All(ctx))

	index.Put(ctx, entity.SessionRecord{SessionId: "S2", PaperId: "P2", LastUsedAt: t0})
	index.Evict(ctx, "P1")
	assert.Equal(t, 1, store.saves)

	store.failLoad = false
	got, ok := index.Get(ctx, "P1")
	require.True(t, ok)
	assert.Equal(t, "S1", got.SessionId)
}

func TestSessionIndexWriteFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{BlobStore: memory.NewBlobStore(0), failSave: true}
	index := newTestIndex(store)

	assert.NotPanics(t, func() {
		index.Put(ctx, entity.SessionRecord{SessionId: "S1", PaperId: "P1", LastUsedAt: t0})
	})
	_, ok := index.Get(ctx, "P1")
	assert.False(t, ok)
}

func TestSessionIndexClear(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBlobStore(0)
	index := newTestIndex(store)
	other := NewSessionIndexRepository(store, "device-2", logger.NewNopLogger())

	index.Put(ctx, entity.SessionRecord{SessionId: "S1", PaperId: "P1", LastUsedAt: t0})
	other.Put(ctx, entity.SessionRecord{SessionId: "S9", PaperId: "P1", LastUsedAt: t0})

	index.Clear(ctx)

	assert.Empty(t, index.All(ctx))
	got, ok := other.Get(ctx, "P1")
	require.True(t, ok)
	assert.Equal(t, "S9", got.SessionId)
}
