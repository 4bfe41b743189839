package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-forecast-pipeline/internal/model"
)

func sampleSession(id string) *Session {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return &Session{
		ID:       id,
		Mode:     model.ModeAgriculture,
		FileName: "crops.csv",
		Table: &model.RawTable{
			Columns: []string{"State", "Crop", "Crop_Year", "Yield"},
			Rows:    [][]string{{"X", "Wheat", "2018", "10"}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Put(ctx, sampleSession("s1")))
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sampleSession("s1"), got)
	assert.True(t, got.HasTable())

	// re-upload replaces the table
	replaced := sampleSession("s1")
	replaced.Mode = model.ModeGeneric
	replaced.Table = &model.RawTable{Columns: []string{"d", "v"}}
	require.NoError(t, store.Put(ctx, replaced))
	got, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.ModeGeneric, got.Mode)
	assert.Equal(t, []string{"d", "v"}, got.Table.Columns)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore(t *testing.T) {
	store, err := NewMemoryStore(10, time.Hour)
	require.NoError(t, err)
	storeContract(t, store)
}

func TestMemoryStoreExpires(t *testing.T) {
	store, err := NewMemoryStore(10, time.Minute)
	require.NoError(t, err)
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(context.Background(), sampleSession("s1")))
	now = now.Add(2 * time.Minute)

	_, err = store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	store, err := NewMemoryStore(2, 0)
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(ctx, sampleSession(id)))
	}
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get(ctx, "c")
	assert.NoError(t, err)

	hits, misses, evicted := store.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, uint64(1), evicted)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store, err := NewMemoryStore(2, 0)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, sampleSession("s1")))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	got.Mode = model.ModeGeneric

	again, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.ModeAgriculture, again.Mode)
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, "", ttl), mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	storeContract(t, store)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestRedisStoreKeyAndTTL(t *testing.T) {
	store, mr := newRedisStore(t, 30*time.Minute)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, sampleSession("abc")))

	assert.True(t, mr.Exists(DefaultKeyPrefix+"abc"))
	assert.Equal(t, 30*time.Minute, mr.TTL(DefaultKeyPrefix+"abc"))

	mr.FastForward(31 * time.Minute)
	_, err := store.Get(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreCorruptEntry(t *testing.T) {
	store, mr := newRedisStore(t, 0)
	require.NoError(t, mr.Set(DefaultKeyPrefix+"bad", "{not json"))

	_, err := store.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}
