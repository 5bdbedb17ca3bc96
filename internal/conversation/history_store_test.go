package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/fieldservice-scheduler/internal/dispatch"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisSessionStore(client, time.Hour)
	ctx := context.Background()

	_, ok, err := store.Load(ctx, testPhone)
	require.NoError(t, err)
	assert.False(t, ok)

	p := dispatch.Proposal{Technician: "Luis", Date: "2025-05-14", Block: "09:00 - 10:00"}
	require.NoError(t, store.Save(ctx, testPhone, p))
	assert.Equal(t, time.Hour, mr.TTL(sessionKey(testPhone)))

	got, ok, err := store.Load(ctx, testPhone)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p, got)

	require.NoError(t, store.Delete(ctx, testPhone))
	assert.False(t, mr.Exists(sessionKey(testPhone)))
}

func TestRedisSessionStoreExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisSessionStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testPhone, dispatch.Proposal{Technician: "Luis", Date: "2025-05-14", Block: "09:00 - 10:00"}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Load(ctx, testPhone)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSessionStoreCorruptPayload(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisSessionStore(client, 0)
	require.NoError(t, mr.Set(sessionKey(testPhone), "{not json"))

	_, _, err := store.Load(context.Background(), testPhone)
	assert.Error(t, err)
}

func TestRedisHistoryStoreAccumulates(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisHistoryStore(client, time.Hour)
	ctx := context.Background()

	history, err := store.Append(ctx, testPhone, "hmm")
	require.NoError(t, err)
	assert.Equal(t, "hmm", history)

	history, err = store.Append(ctx, testPhone, "  maybe tomorrow ")
	require.NoError(t, err)
	assert.Equal(t, "hmm maybe tomorrow", history)
	assert.Equal(t, time.Hour, mr.TTL(historyKey(testPhone)))

	require.NoError(t, store.Clear(ctx, testPhone))
	history, err = store.Append(ctx, testPhone, "yes")
	require.NoError(t, err)
	assert.Equal(t, "yes", history)
}

func TestRedisHistoryStoreTrims(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisHistoryStore(client, time.Hour)
	store.maxMessages = 2
	ctx := context.Background()

	for _, msg := range []string{"one", "two", "three"} {
		_, err := store.Append(ctx, testPhone, msg)
		require.NoError(t, err)
	}
	history, err := store.Append(ctx, testPhone, "four")
	require.NoError(t, err)
	assert.Equal(t, "three four", history)
}

func TestMemoryStores(t *testing.T) {
	ctx := context.Background()

	sessions := NewMemorySessionStore()
	p := dispatch.Proposal{Technician: "Marta", Date: "2025-05-15", Block: "14:00 - 15:00"}
	require.NoError(t, sessions.Save(ctx, testPhone, p))
	got, ok, err := sessions.Load(ctx, testPhone)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, p, got)
	require.NoError(t, sessions.Delete(ctx, testPhone))
	_, ok, _ = sessions.Load(ctx, testPhone)
	assert.False(t, ok)

	history := NewMemoryHistoryStore()
	_, _ = history.Append(ctx, testPhone, "not")
	joined, err := history.Append(ctx, testPhone, " now ")
	require.NoError(t, err)
	assert.Equal(t, "not now", joined)
	require.NoError(t, history.Clear(ctx, testPhone))
	joined, _ = history.Append(ctx, "other", "hi")
	assert.Equal(t, "hi", joined)
}

func TestNewRedisStoresPanicWithoutClient(t *testing.T) {
	assert.Panics(t, func() { NewRedisSessionStore(nil, 0) })
	assert.Panics(t, func() { NewRedisHistoryStore(nil, 0) })
}
