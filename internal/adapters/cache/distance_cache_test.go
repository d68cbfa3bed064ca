package cache

import (
	"context"
	"delivery-planner/internal/platform/db"
	"delivery-planner/internal/ports"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var sample = map[string]ports.DistanceResult{
	"b": {DistanceMeters: 1200.5, DurationSeconds: 95.25, Reachable: true},
	"c": {Reachable: false},
}

func newSqliteCache(t *testing.T, ttl time.Duration) *SqliteDistanceCache {
	t.Helper()

	sqlDB, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, InitSchema(context.Background(), sqlDB, DialectSQLite))
	return NewSqliteDistanceCache(sqlDB, ttl)
}

func TestSqliteDistanceCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newSqliteCache(t, 0)

	require.NoError(t, c.PutMany(ctx, "a", sample))

	got, err := c.GetMany(ctx, "a", []string{"b", "c", "b", "", "missing"})
	require.NoError(t, err)
	assert.Equal(t, sample, got)

	// Upsert overwrites.
	require.NoError(t, c.PutMany(ctx, "a", map[string]ports.DistanceResult{
		"b": {DistanceMeters: 10, DurationSeconds: 1, Reachable: true},
	}))
	got, err = c.GetMany(ctx, "a", []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, 10.0, got["b"].DistanceMeters)

	// Other origins are unaffected.
	got, err = c.GetMany(ctx, "b", []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSqliteDistanceCacheTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := newSqliteCache(t, time.Hour)
	c.now = clock.Now

	require.NoError(t, c.PutMany(ctx, "a", sample))

	clock.Advance(30 * time.Minute)
	got, err := c.GetMany(ctx, "a", []string{"b"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	clock.Advance(2 * time.Hour)
	got, err = c.GetMany(ctx, "a", []string{"b"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSqliteDistanceCacheRejectsEmptyKeys(t *testing.T) {
	ctx := context.Background()
	c := newSqliteCache(t, 0)

	_, err := c.GetMany(ctx, "", []string{"b"})
	assert.Error(t, err)
	assert.Error(t, c.PutMany(ctx, "a", map[string]ports.DistanceResult{" ": {}}))
}

func TestInitSchemaUnknownDialect(t *testing.T) {
	sqlDB, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.Error(t, InitSchema(context.Background(), sqlDB, "oracle"))
	assert.Error(t, InitSchema(context.Background(), nil, DialectSQLite))
}

func TestMemoryDistanceCacheTTLAndEviction(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := NewMemoryDistanceCache(time.Minute, 2)
	c.now = clock.Now

	require.NoError(t, c.PutMany(ctx, "a", map[string]ports.DistanceResult{"b": sample["b"]}))
	clock.Advance(time.Second)
	require.NoError(t, c.PutMany(ctx, "a", map[string]ports.DistanceResult{"c": sample["c"]}))
	clock.Advance(time.Second)
	require.NoError(t, c.PutMany(ctx, "x", map[string]ports.DistanceResult{"y": sample["b"]}))

	assert.Equal(t, 2, c.Len())
	got, err := c.GetMany(ctx, "a", []string{"b", "c"})
	require.NoError(t, err)
	assert.NotContains(t, got, "b", "oldest entry evicted")
	assert.Contains(t, got, "c")

	clock.Advance(2 * time.Minute)
	got, err = c.GetMany(ctx, "x", []string{"y"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, c.Len(), "expired entry dropped on read")
}

func TestRedisDistanceCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisDistanceCache(client, time.Hour)
	require.NoError(t, c.PutMany(ctx, "a", sample))

	got, err := c.GetMany(ctx, "a", []string{"b", "c", "missing"})
	require.NoError(t, err)
	assert.Equal(t, sample, got)

	mr.FastForward(2 * time.Hour)
	got, err = c.GetMany(ctx, "a", []string{"b"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisDistanceCacheSkipsCorruptValues(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set(redisKey("a", "b"), "not-json"))

	got, err := NewRedisDistanceCache(client, 0).GetMany(ctx, "a", []string{"b"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
