package xcache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xsite/pkg/lifecycle/xrun"
	"github.com/omeyang/xsite/pkg/storage/xcache"
	"github.com/omeyang/xsite/pkg/tenancy/xbind"
	"github.com/omeyang/xsite/pkg/tenancy/xtenant"
)

func newMemory(t *testing.T, opts ...xcache.MemoryOption) *xcache.Memory {
	t.Helper()
	m, err := xcache.NewMemory(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func newRedis(t *testing.T, opts ...xcache.RedisOption) (*xcache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := xcache.NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r, mr
}

// =============================================================================
// Memory
// =============================================================================

func TestMemory_SetGet(t *testing.T) {
	m := newMemory(t, xcache.WithMaxCost(1), xcache.WithNumCounters(1000), xcache.WithBufferItems(8))

	assert.True(t, m.Set("k", []byte("v"), 0))
	m.Wait()
	v, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	m.Delete("k")
	m.Wait()
	_, ok = m.Get("k")
	assert.False(t, ok)

	assert.False(t, m.Set("", []byte("v"), 0))
	assert.Equal(t, int64(xcache.MinMemoryMaxCost), m.Client().MaxCost())
}

func TestMemory_GetOrLoad(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	var calls atomic.Int32
	gate := make(chan struct{})
	load := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-gate
		return []byte("loaded"), nil
	}

	const n = 20
	var wg sync.WaitGroup
	results := make([][]byte, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.GetOrLoad(ctx, "page", time.Minute, load)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "并发回源只执行一次")
	for _, v := range results {
		assert.Equal(t, []byte("loaded"), v)
	}

	v, err := m.GetOrLoad(ctx, "page", time.Minute, func(context.Context) ([]byte, error) {
		t.Fatal("已缓存时不应回源")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("loaded"), v)
	assert.Positive(t, m.Stats().Hits)
}

func TestMemory_GetOrLoadErrors(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()

	_, err := m.GetOrLoad(ctx, "", 0, func(context.Context) ([]byte, error) { return nil, nil })
	assert.ErrorIs(t, err, xcache.ErrEmptyKey)

	_, err = m.GetOrLoad(ctx, "k", 0, nil)
	assert.ErrorIs(t, err, xcache.ErrNilLoader)

	boom := errors.New("db down")
	_, err = m.GetOrLoad(ctx, "k", 0, func(context.Context) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	_, err = m.GetOrLoad(ctx, "k", 0, func(context.Context) ([]byte, error) { panic("oops") })
	assert.ErrorIs(t, err, xcache.ErrLoadPanic)

	_, ok := m.Get("k")
	assert.False(t, ok, "失败的回源不写入缓存")
}

func TestMemory_Close(t *testing.T) {
	m, err := xcache.NewMemory()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Close(ctx))
	assert.ErrorIs(t, m.Close(ctx), xcache.ErrClosed)

	assert.False(t, m.Set("k", []byte("v"), 0))
	_, ok := m.Get("k")
	assert.False(t, ok)
	assert.Equal(t, xcache.MemoryStats{}, m.Stats())
	_, err = m.GetOrLoad(ctx, "k", 0, func(context.Context) ([]byte, error) { return nil, nil })
	assert.ErrorIs(t, err, xcache.ErrClosed)
}

// =============================================================================
// Redis
// =============================================================================

func TestRedis_ConnectAndPrefix(t *testing.T) {
	r, mr := newRedis(t, xcache.WithKeyPrefix("tenant:7:"))
	ctx := context.Background()

	require.NoError(t, r.Connect(ctx))
	require.NoError(t, r.Set(ctx, "greeting", []byte("hi"), time.Minute))

	raw, err := mr.Get("tenant:7:greeting")
	require.NoError(t, err)
	assert.Equal(t, "hi", raw)

	v, ok, err := r.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("hi"), v)

	_, ok, err = r.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Delete(ctx, "greeting"))
	assert.False(t, mr.Exists("tenant:7:greeting"))
	assert.Equal(t, "tenant:7:", r.Prefix())
}

func TestRedis_GetOrLoad(t *testing.T) {
	r, mr := newRedis(t)
	ctx := context.Background()

	var calls atomic.Int32
	load := func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("fresh"), nil
	}

	v, err := r.GetOrLoad(ctx, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), v)

	v, err = r.GetOrLoad(ctx, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), v)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, time.Minute, mr.TTL("k"))
}

func TestRedis_Lock(t *testing.T) {
	r, mr := newRedis(t)
	ctx := context.Background()

	unlock, err := r.Lock(ctx, "job", time.Second)
	require.NoError(t, err)

	_, err = r.Lock(ctx, "job", time.Second)
	assert.ErrorIs(t, err, xcache.ErrLockFailed)

	require.NoError(t, unlock(ctx))

	unlock, err = r.Lock(ctx, "job", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)
	assert.ErrorIs(t, unlock(ctx), xcache.ErrLockExpired)

	_, err = r.Lock(ctx, "", time.Second)
	assert.ErrorIs(t, err, xcache.ErrEmptyKey)
	_, err = r.Lock(ctx, "x", 0)
	assert.ErrorIs(t, err, xcache.ErrInvalidLockTTL)
}

func TestRedis_ConnectFails(t *testing.T) {
	mr := miniredis.RunT(t)
	r, err := xcache.NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	require.NoError(t, err)
	mr.Close()

	assert.Error(t, r.Connect(context.Background()))
	require.NoError(t, r.Close(context.Background()))
	assert.ErrorIs(t, r.Close(context.Background()), xcache.ErrClosed)
	assert.ErrorIs(t, r.Connect(context.Background()), xcache.ErrClosed)

	_, err = xcache.NewRedis(nil)
	assert.ErrorIs(t, err, xcache.ErrNilClient)
}

// =============================================================================
// 工厂与 xbind 集成
// =============================================================================

func TestFactories_WithBinder(t *testing.T) {
	mr := miniredis.RunT(t)
	url := "redis://" + mr.Addr() + "/0"

	dir, err := xtenant.NewDirectory([]xtenant.Definition{
		{ID: 1, Domain: "a.test", Settings: map[string]any{"id": 1, "redis_url": url, "cache_max_cost": 2 << 20}},
		{ID: 2, Domain: "b.test", Settings: map[string]any{"id": 2, "redis_url": url, "redis_prefix": "bee:"}},
	})
	require.NoError(t, err)

	coord := xrun.NewCoordinator()
	b := xbind.New(dir, xtenant.NewConfig(map[string]any{"redis_url": url}), coord)
	ctx := context.Background()

	require.NoError(t, b.Register(ctx, xbind.TargetBoth, "redis", xcache.RedisFactory()))
	require.NoError(t, b.Register(ctx, xbind.TargetTenants, "cache", xcache.MemoryFactory()))
	assert.Equal(t, 5, coord.Len())

	procRedis, ok := xtenant.Lookup[*xcache.Redis](b.Process().Services(), "redis")
	require.True(t, ok)
	assert.Empty(t, procRedis.Prefix())

	t1, _ := dir.Lookup(1)
	t2, _ := dir.Lookup(2)
	r1, ok := xtenant.Lookup[*xcache.Redis](t1.Services(), "redis")
	require.True(t, ok)
	assert.Equal(t, "tenant:1:", r1.Prefix())
	r2, _ := xtenant.Lookup[*xcache.Redis](t2.Services(), "redis")
	assert.Equal(t, "bee:", r2.Prefix())

	c1, ok := xtenant.Lookup[*xcache.Memory](t1.Services(), "cache")
	require.True(t, ok)
	assert.Equal(t, int64(2<<20), c1.Client().MaxCost())

	require.NoError(t, coord.Shutdown(ctx))
	assert.ErrorIs(t, c1.Close(ctx), xcache.ErrClosed, "关停协调器已关闭实例")
	assert.ErrorIs(t, r1.Close(ctx), xcache.ErrClosed)
}

func TestRedisFactory_MissingURL(t *testing.T) {
	_, err := xcache.RedisFactory()(context.Background(), xtenant.NewConfig(nil))
	assert.ErrorIs(t, err, xcache.ErrMissingSetting)

	_, err = xcache.RedisFactory()(context.Background(), xtenant.NewConfig(map[string]any{"redis_url": "http://nope"}))
	assert.Error(t, err)
}
