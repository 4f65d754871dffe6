package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Symbol string    `json:"symbol"`
	Closes []float64 `json:"closes"`
}

func newRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCacheWithClient(client, "test"), mr
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	in := payload{Symbol: "AAPL", Closes: []float64{1.5, 2}}
	require.NoError(t, mc.Set(ctx, "k", in, time.Minute))

	var out payload
	require.NoError(t, mc.Get(ctx, "k", &out))
	assert.Equal(t, in, out)

	var missing payload
	assert.ErrorIs(t, mc.Get(ctx, "absent", &missing), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", 1, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var v int
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	time.Sleep(time.Millisecond)

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "a", &v))
	assert.Equal(t, 1, v)
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "lock"))
	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	rc, mr := newRedis(t)

	in := payload{Symbol: "MSFT", Closes: []float64{3}}
	require.NoError(t, rc.Set(ctx, "k", in, time.Minute))
	assert.True(t, mr.Exists("test:k"))
	assert.Equal(t, time.Minute, mr.TTL("test:k"))

	var out payload
	require.NoError(t, rc.Get(ctx, "k", &out))
	assert.Equal(t, in, out)

	ok, err := rc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, rc.Delete(ctx, "k"))
	assert.ErrorIs(t, rc.Get(ctx, "k", &out), ErrCacheMiss)

	locked, err := rc.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)
	locked, err = rc.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.False(t, locked)
	require.NoError(t, rc.Unlock(ctx, "job"))
}

func TestLayeredCacheReadsThroughAndFillsL1(t *testing.T) {
	ctx := context.Background()
	rc, mr := newRedis(t)
	lc := NewLayeredCache(rc)
	defer lc.Close()

	require.NoError(t, rc.Set(ctx, "k", payload{Symbol: "SPY"}, time.Minute))

	var out payload
	require.NoError(t, lc.Get(ctx, "k", &out))
	assert.Equal(t, "SPY", out.Symbol)

	// L1 answers once Redis is gone.
	mr.Close()
	out = payload{}
	require.NoError(t, lc.Get(ctx, "k", &out))
	assert.Equal(t, "SPY", out.Symbol)
}

func TestLayeredCacheSetSurvivesRedisOutage(t *testing.T) {
	ctx := context.Background()
	rc, mr := newRedis(t)
	lc := NewLayeredCache(rc)
	defer lc.Close()

	mr.Close()
	err := lc.Set(ctx, "k", payload{Symbol: "VTI"}, time.Minute)
	assert.Error(t, err)

	var out payload
	require.NoError(t, lc.Get(ctx, "k", &out))
	assert.Equal(t, "VTI", out.Symbol)
}

func TestLayeredCacheDelete(t *testing.T) {
	ctx := context.Background()
	rc, _ := newRedis(t)
	lc := NewLayeredCache(rc)
	defer lc.Close()

	require.NoError(t, lc.Set(ctx, "k", 1, time.Minute))
	require.NoError(t, lc.Delete(ctx, "k"))

	var v int
	assert.ErrorIs(t, lc.Get(ctx, "k", &v), ErrCacheMiss)
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	calls := 0
	load := func(context.Context) ([]float64, error) {
		calls++
		return []float64{1, 2}, nil
	}

	v, outcome, err := GetOrLoad(ctx, mc, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, Miss, outcome)
	assert.Equal(t, []float64{1, 2}, v)

	v, outcome, err = GetOrLoad(ctx, mc, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, Hit, outcome)
	assert.Equal(t, []float64{1, 2}, v)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, _, err = GetOrLoad(ctx, mc, "other", time.Minute, func(context.Context) ([]float64, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	ok, _ := mc.Exists(ctx, "other")
	assert.False(t, ok)
}

func TestGetOrLoadBrokenCache(t *testing.T) {
	ctx := context.Background()
	rc, mr := newRedis(t)
	mr.Close()

	v, outcome, err := GetOrLoad(ctx, Service(rc), "k", time.Minute, func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, Error, outcome)
	assert.Equal(t, "fresh", v)
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "md:bars:AAPL:5y", GenerateKeyWithParams("md:bars", "AAPL", "5y"))
	assert.Equal(t, "user:42", GenerateKey("user", "42"))
}
