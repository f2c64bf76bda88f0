package cache

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
)

func newTestCache(t *testing.T) (*Versioned, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, "lookups", time.Minute), mr
}

func TestFetchJSONCachesUntilBump(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	var calls int
	loader := func(context.Context) (any, error) {
		calls++
		return []string{"Pune", "Mumbai"}, nil
	}

	key, err := c.BuildKey(ctx, "city")
	require.NoError(t, err)
	assert.Equal(t, "lookups:city:1", key)

	var first, second []string
	require.NoError(t, c.FetchJSON(ctx, key, &first, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &second, loader))
	assert.Equal(t, []string{"Pune", "Mumbai"}, second)
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "city")
	require.NoError(t, err)
	assert.Equal(t, "lookups:city:2", key)

	var third []string
	require.NoError(t, c.FetchJSON(ctx, key, &third, loader))
	assert.Equal(t, 2, calls)
}

func TestFetchJSONCollapsesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	key, err := c.BuildKey(ctx, "bde")
	require.NoError(t, err)

	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return map[string]int{"n": 1}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out map[string]int
			assert.NoError(t, c.FetchJSON(ctx, key, &out, loader))
			assert.Equal(t, 1, out["n"])
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchJSONPropagatesLoaderError(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("db down")
	err := c.FetchJSON(ctx, "lookups:x:1", new([]string), func(context.Context) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("lookups:x:1"))
}

func TestNilClientCallsLoaderDirectly(t *testing.T) {
	c := NewVersioned(nil, "lookups", time.Minute)
	ctx := context.Background()
	key, err := c.BuildKey(ctx, "city")
	require.NoError(t, err)
	assert.Equal(t, "lookups:city", key)

	var out []int
	require.NoError(t, c.FetchJSON(ctx, key, &out, func(context.Context) (any, error) { return []int{1, 2}, nil }))
	assert.Equal(t, []int{1, 2}, out)
	assert.NoError(t, c.Bump(ctx))
}
