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
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

func newTestCache(t *testing.T) (*JSONCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewJSONCache(client, "test-cache", time.Minute), mr
}

func TestFetchPopulatesAndReuses(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(ctx context.Context) (any, error) {
		calls++
		return payload{Slug: "launch", Title: "Launch Sale"}, nil
	}

	var got payload
	require.NoError(t, c.Fetch(ctx, &got, loader, "slug", "launch"))
	assert.Equal(t, "Launch Sale", got.Title)

	var again payload
	require.NoError(t, c.Fetch(ctx, &again, loader, "slug", "launch"))
	assert.Equal(t, got, again)
	assert.Equal(t, 1, calls)
}

func TestBumpInvalidatesCachedEntries(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	titles := []string{"First", "Second"}
	calls := 0
	loader := func(ctx context.Context) (any, error) {
		title := titles[calls]
		calls++
		return payload{Slug: "launch", Title: title}, nil
	}

	var got payload
	require.NoError(t, c.Fetch(ctx, &got, loader, "slug", "launch"))
	assert.Equal(t, "First", got.Title)

	require.NoError(t, c.Bump(ctx))

	require.NoError(t, c.Fetch(ctx, &got, loader, "slug", "launch"))
	assert.Equal(t, "Second", got.Title)
	assert.Equal(t, 2, calls)
}

func TestFetchPropagatesLoaderError(t *testing.T) {
	c, _ := newTestCache(t)

	wantErr := errors.New("load failed")
	var got payload
	err := c.Fetch(context.Background(), &got, func(ctx context.Context) (any, error) {
		return nil, wantErr
	}, "slug", "missing")
	assert.ErrorIs(t, err, wantErr)
}

func TestNilCacheFallsThroughToLoader(t *testing.T) {
	var c *JSONCache

	var got payload
	require.NoError(t, c.Fetch(context.Background(), &got, func(ctx context.Context) (any, error) {
		return payload{Slug: "direct", Title: "Direct"}, nil
	}))
	assert.Equal(t, "Direct", got.Title)
	assert.NoError(t, c.Bump(context.Background()))
}
