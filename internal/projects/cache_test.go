package projects

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client), mr
}

func testProject() *Project {
	return &Project{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Name:      "demo",
		Language:  "python",
		Template:  "blank",
		MaxFiles:  20,
		MaxSizeKB: 10240,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	p := testProject()

	_, ok := cache.Get(ctx, p.ID)
	assert.False(t, ok)

	cache.Set(ctx, p)

	got, ok := cache.Get(ctx, p.ID)
	require.True(t, ok)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.MaxFiles, got.MaxFiles)
}

func TestCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	p := testProject()

	cache.Set(ctx, p)
	cache.Invalidate(ctx, p.ID)

	_, ok := cache.Get(ctx, p.ID)
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	p := testProject()

	cache.Set(ctx, p)
	mr.FastForward(cacheTTL + time.Second)

	_, ok := cache.Get(ctx, p.ID)
	assert.False(t, ok)
}

func TestCacheNilClientIsNoop(t *testing.T) {
	cache := NewCache(nil)
	ctx := context.Background()
	p := testProject()

	cache.Set(ctx, p)
	cache.Invalidate(ctx, p.ID)

	_, ok := cache.Get(ctx, p.ID)
	assert.False(t, ok)
}
