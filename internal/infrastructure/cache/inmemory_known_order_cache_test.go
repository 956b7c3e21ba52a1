package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryKnownOrderCache_AddContains(t *testing.T) {
	c := NewInMemoryKnownOrderCache(time.Hour, 0)
	defer c.Close()
	ctx := context.Background()

	ok, err := c.Contains(ctx, "id:1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Add(ctx, "id:1"))

	ok, err = c.Contains(ctx, "id:1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = c.Contains(ctx, "number:1")
	assert.False(t, ok, "keys are namespaced by the caller")
}

func TestInMemoryKnownOrderCache_Expiry(t *testing.T) {
	c := NewInMemoryKnownOrderCache(time.Minute, 0)
	defer c.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Add(ctx, "id:1"))
	ok, _ := c.Contains(ctx, "id:1")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = c.Contains(ctx, "id:1")
	assert.False(t, ok, "expired entries are not reported")

	c.cleanup()
	assert.Zero(t, c.Size())
}

func TestInMemoryKnownOrderCache_ZeroTTLNeverExpires(t *testing.T) {
	c := NewInMemoryKnownOrderCache(0, 0)
	defer c.Close()
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }
	require.NoError(t, c.Add(ctx, "id:1"))

	now = now.Add(24 * 365 * time.Hour)
	c.cleanup()
	ok, _ := c.Contains(ctx, "id:1")
	assert.True(t, ok)
}

func TestInMemoryKnownOrderCache_Capacity(t *testing.T) {
	c := NewInMemoryKnownOrderCache(time.Hour, 2)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Add(ctx, "a"))
	require.NoError(t, c.Add(ctx, "b"))
	require.NoError(t, c.Add(ctx, "c"))

	assert.Equal(t, 2, c.Size())
	ok, _ := c.Contains(ctx, "c")
	assert.False(t, ok, "full cache drops new keys")

	// refreshing an existing key is still allowed
	require.NoError(t, c.Add(ctx, "a"))
	assert.Equal(t, 2, c.Size())
}

func TestInMemoryKnownOrderCache_CloseIsIdempotent(t *testing.T) {
	c := NewInMemoryKnownOrderCache(time.Hour, 0)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
