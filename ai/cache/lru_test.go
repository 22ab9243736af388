package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_Creation(t *testing.T) {
	testCases := []struct {
		name       string
		capacity   int
		defaultTTL time.Duration
		expectCap  int
	}{
		{"default values", 0, 0, 1000},
		{"custom capacity", 500, 0, 500},
		{"both custom", 200, 15 * time.Minute, 200},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewLRUCache[string, string](tc.capacity, tc.defaultTTL)
			assert.Equal(t, tc.expectCap, c.Capacity())
			assert.Equal(t, 0, c.Size())
		})
	}
}

func TestLRUCache_BasicSetGet(t *testing.T) {
	c := NewLRUCache[string, string](100, time.Minute)

	t.Run("set and get returns value", func(t *testing.T) {
		c.Set("k", "v", 0)
		got, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, "v", got)
	})

	t.Run("missing key returns false", func(t *testing.T) {
		_, ok := c.Get("missing")
		assert.False(t, ok)
	})

	t.Run("update existing key", func(t *testing.T) {
		c.Set("u", "v1", 0)
		c.Set("u", "v2", 0)
		got, ok := c.Get("u")
		require.True(t, ok)
		assert.Equal(t, "v2", got)
	})
}

func TestLRUCache_TTLExpiration(t *testing.T) {
	c := NewLRUCache[string, string](100, 50*time.Millisecond)

	c.Set("expiring", "v", 50*time.Millisecond)
	_, ok := c.Get("expiring")
	assert.True(t, ok, "key should exist immediately after Set")

	time.Sleep(60 * time.Millisecond)

	_, ok = c.Get("expiring")
	assert.False(t, ok, "key should be expired after TTL")
}

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[string, int](3, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i, 0)
	}

	// Touch k0 so k1 becomes the eviction candidate.
	_, ok := c.Get("k0")
	require.True(t, ok)

	c.Set("k3", 3, 0)

	_, ok = c.Get("k1")
	assert.False(t, ok, "least recently used key should be evicted")
	_, ok = c.Get("k0")
	assert.True(t, ok)
	assert.Equal(t, 3, c.Size())
}

func TestLRUCache_CleanupExpired(t *testing.T) {
	c := NewLRUCache[string, string](100, time.Minute)

	c.Set("short", "v", 10*time.Millisecond)
	c.Set("long", "v", time.Minute)

	time.Sleep(20 * time.Millisecond)

	removed := c.CleanupExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Size())
}
