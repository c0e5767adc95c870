package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedCache[T any](size int, ttl time.Duration) (*LRUCache[T], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[T](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCacheEviction(t *testing.T) {
	c, _ := newClockedCache[string](3, time.Hour)

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Set("key3", "value3")
	c.Get("key1") // key2 is now least recently used
	c.Set("key4", "value4")

	_, found := c.Get("key2")
	assert.False(t, found, "key2 should have been evicted")
	for _, k := range []string{"key1", "key3", "key4"} {
		_, found := c.Get(k)
		assert.True(t, found, k)
	}
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestLRUCacheTTLExpiration(t *testing.T) {
	c, clk := newClockedCache[string](100, 50*time.Millisecond)
	c.Set("key1", "value1")

	v, found := c.Get("key1")
	assert.True(t, found)
	assert.Equal(t, "value1", v)

	clk.advance(60 * time.Millisecond)
	_, found = c.Get("key1")
	assert.False(t, found)
	assert.Equal(t, 0, c.Size())
}

func TestLRUCacheOverwriteRefreshes(t *testing.T) {
	c, clk := newClockedCache[int](2, time.Minute)
	c.Set("a", 1)
	clk.advance(50 * time.Second)
	c.Set("a", 2)
	clk.advance(50 * time.Second)

	v, found := c.Get("a")
	assert.True(t, found)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Size())
}

func TestLRUCacheCleanExpired(t *testing.T) {
	c, clk := newClockedCache[string](100, time.Second)
	c.Set("key1", "value1")
	c.Set("key2", "value2")
	clk.advance(2 * time.Second)
	c.Set("key3", "value3")

	assert.Equal(t, 2, c.CleanExpired())
	assert.Equal(t, 1, c.Size())
}

func TestLRUCacheStats(t *testing.T) {
	c := NewLRUCache[int](10, time.Hour)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")
	c.Delete("a")

	assert.Equal(t, Stats{Size: 0, Hits: 2, Misses: 1}, c.Stats())
}

func BenchmarkLRUCache(b *testing.B) {
	c := NewLRUCache[string](1000, time.Hour)
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("user-%d", i%100)
		if i%10 == 0 {
			c.Set(key, "v")
		} else {
			c.Get(key)
		}
	}
}
