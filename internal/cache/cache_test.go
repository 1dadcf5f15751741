package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetAndGet(t *testing.T) {
	cache := New()

	cache.Set("key1", "value1", 10*time.Second)
	val, exists := cache.Get("key1")
	assert.True(t, exists)
	assert.Equal(t, "value1", val)

	val, exists = cache.Get("nonexistent")
	assert.False(t, exists)
	assert.Nil(t, val)
}

func TestCache_Expiration(t *testing.T) {
	cache := New()

	cache.Set("expiring", "value", 50*time.Millisecond)

	val, exists := cache.Get("expiring")
	assert.True(t, exists)
	assert.Equal(t, "value", val)

	time.Sleep(80 * time.Millisecond)

	val, exists = cache.Get("expiring")
	assert.False(t, exists)
	assert.Nil(t, val)
}

func TestCache_UpdateResetsEntry(t *testing.T) {
	cache := New()

	cache.Set("key", "value1", 10*time.Second)
	cache.Set("key", "value2", 10*time.Second)

	val, exists := cache.Get("key")
	assert.True(t, exists)
	assert.Equal(t, "value2", val)
}

func TestCache_Delete(t *testing.T) {
	cache := New()

	cache.Set("key", "value", 10*time.Second)
	cache.Delete("key")

	_, exists := cache.Get("key")
	assert.False(t, exists)

	// Deleting a missing key should not panic
	cache.Delete("nonexistent")
}

func TestCache_Sweep(t *testing.T) {
	cache := New()

	cache.Set("stale1", "a", 1*time.Nanosecond)
	cache.Set("stale2", "b", 1*time.Nanosecond)
	cache.Set("fresh", "c", 10*time.Second)
	time.Sleep(5 * time.Millisecond)

	removed := cache.Sweep()

	assert.Equal(t, 2, removed)
	_, exists := cache.Get("fresh")
	assert.True(t, exists)
}

func TestCache_Clear(t *testing.T) {
	cache := New()

	cache.Set("key1", "value1", 10*time.Second)
	cache.Set("key2", "value2", 10*time.Second)

	cache.Clear()

	_, exists1 := cache.Get("key1")
	_, exists2 := cache.Get("key2")
	assert.False(t, exists1)
	assert.False(t, exists2)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := New()
	iterations := 100
	var wg sync.WaitGroup

	wg.Add(iterations * 3)
	for i := 0; i < iterations; i++ {
		go func(n int) {
			defer wg.Done()
			cache.Set("key", n, 10*time.Second)
		}(i)

		go func() {
			defer wg.Done()
			cache.Get("key")
		}()

		go func(n int) {
			defer wg.Done()
			if n%10 == 0 {
				cache.Delete("key")
			}
		}(i)
	}
	wg.Wait()

	cache.Set("final", "value", 10*time.Second)
	val, exists := cache.Get("final")
	assert.True(t, exists)
	assert.Equal(t, "value", val)
}

func TestCache_NegativeTTL(t *testing.T) {
	cache := New()

	cache.Set("negative", "value", -1*time.Second)
	_, exists := cache.Get("negative")
	assert.False(t, exists)
}
