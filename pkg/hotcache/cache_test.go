package hotcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheMissThenHit(t *testing.T) {
	c := New[[]string](8)
	key := Key{Query: "car", Form: FormPredict}

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Put(key, []string{"car", "cart", "carts"})
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, []string{"car", "cart", "carts"}, got)
}

func TestCacheDistinctFormsDoNotCollide(t *testing.T) {
	c := New[[]string](8)
	predictKey := Key{Query: "car", Form: FormPredict}
	approxKey := Key{Query: "car", Form: FormApprox, MaxEdits: 1}

	c.Put(predictKey, []string{"car", "cart"})
	c.Put(approxKey, []string{"car", "care"})

	predictGot, _ := c.Get(predictKey)
	approxGot, _ := c.Get(approxKey)
	assert.Equal(t, []string{"car", "cart"}, predictGot)
	assert.Equal(t, []string{"car", "care"}, approxGot)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](2)
	a, b, cc := Key{Query: "a"}, Key{Query: "b"}, Key{Query: "c"}

	c.Put(a, 1)
	c.Put(b, 2)
	// touch a so b becomes the least-recently-used entry
	_, _ = c.Get(a)
	c.Put(cc, 3)

	_, hasB := c.Get(b)
	assert.False(t, hasB, "b should have been evicted")

	_, hasA := c.Get(a)
	assert.True(t, hasA)
	_, hasC := c.Get(cc)
	assert.True(t, hasC)
}

func TestCacheInvalidateSubtree(t *testing.T) {
	c := New[int](8)
	c.Put(Key{Query: "car"}, 1)
	c.Put(Key{Query: "cart"}, 2)
	c.Put(Key{Query: "dog"}, 3)

	c.InvalidateSubtree("car")

	_, hasCar := c.Get(Key{Query: "car"})
	_, hasCart := c.Get(Key{Query: "cart"})
	_, hasDog := c.Get(Key{Query: "dog"})
	assert.False(t, hasCar)
	assert.False(t, hasCart)
	assert.True(t, hasDog)
}

func TestCacheStats(t *testing.T) {
	c := New[int](4)
	c.Put(Key{Query: "a"}, 1)
	c.Put(Key{Query: "b"}, 2)

	stats := c.Stats()
	assert.Equal(t, 2, stats["entries"])
	assert.Equal(t, 4, stats["maxEntries"])
}
