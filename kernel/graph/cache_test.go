package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_EvictsLRU(t *testing.T) {
	c := NewCache(2)
	c.Set("a", Entry{Valid: true, Order: []string{"a"}})
	c.Set("b", Entry{Valid: true, Order: []string{"b"}})

	// Touch "a" so "b" becomes the LRU entry.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", Entry{Valid: true, Order: []string{"c"}})

	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")

	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCache_CapacityInvariant(t *testing.T) {
	c := NewCache(3)
	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("k%d", i), Entry{Valid: true})
	}
	assert.Equal(t, 3, c.Len())

	// The most recent 3 keys must be present.
	for i := 7; i < 10; i++ {
		_, ok := c.Get(fmt.Sprintf("k%d", i))
		assert.True(t, ok)
	}
}

func TestCache_NegativeEntry(t *testing.T) {
	c := NewCache(10)
	c.Set("A,B", Entry{Valid: false, Err: "cyclic dependency graph: [A B]"})

	entry, ok := c.Get("A,B")
	require.True(t, ok)
	assert.False(t, entry.Valid)
	assert.Contains(t, entry.Err, "cyclic")
}

func TestCache_MinimumCapacity(t *testing.T) {
	c := NewCache(0)
	c.Set("x", Entry{Valid: true})
	assert.Equal(t, 1, c.Len())
}
