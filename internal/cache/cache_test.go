package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet_RoundTrip(t *testing.T) {
	c := New(10)
	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestEviction_FromHeadWhenOverCapacity(t *testing.T) {
	c := New(2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // evicts "a", the least recently used

	assert.False(t, c.Has("a"))
	assert.True(t, c.Has("b"))
	assert.True(t, c.Has("c"))
	assert.Equal(t, 2, c.Size())
}

func TestGet_PromotesToMostRecentlyUsed(t *testing.T) {
	c := New(2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")    // promote a
	c.Set("c", 3) // should evict b, not a

	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("b"))
	assert.True(t, c.Has("c"))
}

func TestSet_ExistingKeyPromotes(t *testing.T) {
	c := New(2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10) // re-set promotes a, evicting b next
	c.Set("c", 3)

	assert.True(t, c.Has("a"))
	assert.False(t, c.Has("b"))
	v, _ := c.Get("a")
	assert.Equal(t, 10, v)
}

func TestDeleteAndClear(t *testing.T) {
	c := New(10)
	c.Set("a", 1)
	c.Delete("a")
	assert.False(t, c.Has("a"))

	c.Set("b", 2)
	c.Set("c", 3)
	c.Clear()
	assert.Equal(t, 0, c.Size())
}
