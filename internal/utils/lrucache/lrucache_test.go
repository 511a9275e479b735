package lrucache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheEviction(t *testing.T) {
	c := NewCache[int, string](2)
	c.Set(1, "one")
	c.Set(2, "two")

	v, ok := c.Get(1)
	require.True(t, ok)
	require.Equal(t, "one", v)

	// 2 is now the least recently used entry
	c.Set(3, "three")
	require.False(t, c.Contains(2))
	require.True(t, c.Contains(1))
	require.Equal(t, 2, c.Len())

	_, ok = c.Get(2)
	require.False(t, ok)

	c.Remove(1)
	require.Equal(t, 1, c.Len())
	c.Purge()
	require.Zero(t, c.Len())
}

func TestCacheNonPositiveSize(t *testing.T) {
	c := NewCache[string, int](0)
	c.Set("a", 1)
	c.Set("b", 2)
	require.Equal(t, 1, c.Len())
	require.True(t, c.Contains("b"))
}

func TestCacheGetOrLoad(t *testing.T) {
	c := NewCache[string, int](4)
	var loads int
	load := func(key string) (int, bool) {
		loads++
		if key == "missing" {
			return 0, false
		}
		return len(key), true
	}

	v, ok := c.GetOrLoad("abc", load)
	require.True(t, ok)
	require.Equal(t, 3, v)
	v, ok = c.GetOrLoad("abc", load)
	require.True(t, ok)
	require.Equal(t, 3, v)
	require.Equal(t, 1, loads)

	_, ok = c.GetOrLoad("missing", load)
	require.False(t, ok)
	_, ok = c.GetOrLoad("missing", load)
	require.False(t, ok)
	require.Equal(t, 3, loads)
	require.False(t, c.Contains("missing"))
}
