package refcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPut(t *testing.T) {
	c := New()
	_, ok := c.Get(0)
	assert.False(t, ok)

	c.Put(0, []byte("ACGT"))
	b, ok := c.Get(0)
	assert.True(t, ok)
	assert.Equal(t, []byte("ACGT"), b)
}

func TestRefcounting(t *testing.T) {
	c := New()
	c.Put(1, []byte("ACGT"))

	c.Incr(1)
	c.Incr(1)
	assert.Equal(t, 2, c.RefCount(1))

	c.Decr(1)
	assert.Equal(t, 1, c.RefCount(1))

	c.Decr(1)
	assert.Equal(t, 0, c.RefCount(1))

	// Bases remain available even after the refcount drops to zero.
	b, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, []byte("ACGT"), b)
}
