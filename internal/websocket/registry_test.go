package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_ReplacesPriorConnection(t *testing.T) {
	r := NewRegistry()
	first := newMockConn("c1", "u1", "alice")
	second := newMockConn("c2", "u1", "alice")

	assert.Nil(t, r.Register(first))
	prev := r.Register(second)
	assert.Equal(t, first, prev)

	got, ok := r.Lookup("u1")
	assert.True(t, ok)
	assert.Equal(t, "c2", got.ID())
	assert.Equal(t, 1, r.Len())

	// the evicted connection is not closed by the registry
	assert.True(t, first.IsOpen())
}

func TestRegistry_RegisterSameConnectionTwice(t *testing.T) {
	r := NewRegistry()
	c := newMockConn("c1", "u1", "alice")

	assert.Nil(t, r.Register(c))
	assert.Nil(t, r.Register(c))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Release(t *testing.T) {
	r := NewRegistry()
	first := newMockConn("c1", "u1", "alice")
	second := newMockConn("c2", "u1", "alice")
	r.Register(first)
	r.Register(second)

	assert.False(t, r.Release(first), "stale connection must not remove the current one")
	assert.True(t, r.IsCurrent(second))

	assert.True(t, r.Release(second))
	_, ok := r.Lookup("u1")
	assert.False(t, ok)
	assert.False(t, r.Release(second))
}

func TestRegistry_UnregisterAndSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Register(newMockConn("c1", "u1", "alice"))
	r.Register(newMockConn("c2", "u2", "bob"))

	assert.Len(t, r.Snapshot(), 2)

	r.Unregister("u1")
	_, ok := r.Lookup("u1")
	assert.False(t, ok)
	assert.Len(t, r.Snapshot(), 1)
}
