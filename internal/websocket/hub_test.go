package websocket

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_ToRoom(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(h *Hub) (exclude *mockConn, conns []*mockConn)
		wantReceived map[string]int
	}{
		{
			name: "delivers to every member except the excluded one",
			setup: func(h *Hub) (*mockConn, []*mockConn) {
				sender := newMockConn("sender", "u1", "alice")
				recv1 := newMockConn("recv1", "u2", "bob")
				recv2 := newMockConn("recv2", "u3", "carol")
				for _, c := range []*mockConn{sender, recv1, recv2} {
					h.rooms.Join("space:s1", c)
				}
				return sender, []*mockConn{sender, recv1, recv2}
			},
			wantReceived: map[string]int{"sender": 0, "recv1": 1, "recv2": 1},
		},
		{
			name: "no cross-room delivery",
			setup: func(h *Hub) (*mockConn, []*mockConn) {
				sender := newMockConn("sender", "u1", "alice")
				other := newMockConn("other", "u2", "bob")
				h.rooms.Join("space:s1", sender)
				h.rooms.Join("space:s2", other)
				return sender, []*mockConn{other}
			},
			wantReceived: map[string]int{"other": 0},
		},
		{
			name: "a failing member does not stop the others",
			setup: func(h *Hub) (*mockConn, []*mockConn) {
				broken := newMockConn("broken", "u1", "alice")
				broken.sendErr = errors.New("write failed")
				healthy := newMockConn("healthy", "u2", "bob")
				h.rooms.Join("space:s1", broken)
				h.rooms.Join("space:s1", healthy)
				return nil, []*mockConn{broken, healthy}
			},
			wantReceived: map[string]int{"broken": 0, "healthy": 1},
		},
		{
			name: "closed members are skipped",
			setup: func(h *Hub) (*mockConn, []*mockConn) {
				closed := newMockConn("closed", "u1", "alice")
				closed.Close()
				open := newMockConn("open", "u2", "bob")
				h.rooms.Join("space:s1", closed)
				h.rooms.Join("space:s1", open)
				return nil, []*mockConn{closed, open}
			},
			wantReceived: map[string]int{"closed": 0, "open": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHub(nil)
			exclude, conns := tt.setup(h)

			var excluded Conn
			if exclude != nil {
				excluded = exclude
			}
			h.ToRoom("space:s1", NewErrorFrame("hello"), excluded)

			for _, c := range conns {
				assert.Len(t, c.getReceived(), tt.wantReceived[c.id], "connection %s", c.id)
			}
		})
	}
}

func TestHub_ToRoomSerializesOnce(t *testing.T) {
	h := NewHub(nil)
	a := newMockConn("a", "u1", "alice")
	b := newMockConn("b", "u2", "bob")
	h.rooms.Join("space:s1", a)
	h.rooms.Join("space:s1", b)

	delivered := h.ToRoom("space:s1", NewErrorFrame("same"), nil)
	assert.Equal(t, 2, delivered)
	assert.Equal(t, a.getReceived()[0], b.getReceived()[0])
	assert.JSONEq(t, `{"type":"error","message":"same"}`, string(a.getReceived()[0]))
}

func TestHub_ToUser(t *testing.T) {
	h := NewHub(nil)
	c := newMockConn("c1", "u1", "alice")
	h.Attach(context.Background(), c)

	assert.True(t, h.ToUser("u1", NewErrorFrame("hi")))
	assert.Len(t, c.getReceived(), 1)

	assert.False(t, h.ToUser("nobody", NewErrorFrame("hi")))

	c.Close()
	assert.False(t, h.ToUser("u1", NewErrorFrame("hi")))
	assert.Len(t, c.getReceived(), 1)
}

func TestHub_ToAll(t *testing.T) {
	h := NewHub(nil)
	a := newMockConn("a", "u1", "alice")
	b := newMockConn("b", "u2", "bob")
	h.Attach(context.Background(), a)
	h.Attach(context.Background(), b)

	assert.Equal(t, 2, h.ToAll(NewErrorFrame("maintenance")))
	assert.Len(t, a.getReceived(), 1)
	assert.Len(t, b.getReceived(), 1)
}

func TestHub_AttachDetach(t *testing.T) {
	online := newFakeOnline()
	h := NewHub(online)
	ctx := context.Background()

	c := newMockConn("c1", "u1", "alice")
	h.Attach(ctx, c)
	h.rooms.Join("space:s1", c)

	assert.True(t, online.isOnline("u1"))
	assert.True(t, h.rooms.IsMember(UserRoom("u1"), c))
	rooms, clients := h.Stats()
	assert.Equal(t, 2, rooms)
	assert.Equal(t, 1, clients)

	left := h.Detach(ctx, c)
	assert.Equal(t, []string{"space:s1", "user:u1"}, left)
	assert.False(t, online.isOnline("u1"))

	rooms, clients = h.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, clients)
}

func TestHub_DetachReplacedConnectionKeepsUserOnline(t *testing.T) {
	online := newFakeOnline()
	h := NewHub(online)
	ctx := context.Background()

	old := newMockConn("old", "u1", "alice")
	current := newMockConn("new", "u1", "alice")
	h.Attach(ctx, old)
	h.Attach(ctx, current)

	h.Detach(ctx, old)

	got, ok := h.registry.Lookup("u1")
	require.True(t, ok)
	assert.Equal(t, "new", got.ID())
	assert.True(t, online.isOnline("u1"))
}

func TestHub_ShutdownClosesReplacedConnections(t *testing.T) {
	h := NewHub(nil)
	ctx := context.Background()
	old := newMockConn("old", "u1", "alice")
	current := newMockConn("new", "u1", "alice")
	other := newMockConn("b", "u2", "bob")
	h.Attach(ctx, old)
	h.Attach(ctx, current)
	h.Attach(ctx, other)

	require.NoError(t, h.Shutdown(ctx))

	assert.False(t, old.IsOpen())
	assert.False(t, current.IsOpen())
	assert.False(t, other.IsOpen())
}

func TestHub_ShutdownWaitsForTeardown(t *testing.T) {
	h := NewHub(nil)
	release, ok := h.track()
	require.True(t, ok)

	var finished atomic.Bool
	go func() {
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		release()
	}()

	require.NoError(t, h.Shutdown(context.Background()))
	assert.True(t, finished.Load())

	_, ok = h.track()
	assert.False(t, ok, "no new connections after shutdown")
}

func TestHub_ShutdownGivesUpWithContext(t *testing.T) {
	h := NewHub(nil)
	release, ok := h.track()
	require.True(t, ok)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, h.Shutdown(ctx), context.DeadlineExceeded)
}

func TestHub_AttachAfterShutdownCloses(t *testing.T) {
	h := NewHub(nil)
	require.NoError(t, h.Shutdown(context.Background()))

	late := newMockConn("late", "u1", "alice")
	h.Attach(context.Background(), late)

	assert.False(t, late.IsOpen())
}
