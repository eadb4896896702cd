package websocket

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpaceRoomNames(t *testing.T) {
	tests := []struct {
		name       string
		spaceID    string
		instanceID string
		want       string
	}{
		{name: "shared room", spaceID: "s1", want: "space:s1"},
		{name: "instance room", spaceID: "s1", instanceID: "i1", want: "space:s1:i1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := SpaceRoom(tt.spaceID, tt.instanceID)
			assert.Equal(t, tt.want, room)
			assert.True(t, IsSpaceRoom(room))

			spaceID, instanceID, ok := ParseSpaceRoom(room)
			assert.True(t, ok)
			assert.Equal(t, tt.spaceID, spaceID)
			assert.Equal(t, tt.instanceID, instanceID)
		})
	}

	_, _, ok := ParseSpaceRoom(UserRoom("u1"))
	assert.False(t, ok)
	assert.Equal(t, "user:u1", UserRoom("u1"))
}

func TestRoomDirectory_JoinIsIdempotent(t *testing.T) {
	d := NewRoomDirectory()
	c := newMockConn("c1", "u1", "alice")

	assert.True(t, d.Join("space:s1", c))
	assert.False(t, d.Join("space:s1", c))

	assert.Len(t, d.Members("space:s1"), 1)
	assert.Equal(t, []string{"space:s1"}, d.RoomsOf(c))
}

func TestRoomDirectory_TwoWayIndex(t *testing.T) {
	d := NewRoomDirectory()
	a := newMockConn("c1", "u1", "alice")
	b := newMockConn("c2", "u2", "bob")

	d.Join("space:s1", a)
	d.Join("space:s1", b)
	d.Join("user:u1", a)

	assert.Equal(t, []string{"space:s1", "user:u1"}, d.RoomsOf(a))
	assert.True(t, d.IsMember("space:s1", b))

	assert.True(t, d.Leave("space:s1", a))
	assert.False(t, d.IsMember("space:s1", a))
	assert.Equal(t, []string{"user:u1"}, d.RoomsOf(a))
	assert.Len(t, d.Members("space:s1"), 1)
}

func TestRoomDirectory_LeaveNonMemberIsNoop(t *testing.T) {
	d := NewRoomDirectory()
	a := newMockConn("c1", "u1", "alice")
	b := newMockConn("c2", "u2", "bob")
	d.Join("space:s1", b)

	assert.False(t, d.Leave("space:s1", a))
	assert.False(t, d.Leave("space:missing", a))
	assert.Len(t, d.Members("space:s1"), 1)
}

func TestRoomDirectory_EmptyRoomIsRemoved(t *testing.T) {
	d := NewRoomDirectory()
	a := newMockConn("c1", "u1", "alice")

	d.Join("space:s1", a)
	assert.Equal(t, 1, d.Len())

	d.Leave("space:s1", a)
	assert.Equal(t, 0, d.Len())
	assert.Empty(t, d.Members("space:s1"))
	assert.Empty(t, d.RoomsOf(a))
}

func TestRoomDirectory_LeaveAll(t *testing.T) {
	d := NewRoomDirectory()
	a := newMockConn("c1", "u1", "alice")
	b := newMockConn("c2", "u2", "bob")

	d.Join("space:s1", a)
	d.Join("space:s2:i1", a)
	d.Join("space:s1", b)

	left := d.LeaveAll(a)
	assert.Equal(t, []string{"space:s1", "space:s2:i1"}, left)
	assert.Empty(t, d.RoomsOf(a))
	assert.Equal(t, 1, d.Len())
	assert.True(t, d.IsMember("space:s1", b))
}

func TestRoomDirectory_ConcurrentJoinLeave(t *testing.T) {
	d := NewRoomDirectory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newMockConn(fmt.Sprintf("c%d", i), fmt.Sprintf("u%d", i), "user")
			d.Join("space:s1", c)
			_ = d.Members("space:s1")
			if i%2 == 0 {
				d.Leave("space:s1", c)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, d.Members("space:s1"), 25)
}
