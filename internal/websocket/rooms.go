package websocket

import (
	"sort"
	"strings"
	"sync"
)

const (
	spaceRoomPrefix = "space:"
	userRoomPrefix  = "user:"
)

// SpaceRoom names the broadcast room of a space, or of one of its instances
func SpaceRoom(spaceID, instanceID string) string {
	if instanceID == "" {
		return spaceRoomPrefix + spaceID
	}
	return spaceRoomPrefix + spaceID + ":" + instanceID
}

// UserRoom names the direct-delivery room of a user
func UserRoom(userID string) string {
	return userRoomPrefix + userID
}

// ParseSpaceRoom splits a space room name back into its space and instance ids
func ParseSpaceRoom(room string) (spaceID, instanceID string, ok bool) {
	rest, found := strings.CutPrefix(room, spaceRoomPrefix)
	if !found || rest == "" {
		return "", "", false
	}
	spaceID, instanceID, _ = strings.Cut(rest, ":")
	return spaceID, instanceID, true
}

func IsSpaceRoom(room string) bool {
	return strings.HasPrefix(room, spaceRoomPrefix)
}

// RoomDirectory is a two-way index between rooms and connections. Both sides
// are keyed by connection id so neither owns the other.
type RoomDirectory struct {
	// members maps room name to the connections in it
	members map[string]map[string]Conn

	// memberships maps connection id to the rooms it joined
	memberships map[string]map[string]struct{}

	mu sync.RWMutex
}

func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{
		members:     make(map[string]map[string]Conn),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Join adds c to room and reports whether it was not already a member
func (d *RoomDirectory) Join(room string, c Conn) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	conns, ok := d.members[room]
	if !ok {
		conns = make(map[string]Conn)
		d.members[room] = conns
	}
	if _, member := conns[c.ID()]; member {
		return false
	}
	conns[c.ID()] = c

	rooms, ok := d.memberships[c.ID()]
	if !ok {
		rooms = make(map[string]struct{})
		d.memberships[c.ID()] = rooms
	}
	rooms[room] = struct{}{}
	return true
}

// Leave removes c from room and reports whether it was a member
func (d *RoomDirectory) Leave(room string, c Conn) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leaveLocked(room, c.ID())
}

func (d *RoomDirectory) leaveLocked(room, connID string) bool {
	conns, ok := d.members[room]
	if !ok {
		return false
	}
	if _, member := conns[connID]; !member {
		return false
	}

	delete(conns, connID)
	if len(conns) == 0 {
		delete(d.members, room)
	}

	if rooms, ok := d.memberships[connID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(d.memberships, connID)
		}
	}
	return true
}

// LeaveAll removes c from every room and returns the rooms it left, sorted
func (d *RoomDirectory) LeaveAll(c Conn) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	left := sortedKeys(d.memberships[c.ID()])
	for _, room := range left {
		d.leaveLocked(room, c.ID())
	}
	return left
}

// Members returns a snapshot of the connections in room
func (d *RoomDirectory) Members(room string) []Conn {
	d.mu.RLock()
	defer d.mu.RUnlock()

	conns := d.members[room]
	out := make([]Conn, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

func (d *RoomDirectory) IsMember(room string, c Conn) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.members[room][c.ID()]
	return ok
}

// RoomsOf returns the rooms c belongs to, sorted
func (d *RoomDirectory) RoomsOf(c Conn) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedKeys(d.memberships[c.ID()])
}

// Len returns the number of non-empty rooms
func (d *RoomDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.members)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
