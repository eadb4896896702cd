package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrHubClosed is returned for connections arriving after Shutdown started
var ErrHubClosed = errors.New("websocket hub is shutting down")

// OnlineTracker mirrors who is connected into a shared store
type OnlineTracker interface {
	SetUserOnline(ctx context.Context, userID string) error
	SetUserOffline(ctx context.Context, userID string) error
}

// Hub owns the connection registry and the room directory and fans frames out to them
type Hub struct {
	registry *Registry
	rooms    *RoomDirectory
	online   OnlineTracker

	// attached holds every connection between Attach and Detach, including
	// ones the registry already replaced
	mu       sync.Mutex
	attached map[string]Conn
	closing  bool
	serving  sync.WaitGroup
}

// NewHub creates a hub; online may be nil
func NewHub(online OnlineTracker) *Hub {
	return &Hub{
		registry: NewRegistry(),
		rooms:    NewRoomDirectory(),
		online:   online,
		attached: make(map[string]Conn),
	}
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

func (h *Hub) Rooms() *RoomDirectory {
	return h.rooms
}

// Attach registers c for its user and joins it to the user's direct room
func (h *Hub) Attach(ctx context.Context, c Conn) {
	identity := c.Identity()

	h.mu.Lock()
	h.attached[c.ID()] = c
	closing := h.closing
	h.mu.Unlock()

	if prev := h.registry.Register(c); prev != nil {
		slog.Info("Connection replaced", "userID", identity.UserID, "previousID", prev.ID(), "clientID", c.ID())
	}
	h.rooms.Join(UserRoom(identity.UserID), c)

	if h.online != nil {
		if err := h.online.SetUserOnline(ctx, identity.UserID); err != nil {
			slog.Error("Failed to set user online", "userID", identity.UserID, "error", err)
		}
	}

	slog.Info("Client registered", "clientID", c.ID(), "userID", identity.UserID, "username", identity.Username)

	// Shutdown may already have taken its snapshot
	if closing {
		c.Close()
	}
}

// Detach removes c from every room and from the registry, returning the rooms it left
func (h *Hub) Detach(ctx context.Context, c Conn) []string {
	identity := c.Identity()

	left := h.rooms.LeaveAll(c)
	released := h.registry.Release(c)

	h.mu.Lock()
	delete(h.attached, c.ID())
	h.mu.Unlock()

	if released && h.online != nil {
		if err := h.online.SetUserOffline(ctx, identity.UserID); err != nil {
			slog.Error("Failed to set user offline", "userID", identity.UserID, "error", err)
		}
	}

	slog.Info("Client unregistered", "clientID", c.ID(), "userID", identity.UserID, "rooms", len(left), "released", released)
	return left
}

// =============================================================================
// Broadcasting
// =============================================================================

func encode(msg any) ([]byte, error) {
	if raw, ok := msg.([]byte); ok {
		return raw, nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame: %w", err)
	}
	return data, nil
}

// Send writes msg to a single connection
func (h *Hub) Send(c Conn, msg any) error {
	data, err := encode(msg)
	if err != nil {
		return err
	}
	if !c.IsOpen() {
		return ErrClientDisconnected
	}
	return c.Send(data)
}

// ToUser delivers msg to the user's registered connection, dropping it when the
// user is not connected
func (h *Hub) ToUser(userID string, msg any) bool {
	c, ok := h.registry.Lookup(userID)
	if !ok || !c.IsOpen() {
		return false
	}
	if err := h.Send(c, msg); err != nil {
		slog.Debug("Dropped frame for user", "userID", userID, "error", err)
		return false
	}
	return true
}

// ToRoom serializes msg once and writes it to every open member of room except
// exclude. A failed write does not stop delivery to the other members.
func (h *Hub) ToRoom(room string, msg any, exclude Conn) int {
	data, err := encode(msg)
	if err != nil {
		slog.Error("Failed to encode room frame", "room", room, "error", err)
		return 0
	}

	delivered := 0
	for _, c := range h.rooms.Members(room) {
		if exclude != nil && c.ID() == exclude.ID() {
			continue
		}
		if h.deliver(c, data) {
			delivered++
		}
	}
	return delivered
}

// ToAll writes msg to every registered connection
func (h *Hub) ToAll(msg any) int {
	data, err := encode(msg)
	if err != nil {
		slog.Error("Failed to encode broadcast frame", "error", err)
		return 0
	}

	delivered := 0
	for _, c := range h.registry.Snapshot() {
		if h.deliver(c, data) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) deliver(c Conn, data []byte) bool {
	if !c.IsOpen() {
		return false
	}
	if err := c.Send(data); err != nil {
		slog.Debug("Failed to deliver frame", "clientID", c.ID(), "userID", c.Identity().UserID, "error", err)
		return false
	}
	return true
}

// Stats returns the number of live rooms and registered clients
func (h *Hub) Stats() (rooms, clients int) {
	return h.rooms.Len(), h.registry.Len()
}

// track counts a connection goroutine so Shutdown can wait for its teardown.
// It reports false once Shutdown has started.
func (h *Hub) track() (release func(), ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return nil, false
	}
	h.serving.Add(1)
	return h.serving.Done, true
}

// Shutdown closes every attached connection, replaced ones included, and waits
// until their disconnect handling has finished or ctx is done.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	conns := make([]Conn, 0, len(h.attached))
	for _, c := range h.attached {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.Close(); err != nil {
			slog.Debug("Error closing connection", "clientID", c.ID(), "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		h.serving.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("WebSocket hub shut down", "clients", len(conns))
		return nil
	case <-ctx.Done():
		slog.Warn("WebSocket hub shutdown timed out", "clients", len(conns), "error", ctx.Err())
		return fmt.Errorf("waiting for connections to close: %w", ctx.Err())
	}
}
