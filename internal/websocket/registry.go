package websocket

import "sync"

// Registry maps each user id to its single live connection
type Registry struct {
	conns map[string]Conn
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
	}
}

// Register binds c to its user and returns the connection it replaced, if any.
// The replaced connection is not closed.
func (r *Registry) Register(c Conn) Conn {
	userID := c.Identity().UserID

	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[userID]
	r.conns[userID] = c
	if prev != nil && prev.ID() == c.ID() {
		return nil
	}
	return prev
}

func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[userID]
	return c, ok
}

func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, userID)
}

// Release removes c only if it is still the registered connection for its user
func (r *Registry) Release(c Conn) bool {
	userID := c.Identity().UserID

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.conns[userID]
	if !ok || current.ID() != c.ID() {
		return false
	}
	delete(r.conns, userID)
	return true
}

// IsCurrent reports whether c is the registered connection for its user
func (r *Registry) IsCurrent(c Conn) bool {
	current, ok := r.Lookup(c.Identity().UserID)
	return ok && current.ID() == c.ID()
}

func (r *Registry) Snapshot() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
