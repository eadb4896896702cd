package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"spacehub/internal/models"

	"github.com/stretchr/testify/require"
)

type mockConn struct {
	id       string
	identity models.Identity
	received [][]byte
	closed   bool
	sendErr  error
	mu       sync.Mutex
}

func newMockConn(id, userID, username string) *mockConn {
	return &mockConn{
		id:       id,
		identity: models.Identity{UserID: userID, Username: username, Role: models.RoleUser},
	}
}

func (m *mockConn) ID() string                { return m.id }
func (m *mockConn) Identity() models.Identity { return m.identity }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, data)
	return nil
}

func (m *mockConn) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) getReceived() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.received))
	copy(out, m.received)
	return out
}

func (m *mockConn) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = nil
}

// frames decodes every received frame into a generic map
func (m *mockConn) frames(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, raw := range m.getReceived() {
		var frame map[string]any
		require.NoError(t, json.Unmarshal(raw, &frame))
		out = append(out, frame)
	}
	return out
}

func (m *mockConn) framesOfType(t *testing.T, msgType MessageType) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, frame := range m.frames(t) {
		if frame["type"] == string(msgType) {
			out = append(out, frame)
		}
	}
	return out
}

/** --------------------FAKE STORES-------------------- */

type fakeSpaces struct {
	spaces    map[string]*models.Space
	instances map[string]*models.SpaceInstance
	err       error
}

func newFakeSpaces() *fakeSpaces {
	return &fakeSpaces{
		spaces:    make(map[string]*models.Space),
		instances: make(map[string]*models.SpaceInstance),
	}
}

func (f *fakeSpaces) addSpace(id string) {
	f.spaces[id] = &models.Space{ID: id, Name: id, OwnerID: "owner"}
}

func (f *fakeSpaces) addInstance(id, spaceID string, active bool) {
	f.instances[id] = &models.SpaceInstance{ID: id, SpaceID: spaceID, IsActive: active, MaxUsers: 10}
}

func (f *fakeSpaces) FindByID(ctx context.Context, id string) (*models.Space, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.spaces[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return s, nil
}

func (f *fakeSpaces) FindInstance(ctx context.Context, instanceID, spaceID string) (*models.SpaceInstance, error) {
	if f.err != nil {
		return nil, f.err
	}
	i, ok := f.instances[instanceID]
	if !ok || i.SpaceID != spaceID {
		return nil, models.ErrNotFound
	}
	return i, nil
}

type fakePresences struct {
	rows      map[models.PresenceKey]*models.SpacePresence
	usernames map[string]string
	upsertErr error
	updateErr error
	mu        sync.Mutex
}

func newFakePresences() *fakePresences {
	return &fakePresences{
		rows:      make(map[models.PresenceKey]*models.SpacePresence),
		usernames: make(map[string]string),
	}
}

func (f *fakePresences) Upsert(ctx context.Context, key models.PresenceKey) (*models.SpacePresence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}

	row, ok := f.rows[key]
	if !ok {
		row = &models.SpacePresence{
			ID:         fmt.Sprintf("p-%d", len(f.rows)+1),
			UserID:     key.UserID,
			SpaceID:    key.SpaceID,
			InstanceID: key.InstanceID,
			User:       models.User{ID: key.UserID, Username: f.usernames[key.UserID]},
		}
		f.rows[key] = row
	}
	row.IsActive = true
	row.Status = models.StatusOnline
	row.LastUpdated = time.Now()

	copied := *row
	return &copied, nil
}

func matches(row *models.SpacePresence, filter models.PresenceFilter) bool {
	if filter.UserID != "" && row.UserID != filter.UserID {
		return false
	}
	if filter.ExcludeUserID != "" && row.UserID == filter.ExcludeUserID {
		return false
	}
	if filter.SpaceID != "" && (row.SpaceID != filter.SpaceID || row.InstanceID != filter.InstanceID) {
		return false
	}
	if filter.ActiveOnly && !row.IsActive {
		return false
	}
	return true
}

func (f *fakePresences) UpdateMany(ctx context.Context, filter models.PresenceFilter, update models.PresenceUpdate) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return 0, f.updateErr
	}

	var n int64
	for _, row := range f.rows {
		if !matches(row, filter) {
			continue
		}
		if t := update.Transform; t != nil {
			row.X, row.Y, row.Z = t.X, t.Y, t.Z
			row.RotationX, row.RotationY, row.RotationZ = t.RotationX, t.RotationY, t.RotationZ
		}
		if update.Status != nil {
			row.Status = *update.Status
		}
		if update.IsActive != nil {
			row.IsActive = *update.IsActive
		}
		n++
	}
	return n, nil
}

func (f *fakePresences) FindMany(ctx context.Context, filter models.PresenceFilter) ([]models.SpacePresence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.SpacePresence
	for _, row := range f.rows {
		if matches(row, filter) {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakePresences) get(userID, spaceID, instanceID string) (models.SpacePresence, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[models.PresenceKey{UserID: userID, SpaceID: spaceID, InstanceID: instanceID}]
	if !ok {
		return models.SpacePresence{}, false
	}
	return *row, true
}

type fakeChats struct {
	messages  []models.ChatMessage
	usernames map[string]string
	err       error
	mu        sync.Mutex
}

func (f *fakeChats) Create(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	stored := *msg
	stored.ID = fmt.Sprintf("msg-%d", len(f.messages)+1)
	stored.CreatedAt = time.Now()
	stored.Sender = models.User{ID: msg.SenderID, Username: f.usernames[msg.SenderID]}
	f.messages = append(f.messages, stored)
	return &stored, nil
}

type fakeUsers struct {
	known   map[string]bool
	touched []string
	err     error
	findErr error
	mu      sync.Mutex
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	if !f.known[id] {
		return nil, models.ErrNotFound
	}
	return &models.User{ID: id, IsActive: true}, nil
}

func (f *fakeUsers) TouchLastOnline(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.touched = append(f.touched, id)
	return nil
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allowed, f.err
}

type fakePublisher struct {
	published []string
	mu        sync.Mutex
}

func (f *fakePublisher) PublishChat(ctx context.Context, msg *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg.ID)
	return nil
}

type fakeOnline struct {
	online map[string]bool
	mu     sync.Mutex
}

func newFakeOnline() *fakeOnline {
	return &fakeOnline{online: make(map[string]bool)}
}

func (f *fakeOnline) SetUserOnline(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[userID] = true
	return nil
}

func (f *fakeOnline) SetUserOffline(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.online, userID)
	return nil
}

func (f *fakeOnline) isOnline(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[userID]
}

var errStoreDown = errors.New("store unavailable")

/** --------------------FIXTURE-------------------- */

type routerFixture struct {
	hub       *Hub
	router    *Router
	spaces    *fakeSpaces
	presences *fakePresences
	chats     *fakeChats
	users     *fakeUsers
	publisher *fakePublisher
}

func newRouterFixture() *routerFixture {
	usernames := map[string]string{"u1": "alice", "u2": "bob", "u3": "carol"}
	presences := newFakePresences()
	presences.usernames = usernames

	f := &routerFixture{
		hub:       NewHub(nil),
		spaces:    newFakeSpaces(),
		presences: presences,
		chats:     &fakeChats{usernames: usernames},
		users:     &fakeUsers{known: map[string]bool{"u1": true, "u2": true, "u3": true}},
		publisher: &fakePublisher{},
	}
	f.spaces.addSpace("s1")
	f.spaces.addSpace("s2")
	f.spaces.addInstance("i1", "s1", true)
	f.spaces.addInstance("i-off", "s1", false)

	f.router = NewRouter(f.hub, Dependencies{
		Spaces:    f.spaces,
		Presences: f.presences,
		Chats:     f.chats,
		Users:     f.users,
		Publisher: f.publisher,
	}, RouterConfig{StoreTimeout: time.Second})
	return f
}

// connect attaches a mock connection for a known user
func (f *routerFixture) connect(userID string) *mockConn {
	names := map[string]string{"u1": "alice", "u2": "bob", "u3": "carol"}
	c := newMockConn("conn-"+userID, userID, names[userID])
	f.hub.Attach(context.Background(), c)
	return c
}

func (f *routerFixture) send(t *testing.T, c Conn, frame map[string]any) {
	t.Helper()
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	f.router.Dispatch(c, data)
}
