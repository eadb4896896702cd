package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"spacehub/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOnline struct {
	users []string
	err   error
}

func (f *fakeOnline) GetOnlineUsers(ctx context.Context) ([]string, error) {
	return f.users, f.err
}

func (f *fakeOnline) IsUserOnline(ctx context.Context, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, id := range f.users {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func serveUsers(t *testing.T, h *UserHandler, path string) map[string]any {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/users/online", h.GetOnlineUsers)
	engine.GET("/users/:id/online", h.GetUserOnline)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestUserHandler_GetUserOnline(t *testing.T) {
	tests := []struct {
		name   string
		online OnlineLister
		userID string
		want   bool
	}{
		{"online in redis", &fakeOnline{users: []string{"u1", "u2"}}, "u2", true},
		{"offline in redis", &fakeOnline{users: []string{"u1"}}, "u3", false},
		{"redis error falls back to the registry", &fakeOnline{err: errors.New("redis down")}, "u1", false},
		{"no redis", nil, "u1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUserHandler(tt.online, websocket.NewHub(nil))

			body := serveUsers(t, h, "/users/"+tt.userID+"/online")

			assert.Equal(t, tt.userID, body["userId"])
			assert.Equal(t, tt.want, body["online"])
		})
	}
}

func TestUserHandler_GetOnlineUsersSorted(t *testing.T) {
	h := NewUserHandler(&fakeOnline{users: []string{"u3", "u1", "u2"}}, websocket.NewHub(nil))

	body := serveUsers(t, h, "/users/online")

	assert.Equal(t, []any{"u1", "u2", "u3"}, body["users"])
}
