package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"spacehub/internal/websocket"

	"github.com/gin-gonic/gin"
)

type OnlineLister interface {
	GetOnlineUsers(ctx context.Context) ([]string, error)
	IsUserOnline(ctx context.Context, userID string) (bool, error)
}

type UserHandler struct {
	online OnlineLister
	hub    *websocket.Hub
}

// NewUserHandler lists online users from Redis when online is set, otherwise from the local registry
func NewUserHandler(online OnlineLister, hub *websocket.Hub) *UserHandler {
	return &UserHandler{online: online, hub: hub}
}

// GetOnlineUsers godoc
// @Summary List online user IDs
// @Tags users
// @Security BearerAuth
// @Success 200 {object} map[string][]string
// @Router /users/online [get]
func (h *UserHandler) GetOnlineUsers(c *gin.Context) {
	if h.online != nil {
		users, err := h.online.GetOnlineUsers(c.Request.Context())
		if err == nil {
			sort.Strings(users)
			c.JSON(http.StatusOK, gin.H{"users": users})
			return
		}
		slog.Warn("Failed to read online users from Redis, using local registry", "error", err)
	}

	conns := h.hub.Registry().Snapshot()
	users := make([]string, 0, len(conns))
	for _, conn := range conns {
		users = append(users, conn.Identity().UserID)
	}
	sort.Strings(users)
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUserOnline godoc
// @Summary Check whether a user is connected
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Router /users/{id}/online [get]
func (h *UserHandler) GetUserOnline(c *gin.Context) {
	userID := c.Param("id")

	if h.online != nil {
		online, err := h.online.IsUserOnline(c.Request.Context(), userID)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"userId": userID, "online": online})
			return
		}
		slog.Warn("Failed to read user status from Redis, using local registry", "userID", userID, "error", err)
	}

	_, online := h.hub.Registry().Lookup(userID)
	c.JSON(http.StatusOK, gin.H{"userId": userID, "online": online})
}
