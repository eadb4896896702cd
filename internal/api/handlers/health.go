package handlers

import (
	"net/http"

	"spacehub/internal/websocket"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	hub *websocket.Hub
}

func NewHealthHandler(hub *websocket.Hub) *HealthHandler {
	return &HealthHandler{hub: hub}
}

func (h *HealthHandler) Health(c *gin.Context) {
	rooms, clients := h.hub.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"rooms":   rooms,
		"clients": clients,
	})
}
