package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"spacehub/internal/models"
	"spacehub/internal/websocket"
	"spacehub/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type ChatHistory interface {
	ListBySpace(ctx context.Context, spaceID string, limit int) ([]models.ChatMessage, error)
}

type ChatHandler struct {
	spaces SpaceStore
	chats  ChatHistory
}

func NewChatHandler(spaces SpaceStore, chats ChatHistory) *ChatHandler {
	return &ChatHandler{spaces: spaces, chats: chats}
}

// GetSpaceMessages godoc
// @Summary Get recent chat messages of a space
// @Tags chats
// @Security BearerAuth
// @Param id path string true "Space ID"
// @Param limit query int false "Page size (default 50, max 200)"
// @Success 200 {array} websocket.ChatMessageFrame "Messages, oldest first"
// @Failure 404 {object} models.ErrorResponse "Space not found"
// @Router /spaces/{id}/messages [get]
func (h *ChatHandler) GetSpaceMessages(c *gin.Context) {
	spaceID := c.Param("id")
	if _, err := h.spaces.FindByID(c.Request.Context(), spaceID); err != nil {
		response.Error(c, http.StatusNotFound, "Space not found", "")
		return
	}

	limit := defaultHistoryLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = min(parsed, maxHistoryLimit)
		}
	}

	messages, err := h.chats.ListBySpace(c.Request.Context(), spaceID, limit)
	if err != nil {
		slog.Error("Failed to list chat messages", "spaceID", spaceID, "error", err)
		response.Error(c, http.StatusInternalServerError, "Failed to get messages", "")
		return
	}

	frames := make([]websocket.ChatMessageFrame, 0, len(messages))
	for i := range messages {
		frames = append(frames, websocket.NewChatMessageFrame(&messages[i]))
	}
	c.JSON(http.StatusOK, frames)
}
