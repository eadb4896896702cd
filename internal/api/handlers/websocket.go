package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"spacehub/internal/auth"
	"spacehub/internal/models"
	"spacehub/pkg/response"

	"github.com/gin-gonic/gin"
)

type Admitter interface {
	Admit(ctx context.Context, r *http.Request) (models.Identity, error)
}

type Acceptor interface {
	Accept(w http.ResponseWriter, r *http.Request, identity models.Identity) error
}

type WSHandler struct {
	gate     Admitter
	acceptor Acceptor
}

func NewWSHandler(gate Admitter, acceptor Acceptor) *WSHandler {
	return &WSHandler{gate: gate, acceptor: acceptor}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Establish a WebSocket connection for presence and chat
// @Tags websocket
// @Param token query string true "Access token"
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Failure 401 {object} models.ErrorResponse "Missing, invalid or expired token"
// @Failure 503 {object} models.ErrorResponse "Identity store unavailable"
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	identity, err := h.gate.Admit(c.Request.Context(), c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			response.Error(c, http.StatusUnauthorized, "", "")
			return
		}
		slog.Error("WebSocket admission failed", "remoteAddr", c.ClientIP(), "error", err)
		response.Error(c, http.StatusServiceUnavailable, "", "")
		return
	}

	// the upgrader has already written the HTTP error on failure
	if err := h.acceptor.Accept(c.Writer, c.Request, identity); err != nil {
		slog.Warn("WebSocket upgrade failed", "userID", identity.UserID, "error", err)
	}
}
