package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"spacehub/internal/api/middleware"
	"spacehub/internal/models"
	"spacehub/internal/websocket"
	"spacehub/pkg/response"

	"github.com/gin-gonic/gin"
)

type SpaceStore interface {
	FindByID(ctx context.Context, id string) (*models.Space, error)
	Delete(ctx context.Context, id string) error
}

type PresenceFinder interface {
	FindMany(ctx context.Context, filter models.PresenceFilter) ([]models.SpacePresence, error)
}

type SpaceHandler struct {
	spaces    SpaceStore
	presences PresenceFinder
}

func NewSpaceHandler(spaces SpaceStore, presences PresenceFinder) *SpaceHandler {
	return &SpaceHandler{spaces: spaces, presences: presences}
}

// findSpace writes the error response itself and returns nil when the space cannot be loaded
func (h *SpaceHandler) findSpace(c *gin.Context) *models.Space {
	space, err := h.spaces.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "Space not found", "")
			return nil
		}
		slog.Error("Failed to load space", "spaceID", c.Param("id"), "error", err)
		response.Error(c, http.StatusInternalServerError, "", "")
		return nil
	}
	return space
}

// GetPresence godoc
// @Summary List users present in a space
// @Tags spaces
// @Security BearerAuth
// @Param id path string true "Space ID"
// @Param instanceId query string false "Instance ID, omitted for the shared room"
// @Success 200 {array} websocket.SpaceUser
// @Failure 404 {object} models.ErrorResponse "Space not found"
// @Router /spaces/{id}/presence [get]
func (h *SpaceHandler) GetPresence(c *gin.Context) {
	space := h.findSpace(c)
	if space == nil {
		return
	}

	rows, err := h.presences.FindMany(c.Request.Context(), models.PresenceFilter{
		SpaceID:    space.ID,
		InstanceID: c.Query("instanceId"),
		ActiveOnly: true,
	})
	if err != nil {
		slog.Error("Failed to list presence", "spaceID", space.ID, "error", err)
		response.Error(c, http.StatusInternalServerError, "Failed to list presence", "")
		return
	}

	users := make([]websocket.SpaceUser, 0, len(rows))
	for _, row := range rows {
		users = append(users, websocket.NewSpaceUser(row))
	}
	c.JSON(http.StatusOK, users)
}

// DeleteSpace godoc
// @Summary Delete a space
// @Description Deletes the space with its instances, presences and chat history (owner or admin only)
// @Tags spaces
// @Security BearerAuth
// @Param id path string true "Space ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse "Not the owner"
// @Failure 404 {object} models.ErrorResponse "Space not found"
// @Router /spaces/{id} [delete]
func (h *SpaceHandler) DeleteSpace(c *gin.Context) {
	space := h.findSpace(c)
	if space == nil {
		return
	}

	if space.OwnerID != c.GetString(middleware.ContextUserID) && c.GetString(middleware.ContextRole) != models.RoleAdmin {
		response.Error(c, http.StatusForbidden, "Only the owner can delete a space", "")
		return
	}

	if err := h.spaces.Delete(c.Request.Context(), space.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "Space not found", "")
			return
		}
		slog.Error("Failed to delete space", "spaceID", space.ID, "error", err)
		response.Error(c, http.StatusInternalServerError, "Failed to delete space", "")
		return
	}

	slog.Info("Space deleted", "spaceID", space.ID, "userID", c.GetString(middleware.ContextUserID))
	c.Status(http.StatusNoContent)
}
