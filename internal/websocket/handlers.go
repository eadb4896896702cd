package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"spacehub/internal/models"
)

func (r *Router) handleJoinSpace(ctx context.Context, c Conn, data []byte) error {
	var p JoinSpacePayload
	if err := decodePayload(data, &p); err != nil {
		return err
	}
	if p.SpaceID == "" {
		return validationError("spaceId is required")
	}

	if _, err := r.deps.Spaces.FindByID(ctx, p.SpaceID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return validationError("Space not found")
		}
		return dependencyError("Failed to join space", err)
	}

	if p.InstanceID != "" {
		instance, err := r.deps.Spaces.FindInstance(ctx, p.InstanceID, p.SpaceID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return dependencyError("Failed to join space", err)
		}
		if instance == nil || !instance.IsActive {
			return validationError("Space instance not found or inactive")
		}
	}

	identity := c.Identity()
	room := SpaceRoom(p.SpaceID, p.InstanceID)
	joined := r.hub.rooms.Join(room, c)

	presence, err := r.deps.Presences.Upsert(ctx, models.PresenceKey{
		UserID:     identity.UserID,
		SpaceID:    p.SpaceID,
		InstanceID: p.InstanceID,
	})
	if err != nil {
		if joined {
			r.hub.rooms.Leave(room, c)
		}
		return dependencyError("Failed to join space", err)
	}

	if joined {
		transform := presence.Transform()
		r.hub.ToRoom(room, PresenceUpdateFrame{
			Type:       MessageTypeUserPresenceUpdate,
			Action:     ActionJoin,
			UserID:     identity.UserID,
			Username:   identity.Username,
			SpaceID:    p.SpaceID,
			InstanceID: p.InstanceID,
			Transform:  &transform,
			Status:     presence.Status,
		}, c)
	}

	r.reply(c, JoinSpaceConfirm{
		Type:       MessageTypeJoinSpaceConfirm,
		SpaceID:    p.SpaceID,
		InstanceID: models.Optional(p.InstanceID),
	})

	others, err := r.deps.Presences.FindMany(ctx, models.PresenceFilter{
		SpaceID:       p.SpaceID,
		InstanceID:    p.InstanceID,
		ExcludeUserID: identity.UserID,
		ActiveOnly:    true,
	})
	if err != nil {
		return dependencyError("Failed to load space users", err)
	}

	users := make([]SpaceUser, 0, len(others))
	for _, other := range others {
		users = append(users, NewSpaceUser(other))
	}
	r.reply(c, SpaceUsersFrame{
		Type:       MessageTypeSpaceUsers,
		SpaceID:    p.SpaceID,
		InstanceID: models.Optional(p.InstanceID),
		Users:      users,
	})

	slog.Debug("Joined space", "clientID", c.ID(), "userID", identity.UserID, "room", room, "newMember", joined)
	return nil
}

func (r *Router) handleLeaveSpace(ctx context.Context, c Conn, data []byte) error {
	var p LeaveSpacePayload
	if err := decodePayload(data, &p); err != nil {
		return err
	}
	if p.SpaceID == "" {
		return validationError("spaceId is required")
	}

	identity := c.Identity()
	room := SpaceRoom(p.SpaceID, p.InstanceID)
	confirm := LeaveSpaceConfirm{
		Type:       MessageTypeLeaveSpaceConfirm,
		SpaceID:    p.SpaceID,
		InstanceID: models.Optional(p.InstanceID),
	}

	if !r.hub.rooms.Leave(room, c) {
		r.reply(c, confirm)
		return nil
	}

	inactive := false
	_, err := r.deps.Presences.UpdateMany(ctx, models.PresenceFilter{
		UserID:     identity.UserID,
		SpaceID:    p.SpaceID,
		InstanceID: p.InstanceID,
	}, models.PresenceUpdate{IsActive: &inactive})

	// the room was left either way, so members hear about it even if the store failed
	r.hub.ToRoom(room, PresenceUpdateFrame{
		Type:       MessageTypeUserPresenceUpdate,
		Action:     ActionLeave,
		UserID:     identity.UserID,
		Username:   identity.Username,
		SpaceID:    p.SpaceID,
		InstanceID: p.InstanceID,
	}, c)

	if err != nil {
		return dependencyError("Failed to leave space", err)
	}

	r.reply(c, confirm)
	return nil
}

func (r *Router) handleUpdatePosition(ctx context.Context, c Conn, data []byte) error {
	var p UpdatePositionPayload
	if err := decodePayload(data, &p); err != nil {
		return err
	}
	if p.SpaceID == "" {
		return validationError("spaceId is required")
	}

	identity := c.Identity()
	transform := p.Transform

	updated, err := r.deps.Presences.UpdateMany(ctx, models.PresenceFilter{
		UserID:     identity.UserID,
		SpaceID:    p.SpaceID,
		InstanceID: p.InstanceID,
		ActiveOnly: true,
	}, models.PresenceUpdate{Transform: &transform})
	if err != nil {
		return dependencyError("Failed to update position", err)
	}
	if updated == 0 {
		return validationError("No active presence in space")
	}

	r.hub.ToRoom(SpaceRoom(p.SpaceID, p.InstanceID), PresenceUpdateFrame{
		Type:       MessageTypeUserPresenceUpdate,
		Action:     ActionMove,
		UserID:     identity.UserID,
		Username:   identity.Username,
		SpaceID:    p.SpaceID,
		InstanceID: p.InstanceID,
		Transform:  &transform,
	}, c)
	return nil
}

func (r *Router) handleSendChatMessage(ctx context.Context, c Conn, data []byte) error {
	var p SendChatMessagePayload
	if err := decodePayload(data, &p); err != nil {
		return err
	}
	if strings.TrimSpace(p.Content) == "" {
		return validationError("Message content cannot be empty")
	}

	toSpace, toUser := p.SpaceID != "", p.RecipientID != ""
	if toSpace == toUser {
		return validationError("Exactly one of spaceId or recipientId is required")
	}

	identity := c.Identity()
	if err := r.checkChatRate(ctx, identity.UserID); err != nil {
		return err
	}
	if err := r.checkChatTarget(ctx, p); err != nil {
		return err
	}

	msg := &models.ChatMessage{
		Content:     p.Content,
		SenderID:    identity.UserID,
		ChannelID:   models.Optional(p.ChannelID),
		RecipientID: models.Optional(p.RecipientID),
	}
	if toSpace {
		msg.SpaceID = models.Optional(p.SpaceID)
		msg.InstanceID = models.Optional(p.InstanceID)
	}

	stored, err := r.deps.Chats.Create(ctx, msg)
	if err != nil {
		return dependencyError("Failed to send message", err)
	}

	if r.deps.Publisher != nil {
		if err := r.deps.Publisher.PublishChat(ctx, stored); err != nil {
			slog.Error("Failed to publish chat message", "messageID", stored.ID, "error", err)
		}
	}

	frame := NewChatMessageFrame(stored)
	if toSpace {
		room := SpaceRoom(p.SpaceID, p.InstanceID)
		r.hub.ToRoom(room, frame, nil)
		if !r.hub.rooms.IsMember(room, c) {
			r.reply(c, frame)
		}
		return nil
	}

	r.hub.ToRoom(UserRoom(p.RecipientID), frame, nil)
	if p.RecipientID != identity.UserID {
		r.reply(c, frame)
	}
	return nil
}

// checkChatTarget rejects chats to a space, instance or recipient that does not exist
func (r *Router) checkChatTarget(ctx context.Context, p SendChatMessagePayload) error {
	if p.RecipientID != "" {
		if _, err := r.deps.Users.FindByID(ctx, p.RecipientID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return validationError("Recipient not found")
			}
			return dependencyError("Failed to send message", err)
		}
		return nil
	}

	if _, err := r.deps.Spaces.FindByID(ctx, p.SpaceID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return validationError("Space not found")
		}
		return dependencyError("Failed to send message", err)
	}
	if p.InstanceID != "" {
		instance, err := r.deps.Spaces.FindInstance(ctx, p.InstanceID, p.SpaceID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return dependencyError("Failed to send message", err)
		}
		if instance == nil || !instance.IsActive {
			return validationError("Space instance not found or inactive")
		}
	}
	return nil
}

// checkChatRate fails open when the limiter itself is unavailable
func (r *Router) checkChatRate(ctx context.Context, userID string) error {
	if r.deps.Limiter == nil || r.cfg.ChatRateLimit <= 0 {
		return nil
	}

	allowed, err := r.deps.Limiter.CheckRateLimit(ctx, fmt.Sprintf("rate_limit:chat:%s", userID), r.cfg.ChatRateLimit, r.cfg.ChatRateWindow)
	if err != nil {
		slog.Warn("Chat rate limit check failed", "userID", userID, "error", err)
		return nil
	}
	if !allowed {
		return validationError("Rate limit exceeded")
	}
	return nil
}

func (r *Router) handleUpdateStatus(ctx context.Context, c Conn, data []byte) error {
	var p UpdateStatusPayload
	if err := decodePayload(data, &p); err != nil {
		return err
	}
	if !p.Status.IsValid() {
		return validationError("Invalid status")
	}

	identity := c.Identity()
	status := p.Status
	_, err := r.deps.Presences.UpdateMany(ctx, models.PresenceFilter{
		UserID:     identity.UserID,
		ActiveOnly: true,
	}, models.PresenceUpdate{Status: &status})
	if err != nil {
		return dependencyError("Failed to update status", err)
	}

	for _, room := range r.hub.rooms.RoomsOf(c) {
		spaceID, instanceID, ok := ParseSpaceRoom(room)
		if !ok {
			continue
		}
		r.hub.ToRoom(room, PresenceUpdateFrame{
			Type:       MessageTypeUserPresenceUpdate,
			Action:     ActionStatus,
			UserID:     identity.UserID,
			Username:   identity.Username,
			SpaceID:    spaceID,
			InstanceID: instanceID,
			Status:     status,
		}, c)
	}

	r.reply(c, StatusConfirm{
		Type:   MessageTypeStatusUpdateConfirm,
		Status: status,
	})
	return nil
}

// HandleDisconnect tears a connection down. Each step runs even when an
// earlier one fails.
func (r *Router) HandleDisconnect(c Conn) {
	identity := c.Identity()
	spaceRooms := make([]string, 0)
	for _, room := range r.hub.rooms.RoomsOf(c) {
		if IsSpaceRoom(room) {
			spaceRooms = append(spaceRooms, room)
		}
	}

	r.runStep(c, "deactivate presences", func(ctx context.Context) error {
		inactive := false
		update := models.PresenceUpdate{IsActive: &inactive}

		// a replaced connection only gives up the rooms it joined itself
		if r.hub.registry.IsCurrent(c) {
			_, err := r.deps.Presences.UpdateMany(ctx, models.PresenceFilter{
				UserID:     identity.UserID,
				ActiveOnly: true,
			}, update)
			return err
		}

		var errs []error
		for _, room := range spaceRooms {
			spaceID, instanceID, _ := ParseSpaceRoom(room)
			_, err := r.deps.Presences.UpdateMany(ctx, models.PresenceFilter{
				UserID:     identity.UserID,
				SpaceID:    spaceID,
				InstanceID: instanceID,
				ActiveOnly: true,
			}, update)
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	r.runStep(c, "broadcast disconnect", func(ctx context.Context) error {
		for _, room := range spaceRooms {
			spaceID, instanceID, _ := ParseSpaceRoom(room)
			r.hub.ToRoom(room, PresenceUpdateFrame{
				Type:       MessageTypeUserPresenceUpdate,
				Action:     ActionDisconnect,
				UserID:     identity.UserID,
				Username:   identity.Username,
				SpaceID:    spaceID,
				InstanceID: instanceID,
			}, c)
		}
		return nil
	})

	r.runStep(c, "touch last online", func(ctx context.Context) error {
		return r.deps.Users.TouchLastOnline(ctx, identity.UserID)
	})

	r.runStep(c, "detach", func(ctx context.Context) error {
		r.hub.Detach(ctx, c)
		return nil
	})
}

// reply writes a frame back to the sender; a closed sender is only logged
func (r *Router) reply(c Conn, msg any) {
	if err := r.hub.Send(c, msg); err != nil {
		slog.Debug("Failed to reply", "clientID", c.ID(), "userID", c.Identity().UserID, "error", err)
	}
}

func (r *Router) runStep(c Conn, step string, fn func(ctx context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Panic during disconnect", "clientID", c.ID(), "userID", c.Identity().UserID, "step", step, "panic", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.StoreTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		slog.Error("Disconnect step failed", "clientID", c.ID(), "userID", c.Identity().UserID, "step", step, "error", err)
	}
}
