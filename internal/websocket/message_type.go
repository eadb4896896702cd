package websocket

import (
	"time"

	"spacehub/internal/models"
)

// MessageType is the literal "type" field every frame carries
type MessageType string

// Inbound events
const (
	MessageTypeJoinSpace       MessageType = "joinSpace"
	MessageTypeLeaveSpace      MessageType = "leaveSpace"
	MessageTypeUpdatePosition  MessageType = "updatePosition"
	MessageTypeSendChatMessage MessageType = "sendChatMessage"
	MessageTypeUpdateStatus    MessageType = "updateStatus"
)

// Outbound events
const (
	MessageTypeJoinSpaceConfirm    MessageType = "joinSpaceConfirm"
	MessageTypeLeaveSpaceConfirm   MessageType = "leaveSpaceConfirm"
	MessageTypeSpaceUsers          MessageType = "spaceUsers"
	MessageTypeUserPresenceUpdate  MessageType = "userPresenceUpdate"
	MessageTypeChatMessage         MessageType = "chatMessage"
	MessageTypeStatusUpdateConfirm MessageType = "statusUpdateConfirm"
	MessageTypeError               MessageType = "error"
)

// String returns the string representation of the MessageType
func (mt MessageType) String() string {
	return string(mt)
}

// PresenceAction says what happened in a userPresenceUpdate
type PresenceAction string

const (
	ActionJoin       PresenceAction = "join"
	ActionLeave      PresenceAction = "leave"
	ActionMove       PresenceAction = "move"
	ActionStatus     PresenceAction = "status"
	ActionDisconnect PresenceAction = "disconnect"
)

// Envelope is decoded first to route a frame by its type
type Envelope struct {
	Type MessageType `json:"type"`
}

/** --------------------INBOUND-------------------- */

type SpaceTarget struct {
	SpaceID    string `json:"spaceId"`
	InstanceID string `json:"instanceId,omitempty"`
}

type JoinSpacePayload struct {
	SpaceTarget
}

type LeaveSpacePayload struct {
	SpaceTarget
}

type UpdatePositionPayload struct {
	SpaceTarget
	models.Transform
}

type SendChatMessagePayload struct {
	Content     string `json:"content"`
	SpaceID     string `json:"spaceId,omitempty"`
	InstanceID  string `json:"instanceId,omitempty"`
	ChannelID   string `json:"channelId,omitempty"`
	RecipientID string `json:"recipientId,omitempty"`
}

type UpdateStatusPayload struct {
	Status models.PresenceStatus `json:"status"`
}

/** --------------------OUTBOUND-------------------- */

type JoinSpaceConfirm struct {
	Type       MessageType `json:"type"`
	SpaceID    string      `json:"spaceId"`
	InstanceID *string     `json:"instanceId,omitempty"`
}

type LeaveSpaceConfirm struct {
	Type       MessageType `json:"type"`
	SpaceID    string      `json:"spaceId"`
	InstanceID *string     `json:"instanceId,omitempty"`
}

// PresenceUpdateFrame announces a change of another user's presence.
// Transform and Status are only set for the actions that carry them.
type PresenceUpdateFrame struct {
	Type       MessageType    `json:"type"`
	Action     PresenceAction `json:"action"`
	UserID     string         `json:"userId"`
	Username   string         `json:"username"`
	SpaceID    string         `json:"spaceId,omitempty"`
	InstanceID string         `json:"instanceId,omitempty"`
	*models.Transform
	Status models.PresenceStatus `json:"status,omitempty"`
}

type SpaceUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	models.Transform
	Status models.PresenceStatus `json:"status"`
}

type SpaceUsersFrame struct {
	Type       MessageType `json:"type"`
	SpaceID    string      `json:"spaceId"`
	InstanceID *string     `json:"instanceId,omitempty"`
	Users      []SpaceUser `json:"users"`
}

type ChatSender struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
}

type ChatMessageFrame struct {
	Type        MessageType `json:"type"`
	ID          string      `json:"id"`
	Content     string      `json:"content"`
	CreatedAt   time.Time   `json:"createdAt"`
	Sender      ChatSender  `json:"sender"`
	SpaceID     *string     `json:"spaceId,omitempty"`
	InstanceID  *string     `json:"instanceId,omitempty"`
	ChannelID   *string     `json:"channelId,omitempty"`
	RecipientID *string     `json:"recipientId,omitempty"`
}

type StatusConfirm struct {
	Type   MessageType           `json:"type"`
	Status models.PresenceStatus `json:"status"`
}

type ErrorFrame struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

func NewErrorFrame(message string) ErrorFrame {
	return ErrorFrame{Type: MessageTypeError, Message: message}
}

// NewChatMessageFrame renders a stored message for delivery
func NewChatMessageFrame(msg *models.ChatMessage) ChatMessageFrame {
	return ChatMessageFrame{
		Type:      MessageTypeChatMessage,
		ID:        msg.ID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
		Sender: ChatSender{
			ID:          msg.SenderID,
			Username:    msg.Sender.Username,
			DisplayName: msg.Sender.DisplayName,
		},
		SpaceID:     msg.SpaceID,
		InstanceID:  msg.InstanceID,
		ChannelID:   msg.ChannelID,
		RecipientID: msg.RecipientID,
	}
}

func NewSpaceUser(p models.SpacePresence) SpaceUser {
	return SpaceUser{
		UserID:    p.UserID,
		Username:  p.User.Username,
		Transform: p.Transform(),
		Status:    p.Status,
	}
}
