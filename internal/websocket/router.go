package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

const defaultStoreTimeout = 5 * time.Second

type RouterConfig struct {
	// StoreTimeout bounds every store call made while handling one frame
	StoreTimeout time.Duration

	// ChatRateLimit messages per ChatRateWindow per user; 0 disables the limit
	ChatRateLimit  int
	ChatRateWindow time.Duration
}

type handlerFunc func(ctx context.Context, c Conn, data []byte) error

// Router dispatches inbound frames to the per-type handlers
type Router struct {
	hub      *Hub
	deps     Dependencies
	cfg      RouterConfig
	handlers map[MessageType]handlerFunc
}

func NewRouter(hub *Hub, deps Dependencies, cfg RouterConfig) *Router {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if cfg.ChatRateWindow <= 0 {
		cfg.ChatRateWindow = 10 * time.Second
	}

	r := &Router{
		hub:  hub,
		deps: deps,
		cfg:  cfg,
	}
	r.handlers = map[MessageType]handlerFunc{
		MessageTypeJoinSpace:       r.handleJoinSpace,
		MessageTypeLeaveSpace:      r.handleLeaveSpace,
		MessageTypeUpdatePosition:  r.handleUpdatePosition,
		MessageTypeSendChatMessage: r.handleSendChatMessage,
		MessageTypeUpdateStatus:    r.handleUpdateStatus,
	}
	return r
}

func (r *Router) Hub() *Hub {
	return r.hub
}

var failureMessages = map[MessageType]string{
	MessageTypeJoinSpace:       "Failed to join space",
	MessageTypeLeaveSpace:      "Failed to leave space",
	MessageTypeUpdatePosition:  "Failed to update position",
	MessageTypeSendChatMessage: "Failed to send message",
	MessageTypeUpdateStatus:    "Failed to update status",
}

const genericFailure = "Failed to process message"

// Serve runs a client from registration until its socket closes
func (r *Router) Serve(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.StoreTimeout)
	r.hub.Attach(ctx, c)
	cancel()

	c.open()
	go c.writePump()
	c.readPump(r.Dispatch)

	c.shutdown()
	r.HandleDisconnect(c)
	c.setState(StateClosed)
}

// Dispatch handles one inbound frame. Every failure is reported to the sender
// as an error frame; the connection stays open.
func (r *Router) Dispatch(c Conn, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Panic while handling message", "clientID", c.ID(), "userID", c.Identity().UserID, "panic", rec)
			r.sendError(c, genericFailure)
		}
	}()

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		r.reject(c, "", protocolErrorf("Invalid message format"))
		return
	}

	handler, ok := r.handlers[env.Type]
	if !ok {
		r.reject(c, env.Type, protocolErrorf("Unknown message type: %s", env.Type))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.StoreTimeout)
	defer cancel()

	if err := handler(ctx, c, data); err != nil {
		r.reject(c, env.Type, err)
	}
}

func (r *Router) reject(c Conn, msgType MessageType, err error) {
	var dependencyErr *DependencyError
	if errors.As(err, &dependencyErr) {
		slog.Error("Failed to handle message", "clientID", c.ID(), "userID", c.Identity().UserID, "type", msgType, "error", err)
	} else {
		slog.Warn("Rejected message", "clientID", c.ID(), "userID", c.Identity().UserID, "type", msgType, "reason", err)
	}

	fallback, ok := failureMessages[msgType]
	if !ok {
		fallback = genericFailure
	}
	r.sendError(c, clientMessage(err, fallback))
}

func (r *Router) sendError(c Conn, message string) {
	r.reply(c, NewErrorFrame(message))
}

func decodePayload(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return protocolErrorf("Invalid message payload")
	}
	return nil
}
