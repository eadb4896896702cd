package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// ErrNoToken is returned by Connect when called without a credential
var ErrNoToken = errors.New("client: token is required")

type handlerEntry struct {
	id int
	fn func(Message)
}

// Client is a reconnecting presence client. Messages sent while disconnected
// are queued and flushed in order once a connection opens.
type Client struct {
	cfg Config

	mu         sync.Mutex
	conn       *websocket.Conn
	cancel     context.CancelFunc
	token      string
	connecting bool
	attempts   int
	queue      [][]byte
	timer      *time.Timer

	handlersMu sync.RWMutex
	handlers   map[string][]handlerEntry
	nextID     int
}

func New(cfg Config) *Client {
	return &Client{
		cfg:      cfg.withDefaults(),
		handlers: make(map[string][]handlerEntry),
	}
}

// IsConnected returns whether a connection is currently open
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect dials the server with token. It returns nil without dialing when a
// connection is already open or being opened. A failed dial schedules a retry.
func (c *Client) Connect(ctx context.Context, token string) error {
	if token == "" {
		return ErrNoToken
	}

	c.mu.Lock()
	if c.conn != nil || c.connecting {
		c.mu.Unlock()
		return nil
	}
	c.token = token
	c.connecting = true
	c.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, c.dialURL(token), nil)
	if err != nil {
		c.mu.Lock()
		c.connecting = false
		c.scheduleReconnectLocked()
		c.mu.Unlock()

		c.emit(EventError, Message{"error": err.Error()})
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	c.mu.Lock()
	// Disconnect was called while dialing
	if c.token != token {
		c.connecting = false
		c.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "Client disconnected")
		return nil
	}

	connCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.cancel = cancel
	c.connecting = false
	c.attempts = 0

	queued := c.queue
	c.queue = nil
	for i, data := range queued {
		if err := c.writeLocked(context.Background(), conn, data); err != nil {
			// keep what was not sent for the next connection
			c.queue = append(queued[i:], c.queue...)
			slog.Warn("Failed to flush queued message", "error", err)
			break
		}
	}
	c.mu.Unlock()

	go c.readLoop(connCtx, conn)
	c.emit(EventConnect, Message{})
	return nil
}

// Disconnect closes the connection with a normal closure. It clears the token
// and the queue, so nothing reconnects afterwards.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn, cancel := c.conn, c.cancel
	c.conn = nil
	c.cancel = nil
	c.token = ""
	c.connecting = false
	c.queue = nil
	c.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close(websocket.StatusNormalClosure, "Client disconnected")
		cancel()
	}
	c.emit(EventDisconnect, Message{})
	return err
}

// Send writes a frame of the given type. payload fields are merged into the
// frame next to "type". While disconnected the frame is queued and, when a
// token is held, a reconnect is started.
func (c *Client) Send(ctx context.Context, msgType string, payload any) error {
	data, err := encodeFrame(msgType, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.conn != nil {
		err := c.writeLocked(ctx, c.conn, data)
		c.mu.Unlock()
		return err
	}

	c.queue = append(c.queue, data)
	token := c.token
	reconnect := !c.connecting && token != "" && c.timer == nil
	c.mu.Unlock()

	if reconnect {
		go func() {
			if err := c.Connect(context.Background(), token); err != nil {
				slog.Debug("Reconnect on send failed", "error", err)
			}
		}()
	}
	return nil
}

// On registers fn for frames of msgType (or one of the Event names) and
// returns a function that removes it.
func (c *Client) On(msgType string, fn func(Message)) func() {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	c.nextID++
	id := c.nextID
	c.handlers[msgType] = append(c.handlers[msgType], handlerEntry{id: id, fn: fn})

	return func() { c.off(msgType, id) }
}

func (c *Client) off(msgType string, id int) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	entries := c.handlers[msgType]
	for i, e := range entries {
		if e.id == id {
			c.handlers[msgType] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

func (c *Client) emit(msgType string, msg Message) {
	c.handlersMu.RLock()
	entries := append([]handlerEntry(nil), c.handlers[msgType]...)
	c.handlersMu.RUnlock()

	for _, e := range entries {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("Panic in client handler", "type", msgType, "panic", rec)
				}
			}()
			e.fn(msg)
		}()
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.handleClose(conn, err)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Failed to parse server message", "error", err)
			continue
		}
		c.emit(msg.Type(), msg)
	}
}

func (c *Client) handleClose(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		// closed by Disconnect
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.connecting = false

	code := websocket.CloseStatus(err)
	if code != websocket.StatusNormalClosure && code != websocket.StatusGoingAway {
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()

	reason := ""
	var closeErr websocket.CloseError
	if errors.As(err, &closeErr) {
		reason = closeErr.Reason
	}
	slog.Info("Connection closed", "code", int(code), "reason", reason)
	c.emit(EventDisconnect, Message{"code": int(code), "reason": reason})
}

// scheduleReconnectLocked arms the backoff timer. c.mu must be held.
func (c *Client) scheduleReconnectLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.attempts >= c.cfg.MaxAttempts || c.token == "" {
		return
	}

	delay := c.cfg.Delay(c.attempts)
	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.timer = nil
		token := c.token
		if token == "" {
			c.mu.Unlock()
			return
		}
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()

		slog.Info("Reconnecting", "attempt", attempt, "maxAttempts", c.cfg.MaxAttempts)
		if err := c.Connect(context.Background(), token); err != nil {
			slog.Debug("Reconnect attempt failed", "attempt", attempt, "error", err)
		}
	})
}

func (c *Client) writeLocked(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

func (c *Client) dialURL(token string) string {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return c.cfg.URL
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func encodeFrame(msgType string, payload any) ([]byte, error) {
	frame := map[string]any{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		if err := json.Unmarshal(raw, &frame); err != nil {
			return nil, fmt.Errorf("payload must encode to a JSON object: %w", err)
		}
	}
	frame["type"] = msgType
	return json.Marshal(frame)
}

/** --------------------SPACE HELPERS-------------------- */

func (c *Client) JoinSpace(ctx context.Context, spaceID, instanceID string) error {
	return c.Send(ctx, "joinSpace", spaceTarget(spaceID, instanceID))
}

func (c *Client) LeaveSpace(ctx context.Context, spaceID, instanceID string) error {
	return c.Send(ctx, "leaveSpace", spaceTarget(spaceID, instanceID))
}

// UpdatePosition is not acknowledged by the server
func (c *Client) UpdatePosition(ctx context.Context, spaceID, instanceID string, t Transform) error {
	return c.Send(ctx, "updatePosition", struct {
		SpaceID    string `json:"spaceId"`
		InstanceID string `json:"instanceId,omitempty"`
		Transform
	}{spaceID, instanceID, t})
}

func (c *Client) SendChatMessage(ctx context.Context, content string, opts ChatOptions) error {
	return c.Send(ctx, "sendChatMessage", struct {
		Content string `json:"content"`
		ChatOptions
	}{content, opts})
}

// UpdateStatus accepts Online, Away, Busy or Invisible
func (c *Client) UpdateStatus(ctx context.Context, status string) error {
	return c.Send(ctx, "updateStatus", map[string]string{"status": status})
}

func spaceTarget(spaceID, instanceID string) map[string]string {
	target := map[string]string{"spaceId": spaceID}
	if instanceID != "" {
		target["instanceId"] = instanceID
	}
	return target
}
