package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"spacehub/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Time allowed to get the close frame out before the socket is dropped
	closeGracePeriod = time.Second

	defaultMaxMessageSize = 4096
	defaultSendBuffer     = 256
)

// ClientOptions tunes per-connection buffers
type ClientOptions struct {
	SendBuffer     int
	MaxMessageSize int64
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}
	return o
}

// Client is a gorilla websocket connection with its read and write pumps
type Client struct {
	id       string
	identity models.Identity
	conn     *websocket.Conn
	send     chan []byte
	opts     ClientOptions

	state     atomic.Int32
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, identity models.Identity, opts ClientOptions) *Client {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		id:       uuid.NewString(),
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, opts.SendBuffer),
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Identity() models.Identity {
	return c.identity
}

func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Client) setState(s ConnState) {
	c.state.Store(int32(s))
}

// open moves a connecting client to Open; a client closed meanwhile stays closed
func (c *Client) open() bool {
	return c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

func (c *Client) IsOpen() bool {
	return c.State() == StateOpen
}

// Send queues data for the write pump. A client whose buffer is full is closed.
func (c *Client) Send(data []byte) error {
	if !c.IsOpen() {
		return ErrClientDisconnected
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrClientDisconnected
	default:
		slog.Warn("Send buffer full, closing client", "clientID", c.id, "userID", c.identity.UserID)
		c.closeWith(websocket.CloseTryAgainLater, "Send buffer full")
		return fmt.Errorf("%w: %w", ErrClientDisconnected, ErrSlowConsumer)
	}
}

// Close is used when the server stops. The service restart code tells the
// peer to reconnect.
func (c *Client) Close() error {
	c.closeWith(websocket.CloseServiceRestart, "Server restarting")
	return nil
}

func (c *Client) shutdown() {
	c.closeWith(websocket.CloseNormalClosure, "")
}

// closeWith moves the client to Closing and stops the write pump. It does not
// block: the close frame and the socket close run on their own goroutine.
func (c *Client) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		c.setState(StateClosing)
		c.cancel()

		go func() {
			msg := websocket.FormatCloseMessage(code, reason)
			if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod)); err != nil {
				slog.Debug("Error sending close frame", "clientID", c.id, "code", code, "error", err)
			}
			if err := c.conn.Close(); err != nil {
				slog.Debug("Error closing connection", "clientID", c.id, "error", err)
			}
		}()
	})
}

// readPump feeds frames to handle in arrival order until the socket fails
func (c *Client) readPump(handle func(Conn, []byte)) {
	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	slog.Debug("ReadPump started", "clientID", c.id, "userID", c.identity.UserID)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "clientID", c.id, "userID", c.identity.UserID, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.identity.UserID, "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		handle(c, data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		slog.Debug("WritePump finished", "clientID", c.id, "userID", c.identity.UserID)
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("Error writing message", "clientID", c.id, "userID", c.identity.UserID, "error", err)
				c.shutdown()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "clientID", c.id, "userID", c.identity.UserID, "error", err)
				c.shutdown()
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// NewUpgrader accepts requests without an Origin header, from a listed origin,
// or from localhost. "*" in allowedOrigins accepts everything.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			host := u.Hostname()
			return host == "localhost" || host == "127.0.0.1" || strings.HasSuffix(host, ".localhost")
		},
	}
}

// Acceptor upgrades admitted requests and hands the connection to the router
type Acceptor struct {
	router   *Router
	upgrader *websocket.Upgrader
	opts     ClientOptions
}

func NewAcceptor(router *Router, allowedOrigins []string, opts ClientOptions) *Acceptor {
	return &Acceptor{
		router:   router,
		upgrader: NewUpgrader(allowedOrigins),
		opts:     opts,
	}
}

// Accept upgrades the request for an already authenticated identity
func (a *Acceptor) Accept(w http.ResponseWriter, r *http.Request, identity models.Identity) error {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade websocket connection: %w", err)
	}

	release, ok := a.router.hub.track()
	if !ok {
		msg := websocket.FormatCloseMessage(websocket.CloseServiceRestart, "Server restarting")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		conn.Close()
		return ErrHubClosed
	}

	client := NewClient(conn, identity, a.opts)
	slog.Info("New WebSocket connection established", "clientID", client.id, "userID", identity.UserID)

	go func() {
		defer release()
		a.router.Serve(client)
	}()
	return nil
}
