package client

import (
	"math"
	"time"
)

// Event names emitted besides the server frame types
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
	EventError      = "error"
)

const (
	defaultBaseDelay    = time.Second
	defaultFactor       = 1.5
	defaultMaxAttempts  = 5
	defaultWriteTimeout = 10 * time.Second
)

// Config controls where the client connects and how it retries
type Config struct {
	// URL of the websocket endpoint, e.g. ws://localhost:3001/ws
	URL string

	BaseDelay    time.Duration
	Factor       float64
	MaxAttempts  int
	WriteTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.Factor < 1 {
		c.Factor = defaultFactor
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	return c
}

// Delay is the wait before reconnect attempt number attempt (zero based)
func (c Config) Delay(attempt int) time.Duration {
	c = c.withDefaults()
	return time.Duration(float64(c.BaseDelay) * math.Pow(c.Factor, float64(attempt)))
}

// Message is a decoded server frame; Message["type"] names it
type Message map[string]any

func (m Message) Type() string {
	t, _ := m["type"].(string)
	return t
}

// Transform is a position and rotation inside a space
type Transform struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	RotationX float64 `json:"rotationX"`
	RotationY float64 `json:"rotationY"`
	RotationZ float64 `json:"rotationZ"`
}

// ChatOptions selects where a chat message goes. Set SpaceID or RecipientID.
type ChatOptions struct {
	SpaceID     string `json:"spaceId,omitempty"`
	InstanceID  string `json:"instanceId,omitempty"`
	ChannelID   string `json:"channelId,omitempty"`
	RecipientID string `json:"recipientId,omitempty"`
}
