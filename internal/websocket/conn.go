package websocket

import (
	"errors"

	"spacehub/internal/models"
)

var (
	ErrClientDisconnected = errors.New("client disconnected")
	ErrSlowConsumer       = errors.New("send buffer full")
)

// ConnState is the lifecycle of a connection
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is a live connection as seen by the hub and the router
type Conn interface {
	ID() string
	Identity() models.Identity
	Send(data []byte) error
	IsOpen() bool
	Close() error
}
