package websocket

import (
	"errors"
	"fmt"
)

// ProtocolError is a frame the router cannot decode or route
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return e.Message
}

// ValidationError is a request whose precondition does not hold
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DependencyError wraps a store failure. Message is what the client sees; Err is only logged.
type DependencyError struct {
	Message string
	Err     error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func protocolErrorf(format string, args ...any) error {
	return &ProtocolError{Message: fmt.Sprintf(format, args...)}
}

func validationError(message string) error {
	return &ValidationError{Message: message}
}

func dependencyError(message string, err error) error {
	return &DependencyError{Message: message, Err: err}
}

// clientMessage picks the text reported to the sender for err
func clientMessage(err error, fallback string) string {
	var protocolErr *ProtocolError
	var validationErr *ValidationError
	var dependencyErr *DependencyError

	switch {
	case errors.As(err, &protocolErr):
		return protocolErr.Message
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &dependencyErr):
		return dependencyErr.Message
	default:
		return fallback
	}
}
