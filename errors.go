package runware

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrNotConnected        = errors.New("runware: websocket is not connected")
	ErrAlreadyInitialized  = errors.New("runware: websocket is already initialized")
	ErrDuplicateIdentifier = errors.New("runware: duplicate task identifier")
	ErrConnectionLost      = errors.New("runware: connection lost")
	ErrNotFound            = errors.New("runware: task not found")
	ErrClosed              = errors.New("runware: connection closed")
)

// ConnectionError represents a connection-level error.
type ConnectionError struct {
	Op  string
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("runware: %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("runware: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SendError represents an error during request sending.
type SendError struct {
	Op  string
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("runware: send %s: %v", e.Op, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// RemoteError is an error reported by the server for a specific task.
type RemoteError struct {
	Code      string
	Message   string
	Parameter string
	Type      string
	TaskUUID  string
	TaskType  string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("runware: remote error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("runware: remote error: %s", e.Message)
}

// ValidationError reports a request field rejected before anything is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("runware: invalid %s: %s", e.Field, e.Message)
}

// DecodeError represents a result that could not be turned into a typed response.
type DecodeError struct {
	TaskType string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("runware: decode %s result: %v", e.TaskType, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FrameError reports an inbound message that could not be decoded. It is not
// fatal to the connection.
type FrameError struct {
	Err error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("runware: malformed frame: %v", e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
