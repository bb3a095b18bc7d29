// Package bridge is the transport between the client façade and the
// native plugin. Calls are RPC-style requests answered by one response;
// keep-alive calls additionally stream events until they are resolved,
// rejected or released. Frames travel over any Conn: an in-memory pipe
// or a websocket.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// FrameType identifies the kind of frame.
type FrameType string

const (
	FrameTypeRequest  FrameType = "request"
	FrameTypeResponse FrameType = "response" // final answer to a request
	FrameTypeEvent    FrameType = "event"    // intermediate result of a keep-alive call
	FrameTypeRelease  FrameType = "release"  // the native side retired a keep-alive call
)

// Frame is the envelope exchanged over a Conn.
type Frame struct {
	Type      FrameType       `json:"type"`
	ID        string          `json:"id"`
	Method    string          `json:"method,omitempty"`
	KeepAlive bool            `json:"keepAlive,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     *RemoteError    `json:"error,omitempty"`
}

// RemoteError is a rejection produced by the native side.
type RemoteError struct {
	Message string          `json:"message"`
	Code    int             `json:"code"`
	Domain  string          `json:"domain,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RemoteError) Error() string {
	if e.Domain != "" {
		return fmt.Sprintf("bridge: %s (%s %d)", e.Message, e.Domain, e.Code)
	}
	return "bridge: " + e.Message
}

// Is matches another *RemoteError with the same domain and code.
func (e *RemoteError) Is(target error) bool {
	t, ok := target.(*RemoteError)
	return ok && t.Domain == e.Domain && t.Code == e.Code
}

var (
	// ErrClosed is returned once the connection is gone.
	ErrClosed = errors.New("bridge: connection closed")
	// ErrCallDone is returned when answering a call that already finished.
	ErrCallDone = errors.New("bridge: call already finished")
	// ErrReleased ends a stream whose call the native side released.
	ErrReleased = errors.New("bridge: call released")
)

// Conn carries frames in both directions.
type Conn interface {
	ReadFrame(ctx context.Context) (Frame, error)
	WriteFrame(ctx context.Context, f Frame) error
	Close() error
}

func marshalPayload(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("bridge: marshal payload: %w", err)
	}
	return data, nil
}
