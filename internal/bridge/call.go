package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const writeTimeout = 5 * time.Second

// Handler serves requests on the native side. Handle runs on the serving
// goroutine, one request at a time, and must not block: long-running work
// answers the call later through Send/Resolve/Reject.
type Handler interface {
	Handle(ctx context.Context, call *Call)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, call *Call)

func (f HandlerFunc) Handle(ctx context.Context, call *Call) { f(ctx, call) }

// session serializes writes to one Conn.
type session struct {
	conn   Conn
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

func (s *session) write(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return s.conn.WriteFrame(ctx, f)
}

func (s *session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Call is the native-side view of one request.
type Call struct {
	ID        string
	Method    string
	KeepAlive bool

	payload json.RawMessage
	s       *session

	mu   sync.Mutex
	done bool
}

// Decode unmarshals the request options into v. An empty request leaves v
// untouched.
func (c *Call) Decode(v any) error {
	if len(c.payload) == 0 || string(c.payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(c.payload, v); err != nil {
		return fmt.Errorf("bridge: decode %s options: %w", c.Method, err)
	}
	return nil
}

// Send delivers an intermediate result of a keep-alive call.
func (c *Call) Send(v any) error {
	payload, err := marshalPayload(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return ErrCallDone
	}
	return c.s.write(Frame{Type: FrameTypeEvent, ID: c.ID, Payload: payload})
}

// Resolve answers the call successfully and finishes it. v may be nil.
func (c *Call) Resolve(v any) error {
	payload, err := marshalPayload(v)
	if err != nil {
		return err
	}
	return c.finish(Frame{Type: FrameTypeResponse, ID: c.ID, Payload: payload})
}

// Reject answers the call with an error and finishes it. A *RemoteError
// anywhere in err's chain is sent as is.
func (c *Call) Reject(err error) error {
	var re *RemoteError
	if !errors.As(err, &re) {
		re = &RemoteError{Message: err.Error()}
	}
	return c.finish(Frame{Type: FrameTypeResponse, ID: c.ID, Error: re})
}

// Release finishes a keep-alive call without an answer. The client ends
// the stream with ErrReleased.
func (c *Call) Release() error {
	return c.finish(Frame{Type: FrameTypeRelease, ID: c.ID})
}

// Done reports whether the call has finished.
func (c *Call) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Call) finish(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return ErrCallDone
	}
	c.done = true
	return c.s.write(f)
}

// Serve reads requests from conn and hands them to h until ctx is
// cancelled or the connection fails. It closes conn on return.
func Serve(ctx context.Context, conn Conn, h Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	s := &session{conn: conn, logger: logger}
	defer func() {
		s.close()
		conn.Close()
	}()

	for {
		f, err := conn.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("bridge: read frame: %w", err)
		}
		if f.Type != FrameTypeRequest {
			logger.Debug("[BRIDGE] ignoring frame", "type", f.Type, "id", f.ID)
			continue
		}
		call := &Call{
			ID:        f.ID,
			Method:    f.Method,
			KeepAlive: f.KeepAlive,
			payload:   f.Payload,
			s:         s,
		}
		logger.Debug("[BRIDGE] request", "method", f.Method, "id", f.ID, "keep_alive", f.KeepAlive)
		h.Handle(ctx, call)
	}
}
