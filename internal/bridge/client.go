package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
)

// StreamHandler receives the results of a keep-alive call. Both functions
// run on the client's event loop, in arrival order. Done is called exactly
// once: with the final payload, with the rejection, with ErrReleased, or
// with ErrClosed when the connection goes away.
type StreamHandler struct {
	Event func(payload json.RawMessage)
	Done  func(payload json.RawMessage, err error)
}

// Client is the façade side of the bridge.
type Client struct {
	conn   Conn
	logger *slog.Logger
	loop   *eventLoop

	mu      sync.Mutex
	pending map[string]chan Frame
	streams map[string]StreamHandler
	closed  bool
	err     error

	done chan struct{}
}

// NewClient starts reading frames from conn.
func NewClient(conn Conn, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		conn:    conn,
		logger:  logger,
		loop:    newEventLoop(),
		pending: make(map[string]chan Frame),
		streams: make(map[string]StreamHandler),
		done:    make(chan struct{}),
	}
	go c.loop.run()
	go c.readLoop()
	return c
}

// Call sends a request and waits for its response, decoding the payload
// into resp when resp is non-nil. A rejection is returned as *RemoteError.
func (c *Client) Call(ctx context.Context, method string, req, resp any) error {
	payload, err := marshalPayload(req)
	if err != nil {
		return err
	}
	id := ulid.Make().String()
	ch := make(chan Frame, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.conn.WriteFrame(ctx, Frame{Type: FrameTypeRequest, ID: id, Method: method, Payload: payload}); err != nil {
		return fmt.Errorf("bridge: send %s: %w", method, err)
	}

	select {
	case f, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if f.Error != nil {
			return f.Error
		}
		if resp != nil && len(f.Payload) > 0 {
			if err := json.Unmarshal(f.Payload, resp); err != nil {
				return fmt.Errorf("bridge: decode %s response: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stream sends a keep-alive request and returns its callback ID without
// waiting for any result.
func (c *Client) Stream(ctx context.Context, method string, req any, h StreamHandler) (string, error) {
	payload, err := marshalPayload(req)
	if err != nil {
		return "", err
	}
	id := ulid.Make().String()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	c.streams[id] = h
	c.mu.Unlock()

	if err := c.conn.WriteFrame(ctx, Frame{Type: FrameTypeRequest, ID: id, Method: method, KeepAlive: true, Payload: payload}); err != nil {
		c.mu.Lock()
		delete(c.streams, id)
		c.mu.Unlock()
		return "", fmt.Errorf("bridge: send %s: %w", method, err)
	}
	return id, nil
}

// Post runs fn on the event loop after everything already queued.
func (c *Client) Post(fn func()) {
	c.loop.post(fn)
}

// Done is closed when the connection has gone away.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, or nil while it is up or after a
// clean Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close shuts the connection. Open streams end with ErrClosed.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) readLoop() {
	var readErr error
	for {
		f, err := c.conn.ReadFrame(context.Background())
		if err != nil {
			readErr = err
			break
		}
		c.route(f)
	}

	c.mu.Lock()
	c.closed = true
	if !errors.Is(readErr, ErrClosed) {
		c.err = readErr
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	streams := c.streams
	c.streams = make(map[string]StreamHandler)
	c.mu.Unlock()

	for _, h := range streams {
		h := h
		c.loop.post(func() { finishStream(h, nil, ErrClosed) })
	}
	c.loop.stopAfterDrain()
	c.conn.Close()
	close(c.done)
}

func (c *Client) route(f Frame) {
	switch f.Type {
	case FrameTypeResponse, FrameTypeEvent, FrameTypeRelease:
	default:
		c.logger.Debug("[BRIDGE] ignoring frame", "type", f.Type, "id", f.ID)
		return
	}

	c.mu.Lock()
	if ch, ok := c.pending[f.ID]; ok && f.Type == FrameTypeResponse {
		delete(c.pending, f.ID)
		c.mu.Unlock()
		ch <- f
		return
	}
	h, ok := c.streams[f.ID]
	if ok && f.Type != FrameTypeEvent {
		delete(c.streams, f.ID)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("[BRIDGE] frame for unknown call", "type", f.Type, "id", f.ID)
		return
	}

	switch f.Type {
	case FrameTypeEvent:
		c.loop.post(func() {
			if h.Event != nil {
				h.Event(f.Payload)
			}
		})
	case FrameTypeRelease:
		c.loop.post(func() { finishStream(h, nil, ErrReleased) })
	case FrameTypeResponse:
		var err error
		if f.Error != nil {
			err = f.Error
		}
		c.loop.post(func() { finishStream(h, f.Payload, err) })
	}
}

func finishStream(h StreamHandler, payload json.RawMessage, err error) {
	if h.Done != nil {
		h.Done(payload, err)
	}
}

// eventLoop runs posted functions one at a time in post order.
type eventLoop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped bool
}

func newEventLoop() *eventLoop {
	return &eventLoop{wake: make(chan struct{}, 1)}
}

func (l *eventLoop) post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *eventLoop) stopAfterDrain() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *eventLoop) run() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			stopped := l.stopped
			l.mu.Unlock()
			if stopped {
				return
			}
			<-l.wake
			continue
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()
		fn()
	}
}
