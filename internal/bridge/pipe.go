package bridge

import (
	"context"
	"sync"
)

type pipeShared struct {
	done chan struct{}
	once sync.Once
}

type pipeConn struct {
	in     <-chan Frame
	out    chan<- Frame
	shared *pipeShared
}

// Pipe returns two connected in-memory Conns. Closing either end closes
// both.
func Pipe() (Conn, Conn) {
	ab := make(chan Frame, 64)
	ba := make(chan Frame, 64)
	shared := &pipeShared{done: make(chan struct{})}
	return &pipeConn{in: ba, out: ab, shared: shared},
		&pipeConn{in: ab, out: ba, shared: shared}
}

func (p *pipeConn) ReadFrame(ctx context.Context) (Frame, error) {
	// Frames already queued are delivered before the close is observed.
	select {
	case f := <-p.in:
		return f, nil
	default:
	}
	select {
	case f := <-p.in:
		return f, nil
	case <-p.shared.done:
		return Frame{}, ErrClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (p *pipeConn) WriteFrame(ctx context.Context, f Frame) error {
	select {
	case <-p.shared.done:
		return ErrClosed
	default:
	}
	select {
	case p.out <- f:
		return nil
	case <-p.shared.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeConn) Close() error {
	p.shared.once.Do(func() { close(p.shared.done) })
	return nil
}
