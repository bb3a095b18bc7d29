// Package broadcast implements multicast channels: every published value
// reaches every live subscriber once, in publish order. A replay channel
// additionally hands the most recent value to each new subscriber.
package broadcast

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Handler consumes one value. Returning an error (or panicking) ends the
// subscription; other subscribers are unaffected.
type Handler[T any] func(T) error

// Source is the subscribe-only view of a Channel.
type Source[T any] interface {
	Subscribe(h Handler[T]) *Subscription[T]
}

// Channel is a multicast channel. Handlers run synchronously on the
// publishing goroutine and must not publish to the same channel.
type Channel[T any] struct {
	publishMu sync.Mutex // serializes Publish so delivery order is publish order

	mu      sync.Mutex
	subs    []*Subscription[T]
	replay  bool
	last    T
	hasLast bool
	nextID  atomic.Uint64
}

// New returns a channel without replay.
func New[T any]() *Channel[T] {
	return &Channel[T]{}
}

// NewReplay returns a channel that delivers the most recent value to new
// subscribers immediately on Subscribe.
func NewReplay[T any]() *Channel[T] {
	return &Channel[T]{replay: true}
}

// Subscription is one registered handler.
type Subscription[T any] struct {
	id      uint64
	ch      *Channel[T]
	handler Handler[T]

	deliverMu sync.Mutex // held while the handler runs

	once sync.Once
	done chan struct{}
	err  error
}

// Publish delivers v to every current subscriber.
func (c *Channel[T]) Publish(v T) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	if c.replay {
		c.last, c.hasLast = v, true
	}
	subs := make([]*Subscription[T], len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		s.deliver(v)
	}
}

// Subscribe registers h. On a replay channel that has published before,
// h receives the latest value before Subscribe returns.
func (c *Channel[T]) Subscribe(h Handler[T]) *Subscription[T] {
	s := &Subscription[T]{
		id:      c.nextID.Add(1),
		ch:      c,
		handler: h,
		done:    make(chan struct{}),
	}

	c.mu.Lock()
	c.subs = append(c.subs, s)
	last, replay := c.last, c.replay && c.hasLast
	if replay {
		// Taken before releasing c.mu so a concurrent Publish, which will
		// see s, cannot overtake the replayed value.
		s.deliverMu.Lock()
	}
	c.mu.Unlock()

	if replay {
		s.deliverLocked(last)
		s.deliverMu.Unlock()
	}
	return s
}

// Len returns the number of live subscribers.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Last returns the value a new replay subscriber would receive.
func (c *Channel[T]) Last() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.hasLast
}

func (c *Channel[T]) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subs {
		if s.id == id {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return
		}
	}
}

func (s *Subscription[T]) deliver(v T) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.deliverLocked(v)
}

func (s *Subscription[T]) deliverLocked(v T) {
	select {
	case <-s.done:
		return
	default:
	}
	if err := s.call(v); err != nil {
		s.terminate(err)
	}
}

func (s *Subscription[T]) call(v T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("broadcast: handler panicked: %v", r)
		}
	}()
	return s.handler(v)
}

func (s *Subscription[T]) terminate(err error) {
	s.once.Do(func() {
		s.err = err
		s.ch.remove(s.id)
		close(s.done)
	})
}

// Unsubscribe stops delivery. It is safe to call more than once and from
// inside the handler.
func (s *Subscription[T]) Unsubscribe() {
	s.terminate(nil)
}

// Done is closed when the subscription ends.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the subscription, or nil if it is live
// or was ended by Unsubscribe.
func (s *Subscription[T]) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}
