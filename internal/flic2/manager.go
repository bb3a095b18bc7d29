// Package flic2 is the client façade over the Flic 2 plugin. A Manager
// proxies RPC calls to the native side, fans every incoming message out to
// broadcast channels, and routes it to at most one registered handler and
// delegate per kind.
package flic2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chaz8081/flic2-bridge/internal/bridge"
	"github.com/chaz8081/flic2-bridge/internal/broadcast"
	"github.com/chaz8081/flic2-bridge/internal/flic"
	"github.com/chaz8081/flic2-bridge/internal/message"
	"github.com/chaz8081/flic2-bridge/internal/slot"
)

var (
	// ErrAlreadyConfigured is returned by a second ConfigureWithDelegate.
	ErrAlreadyConfigured = errors.New("flic2: already configured")
	// ErrNotConfigured is returned by calls made before configuration
	// finished.
	ErrNotConfigured = errors.New("flic2: not configured")
)

// Transport is the client end of the bridge. *bridge.Client implements it.
// Stream callbacks and posted functions must run on one goroutine in
// order.
type Transport interface {
	Call(ctx context.Context, method string, req, resp any) error
	Stream(ctx context.Context, method string, req any, h bridge.StreamHandler) (string, error)
	Post(fn func())
}

// ManagerMessageHandler receives every manager message.
type ManagerMessageHandler func(message.ManagerMessage)

// ButtonMessageHandler receives every button message.
type ButtonMessageHandler func(message.ButtonMessage)

// Handlers are the four optional consumer slots. A nil field leaves the
// corresponding slot as it is.
type Handlers struct {
	ManagerMessageHandler ManagerMessageHandler
	ManagerDelegate       message.ManagerDelegate
	ButtonMessageHandler  ButtonMessageHandler
	ButtonDelegate        message.ButtonDelegate
}

type configState int

const (
	stateUninitialized configState = iota
	stateConfiguring
	stateConfigured
)

// ConsumerError reports a handler or delegate that panicked. The consumer
// has been removed from its slot by the time the error is reported.
type ConsumerError struct {
	Consumer string
	Value    any
}

func (e *ConsumerError) Error() string {
	return fmt.Sprintf("flic2: %s panicked: %v", e.Consumer, e.Value)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithProtocolErrorHandler replaces the default reporting of messages the
// façade cannot understand, which logs them at error level.
func WithProtocolErrorHandler(fn func(error)) Option {
	return func(m *Manager) {
		if fn != nil {
			m.onProtocolError = fn
		}
	}
}

// WithConsumerErrorHandler replaces the default reporting of panicking
// handlers and delegates, which logs them at error level.
func WithConsumerErrorHandler(fn func(error)) Option {
	return func(m *Manager) {
		if fn != nil {
			m.onConsumerError = fn
		}
	}
}

// Manager is the client façade. Incoming messages are handled on the
// transport's event goroutine: broadcast subscribers first, then the
// message handler, then the delegate.
type Manager struct {
	t               Transport
	onProtocolError func(error)
	onConsumerError func(error)

	managerHandler  *slot.Slot[*consumer[ManagerMessageHandler]]
	managerDelegate *slot.Slot[*consumer[message.ManagerDelegate]]
	buttonHandler   *slot.Slot[*consumer[ButtonMessageHandler]]
	buttonDelegate  *slot.Slot[*consumer[message.ButtonDelegate]]

	managerMessages *broadcast.Channel[message.ManagerMessage]
	managerReplay   *broadcast.Channel[message.ManagerMessage]
	buttonMessages  *broadcast.Channel[message.ButtonMessage]

	mu    sync.Mutex
	state configState
	// attempt numbers ConfigureWithDelegate runs so that streams left over
	// from a failed run cannot detach the Manager.
	attempt   int
	streamErr error
	detached  chan struct{}

	restoredOnce sync.Once
	restored     chan struct{}
}

// New returns an unconfigured façade over t.
func New(t Transport, opts ...Option) *Manager {
	m := &Manager{
		t: t,
		onProtocolError: func(err error) {
			slog.Error("[FLIC] protocol error", "error", err)
		},
		onConsumerError: func(err error) {
			slog.Error("[FLIC] consumer removed", "error", err)
		},
		managerHandler:  slot.New[*consumer[ManagerMessageHandler]](nil),
		managerDelegate: slot.New[*consumer[message.ManagerDelegate]](nil),
		buttonHandler:   slot.New[*consumer[ButtonMessageHandler]](nil),
		buttonDelegate:  slot.New[*consumer[message.ButtonDelegate]](nil),
		managerMessages: broadcast.New[message.ManagerMessage](),
		managerReplay:   broadcast.NewReplay[message.ManagerMessage](),
		buttonMessages:  broadcast.New[message.ButtonMessage](),
		restored:        make(chan struct{}),
		detached:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Apply sets every non-nil slot in h and leaves the others untouched.
func (m *Manager) Apply(h Handlers) {
	if h.ManagerMessageHandler != nil {
		occupy(m.managerHandler, h.ManagerMessageHandler)
	}
	if h.ManagerDelegate != nil {
		occupy(m.managerDelegate, h.ManagerDelegate)
	}
	if h.ButtonMessageHandler != nil {
		occupy(m.buttonHandler, h.ButtonMessageHandler)
	}
	if h.ButtonDelegate != nil {
		occupy(m.buttonDelegate, h.ButtonDelegate)
	}
}

// SetManagerMessageHandler replaces the manager message handler. nil
// clears it.
func (m *Manager) SetManagerMessageHandler(fn ManagerMessageHandler) {
	setOrClear(m.managerHandler, fn, fn == nil)
}

// SetManagerDelegate replaces the manager delegate. nil clears it.
func (m *Manager) SetManagerDelegate(d message.ManagerDelegate) {
	setOrClear(m.managerDelegate, d, d == nil)
}

// SetButtonMessageHandler replaces the button message handler. nil clears
// it.
func (m *Manager) SetButtonMessageHandler(fn ButtonMessageHandler) {
	setOrClear(m.buttonHandler, fn, fn == nil)
}

// SetButtonDelegate replaces the button delegate. nil clears it.
func (m *Manager) SetButtonDelegate(d message.ButtonDelegate) {
	setOrClear(m.buttonDelegate, d, d == nil)
}

// consumer boxes a slot occupant so that it can be told apart from a later
// registration of the same func or delegate.
type consumer[T any] struct{ v T }

func (c *consumer[T]) value() T {
	var zero T
	if c == nil {
		return zero
	}
	return c.v
}

func occupy[T any](s *slot.Slot[*consumer[T]], v T) {
	s.Set(&consumer[T]{v: v})
}

func setOrClear[T any](s *slot.Slot[*consumer[T]], v T, clear bool) {
	if clear {
		s.Clear()
		return
	}
	occupy(s, v)
}

// ManagerMessages is the channel of manager messages.
func (m *Manager) ManagerMessages() broadcast.Source[message.ManagerMessage] {
	return m.managerMessages
}

// ManagerMessagesReplay is the channel of manager messages that hands the
// latest message to every new subscriber.
func (m *Manager) ManagerMessagesReplay() broadcast.Source[message.ManagerMessage] {
	return m.managerReplay
}

// ButtonMessages is the channel of button messages.
func (m *Manager) ButtonMessages() broadcast.Source[message.ButtonMessage] {
	return m.buttonMessages
}

// ConfigureWithDelegate registers h, subscribes to both message streams
// and configures the native manager. It may succeed once per Manager;
// later calls only apply the non-nil slots of h and return
// ErrAlreadyConfigured. A native manager configured by another client is
// attached to and counts as restored.
func (m *Manager) ConfigureWithDelegate(ctx context.Context, background bool, h Handlers) error {
	m.Apply(h)

	m.mu.Lock()
	if m.state != stateUninitialized {
		m.mu.Unlock()
		return ErrAlreadyConfigured
	}
	m.state = stateConfiguring
	m.attempt++
	attempt := m.attempt
	m.streamErr = nil
	m.mu.Unlock()

	if err := m.configure(ctx, background, attempt); err != nil {
		m.mu.Lock()
		m.state = stateUninitialized
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.state = stateConfigured
	if m.streamErr != nil {
		close(m.detached)
	}
	m.mu.Unlock()
	slog.Info("[FLIC] configured", "background", background)
	return nil
}

func (m *Manager) configure(ctx context.Context, background bool, attempt int) error {
	if _, err := m.t.Stream(ctx, message.CallRegisterFLICManagerMessageHandler, struct{}{}, bridge.StreamHandler{
		Event: m.receiveManager,
		Done:  m.streamEnded(message.CallRegisterFLICManagerMessageHandler, attempt),
	}); err != nil {
		return fmt.Errorf("flic2: register manager handler: %w", err)
	}
	if _, err := m.t.Stream(ctx, message.CallRegisterFLICButtonMessageHandler, struct{}{}, bridge.StreamHandler{
		Event: m.receiveButton,
		Done:  m.streamEnded(message.CallRegisterFLICButtonMessageHandler, attempt),
	}); err != nil {
		return fmt.Errorf("flic2: register button handler: %w", err)
	}
	err := m.t.Call(ctx, message.CallConfigureWithDelegate, message.ConfigureRequest{Background: background}, nil)
	if errors.Is(err, errNativeAlreadyConfigured) {
		// Another client configured a shared host. Its manager has already
		// restored, so no restore message will follow.
		slog.Info("[FLIC] attached to configured manager")
		m.restoredOnce.Do(func() { close(m.restored) })
		return nil
	}
	if err != nil {
		return fmt.Errorf("flic2: configure: %w", err)
	}
	return nil
}

var errNativeAlreadyConfigured = &bridge.RemoteError{
	Domain: message.PluginErrorDomain,
	Code:   message.PluginErrorAlreadyConfigured,
}

// ErrStreamEnded is what Err wraps when the host ends a message stream
// without an error.
var ErrStreamEnded = errors.New("flic2: message stream ended")

// streamEnded handles the end of a message stream registered by the given
// configure attempt. No further messages arrive on it, so the Manager is
// detached.
func (m *Manager) streamEnded(method string, attempt int) func(json.RawMessage, error) {
	return func(_ json.RawMessage, err error) {
		switch {
		case errors.Is(err, bridge.ErrReleased):
			slog.Warn("[FLIC] message stream taken over by another client", "method", method)
		case errors.Is(err, bridge.ErrClosed):
			slog.Info("[FLIC] message stream closed", "method", method)
		case err != nil:
			slog.Error("[FLIC] message stream failed", "method", method, "error", err)
		default:
			err = ErrStreamEnded
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if attempt != m.attempt || m.streamErr != nil {
			return
		}
		m.streamErr = fmt.Errorf("flic2: %s: %w", method, err)
		if m.state == stateConfigured {
			close(m.detached)
		}
	}
}

// Detached is closed once a message stream of a configured Manager has
// ended, for example because another client registered on the same host.
// No messages are delivered after that.
func (m *Manager) Detached() <-chan struct{} {
	return m.detached
}

// Err returns why the Manager detached, or nil while it is attached.
func (m *Manager) Err() error {
	select {
	case <-m.detached:
	default:
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamErr
}

// Configured reports whether ConfigureWithDelegate has completed.
func (m *Manager) Configured() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == stateConfigured
}

func (m *Manager) receiveManager(raw json.RawMessage) {
	msg, err := message.DecodeManager(raw)
	if err != nil {
		m.onProtocolError(err)
		return
	}
	if _, ok := msg.(message.ManagerDidRestoreState); ok {
		m.restoredOnce.Do(func() { close(m.restored) })
	}

	m.managerMessages.Publish(msg)
	m.managerReplay.Publish(msg)
	if c, ok := m.managerHandler.Get(); ok {
		guard(m, m.managerHandler, c, "manager message handler", func() { c.v(msg) })
	}
	d, _ := m.managerDelegate.Get()
	var dispatchErr error
	guard(m, m.managerDelegate, d, "manager delegate", func() {
		dispatchErr = message.DispatchManager(d.value, msg)
	})
	if dispatchErr != nil {
		m.onProtocolError(dispatchErr)
	}
}

func (m *Manager) receiveButton(raw json.RawMessage) {
	msg, err := message.DecodeButton(raw)
	if err != nil {
		m.onProtocolError(err)
		return
	}

	m.buttonMessages.Publish(msg)
	if c, ok := m.buttonHandler.Get(); ok {
		guard(m, m.buttonHandler, c, "button message handler", func() { c.v(msg) })
	}
	d, _ := m.buttonDelegate.Get()
	var dispatchErr error
	guard(m, m.buttonDelegate, d, "button delegate", func() {
		dispatchErr = message.DispatchButton(d.value, msg)
	})
	if dispatchErr != nil {
		m.onProtocolError(dispatchErr)
	}
}

// guard runs fn on behalf of consumer c held in s. A panic removes c from
// s, unless s has been given a new occupant meanwhile, and is reported to
// the consumer error handler.
func guard[T any](m *Manager, s *slot.Slot[*consumer[T]], c *consumer[T], what string, fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if c != nil {
			s.ClearIf(func(cur *consumer[T]) bool { return cur == c })
		}
		m.onConsumerError(&ConsumerError{Consumer: what, Value: r})
	}()
	fn()
}

// Restored reports whether managerDidRestoreState has been received.
func (m *Manager) Restored() bool {
	select {
	case <-m.restored:
		return true
	default:
		return false
	}
}

// WaitRestored blocks until managerDidRestoreState has been received.
func (m *Manager) WaitRestored(ctx context.Context) error {
	select {
	case <-m.restored:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) call(ctx context.Context, method string, req, resp any) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	if err := m.t.Call(ctx, method, req, resp); err != nil {
		return fmt.Errorf("flic2: %s: %w", method, err)
	}
	return nil
}

// Buttons returns the paired buttons. The list is only meaningful once
// Restored reports true.
func (m *Manager) Buttons(ctx context.Context) ([]flic.Button, error) {
	var resp message.ButtonsResponse
	if err := m.call(ctx, message.CallButtons, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Buttons, nil
}

// ForgetButton removes the pairing and returns the forgotten uuid.
func (m *Manager) ForgetButton(ctx context.Context, uuid string) (string, error) {
	var resp message.UUIDRequest
	if err := m.call(ctx, message.CallForgetButton, message.UUIDRequest{UUID: uuid}, &resp); err != nil {
		return "", err
	}
	return resp.UUID, nil
}

// SetNickname stores nickname on the button, truncated to
// flic.MaxNicknameBytes.
func (m *Manager) SetNickname(ctx context.Context, uuid, nickname string) (flic.Button, error) {
	var resp message.ButtonResponse
	err := m.call(ctx, message.CallSetNickname, message.NicknameRequest{UUID: uuid, Nickname: nickname}, &resp)
	return resp.Button, err
}

func (m *Manager) SetTriggerMode(ctx context.Context, uuid string, mode flic.TriggerMode) (flic.Button, error) {
	var resp message.ButtonResponse
	err := m.call(ctx, message.CallSetTriggerMode, message.TriggerModeRequest{UUID: uuid, TriggerMode: mode}, &resp)
	return resp.Button, err
}

func (m *Manager) SetLatencyMode(ctx context.Context, uuid string, mode flic.LatencyMode) (flic.Button, error) {
	var resp message.ButtonResponse
	err := m.call(ctx, message.CallSetLatencyMode, message.LatencyModeRequest{UUID: uuid, LatencyMode: mode}, &resp)
	return resp.Button, err
}

// Connect asks the button to connect. The outcome arrives as button
// messages.
func (m *Manager) Connect(ctx context.Context, uuid string) error {
	return m.call(ctx, message.CallConnect, message.UUIDRequest{UUID: uuid}, nil)
}

// Disconnect asks the button to disconnect.
func (m *Manager) Disconnect(ctx context.Context, uuid string) error {
	return m.call(ctx, message.CallDisconnect, message.UUIDRequest{UUID: uuid}, nil)
}

func (m *Manager) State(ctx context.Context) (flic.ManagerState, error) {
	var resp message.StateResponse
	err := m.call(ctx, message.CallGetState, nil, &resp)
	return resp.State, err
}

func (m *Manager) IsScanning(ctx context.Context) (bool, error) {
	var resp message.IsScanningResponse
	err := m.call(ctx, message.CallGetIsScanning, nil, &resp)
	return resp.IsScanning, err
}

// StopScan cancels the scan in flight. Its handler ends with Cancelled.
func (m *Manager) StopScan(ctx context.Context) error {
	return m.call(ctx, message.CallStopScan, nil, nil)
}
