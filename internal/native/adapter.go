// Package native is the plugin side of the bridge. Adapter turns vendor
// SDK delegate callbacks into tagged messages and forwards them to the
// currently registered callback; Plugin answers the façade's RPC calls
// against the SDK manager.
package native

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/chaz8081/flic2-bridge/internal/bridge"
	"github.com/chaz8081/flic2-bridge/internal/flic"
	"github.com/chaz8081/flic2-bridge/internal/message"
	"github.com/chaz8081/flic2-bridge/internal/sdk"
	"github.com/chaz8081/flic2-bridge/internal/slot"
)

// Snapshot copies the live button into a plain value.
func Snapshot(b sdk.Button) flic.Button {
	return flic.Button{
		Identifier:       b.Identifier(),
		Name:             b.Name(),
		Nickname:         b.Nickname(),
		BluetoothAddress: b.BluetoothAddress(),
		UUID:             b.UUID(),
		SerialNumber:     b.SerialNumber(),
		TriggerMode:      b.TriggerMode(),
		State:            b.State(),
		PressCount:       b.PressCount(),
		FirmwareRevision: b.FirmwareRevision(),
		IsReady:          b.IsReady(),
		BatteryVoltage:   b.BatteryVoltage(),
		IsUnpaired:       b.IsUnpaired(),
		LatencyMode:      b.LatencyMode(),
	}
}

// Adapter implements both SDK delegates. Each delegate kind forwards to at
// most one registered keep-alive call; registering again releases the
// previous call. Events that arrive with nothing registered are dropped.
type Adapter struct {
	manager *slot.Slot[*bridge.Call]
	button  *slot.Slot[*bridge.Call]
}

var (
	_ sdk.ManagerDelegate = (*Adapter)(nil)
	_ sdk.ButtonDelegate  = (*Adapter)(nil)
)

// NewAdapter returns an adapter with both slots empty.
func NewAdapter() *Adapter {
	return &Adapter{
		manager: slot.New(releaseCall),
		button:  slot.New(releaseCall),
	}
}

func releaseCall(c *bridge.Call) {
	if err := c.Release(); err != nil && !errors.Is(err, bridge.ErrCallDone) && !errors.Is(err, bridge.ErrClosed) {
		slog.Warn("[FLIC] failed to release previous handler", "id", c.ID, "error", err)
	}
}

// RegisterManager makes c the receiver of manager messages.
func (a *Adapter) RegisterManager(c *bridge.Call) {
	slog.Debug("[FLIC] manager message handler registered", "id", c.ID)
	a.manager.Set(c)
}

// RegisterButton makes c the receiver of button messages.
func (a *Adapter) RegisterButton(c *bridge.Call) {
	slog.Debug("[FLIC] button message handler registered", "id", c.ID)
	a.button.Set(c)
}

// Close releases both registrations.
func (a *Adapter) Close() {
	a.manager.Clear()
	a.button.Clear()
}

func (a *Adapter) sendManager(m message.ManagerMessage) {
	data, err := message.EncodeManager(m)
	if err != nil {
		slog.Error("[FLIC] failed to encode manager message", "method", m.Method(), "error", err)
		return
	}
	forward(a.manager, m.Method(), data)
}

func (a *Adapter) sendButton(m message.ButtonMessage) {
	data, err := message.EncodeButton(m)
	if err != nil {
		slog.Error("[FLIC] failed to encode button message", "method", m.Method(), "error", err)
		return
	}
	forward(a.button, m.Method(), data)
}

// forward sends data to the slot's call. A call whose connection is gone
// is evicted so later events are dropped instead of failing again.
func forward(s *slot.Slot[*bridge.Call], method string, data []byte) {
	c, ok := s.Get()
	if !ok {
		slog.Debug("[FLIC] no handler registered, dropping message", "method", method)
		return
	}
	err := c.Send(json.RawMessage(data))
	if err == nil {
		return
	}
	slog.Warn("[FLIC] failed to forward message", "method", method, "id", c.ID, "error", err)
	if errors.Is(err, bridge.ErrClosed) || errors.Is(err, bridge.ErrCallDone) {
		s.ClearIf(func(cur *bridge.Call) bool { return cur == c })
	}
}

// sdk.ManagerDelegate

func (a *Adapter) ManagerDidRestoreState(m sdk.Manager) {
	slog.Info("[FLIC] manager restored state", "buttons", len(m.Buttons()))
	a.sendManager(message.ManagerDidRestoreState{})
}

func (a *Adapter) ManagerDidUpdateState(_ sdk.Manager, state flic.ManagerState) {
	slog.Info("[FLIC] manager state changed", "state", state.String())
	a.sendManager(message.DidUpdateState{State: state})
}

// sdk.ButtonDelegate

func (a *Adapter) ButtonDidConnect(b sdk.Button) {
	slog.Info("[FLIC] button connected", "uuid", b.UUID())
	a.sendButton(message.ButtonDidConnect{ButtonArgs: message.ButtonArgs{Button: Snapshot(b)}})
}

func (a *Adapter) ButtonIsReady(b sdk.Button) {
	slog.Info("[FLIC] button ready", "uuid", b.UUID())
	a.sendButton(message.ButtonIsReady{ButtonArgs: message.ButtonArgs{Button: Snapshot(b)}})
}

func (a *Adapter) ButtonDidDisconnect(b sdk.Button, err error) {
	slog.Info("[FLIC] button disconnected", "uuid", b.UUID(), "error", err)
	a.sendButton(message.ButtonDidDisconnectWithError{ErrorArgs: errorArgs(b, err)})
}

func (a *Adapter) ButtonDidFailToConnect(b sdk.Button, err error) {
	slog.Warn("[FLIC] button failed to connect", "uuid", b.UUID(), "error", err)
	a.sendButton(message.ButtonDidFailToConnectWithError{ErrorArgs: errorArgs(b, err)})
}

func (a *Adapter) ButtonDidReceiveButtonDown(b sdk.Button, queued bool, age int) {
	slog.Debug("[FLIC] button down", "uuid", b.UUID(), "queued", queued, "age", age)
	a.sendButton(message.ButtonDidReceiveButtonDown{PressArgs: pressArgs(b, queued, age)})
}

func (a *Adapter) ButtonDidReceiveButtonUp(b sdk.Button, queued bool, age int) {
	slog.Debug("[FLIC] button up", "uuid", b.UUID(), "queued", queued, "age", age)
	a.sendButton(message.ButtonDidReceiveButtonUp{PressArgs: pressArgs(b, queued, age)})
}

func (a *Adapter) ButtonDidReceiveButtonClick(b sdk.Button, queued bool, age int) {
	slog.Debug("[FLIC] button click", "uuid", b.UUID(), "queued", queued, "age", age)
	a.sendButton(message.ButtonDidReceiveButtonClick{PressArgs: pressArgs(b, queued, age)})
}

func (a *Adapter) ButtonDidReceiveButtonDoubleClick(b sdk.Button, queued bool, age int) {
	slog.Debug("[FLIC] button double click", "uuid", b.UUID(), "queued", queued, "age", age)
	a.sendButton(message.ButtonDidReceiveButtonDoubleClick{PressArgs: pressArgs(b, queued, age)})
}

func (a *Adapter) ButtonDidReceiveButtonHold(b sdk.Button, queued bool, age int) {
	slog.Debug("[FLIC] button hold", "uuid", b.UUID(), "queued", queued, "age", age)
	a.sendButton(message.ButtonDidReceiveButtonHold{PressArgs: pressArgs(b, queued, age)})
}

func (a *Adapter) ButtonDidUnpair(b sdk.Button, err error) {
	slog.Warn("[FLIC] button unpaired", "uuid", b.UUID(), "error", err)
	a.sendButton(message.ButtonDidUnpairWithError{ErrorArgs: errorArgs(b, err)})
}

func (a *Adapter) ButtonDidUpdateBatteryVoltage(b sdk.Button, voltage float32) {
	slog.Debug("[FLIC] battery voltage", "uuid", b.UUID(), "voltage", voltage)
	a.sendButton(message.ButtonDidUpdateBatteryVoltage{Button: Snapshot(b), Voltage: voltage})
}

func (a *Adapter) ButtonDidUpdateNickname(b sdk.Button, nickname string) {
	slog.Info("[FLIC] nickname updated", "uuid", b.UUID(), "nickname", nickname)
	a.sendButton(message.ButtonDidUpdateNickname{Button: Snapshot(b), Nickname: nickname})
}

func pressArgs(b sdk.Button, queued bool, age int) message.PressArgs {
	return message.PressArgs{Button: Snapshot(b), Queued: queued, Age: age}
}

func errorArgs(b sdk.Button, err error) message.ErrorArgs {
	return message.ErrorArgs{Button: Snapshot(b), Error: sdk.ErrorInfo(err)}
}
