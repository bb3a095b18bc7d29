// Package message defines the tagged messages that carry one delegate
// callback across the bridge, their {method, arguments} wire envelope,
// and the converters that turn a message back into a delegate call.
package message

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chaz8081/flic2-bridge/internal/flic"
)

// Manager message tags.
const (
	MethodManagerDidRestoreState = "managerDidRestoreState"
	MethodDidUpdateState         = "didUpdateState"
)

// Button message tags.
const (
	MethodButtonDidConnect                  = "buttonDidConnect"
	MethodButtonIsReady                     = "buttonIsReady"
	MethodButtonDidDisconnectWithError      = "buttonDidDisconnectWithError"
	MethodButtonDidFailToConnectWithError   = "buttonDidFailToConnectWithError"
	MethodButtonDidReceiveButtonDown        = "buttonDidReceiveButtonDown"
	MethodButtonDidReceiveButtonUp          = "buttonDidReceiveButtonUp"
	MethodButtonDidReceiveButtonClick       = "buttonDidReceiveButtonClick"
	MethodButtonDidReceiveButtonDoubleClick = "buttonDidReceiveButtonDoubleClick"
	MethodButtonDidReceiveButtonHold        = "buttonDidReceiveButtonHold"
	MethodButtonDidUnpairWithError          = "buttonDidUnpairWithError"
	MethodButtonDidUpdateBatteryVoltage     = "buttonDidUpdateBatteryVoltage"
	MethodButtonDidUpdateNickname           = "buttonDidUpdateNickname"
)

// ErrUnknownMethod marks a method tag this side does not understand. It
// means the two sides of the bridge disagree on the protocol.
var ErrUnknownMethod = errors.New("message: unknown method")

// UnknownMethodError names the offending tag.
type UnknownMethodError struct {
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("message: unknown method %q", e.Method)
}

func (e *UnknownMethodError) Unwrap() error { return ErrUnknownMethod }

// Envelope is the wire form of every message.
type Envelope struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments"`
}

// ManagerMessage is one FLICManagerDelegate callback. The set of
// implementations is closed.
type ManagerMessage interface {
	Method() string
	managerMessage()
}

// ManagerDidRestoreState reports that the paired-button list is available.
type ManagerDidRestoreState struct{}

// DidUpdateState reports a new Bluetooth/manager state.
type DidUpdateState struct {
	State flic.ManagerState `json:"state"`
}

func (ManagerDidRestoreState) Method() string { return MethodManagerDidRestoreState }
func (DidUpdateState) Method() string         { return MethodDidUpdateState }

func (ManagerDidRestoreState) managerMessage() {}
func (DidUpdateState) managerMessage()         {}

// ButtonMessage is one FLICButtonDelegate callback. The set of
// implementations is closed.
type ButtonMessage interface {
	Method() string
	// Subject returns the snapshot of the button the callback is about.
	Subject() flic.Button
	buttonMessage()
}

// ButtonArgs is embedded by every button message.
type ButtonArgs struct {
	Button flic.Button `json:"button"`
}

func (a ButtonArgs) Subject() flic.Button { return a.Button }
func (ButtonArgs) buttonMessage()         {}

// PressArgs carries the fields of the five press callbacks. Age is the
// number of seconds since the press happened when Queued is set.
type PressArgs struct {
	Button flic.Button `json:"button"`
	Queued bool        `json:"queued"`
	Age    int         `json:"age"`
}

func (a PressArgs) Subject() flic.Button { return a.Button }
func (PressArgs) buttonMessage()         {}

// ErrorArgs carries the fields of callbacks with an optional error.
type ErrorArgs struct {
	Button flic.Button     `json:"button"`
	Error  *flic.ErrorInfo `json:"error,omitempty"`
}

func (a ErrorArgs) Subject() flic.Button { return a.Button }
func (ErrorArgs) buttonMessage()         {}

type (
	ButtonDidConnect                  struct{ ButtonArgs }
	ButtonIsReady                     struct{ ButtonArgs }
	ButtonDidDisconnectWithError      struct{ ErrorArgs }
	ButtonDidFailToConnectWithError   struct{ ErrorArgs }
	ButtonDidReceiveButtonDown        struct{ PressArgs }
	ButtonDidReceiveButtonUp          struct{ PressArgs }
	ButtonDidReceiveButtonClick       struct{ PressArgs }
	ButtonDidReceiveButtonDoubleClick struct{ PressArgs }
	ButtonDidReceiveButtonHold        struct{ PressArgs }
	ButtonDidUnpairWithError          struct{ ErrorArgs }
)

// ButtonDidUpdateBatteryVoltage carries a fresh battery sample in volts.
type ButtonDidUpdateBatteryVoltage struct {
	Button  flic.Button `json:"button"`
	Voltage float32     `json:"voltage"`
}

func (a ButtonDidUpdateBatteryVoltage) Subject() flic.Button { return a.Button }
func (ButtonDidUpdateBatteryVoltage) buttonMessage()         {}

// ButtonDidUpdateNickname carries the nickname set on the button.
type ButtonDidUpdateNickname struct {
	Button   flic.Button `json:"button"`
	Nickname string      `json:"nickname"`
}

func (a ButtonDidUpdateNickname) Subject() flic.Button { return a.Button }
func (ButtonDidUpdateNickname) buttonMessage()         {}

func (ButtonDidConnect) Method() string                  { return MethodButtonDidConnect }
func (ButtonIsReady) Method() string                     { return MethodButtonIsReady }
func (ButtonDidDisconnectWithError) Method() string      { return MethodButtonDidDisconnectWithError }
func (ButtonDidFailToConnectWithError) Method() string   { return MethodButtonDidFailToConnectWithError }
func (ButtonDidReceiveButtonDown) Method() string        { return MethodButtonDidReceiveButtonDown }
func (ButtonDidReceiveButtonUp) Method() string          { return MethodButtonDidReceiveButtonUp }
func (ButtonDidReceiveButtonClick) Method() string       { return MethodButtonDidReceiveButtonClick }
func (ButtonDidReceiveButtonDoubleClick) Method() string { return MethodButtonDidReceiveButtonDoubleClick }
func (ButtonDidReceiveButtonHold) Method() string        { return MethodButtonDidReceiveButtonHold }
func (ButtonDidUnpairWithError) Method() string          { return MethodButtonDidUnpairWithError }
func (ButtonDidUpdateBatteryVoltage) Method() string     { return MethodButtonDidUpdateBatteryVoltage }
func (ButtonDidUpdateNickname) Method() string           { return MethodButtonDidUpdateNickname }
