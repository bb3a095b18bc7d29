// Package sdk describes the vendor Flic 2 SDK as seen from Go: the
// process-wide manager, live button objects, and the two delegate
// interfaces the SDK calls back into. Pairing, verification and the
// connection state machine live behind these interfaces and are not
// implemented here.
package sdk

import (
	"errors"
	"fmt"

	"github.com/chaz8081/flic2-bridge/internal/flic"
)

// Button is a live handle owned by the SDK. Read it through native.Snapshot
// before letting it cross the bridge.
type Button interface {
	Identifier() string
	Name() string
	Nickname() string
	BluetoothAddress() string
	UUID() string
	SerialNumber() string
	TriggerMode() flic.TriggerMode
	State() flic.ButtonState
	PressCount() uint32
	FirmwareRevision() uint32
	IsReady() bool
	BatteryVoltage() float32
	IsUnpaired() bool
	LatencyMode() flic.LatencyMode

	SetNickname(nickname string)
	SetTriggerMode(mode flic.TriggerMode)
	SetLatencyMode(mode flic.LatencyMode) error
	Connect()
	Disconnect()
}

// ManagerDelegate receives manager-level callbacks.
type ManagerDelegate interface {
	ManagerDidRestoreState(m Manager)
	ManagerDidUpdateState(m Manager, state flic.ManagerState)
}

// ButtonDelegate receives button-level callbacks. err arguments may be nil.
type ButtonDelegate interface {
	ButtonDidConnect(b Button)
	ButtonIsReady(b Button)
	ButtonDidDisconnect(b Button, err error)
	ButtonDidFailToConnect(b Button, err error)
	ButtonDidReceiveButtonDown(b Button, queued bool, age int)
	ButtonDidReceiveButtonUp(b Button, queued bool, age int)
	ButtonDidReceiveButtonClick(b Button, queued bool, age int)
	ButtonDidReceiveButtonDoubleClick(b Button, queued bool, age int)
	ButtonDidReceiveButtonHold(b Button, queued bool, age int)
	ButtonDidUnpair(b Button, err error)
	ButtonDidUpdateBatteryVoltage(b Button, voltage float32)
	ButtonDidUpdateNickname(b Button, nickname string)
}

// Manager is the SDK's process-wide manager.
type Manager interface {
	// Configure installs the delegates. The SDK accepts it once.
	Configure(md ManagerDelegate, bd ButtonDelegate, background bool) error
	// Buttons is only meaningful after ManagerDidRestoreState.
	Buttons() []Button
	ForgetButton(b Button, completion func(uuid string, err error))
	// ScanForButtons reports progress to stateChange and finishes with
	// exactly one call to completion.
	ScanForButtons(stateChange func(flic.ScannerStatusEvent), completion func(b Button, err error))
	StopScan()
	State() flic.ManagerState
	IsScanning() bool
}

// Error is an SDK error with a code in one of the flic error domains.
type Error struct {
	Domain  string
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (code %d)", e.Domain, e.Message, e.Code)
}

// ScannerError builds an error in the scanner domain.
func ScannerError(code flic.ScannerErrorCode) *Error {
	return &Error{Domain: flic.ScannerErrorDomain, Code: int(code), Message: code.String()}
}

// FlicError builds an error in the general FLIC domain.
func FlicError(code flic.ErrorCode, msg string) *Error {
	if msg == "" {
		msg = code.String()
	}
	return &Error{Domain: flic.ErrorDomain, Code: int(code), Message: msg}
}

// ErrorInfo converts err for transport. It returns nil for a nil error.
func ErrorInfo(err error) *flic.ErrorInfo {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &flic.ErrorInfo{Message: e.Message, Code: e.Code, Domain: e.Domain}
	}
	return &flic.ErrorInfo{Message: err.Error()}
}
