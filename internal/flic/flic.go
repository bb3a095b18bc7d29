// Package flic holds the plain data model shared by both sides of the
// bridge: the Button snapshot and the enumerations of the Flic 2 SDK.
// Enum values are the numeric values used on the wire and must not be
// reordered.
package flic

import (
	"fmt"
	"unicode/utf8"
)

// MaxNicknameBytes is the longest nickname a button stores.
const MaxNicknameBytes = 23

// Button is a value snapshot of a paired button. It is never a live
// handle: changes are made through the manager's RPC methods keyed by UUID.
type Button struct {
	Identifier       string      `json:"identifier"`
	Name             string      `json:"name"`
	Nickname         string      `json:"nickname"`
	BluetoothAddress string      `json:"bluetoothAddress"`
	UUID             string      `json:"uuid"`
	SerialNumber     string      `json:"serialNumber"`
	TriggerMode      TriggerMode `json:"triggerMode"`
	State            ButtonState `json:"state"`
	PressCount       uint32      `json:"pressCount"`
	FirmwareRevision uint32      `json:"firmwareRevision"`
	IsReady          bool        `json:"isReady"`
	BatteryVoltage   float32     `json:"batteryVoltage"` // 0 until sampled
	IsUnpaired       bool        `json:"isUnpaired"`
	LatencyMode      LatencyMode `json:"latencyMode"`
}

// DisplayName returns the nickname if set, otherwise the advertised name.
func (b Button) DisplayName() string {
	if b.Nickname != "" {
		return b.Nickname
	}
	return b.Name
}

// TruncateNickname cuts s to at most MaxNicknameBytes bytes without
// splitting a UTF-8 sequence.
func TruncateNickname(s string) string {
	if len(s) <= MaxNicknameBytes {
		return s
	}
	cut := MaxNicknameBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// ErrorInfo is the optional error carried by disconnect, connect-failure
// and unpair callbacks.
type ErrorInfo struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Domain  string `json:"domain,omitempty"`
}

func (e *ErrorInfo) Error() string {
	if e.Domain != "" {
		return fmt.Sprintf("%s (%s %d)", e.Message, e.Domain, e.Code)
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}
