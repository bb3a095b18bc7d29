package flic

import (
	"encoding/json"
	"testing"
	"unicode/utf8"
)

func TestTruncateNickname(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "kitchen", "kitchen"},
		{"exactly 23", "abcdefghijklmnopqrstuvw", "abcdefghijklmnopqrstuvw"},
		{"ascii overflow", "abcdefghijklmnopqrstuvwxyz", "abcdefghijklmnopqrstuvw"},
		// 11 two-byte runes = 22 bytes, the 12th would straddle byte 23
		{"two-byte boundary", "ææææææææææææ", "ææææææææææææ"[:22]},
		// 5 four-byte runes = 20 bytes, the 6th straddles
		{"four-byte boundary", "🔘🔘🔘🔘🔘🔘", "🔘🔘🔘🔘🔘"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateNickname(tt.in)
			if got != tt.want {
				t.Errorf("TruncateNickname(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if len(got) > MaxNicknameBytes {
				t.Errorf("len = %d, exceeds %d", len(got), MaxNicknameBytes)
			}
			if !utf8.ValidString(got) {
				t.Errorf("result %q is not valid UTF-8", got)
			}
		})
	}
}

func TestButtonJSONFieldNames(t *testing.T) {
	b := Button{
		Identifier:       "id-1",
		Name:             "F2-1",
		Nickname:         "desk",
		BluetoothAddress: "80:E4:DA:70:00:01",
		UUID:             "uuid-1",
		SerialNumber:     "BA12-C34567",
		TriggerMode:      TriggerModeClick,
		State:            ButtonStateConnected,
		PressCount:       42,
		FirmwareRevision: 9,
		IsReady:          true,
		BatteryVoltage:   2.95,
		IsUnpaired:       false,
		LatencyMode:      LatencyModeLow,
	}
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{
		"identifier", "name", "nickname", "bluetoothAddress", "uuid", "serialNumber",
		"triggerMode", "state", "pressCount", "firmwareRevision", "isReady",
		"batteryVoltage", "isUnpaired", "latencyMode",
	} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing JSON field %q", key)
		}
	}
	if raw["triggerMode"] != float64(3) {
		t.Errorf("triggerMode = %v, want numeric 3", raw["triggerMode"])
	}
	if raw["latencyMode"] != float64(1) {
		t.Errorf("latencyMode = %v, want numeric 1", raw["latencyMode"])
	}
}

func TestEnumNumericValues(t *testing.T) {
	if ManagerStatePoweredOn != 5 {
		t.Errorf("ManagerStatePoweredOn = %d, want 5", ManagerStatePoweredOn)
	}
	if ScannerErrorUserCanceled != 7 {
		t.Errorf("ScannerErrorUserCanceled = %d, want 7", ScannerErrorUserCanceled)
	}
	if ScannerErrorNotInPublicMode != 19 {
		t.Errorf("ScannerErrorNotInPublicMode = %d, want 19", ScannerErrorNotInPublicMode)
	}
	if ErrorAlreadyForgotten != 9 {
		t.Errorf("ErrorAlreadyForgotten = %d, want 9", ErrorAlreadyForgotten)
	}
	if ScannerStatusScanningStopped != 5 {
		t.Errorf("ScannerStatusScanningStopped = %d, want 5", ScannerStatusScanningStopped)
	}
}

func TestEnumStrings(t *testing.T) {
	if got := ManagerStatePoweredOff.String(); got != "poweredOff" {
		t.Errorf("String() = %q, want poweredOff", got)
	}
	if got := ManagerState(42).String(); got != "unknown(42)" {
		t.Errorf("String() = %q, want unknown(42)", got)
	}
	m, ok := ParseTriggerMode("clickAndDoubleClickAndHold")
	if !ok || m != TriggerModeClickAndDoubleClickAndHold {
		t.Errorf("ParseTriggerMode() = %v, %v", m, ok)
	}
	if _, ok := ParseLatencyMode("turbo"); ok {
		t.Error("ParseLatencyMode(turbo) should fail")
	}
	if c, ok := ParseScannerErrorCode("userCanceled"); !ok || c != ScannerErrorUserCanceled {
		t.Errorf("ParseScannerErrorCode() = %v, %v", c, ok)
	}
	if s, ok := ParseManagerState("poweredOn"); !ok || s != ManagerStatePoweredOn {
		t.Errorf("ParseManagerState() = %v, %v", s, ok)
	}
}

func TestDisplayName(t *testing.T) {
	b := Button{Name: "F2-1"}
	if b.DisplayName() != "F2-1" {
		t.Errorf("DisplayName() = %q, want F2-1", b.DisplayName())
	}
	b.Nickname = "desk"
	if b.DisplayName() != "desk" {
		t.Errorf("DisplayName() = %q, want desk", b.DisplayName())
	}
}
