package simulator

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/chaz8081/flic2-bridge/internal/flic"
	"github.com/chaz8081/flic2-bridge/internal/sdk"
)

// ButtonSpec describes a simulated button. Empty identity fields are
// generated.
type ButtonSpec struct {
	Name             string
	Nickname         string
	BluetoothAddress string
	SerialNumber     string
	UUID             string
	FirmwareRevision uint32
	BatteryVoltage   float32
	TriggerMode      flic.TriggerMode
	LatencyMode      flic.LatencyMode
}

// Button is a simulated live button.
type Button struct {
	m *Manager

	mu               sync.Mutex
	identifier       string
	name             string
	nickname         string
	bluetoothAddress string
	uuid             string
	serialNumber     string
	triggerMode      flic.TriggerMode
	state            flic.ButtonState
	pressCount       uint32
	firmwareRevision uint32
	isReady          bool
	batteryVoltage   float32
	isUnpaired       bool
	latencyMode      flic.LatencyMode
}

var _ sdk.Button = (*Button)(nil)

func newButton(m *Manager, spec ButtonSpec, seq int) *Button {
	id := uuid.New()
	b := &Button{
		m:                m,
		identifier:       strings.ToUpper(id.String()),
		name:             spec.Name,
		nickname:         flic.TruncateNickname(spec.Nickname),
		bluetoothAddress: spec.BluetoothAddress,
		uuid:             spec.UUID,
		serialNumber:     spec.SerialNumber,
		triggerMode:      spec.TriggerMode,
		firmwareRevision: spec.FirmwareRevision,
		batteryVoltage:   spec.BatteryVoltage,
		latencyMode:      spec.LatencyMode,
	}
	if b.uuid == "" {
		b.uuid = strings.ReplaceAll(id.String(), "-", "")
	}
	if b.bluetoothAddress == "" {
		b.bluetoothAddress = fmt.Sprintf("80:E4:DA:7%X:%02X:%02X", (seq>>16)&0xf, (seq>>8)&0xff, seq&0xff)
	}
	if b.serialNumber == "" {
		b.serialNumber = fmt.Sprintf("BA%02d-A%05d", seq%100, seq)
	}
	if b.name == "" {
		b.name = "F2-" + b.serialNumber
	}
	if b.firmwareRevision == 0 {
		b.firmwareRevision = 10
	}
	return b
}

func (b *Button) Identifier() string       { b.mu.Lock(); defer b.mu.Unlock(); return b.identifier }
func (b *Button) Name() string             { b.mu.Lock(); defer b.mu.Unlock(); return b.name }
func (b *Button) Nickname() string         { b.mu.Lock(); defer b.mu.Unlock(); return b.nickname }
func (b *Button) BluetoothAddress() string { b.mu.Lock(); defer b.mu.Unlock(); return b.bluetoothAddress }
func (b *Button) UUID() string             { b.mu.Lock(); defer b.mu.Unlock(); return b.uuid }
func (b *Button) SerialNumber() string     { b.mu.Lock(); defer b.mu.Unlock(); return b.serialNumber }
func (b *Button) State() flic.ButtonState  { b.mu.Lock(); defer b.mu.Unlock(); return b.state }
func (b *Button) PressCount() uint32       { b.mu.Lock(); defer b.mu.Unlock(); return b.pressCount }
func (b *Button) FirmwareRevision() uint32 { b.mu.Lock(); defer b.mu.Unlock(); return b.firmwareRevision }
func (b *Button) IsReady() bool            { b.mu.Lock(); defer b.mu.Unlock(); return b.isReady }
func (b *Button) BatteryVoltage() float32  { b.mu.Lock(); defer b.mu.Unlock(); return b.batteryVoltage }
func (b *Button) IsUnpaired() bool         { b.mu.Lock(); defer b.mu.Unlock(); return b.isUnpaired }

func (b *Button) TriggerMode() flic.TriggerMode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.triggerMode
}

func (b *Button) LatencyMode() flic.LatencyMode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latencyMode
}

// SetNickname stores at most flic.MaxNicknameBytes bytes of nickname.
func (b *Button) SetNickname(nickname string) {
	b.mu.Lock()
	b.nickname = flic.TruncateNickname(nickname)
	b.mu.Unlock()
}

func (b *Button) SetTriggerMode(mode flic.TriggerMode) {
	b.mu.Lock()
	b.triggerMode = mode
	b.mu.Unlock()
}

func (b *Button) SetLatencyMode(mode flic.LatencyMode) error {
	if !mode.Valid() {
		return sdk.FlicError(flic.ErrorUnknown, fmt.Sprintf("invalid latency mode %d", mode))
	}
	b.mu.Lock()
	b.latencyMode = mode
	b.mu.Unlock()
	return nil
}

// Connect moves the button through connecting to connected and ready.
// An unpaired button fails to connect.
func (b *Button) Connect() {
	b.mu.Lock()
	if b.isUnpaired {
		b.state = flic.ButtonStateDisconnected
		b.mu.Unlock()
		b.m.buttonDelegate().ButtonDidFailToConnect(b, sdk.FlicError(flic.ErrorUnpaired, ""))
		return
	}
	if b.state == flic.ButtonStateConnected {
		b.mu.Unlock()
		return
	}
	b.state = flic.ButtonStateConnected
	b.mu.Unlock()

	d := b.m.buttonDelegate()
	d.ButtonDidConnect(b)

	b.mu.Lock()
	b.isReady = true
	b.mu.Unlock()
	d.ButtonIsReady(b)
}

// Disconnect drops the connection; readiness resets until the next
// verified connection.
func (b *Button) Disconnect() {
	b.disconnect(nil)
}

func (b *Button) disconnect(err error) {
	b.mu.Lock()
	if b.state == flic.ButtonStateDisconnected {
		b.mu.Unlock()
		return
	}
	b.state = flic.ButtonStateDisconnected
	b.isReady = false
	b.mu.Unlock()
	b.m.buttonDelegate().ButtonDidDisconnect(b, err)
}
