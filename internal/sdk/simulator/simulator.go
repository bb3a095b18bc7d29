// Package simulator is an in-memory stand-in for the vendor Flic 2 SDK.
// Tests and the development host drive it directly: state changes,
// presses, battery samples and scripted scans are injected through its
// methods and reported to the configured delegates synchronously.
package simulator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chaz8081/flic2-bridge/internal/flic"
	"github.com/chaz8081/flic2-bridge/internal/sdk"
)

// ErrAlreadyConfigured is returned by a second Configure.
var ErrAlreadyConfigured = errors.New("simulator: manager already configured")

// Gesture selects which press callback Press emits.
type Gesture int

const (
	GestureDown Gesture = iota
	GestureUp
	GestureClick
	GestureDoubleClick
	GestureHold
)

// Discoverable is a button waiting to be found by a scan. A non-zero
// FailWith makes verification fail with that scanner code.
type Discoverable struct {
	Spec     ButtonSpec
	FailWith flic.ScannerErrorCode
}

type pendingScan struct {
	stateChange func(flic.ScannerStatusEvent)
	completion  func(sdk.Button, error)
}

// Manager is a simulated sdk.Manager.
type Manager struct {
	mu           sync.Mutex
	configured   bool
	background   bool
	md           sdk.ManagerDelegate
	bd           sdk.ButtonDelegate
	state        flic.ManagerState
	buttons      []*Button
	forgotten    map[string]bool
	discoverable []Discoverable
	scan         *pendingScan
	seq          int
	autoRestore  bool
}

var _ sdk.Manager = (*Manager)(nil)

// New returns a powered-on manager whose paired list holds paired.
func New(paired ...ButtonSpec) *Manager {
	m := &Manager{
		state:     flic.ManagerStatePoweredOn,
		forgotten: make(map[string]bool),
	}
	for _, spec := range paired {
		m.buttons = append(m.buttons, m.newButton(spec))
	}
	return m
}

func (m *Manager) newButton(spec ButtonSpec) *Button {
	m.seq++
	return newButton(m, spec, m.seq)
}

// RestoreOnConfigure makes Configure report the current state and then
// restore the paired list, the way the vendor manager starts up.
func (m *Manager) RestoreOnConfigure(v bool) {
	m.mu.Lock()
	m.autoRestore = v
	m.mu.Unlock()
}

func (m *Manager) Configure(md sdk.ManagerDelegate, bd sdk.ButtonDelegate, background bool) error {
	m.mu.Lock()
	if m.configured {
		m.mu.Unlock()
		return ErrAlreadyConfigured
	}
	m.configured = true
	m.md, m.bd, m.background = md, bd, background
	restore, state := m.autoRestore, m.state
	m.mu.Unlock()

	if restore && md != nil {
		md.ManagerDidUpdateState(m, state)
		md.ManagerDidRestoreState(m)
	}
	return nil
}

// Configured reports whether Configure succeeded and with which
// background setting.
func (m *Manager) Configured() (configured, background bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configured, m.background
}

func (m *Manager) Buttons() []sdk.Button {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sdk.Button, len(m.buttons))
	for i, b := range m.buttons {
		out[i] = b
	}
	return out
}

// Button returns the paired button with the given uuid.
func (m *Manager) Button(uuid string) (*Button, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.buttons {
		if b.UUID() == uuid {
			return b, true
		}
	}
	return nil, false
}

func (m *Manager) ForgetButton(b sdk.Button, completion func(uuid string, err error)) {
	id := b.UUID()
	m.mu.Lock()
	idx := -1
	for i, pb := range m.buttons {
		if pb.UUID() == id {
			idx = i
			break
		}
	}
	var err error
	switch {
	case idx >= 0:
		m.buttons = append(m.buttons[:idx:idx], m.buttons[idx+1:]...)
		m.forgotten[id] = true
	case m.forgotten[id]:
		err = sdk.FlicError(flic.ErrorAlreadyForgotten, fmt.Sprintf("button %s already forgotten", id))
	default:
		err = sdk.FlicError(flic.ErrorInvalidUUID, fmt.Sprintf("no button with uuid %s", id))
	}
	m.mu.Unlock()

	if err == nil {
		if sb, ok := b.(*Button); ok {
			sb.disconnect(nil)
		}
	}
	if completion != nil {
		completion(id, err)
	}
}

func (m *Manager) ScanForButtons(stateChange func(flic.ScannerStatusEvent), completion func(sdk.Button, error)) {
	m.mu.Lock()
	if m.state != flic.ManagerStatePoweredOn {
		m.mu.Unlock()
		completion(nil, sdk.ScannerError(flic.ScannerErrorBluetoothNotActivated))
		return
	}
	prev := m.scan
	m.scan = &pendingScan{stateChange: stateChange, completion: completion}
	m.mu.Unlock()

	// A new scan supersedes the previous one.
	if prev != nil {
		prev.completion(nil, sdk.ScannerError(flic.ScannerErrorUserCanceled))
	}
	m.runScan()
}

func (m *Manager) StopScan() {
	m.mu.Lock()
	scan := m.scan
	m.scan = nil
	m.mu.Unlock()
	if scan != nil {
		scan.completion(nil, sdk.ScannerError(flic.ScannerErrorUserCanceled))
	}
}

func (m *Manager) State() flic.ManagerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsScanning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scan != nil
}

// AddDiscoverable makes a button available to the current or next scan.
func (m *Manager) AddDiscoverable(d Discoverable) {
	m.mu.Lock()
	m.discoverable = append(m.discoverable, d)
	m.mu.Unlock()
	m.runScan()
}

// runScan completes the pending scan against the first discoverable.
func (m *Manager) runScan() {
	m.mu.Lock()
	if m.scan == nil || len(m.discoverable) == 0 {
		m.mu.Unlock()
		return
	}
	scan := m.scan
	d := m.discoverable[0]
	m.discoverable = m.discoverable[1:]
	m.scan = nil
	m.mu.Unlock()

	scan.stateChange(flic.ScannerStatusDiscovered)
	scan.stateChange(flic.ScannerStatusConnected)
	if d.FailWith != flic.ScannerErrorUnknown {
		scan.stateChange(flic.ScannerStatusVerificationFailed)
		scan.completion(nil, sdk.ScannerError(d.FailWith))
		return
	}
	scan.stateChange(flic.ScannerStatusVerified)

	m.mu.Lock()
	b := m.newButton(d.Spec)
	b.state = flic.ButtonStateConnected
	b.isReady = true
	m.buttons = append(m.buttons, b)
	m.mu.Unlock()

	scan.completion(b, nil)
}

// SetState changes the manager state and reports it.
func (m *Manager) SetState(state flic.ManagerState) {
	m.mu.Lock()
	m.state = state
	md := m.md
	m.mu.Unlock()
	if md != nil {
		md.ManagerDidUpdateState(m, state)
	}
}

// Restore reports that the paired list has been restored.
func (m *Manager) Restore() {
	m.mu.Lock()
	md := m.md
	m.mu.Unlock()
	if md != nil {
		md.ManagerDidRestoreState(m)
	}
}

// Press emits a press callback for the button with the given uuid and
// bumps its press counter.
func (m *Manager) Press(uuid string, g Gesture, queued bool, age int) error {
	b, ok := m.Button(uuid)
	if !ok {
		return fmt.Errorf("simulator: no button %s", uuid)
	}
	b.mu.Lock()
	b.pressCount++
	b.mu.Unlock()

	d := m.buttonDelegate()
	switch g {
	case GestureDown:
		d.ButtonDidReceiveButtonDown(b, queued, age)
	case GestureUp:
		d.ButtonDidReceiveButtonUp(b, queued, age)
	case GestureClick:
		d.ButtonDidReceiveButtonClick(b, queued, age)
	case GestureDoubleClick:
		d.ButtonDidReceiveButtonDoubleClick(b, queued, age)
	case GestureHold:
		d.ButtonDidReceiveButtonHold(b, queued, age)
	default:
		return fmt.Errorf("simulator: unknown gesture %d", g)
	}
	return nil
}

// UpdateBattery records a battery sample and reports it.
func (m *Manager) UpdateBattery(uuid string, voltage float32) error {
	b, ok := m.Button(uuid)
	if !ok {
		return fmt.Errorf("simulator: no button %s", uuid)
	}
	b.mu.Lock()
	b.batteryVoltage = voltage
	b.mu.Unlock()
	m.buttonDelegate().ButtonDidUpdateBatteryVoltage(b, voltage)
	return nil
}

// RemoteRename reports a nickname set by another app.
func (m *Manager) RemoteRename(uuid, nickname string) error {
	b, ok := m.Button(uuid)
	if !ok {
		return fmt.Errorf("simulator: no button %s", uuid)
	}
	b.SetNickname(nickname)
	m.buttonDelegate().ButtonDidUpdateNickname(b, b.Nickname())
	return nil
}

// Unpair marks the button unpaired, as when it was factory reset.
func (m *Manager) Unpair(uuid string) error {
	b, ok := m.Button(uuid)
	if !ok {
		return fmt.Errorf("simulator: no button %s", uuid)
	}
	b.mu.Lock()
	b.isUnpaired = true
	b.mu.Unlock()
	b.disconnect(sdk.FlicError(flic.ErrorUnpaired, ""))
	m.buttonDelegate().ButtonDidUnpair(b, sdk.FlicError(flic.ErrorUnpaired, ""))
	return nil
}

func (m *Manager) buttonDelegate() sdk.ButtonDelegate {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bd == nil {
		return nopButtonDelegate{}
	}
	return m.bd
}

type nopButtonDelegate struct{}

func (nopButtonDelegate) ButtonDidConnect(sdk.Button)                             {}
func (nopButtonDelegate) ButtonIsReady(sdk.Button)                                {}
func (nopButtonDelegate) ButtonDidDisconnect(sdk.Button, error)                   {}
func (nopButtonDelegate) ButtonDidFailToConnect(sdk.Button, error)                {}
func (nopButtonDelegate) ButtonDidReceiveButtonDown(sdk.Button, bool, int)        {}
func (nopButtonDelegate) ButtonDidReceiveButtonUp(sdk.Button, bool, int)          {}
func (nopButtonDelegate) ButtonDidReceiveButtonClick(sdk.Button, bool, int)       {}
func (nopButtonDelegate) ButtonDidReceiveButtonDoubleClick(sdk.Button, bool, int) {}
func (nopButtonDelegate) ButtonDidReceiveButtonHold(sdk.Button, bool, int)        {}
func (nopButtonDelegate) ButtonDidUnpair(sdk.Button, error)                       {}
func (nopButtonDelegate) ButtonDidUpdateBatteryVoltage(sdk.Button, float32)       {}
func (nopButtonDelegate) ButtonDidUpdateNickname(sdk.Button, string)              {}
