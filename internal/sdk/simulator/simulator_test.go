package simulator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaz8081/flic2-bridge/internal/flic"
	"github.com/chaz8081/flic2-bridge/internal/sdk"
)

type recorder struct {
	nopButtonDelegate
	events   []string
	restored int
	states   []flic.ManagerState
}

func (r *recorder) ManagerDidRestoreState(sdk.Manager) { r.restored++ }
func (r *recorder) ManagerDidUpdateState(_ sdk.Manager, s flic.ManagerState) {
	r.states = append(r.states, s)
}
func (r *recorder) ButtonDidConnect(sdk.Button) { r.events = append(r.events, "connect") }
func (r *recorder) ButtonIsReady(sdk.Button)    { r.events = append(r.events, "ready") }
func (r *recorder) ButtonDidDisconnect(sdk.Button, error) {
	r.events = append(r.events, "disconnect")
}
func (r *recorder) ButtonDidFailToConnect(sdk.Button, error) {
	r.events = append(r.events, "failToConnect")
}
func (r *recorder) ButtonDidReceiveButtonClick(sdk.Button, bool, int) {
	r.events = append(r.events, "click")
}
func (r *recorder) ButtonDidUnpair(sdk.Button, error) { r.events = append(r.events, "unpair") }

func newConfigured(t *testing.T, paired ...ButtonSpec) (*Manager, *recorder) {
	t.Helper()
	m := New(paired...)
	r := &recorder{}
	require.NoError(t, m.Configure(r, r, true))
	return m, r
}

func TestConfigureOnce(t *testing.T) {
	m, r := newConfigured(t)
	err := m.Configure(r, r, false)
	assert.ErrorIs(t, err, ErrAlreadyConfigured)
	configured, background := m.Configured()
	assert.True(t, configured)
	assert.True(t, background)
}

func TestGeneratedIdentity(t *testing.T) {
	m := New(ButtonSpec{}, ButtonSpec{Name: "mine", Nickname: "a very long nickname that overflows"})
	bs := m.Buttons()
	require.Len(t, bs, 2)
	assert.Len(t, bs[0].UUID(), 32)
	assert.NotEqual(t, bs[0].UUID(), bs[1].UUID())
	assert.NotEqual(t, bs[0].BluetoothAddress(), bs[1].BluetoothAddress())
	assert.Equal(t, "mine", bs[1].Name())
	assert.LessOrEqual(t, len(bs[1].Nickname()), flic.MaxNicknameBytes)
}

func TestStateAndRestore(t *testing.T) {
	m, r := newConfigured(t)
	m.SetState(flic.ManagerStatePoweredOff)
	m.Restore()
	assert.Equal(t, []flic.ManagerState{flic.ManagerStatePoweredOff}, r.states)
	assert.Equal(t, 1, r.restored)
	assert.Equal(t, flic.ManagerStatePoweredOff, m.State())
}

func TestConnectDisconnectResetsReady(t *testing.T) {
	m, r := newConfigured(t, ButtonSpec{UUID: "u1"})
	b, _ := m.Button("u1")

	b.Connect()
	assert.True(t, b.IsReady())
	assert.Equal(t, flic.ButtonStateConnected, b.State())

	b.Disconnect()
	assert.False(t, b.IsReady())
	assert.Equal(t, []string{"connect", "ready", "disconnect"}, r.events)
}

func TestUnpairedButtonFailsToConnect(t *testing.T) {
	m, r := newConfigured(t, ButtonSpec{UUID: "u1"})
	require.NoError(t, m.Unpair("u1"))
	b, _ := m.Button("u1")
	assert.True(t, b.IsUnpaired())

	b.Connect()
	assert.Equal(t, []string{"unpair", "failToConnect"}, r.events)
}

func TestPressCountsUp(t *testing.T) {
	m, r := newConfigured(t, ButtonSpec{UUID: "u1"})
	require.NoError(t, m.Press("u1", GestureClick, false, 0))
	require.NoError(t, m.Press("u1", GestureClick, true, 5))
	b, _ := m.Button("u1")
	assert.Equal(t, uint32(2), b.PressCount())
	assert.Equal(t, []string{"click", "click"}, r.events)
	assert.Error(t, m.Press("nope", GestureClick, false, 0))
}

func TestForgetTwice(t *testing.T) {
	m, _ := newConfigured(t, ButtonSpec{UUID: "u1"})
	b, _ := m.Button("u1")

	var gotUUID string
	var gotErr error
	m.ForgetButton(b, func(uuid string, err error) { gotUUID, gotErr = uuid, err })
	assert.Equal(t, "u1", gotUUID)
	assert.NoError(t, gotErr)
	assert.Empty(t, m.Buttons())

	m.ForgetButton(b, func(_ string, err error) { gotErr = err })
	var e *sdk.Error
	require.True(t, errors.As(gotErr, &e))
	assert.Equal(t, int(flic.ErrorAlreadyForgotten), e.Code)
}

func TestScanSucceeds(t *testing.T) {
	m, _ := newConfigured(t)
	var events []flic.ScannerStatusEvent
	var found sdk.Button
	var scanErr error
	calls := 0

	m.ScanForButtons(func(e flic.ScannerStatusEvent) { events = append(events, e) },
		func(b sdk.Button, err error) { found, scanErr = b, err; calls++ })
	assert.True(t, m.IsScanning())
	assert.Zero(t, calls, "scan waits for a discoverable button")

	m.AddDiscoverable(Discoverable{Spec: ButtonSpec{Name: "new"}})
	assert.Equal(t, 1, calls)
	assert.NoError(t, scanErr)
	require.NotNil(t, found)
	assert.Equal(t, "new", found.Name())
	assert.Equal(t, []flic.ScannerStatusEvent{
		flic.ScannerStatusDiscovered, flic.ScannerStatusConnected, flic.ScannerStatusVerified,
	}, events)
	assert.False(t, m.IsScanning())
	assert.Len(t, m.Buttons(), 1)
}

func TestScanVerificationFails(t *testing.T) {
	m, _ := newConfigured(t)
	m.AddDiscoverable(Discoverable{FailWith: flic.ScannerErrorGenuineCheckFailed})

	var events []flic.ScannerStatusEvent
	var scanErr error
	m.ScanForButtons(func(e flic.ScannerStatusEvent) { events = append(events, e) },
		func(_ sdk.Button, err error) { scanErr = err })

	assert.Equal(t, flic.ScannerStatusVerificationFailed, events[len(events)-1])
	var e *sdk.Error
	require.ErrorAs(t, scanErr, &e)
	assert.Equal(t, int(flic.ScannerErrorGenuineCheckFailed), e.Code)
	assert.Empty(t, m.Buttons())
}

func TestStopScanCancels(t *testing.T) {
	m, _ := newConfigured(t)
	var scanErr error
	m.ScanForButtons(func(flic.ScannerStatusEvent) {}, func(_ sdk.Button, err error) { scanErr = err })
	m.StopScan()

	var e *sdk.Error
	require.ErrorAs(t, scanErr, &e)
	assert.Equal(t, int(flic.ScannerErrorUserCanceled), e.Code)
	assert.False(t, m.IsScanning())
}

func TestScanWithBluetoothOff(t *testing.T) {
	m, _ := newConfigured(t)
	m.SetState(flic.ManagerStatePoweredOff)

	var scanErr error
	m.ScanForButtons(func(flic.ScannerStatusEvent) {}, func(_ sdk.Button, err error) { scanErr = err })
	var e *sdk.Error
	require.ErrorAs(t, scanErr, &e)
	assert.Equal(t, int(flic.ScannerErrorBluetoothNotActivated), e.Code)
}

func TestRestoreOnConfigure(t *testing.T) {
	m := New(ButtonSpec{UUID: "u1"})
	m.RestoreOnConfigure(true)
	r := &recorder{}
	require.NoError(t, m.Configure(r, r, false))
	assert.Equal(t, []flic.ManagerState{flic.ManagerStatePoweredOn}, r.states)
	assert.Equal(t, 1, r.restored)
}
