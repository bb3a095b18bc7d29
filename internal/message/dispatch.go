package message

import "github.com/chaz8081/flic2-bridge/internal/flic"

// ManagerDelegate receives manager callbacks as method calls.
type ManagerDelegate interface {
	ManagerDidRestoreState()
	ManagerDidUpdateState(state flic.ManagerState)
}

// ButtonDelegate receives button callbacks as method calls. Embed
// NopButtonDelegate to implement only the callbacks of interest.
type ButtonDelegate interface {
	ButtonDidConnect(b flic.Button)
	ButtonIsReady(b flic.Button)
	ButtonDidDisconnectWithError(b flic.Button, err *flic.ErrorInfo)
	ButtonDidFailToConnectWithError(b flic.Button, err *flic.ErrorInfo)
	ButtonDidReceiveButtonDown(b flic.Button, queued bool, age int)
	ButtonDidReceiveButtonUp(b flic.Button, queued bool, age int)
	ButtonDidReceiveButtonClick(b flic.Button, queued bool, age int)
	ButtonDidReceiveButtonDoubleClick(b flic.Button, queued bool, age int)
	ButtonDidReceiveButtonHold(b flic.Button, queued bool, age int)
	ButtonDidUnpairWithError(b flic.Button, err *flic.ErrorInfo)
	ButtonDidUpdateBatteryVoltage(b flic.Button, voltage float32)
	ButtonDidUpdateNickname(b flic.Button, nickname string)
}

// NopManagerDelegate ignores every manager callback.
type NopManagerDelegate struct{}

func (NopManagerDelegate) ManagerDidRestoreState()                {}
func (NopManagerDelegate) ManagerDidUpdateState(flic.ManagerState) {}

// NopButtonDelegate ignores every button callback.
type NopButtonDelegate struct{}

func (NopButtonDelegate) ButtonDidConnect(flic.Button)                                {}
func (NopButtonDelegate) ButtonIsReady(flic.Button)                                   {}
func (NopButtonDelegate) ButtonDidDisconnectWithError(flic.Button, *flic.ErrorInfo)    {}
func (NopButtonDelegate) ButtonDidFailToConnectWithError(flic.Button, *flic.ErrorInfo) {}
func (NopButtonDelegate) ButtonDidReceiveButtonDown(flic.Button, bool, int)           {}
func (NopButtonDelegate) ButtonDidReceiveButtonUp(flic.Button, bool, int)             {}
func (NopButtonDelegate) ButtonDidReceiveButtonClick(flic.Button, bool, int)          {}
func (NopButtonDelegate) ButtonDidReceiveButtonDoubleClick(flic.Button, bool, int)    {}
func (NopButtonDelegate) ButtonDidReceiveButtonHold(flic.Button, bool, int)           {}
func (NopButtonDelegate) ButtonDidUnpairWithError(flic.Button, *flic.ErrorInfo)        {}
func (NopButtonDelegate) ButtonDidUpdateBatteryVoltage(flic.Button, float32)          {}
func (NopButtonDelegate) ButtonDidUpdateNickname(flic.Button, string)                 {}

// DispatchManager calls the delegate method matching m. A nil lookup
// result is a no-op. A message of unknown type yields ErrUnknownMethod.
func DispatchManager(lookup func() ManagerDelegate, m ManagerMessage) error {
	var d ManagerDelegate
	if lookup != nil {
		d = lookup()
	}

	switch m := m.(type) {
	case ManagerDidRestoreState:
		if d != nil {
			d.ManagerDidRestoreState()
		}
	case DidUpdateState:
		if d != nil {
			d.ManagerDidUpdateState(m.State)
		}
	default:
		return unknown(m)
	}
	return nil
}

// DispatchButton calls the delegate method matching m, passing the
// message arguments unchanged. A nil lookup result is a no-op. A message
// of unknown type yields ErrUnknownMethod.
func DispatchButton(lookup func() ButtonDelegate, m ButtonMessage) error {
	var d ButtonDelegate
	if lookup != nil {
		d = lookup()
	}
	if d == nil {
		if !known(m) {
			return unknown(m)
		}
		return nil
	}

	switch m := m.(type) {
	case ButtonDidConnect:
		d.ButtonDidConnect(m.Button)
	case ButtonIsReady:
		d.ButtonIsReady(m.Button)
	case ButtonDidDisconnectWithError:
		d.ButtonDidDisconnectWithError(m.Button, m.Error)
	case ButtonDidFailToConnectWithError:
		d.ButtonDidFailToConnectWithError(m.Button, m.Error)
	case ButtonDidReceiveButtonDown:
		d.ButtonDidReceiveButtonDown(m.Button, m.Queued, m.Age)
	case ButtonDidReceiveButtonUp:
		d.ButtonDidReceiveButtonUp(m.Button, m.Queued, m.Age)
	case ButtonDidReceiveButtonClick:
		d.ButtonDidReceiveButtonClick(m.Button, m.Queued, m.Age)
	case ButtonDidReceiveButtonDoubleClick:
		d.ButtonDidReceiveButtonDoubleClick(m.Button, m.Queued, m.Age)
	case ButtonDidReceiveButtonHold:
		d.ButtonDidReceiveButtonHold(m.Button, m.Queued, m.Age)
	case ButtonDidUnpairWithError:
		d.ButtonDidUnpairWithError(m.Button, m.Error)
	case ButtonDidUpdateBatteryVoltage:
		d.ButtonDidUpdateBatteryVoltage(m.Button, m.Voltage)
	case ButtonDidUpdateNickname:
		d.ButtonDidUpdateNickname(m.Button, m.Nickname)
	default:
		return unknown(m)
	}
	return nil
}

func known(m ButtonMessage) bool {
	switch m.(type) {
	case ButtonDidConnect, ButtonIsReady, ButtonDidDisconnectWithError,
		ButtonDidFailToConnectWithError, ButtonDidReceiveButtonDown,
		ButtonDidReceiveButtonUp, ButtonDidReceiveButtonClick,
		ButtonDidReceiveButtonDoubleClick, ButtonDidReceiveButtonHold,
		ButtonDidUnpairWithError, ButtonDidUpdateBatteryVoltage,
		ButtonDidUpdateNickname:
		return true
	}
	return false
}

func unknown(m interface{ Method() string }) error {
	if m == nil {
		return &UnknownMethodError{Method: "<nil>"}
	}
	return &UnknownMethodError{Method: m.Method()}
}
