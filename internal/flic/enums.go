package flic

import "strconv"

// ManagerState mirrors FLICManagerState.
type ManagerState int

const (
	ManagerStateUnknown ManagerState = iota
	ManagerStateResetting
	ManagerStateUnsupported
	ManagerStateUnauthorized
	ManagerStatePoweredOff
	ManagerStatePoweredOn
)

var managerStateNames = [...]string{"unknown", "resetting", "unsupported", "unauthorized", "poweredOff", "poweredOn"}

func (s ManagerState) String() string { return enumName(managerStateNames[:], int(s)) }

// ParseManagerState maps a name as printed by String back to its value.
func ParseManagerState(s string) (ManagerState, bool) {
	i, ok := parseEnum(managerStateNames[:], s)
	return ManagerState(i), ok
}

// ButtonState is the connection state of a button.
type ButtonState int

const (
	ButtonStateDisconnected ButtonState = iota
	ButtonStateConnecting
	ButtonStateConnected
	ButtonStateDisconnecting
)

var buttonStateNames = [...]string{"disconnected", "connecting", "connected", "disconnecting"}

func (s ButtonState) String() string { return enumName(buttonStateNames[:], int(s)) }

// TriggerMode selects which click gestures the button distinguishes.
type TriggerMode int

const (
	TriggerModeClickAndHold TriggerMode = iota
	TriggerModeClickAndDoubleClick
	TriggerModeClickAndDoubleClickAndHold
	TriggerModeClick
)

var triggerModeNames = [...]string{"clickAndHold", "clickAndDoubleClick", "clickAndDoubleClickAndHold", "click"}

func (m TriggerMode) String() string { return enumName(triggerModeNames[:], int(m)) }

// Valid reports whether m is a known trigger mode.
func (m TriggerMode) Valid() bool { return m >= TriggerModeClickAndHold && m <= TriggerModeClick }

// ParseTriggerMode maps a name as printed by String back to its value.
func ParseTriggerMode(s string) (TriggerMode, bool) {
	i, ok := parseEnum(triggerModeNames[:], s)
	return TriggerMode(i), ok
}

// LatencyMode trades battery life for responsiveness.
type LatencyMode int

const (
	LatencyModeNormal LatencyMode = iota
	LatencyModeLow
)

var latencyModeNames = [...]string{"normal", "low"}

func (m LatencyMode) String() string { return enumName(latencyModeNames[:], int(m)) }

// Valid reports whether m is a known latency mode.
func (m LatencyMode) Valid() bool { return m == LatencyModeNormal || m == LatencyModeLow }

// ParseLatencyMode maps a name as printed by String back to its value.
func ParseLatencyMode(s string) (LatencyMode, bool) {
	i, ok := parseEnum(latencyModeNames[:], s)
	return LatencyMode(i), ok
}

// ScannerStatusEvent reports progress of a scan. The last two values are
// produced by the client façade, never by the SDK.
type ScannerStatusEvent int

const (
	ScannerStatusDiscovered ScannerStatusEvent = iota
	ScannerStatusConnected
	ScannerStatusVerified
	ScannerStatusVerificationFailed
	ScannerStatusScanningStarted
	ScannerStatusScanningStopped
)

var scannerStatusNames = [...]string{"discovered", "connected", "verified", "verificationFailed", "scanningStarted", "scanningStopped"}

func (e ScannerStatusEvent) String() string { return enumName(scannerStatusNames[:], int(e)) }

// ScannerErrorCode mirrors FLICButtonScannerErrorCode.
type ScannerErrorCode int

const (
	ScannerErrorUnknown ScannerErrorCode = iota
	ScannerErrorBluetoothNotActivated
	ScannerErrorNoPublicButtonDiscovered
	ScannerErrorBLEPairingFailedPreviousPairingAlreadyExisting
	ScannerErrorBLEPairingFailedUserCanceled
	ScannerErrorBLEPairingFailedUnknownReason
	ScannerErrorAppCredentialsDontMatch
	ScannerErrorUserCanceled
	ScannerErrorInvalidBluetoothAddress
	ScannerErrorGenuineCheckFailed
	ScannerErrorAlreadyConnectedToAnotherDevice
	ScannerErrorTooManyApps
	ScannerErrorCouldNotSetBluetoothNotify
	ScannerErrorCouldNotDiscoverBluetoothServices
	ScannerErrorButtonDisconnectedDuringVerification
	ScannerErrorConnectionTimeout
	ScannerErrorFailedToEstablish
	ScannerErrorConnectionLimitReached
	ScannerErrorInvalidVerifier
	ScannerErrorNotInPublicMode
)

var scannerErrorNames = [...]string{
	"unknown", "bluetoothNotActivated", "noPublicButtonDiscovered",
	"blePairingFailedPreviousPairingAlreadyExisting", "blePairingFailedUserCanceled",
	"blePairingFailedUnknownReason", "appCredentialsDontMatch", "userCanceled",
	"invalidBluetoothAddress", "genuineCheckFailed", "alreadyConnectedToAnotherDevice",
	"tooManyApps", "couldNotSetBluetoothNotify", "couldNotDiscoverBluetoothServices",
	"buttonDisconnectedDuringVerification", "connectionTimeout", "failedToEstablish",
	"connectionLimitReached", "invalidVerifier", "notInPublicMode",
}

func (c ScannerErrorCode) String() string { return enumName(scannerErrorNames[:], int(c)) }

// ParseScannerErrorCode maps a name as printed by String back to its value.
func ParseScannerErrorCode(s string) (ScannerErrorCode, bool) {
	i, ok := parseEnum(scannerErrorNames[:], s)
	return ScannerErrorCode(i), ok
}

// ErrorCode mirrors FLICError.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota
	ErrorNotConfigured
	ErrorCouldNotDiscoverBluetoothServices
	ErrorVerificationSignatureMismatch
	ErrorInvalidUUID
	ErrorGenuineCheckFailed
	ErrorTooManyApps
	ErrorUnpaired
	ErrorUnsupportedOSVersion
	ErrorAlreadyForgotten
)

var errorCodeNames = [...]string{
	"unknown", "notConfigured", "couldNotDiscoverBluetoothServices",
	"verificationSignatureMismatch", "invalidUuid", "genuineCheckFailed",
	"tooManyApps", "unpaired", "unsupportedOSVersion", "alreadyForgotten",
}

func (c ErrorCode) String() string { return enumName(errorCodeNames[:], int(c)) }

// Error domains distinguish the two code spaces above.
const (
	ErrorDomain        = "FLICErrorDomain"
	ScannerErrorDomain = "FLICButtonScannerErrorDomain"
)

func enumName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "unknown(" + strconv.Itoa(i) + ")"
	}
	return names[i]
}

func parseEnum(names []string, s string) (int, bool) {
	for i, n := range names {
		if n == s {
			return i, true
		}
	}
	return 0, false
}
