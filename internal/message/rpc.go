package message

import "github.com/chaz8081/flic2-bridge/internal/flic"

// Plugin call names.
const (
	CallConfigureWithDelegate             = "configureWithDelegate"
	CallButtons                           = "buttons"
	CallForgetButton                      = "forgetButton"
	CallSetNickname                       = "setNickname"
	CallSetTriggerMode                    = "setTriggerMode"
	CallSetLatencyMode                    = "setLatencyMode"
	CallConnect                           = "connect"
	CallDisconnect                        = "disconnect"
	CallScanForButtons                    = "scanForButtonsWithStateChangeHandler"
	CallStopScan                          = "stopScan"
	CallGetState                          = "getState"
	CallGetIsScanning                     = "getIsScanning"
	CallRegisterFLICManagerMessageHandler = "registerFLICManagerMessageHandler"
	CallRegisterFLICButtonMessageHandler  = "registerFLICButtonMessageHandler"
)

// PluginErrorDomain is the domain of rejections produced by the plugin
// itself rather than the SDK.
const PluginErrorDomain = "Flic2PluginErrorDomain"

// Plugin error codes.
const (
	PluginErrorAlreadyConfigured = iota + 1
	PluginErrorInvalidArgument
	PluginErrorUnknownMethod
)

type ConfigureRequest struct {
	Background bool `json:"background"`
}

// UUIDRequest addresses one button. forgetButton answers with the same
// shape.
type UUIDRequest struct {
	UUID string `json:"uuid"`
}

type NicknameRequest struct {
	UUID     string `json:"uuid"`
	Nickname string `json:"nickname"`
}

type TriggerModeRequest struct {
	UUID        string           `json:"uuid"`
	TriggerMode flic.TriggerMode `json:"triggerMode"`
}

type LatencyModeRequest struct {
	UUID        string           `json:"uuid"`
	LatencyMode flic.LatencyMode `json:"latencyMode"`
}

type ButtonsResponse struct {
	Buttons []flic.Button `json:"buttons"`
}

type ButtonResponse struct {
	Button flic.Button `json:"button"`
}

type StateResponse struct {
	State flic.ManagerState `json:"state"`
}

type IsScanningResponse struct {
	IsScanning bool `json:"isScanning"`
}

// ScanProgress is an intermediate result of a scan call.
type ScanProgress struct {
	ScannerStateChanged struct {
		Event flic.ScannerStatusEvent `json:"event"`
	} `json:"scannerStateChanged"`
}

// ScanResolved is the successful answer to a scan call.
type ScanResolved struct {
	Resolved struct {
		Button flic.Button `json:"button"`
	} `json:"resolved"`
}

// ScanRejected is carried in the data of a scan call's rejection.
type ScanRejected struct {
	Rejected struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	} `json:"rejected"`
}
