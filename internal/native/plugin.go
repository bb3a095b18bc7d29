package native

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chaz8081/flic2-bridge/internal/bridge"
	"github.com/chaz8081/flic2-bridge/internal/flic"
	"github.com/chaz8081/flic2-bridge/internal/message"
	"github.com/chaz8081/flic2-bridge/internal/sdk"
)

// ErrorDomain is the domain of rejections produced by the plugin itself
// rather than the SDK.
const ErrorDomain = message.PluginErrorDomain

// Plugin error codes. A call made before configuration is rejected with
// flic.ErrorNotConfigured in the FLIC domain instead.
const (
	ErrorAlreadyConfigured = message.PluginErrorAlreadyConfigured
	ErrorInvalidArgument   = message.PluginErrorInvalidArgument
	ErrorUnknownMethod     = message.PluginErrorUnknownMethod
)

func pluginError(code int, format string, args ...any) *bridge.RemoteError {
	return &bridge.RemoteError{Message: fmt.Sprintf(format, args...), Code: code, Domain: ErrorDomain}
}

// Plugin answers the façade's calls against an SDK manager.
type Plugin struct {
	manager sdk.Manager
	adapter *Adapter
	methods map[string]func(*bridge.Call) error

	mu         sync.Mutex
	configured bool
	forgotten  map[string]bool
}

var _ bridge.Handler = (*Plugin)(nil)

// NewPlugin returns a plugin for manager. The manager is configured on the
// first configureWithDelegate call.
func NewPlugin(manager sdk.Manager) *Plugin {
	p := &Plugin{
		manager:   manager,
		adapter:   NewAdapter(),
		forgotten: make(map[string]bool),
	}
	p.methods = map[string]func(*bridge.Call) error{
		message.CallConfigureWithDelegate:             p.configure,
		message.CallButtons:                           p.buttons,
		message.CallForgetButton:                      p.forgetButton,
		message.CallSetNickname:                       p.setNickname,
		message.CallSetTriggerMode:                    p.setTriggerMode,
		message.CallSetLatencyMode:                    p.setLatencyMode,
		message.CallConnect:                           p.connect,
		message.CallDisconnect:                        p.disconnect,
		message.CallScanForButtons:                    p.scan,
		message.CallStopScan:                          p.stopScan,
		message.CallGetState:                          p.getState,
		message.CallGetIsScanning:                     p.getIsScanning,
		message.CallRegisterFLICManagerMessageHandler: p.registerManager,
		message.CallRegisterFLICButtonMessageHandler:  p.registerButton,
	}
	return p
}

// Adapter returns the delegate adapter the manager is configured with.
func (p *Plugin) Adapter() *Adapter { return p.adapter }

// Close releases the registered message handlers.
func (p *Plugin) Close() {
	p.adapter.Close()
}

// Handle dispatches one call. A method that returns an error has the
// call rejected with it; otherwise the method has answered (or will
// answer) the call itself.
func (p *Plugin) Handle(_ context.Context, call *bridge.Call) {
	fn, ok := p.methods[call.Method]
	if !ok {
		slog.Warn("[FLIC] unknown plugin method", "method", call.Method)
		call.Reject(pluginError(ErrorUnknownMethod, "method %q is not implemented", call.Method))
		return
	}
	if !p.exempt(call.Method) && !p.isConfigured() {
		call.Reject(remoteError(sdk.FlicError(flic.ErrorNotConfigured, "manager is not configured")))
		return
	}
	if err := fn(call); err != nil {
		slog.Debug("[FLIC] call rejected", "method", call.Method, "error", err)
		if rerr := call.Reject(remoteError(err)); rerr != nil {
			slog.Warn("[FLIC] failed to reject call", "method", call.Method, "error", rerr)
		}
	}
}

// exempt lists the calls allowed before configuration. Handlers must be
// registered before configuring so the restore event is not dropped.
func (p *Plugin) exempt(method string) bool {
	switch method {
	case message.CallConfigureWithDelegate,
		message.CallRegisterFLICManagerMessageHandler,
		message.CallRegisterFLICButtonMessageHandler:
		return true
	}
	return false
}

func (p *Plugin) isConfigured() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.configured
}

// remoteError converts SDK errors to their domain and code.
func remoteError(err error) *bridge.RemoteError {
	var re *bridge.RemoteError
	if errors.As(err, &re) {
		return re
	}
	var se *sdk.Error
	if errors.As(err, &se) {
		return &bridge.RemoteError{Message: se.Message, Code: se.Code, Domain: se.Domain}
	}
	return &bridge.RemoteError{Message: err.Error()}
}

func (p *Plugin) configure(call *bridge.Call) error {
	var req message.ConfigureRequest
	if err := call.Decode(&req); err != nil {
		return pluginError(ErrorInvalidArgument, "%v", err)
	}

	p.mu.Lock()
	if p.configured {
		p.mu.Unlock()
		return pluginError(ErrorAlreadyConfigured, "manager already configured")
	}
	p.configured = true
	p.mu.Unlock()

	if err := p.manager.Configure(p.adapter, p.adapter, req.Background); err != nil {
		p.mu.Lock()
		p.configured = false
		p.mu.Unlock()
		return fmt.Errorf("configure manager: %w", err)
	}
	slog.Info("[FLIC] manager configured", "background", req.Background)
	return call.Resolve(nil)
}

func (p *Plugin) buttons(call *bridge.Call) error {
	live := p.manager.Buttons()
	resp := message.ButtonsResponse{Buttons: make([]flic.Button, 0, len(live))}
	for _, b := range live {
		resp.Buttons = append(resp.Buttons, Snapshot(b))
	}
	return call.Resolve(resp)
}

// lookup finds a paired button by uuid. A uuid that was forgotten through
// this plugin is reported as such.
func (p *Plugin) lookup(uuid string) (sdk.Button, error) {
	if uuid == "" {
		return nil, pluginError(ErrorInvalidArgument, "uuid is required")
	}
	for _, b := range p.manager.Buttons() {
		if b.UUID() == uuid {
			return b, nil
		}
	}
	p.mu.Lock()
	forgotten := p.forgotten[uuid]
	p.mu.Unlock()
	if forgotten {
		return nil, sdk.FlicError(flic.ErrorAlreadyForgotten, fmt.Sprintf("button %s already forgotten", uuid))
	}
	return nil, sdk.FlicError(flic.ErrorInvalidUUID, fmt.Sprintf("no button with uuid %s", uuid))
}

func (p *Plugin) decodeUUID(call *bridge.Call) (sdk.Button, error) {
	var req message.UUIDRequest
	if err := call.Decode(&req); err != nil {
		return nil, pluginError(ErrorInvalidArgument, "%v", err)
	}
	return p.lookup(req.UUID)
}

func (p *Plugin) forgetButton(call *bridge.Call) error {
	b, err := p.decodeUUID(call)
	if err != nil {
		return err
	}
	p.manager.ForgetButton(b, func(uuid string, err error) {
		if err != nil {
			call.Reject(remoteError(err))
			return
		}
		p.mu.Lock()
		p.forgotten[uuid] = true
		p.mu.Unlock()
		slog.Info("[FLIC] button forgotten", "uuid", uuid)
		call.Resolve(message.UUIDRequest{UUID: uuid})
	})
	return nil
}

func (p *Plugin) setNickname(call *bridge.Call) error {
	var req message.NicknameRequest
	if err := call.Decode(&req); err != nil {
		return pluginError(ErrorInvalidArgument, "%v", err)
	}
	b, err := p.lookup(req.UUID)
	if err != nil {
		return err
	}
	b.SetNickname(flic.TruncateNickname(req.Nickname))
	return call.Resolve(message.ButtonResponse{Button: Snapshot(b)})
}

func (p *Plugin) setTriggerMode(call *bridge.Call) error {
	var req message.TriggerModeRequest
	if err := call.Decode(&req); err != nil {
		return pluginError(ErrorInvalidArgument, "%v", err)
	}
	if !req.TriggerMode.Valid() {
		return pluginError(ErrorInvalidArgument, "invalid trigger mode %d", int(req.TriggerMode))
	}
	b, err := p.lookup(req.UUID)
	if err != nil {
		return err
	}
	b.SetTriggerMode(req.TriggerMode)
	return call.Resolve(message.ButtonResponse{Button: Snapshot(b)})
}

func (p *Plugin) setLatencyMode(call *bridge.Call) error {
	var req message.LatencyModeRequest
	if err := call.Decode(&req); err != nil {
		return pluginError(ErrorInvalidArgument, "%v", err)
	}
	if !req.LatencyMode.Valid() {
		return pluginError(ErrorInvalidArgument, "invalid latency mode %d", int(req.LatencyMode))
	}
	b, err := p.lookup(req.UUID)
	if err != nil {
		return err
	}
	if err := b.SetLatencyMode(req.LatencyMode); err != nil {
		return err
	}
	return call.Resolve(message.ButtonResponse{Button: Snapshot(b)})
}

func (p *Plugin) connect(call *bridge.Call) error {
	b, err := p.decodeUUID(call)
	if err != nil {
		return err
	}
	// Resolve first: the connection outcome arrives as button messages.
	if err := call.Resolve(nil); err != nil {
		return err
	}
	b.Connect()
	return nil
}

func (p *Plugin) disconnect(call *bridge.Call) error {
	b, err := p.decodeUUID(call)
	if err != nil {
		return err
	}
	if err := call.Resolve(nil); err != nil {
		return err
	}
	b.Disconnect()
	return nil
}

func (p *Plugin) scan(call *bridge.Call) error {
	if !call.KeepAlive {
		return pluginError(ErrorInvalidArgument, "%s requires a persistent callback", call.Method)
	}
	slog.Info("[FLIC] scan started", "id", call.ID)
	p.manager.ScanForButtons(
		func(event flic.ScannerStatusEvent) {
			slog.Debug("[FLIC] scanner state changed", "event", event.String())
			var progress message.ScanProgress
			progress.ScannerStateChanged.Event = event
			if err := call.Send(progress); err != nil {
				slog.Warn("[FLIC] failed to send scanner state", "event", event.String(), "error", err)
			}
		},
		func(b sdk.Button, err error) {
			if err != nil {
				slog.Info("[FLIC] scan failed", "id", call.ID, "error", err)
				call.Reject(scanRejection(err))
				return
			}
			slog.Info("[FLIC] scan found button", "id", call.ID, "uuid", b.UUID())
			var resolved message.ScanResolved
			resolved.Resolved.Button = Snapshot(b)
			call.Resolve(resolved)
		},
	)
	return nil
}

// scanRejection carries the scanner code in the rejection data as well as
// in the error itself.
func scanRejection(err error) *bridge.RemoteError {
	re := remoteError(err)
	var rejected message.ScanRejected
	rejected.Rejected.Error = re.Message
	rejected.Rejected.Code = re.Code
	if data, merr := json.Marshal(rejected); merr == nil {
		re.Data = data
	}
	return re
}

func (p *Plugin) stopScan(call *bridge.Call) error {
	p.manager.StopScan()
	return call.Resolve(nil)
}

func (p *Plugin) getState(call *bridge.Call) error {
	return call.Resolve(message.StateResponse{State: p.manager.State()})
}

func (p *Plugin) getIsScanning(call *bridge.Call) error {
	return call.Resolve(message.IsScanningResponse{IsScanning: p.manager.IsScanning()})
}

func (p *Plugin) registerManager(call *bridge.Call) error {
	if !call.KeepAlive {
		return pluginError(ErrorInvalidArgument, "%s requires a persistent callback", call.Method)
	}
	p.adapter.RegisterManager(call)
	return nil
}

func (p *Plugin) registerButton(call *bridge.Call) error {
	if !call.KeepAlive {
		return pluginError(ErrorInvalidArgument, "%s requires a persistent callback", call.Method)
	}
	p.adapter.RegisterButton(call)
	return nil
}
