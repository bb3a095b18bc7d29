package flic2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chaz8081/flic2-bridge/internal/bridge"
	"github.com/chaz8081/flic2-bridge/internal/flic"
	"github.com/chaz8081/flic2-bridge/internal/message"
)

// ScanHandler receives the progress and outcome of one scan. Every field
// is optional. StateChanged sees ScanningStarted first and ScanningStopped
// last; exactly one of Succeeded, Cancelled or Failed follows.
type ScanHandler struct {
	StateChanged func(flic.ScannerStatusEvent)
	Succeeded    func(flic.Button)
	Cancelled    func()
	Failed       func(error)
}

// scanSession is driven only from the transport's event goroutine.
type scanSession struct {
	h          ScanHandler
	onProtocol func(error)
	started    bool
	terminated bool
}

func (s *scanSession) start() {
	if s.started {
		return
	}
	s.started = true
	s.stateChanged(flic.ScannerStatusScanningStarted)
}

func (s *scanSession) stateChanged(e flic.ScannerStatusEvent) {
	if s.h.StateChanged != nil {
		s.h.StateChanged(e)
	}
}

func (s *scanSession) event(raw json.RawMessage) {
	if s.terminated {
		return
	}
	s.start()
	var p message.ScanProgress
	if err := json.Unmarshal(raw, &p); err != nil {
		s.onProtocol(fmt.Errorf("flic2: decode scan progress: %w", err))
		return
	}
	s.stateChanged(p.ScannerStateChanged.Event)
}

func (s *scanSession) done(raw json.RawMessage, err error) {
	if s.terminated {
		return
	}
	s.start()
	s.terminated = true
	s.stateChanged(flic.ScannerStatusScanningStopped)

	if err == nil {
		var r message.ScanResolved
		if uerr := json.Unmarshal(raw, &r); uerr != nil {
			uerr = fmt.Errorf("flic2: decode scan result: %w", uerr)
			s.onProtocol(uerr)
			s.failed(uerr)
			return
		}
		slog.Info("[FLIC] scan succeeded", "uuid", r.Resolved.Button.UUID)
		if s.h.Succeeded != nil {
			s.h.Succeeded(r.Resolved.Button)
		}
		return
	}

	serr := scanError(err)
	if isUserCanceled(serr) {
		slog.Info("[FLIC] scan cancelled")
		if s.h.Cancelled != nil {
			s.h.Cancelled()
		}
		return
	}
	slog.Warn("[FLIC] scan failed", "error", serr)
	s.failed(serr)
}

func (s *scanSession) failed(err error) {
	if s.h.Failed != nil {
		s.h.Failed(err)
	}
}

// scanError turns a scan rejection into a *flic.ErrorInfo. The code in
// the rejection data wins over the one on the error itself.
func scanError(err error) error {
	var re *bridge.RemoteError
	if !errors.As(err, &re) {
		return err
	}
	info := &flic.ErrorInfo{Message: re.Message, Code: re.Code, Domain: re.Domain}
	if len(re.Data) > 0 {
		var data message.ScanRejected
		if json.Unmarshal(re.Data, &data) == nil {
			info.Code = data.Rejected.Code
			if data.Rejected.Error != "" {
				info.Message = data.Rejected.Error
			}
			if info.Domain == "" {
				info.Domain = flic.ScannerErrorDomain
			}
		}
	}
	return info
}

func isUserCanceled(err error) bool {
	var info *flic.ErrorInfo
	return errors.As(err, &info) &&
		info.Domain == flic.ScannerErrorDomain &&
		info.Code == int(flic.ScannerErrorUserCanceled)
}

// ScanForButtonsWithStateChangeHandler starts a scan and returns once the
// native side has been asked to scan. Progress and the outcome arrive on
// h from the transport's event goroutine. Starting a scan while another
// is in flight cancels the earlier one.
func (m *Manager) ScanForButtonsWithStateChangeHandler(ctx context.Context, h ScanHandler) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	s := &scanSession{h: h, onProtocol: m.onProtocolError}
	if _, err := m.t.Stream(ctx, message.CallScanForButtons, struct{}{}, bridge.StreamHandler{
		Event: s.event,
		Done:  s.done,
	}); err != nil {
		return fmt.Errorf("flic2: %s: %w", message.CallScanForButtons, err)
	}
	m.t.Post(s.start)
	return nil
}
