package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/chaz8081/flic2-bridge/internal/flic"
	"github.com/chaz8081/flic2-bridge/internal/flic2"
	"github.com/chaz8081/flic2-bridge/internal/message"
)

// env is what every command runs against.
type env struct {
	m       *flic2.Manager
	out     io.Writer
	timeout time.Duration
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"buttons":    {"buttons", runButtons},
	"state":      {"state", runState},
	"scan":       {"scan", runScan},
	"stop-scan":  {"stop-scan", runStopScan},
	"forget":     {"forget <uuid>", runForget},
	"nickname":   {"nickname <uuid> <nickname>", runNickname},
	"trigger":    {"trigger <uuid> <clickAndHold|clickAndDoubleClick|clickAndDoubleClickAndHold|click>", runTrigger},
	"latency":    {"latency <uuid> <normal|low>", runLatency},
	"connect":    {"connect <uuid>", runConnect},
	"disconnect": {"disconnect <uuid>", runDisconnect},
	"watch":      {"watch", runWatch},
}

var errUsage = errors.New("usage")

func commandUsage() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "  %s\n", commands[name].usage)
	}
	return b.String()
}

// dispatch runs the command named by args[0].
func dispatch(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	if err := cmd.run(ctx, e, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return fmt.Errorf("usage: %s", cmd.usage)
		}
		return err
	}
	return nil
}

// rpc bounds one request by the configured timeout.
func (e *env) rpc(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.timeout)
}

func runButtons(ctx context.Context, e *env, args []string) error {
	ctx, cancel := e.rpc(ctx)
	defer cancel()
	buttons, err := e.m.Buttons(ctx)
	if err != nil {
		return err
	}
	printButtons(e.out, buttons)
	return nil
}

func runState(ctx context.Context, e *env, args []string) error {
	ctx, cancel := e.rpc(ctx)
	defer cancel()
	state, err := e.m.State(ctx)
	if err != nil {
		return err
	}
	scanning, err := e.m.IsScanning(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "state: %s\nscanning: %t\n", state, scanning)
	return nil
}

// runScan scans until a button is paired, the scan fails, or ctx is done.
// Cancelling ctx stops the scan and waits for it to report cancellation.
func runScan(ctx context.Context, e *env, args []string) error {
	done := make(chan error, 1)
	err := e.m.ScanForButtonsWithStateChangeHandler(ctx, flic2.ScanHandler{
		StateChanged: func(ev flic.ScannerStatusEvent) {
			yellow.Fprintf(e.out, "scan     %s\n", ev)
		},
		Succeeded: func(b flic.Button) {
			green.Fprintln(e.out, "paired:")
			printButton(e.out, b)
			done <- nil
		},
		Cancelled: func() {
			fmt.Fprintln(e.out, "scan cancelled")
			done <- nil
		},
		Failed: func(err error) { done <- fmt.Errorf("scan failed: %w", err) },
	})
	if err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	if err := e.m.StopScan(stopCtx); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-stopCtx.Done():
		return stopCtx.Err()
	}
}

func runStopScan(ctx context.Context, e *env, args []string) error {
	ctx, cancel := e.rpc(ctx)
	defer cancel()
	return e.m.StopScan(ctx)
}

func runForget(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	ctx, cancel := e.rpc(ctx)
	defer cancel()
	uuid, err := e.m.ForgetButton(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "forgot %s\n", uuid)
	return nil
}

func runNickname(ctx context.Context, e *env, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	ctx, cancel := e.rpc(ctx)
	defer cancel()
	b, err := e.m.SetNickname(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	printButton(e.out, b)
	return nil
}

func runTrigger(ctx context.Context, e *env, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	mode, ok := flic.ParseTriggerMode(args[1])
	if !ok {
		return errUsage
	}
	ctx, cancel := e.rpc(ctx)
	defer cancel()
	b, err := e.m.SetTriggerMode(ctx, args[0], mode)
	if err != nil {
		return err
	}
	printButton(e.out, b)
	return nil
}

func runLatency(ctx context.Context, e *env, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	mode, ok := flic.ParseLatencyMode(args[1])
	if !ok {
		return errUsage
	}
	ctx, cancel := e.rpc(ctx)
	defer cancel()
	b, err := e.m.SetLatencyMode(ctx, args[0], mode)
	if err != nil {
		return err
	}
	printButton(e.out, b)
	return nil
}

func runConnect(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	ctx, cancel := e.rpc(ctx)
	defer cancel()
	return e.m.Connect(ctx, args[0])
}

func runDisconnect(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	ctx, cancel := e.rpc(ctx)
	defer cancel()
	return e.m.Disconnect(ctx, args[0])
}

// runWatch prints every manager and button message until ctx is done or
// the manager stops receiving messages.
func runWatch(ctx context.Context, e *env, args []string) error {
	managerSub := e.m.ManagerMessagesReplay().Subscribe(func(m message.ManagerMessage) error {
		printManagerMessage(e.out, m)
		return nil
	})
	defer managerSub.Unsubscribe()
	buttonSub := e.m.ButtonMessages().Subscribe(func(m message.ButtonMessage) error {
		printButtonMessage(e.out, m)
		return nil
	})
	defer buttonSub.Unsubscribe()

	fmt.Fprintln(e.out, "watching, Ctrl+C to stop")
	select {
	case <-ctx.Done():
		return nil
	case <-e.m.Detached():
		return fmt.Errorf("watch stopped: %w", e.m.Err())
	}
}
