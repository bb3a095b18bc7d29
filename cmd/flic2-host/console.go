package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chaz8081/flic2-bridge/internal/flic"
	"github.com/chaz8081/flic2-bridge/internal/sdk/simulator"
)

const consoleHelp = `commands:
  list                                  paired buttons
  press <uuid> [click|double|hold|down|up] [queued] [age]
  battery <uuid> <volts>
  rename <uuid> <nickname>
  unpair <uuid>
  discover [uuid] [scanner error]       add a button for the next scan
  state <manager state>                 e.g. poweredOff, poweredOn
  restore
  help`

var gestures = map[string]simulator.Gesture{
	"down":   simulator.GestureDown,
	"up":     simulator.GestureUp,
	"click":  simulator.GestureClick,
	"double": simulator.GestureDoubleClick,
	"hold":   simulator.GestureHold,
}

// runConsole reads simulator commands from r until EOF or ctx is done.
func runConsole(ctx context.Context, r io.Reader, w io.Writer, sim *simulator.Manager) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	fmt.Fprintln(w, "type 'help' for simulator commands")
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			if err := execute(sim, w, strings.Fields(line)); err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
			}
		}
	}
}

func execute(sim *simulator.Manager, w io.Writer, args []string) error {
	if len(args) == 0 {
		return nil
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "help":
		fmt.Fprintln(w, consoleHelp)
	case "list":
		for _, b := range sim.Buttons() {
			fmt.Fprintf(w, "%s  %-12s %-10s %.2fV\n", b.UUID(), b.Nickname(), b.State(), b.BatteryVoltage())
		}
	case "press":
		return press(sim, args)
	case "battery":
		if len(args) != 2 {
			return fmt.Errorf("usage: battery <uuid> <volts>")
		}
		v, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return fmt.Errorf("invalid voltage %q", args[1])
		}
		return sim.UpdateBattery(args[0], float32(v))
	case "rename":
		if len(args) < 2 {
			return fmt.Errorf("usage: rename <uuid> <nickname>")
		}
		return sim.RemoteRename(args[0], strings.Join(args[1:], " "))
	case "unpair":
		if len(args) != 1 {
			return fmt.Errorf("usage: unpair <uuid>")
		}
		return sim.Unpair(args[0])
	case "discover":
		var d simulator.Discoverable
		if len(args) > 0 {
			d.Spec.UUID = args[0]
		}
		if len(args) > 1 {
			code, ok := flic.ParseScannerErrorCode(args[1])
			if !ok {
				return fmt.Errorf("unknown scanner error %q", args[1])
			}
			// The zero code means the scan succeeds.
			if code == flic.ScannerErrorUnknown {
				return fmt.Errorf("scanner error %q cannot be simulated", args[1])
			}
			d.FailWith = code
		}
		sim.AddDiscoverable(d)
	case "state":
		if len(args) != 1 {
			return fmt.Errorf("usage: state <manager state>")
		}
		state, ok := flic.ParseManagerState(args[0])
		if !ok {
			return fmt.Errorf("unknown manager state %q", args[0])
		}
		sim.SetState(state)
	case "restore":
		sim.Restore()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func press(sim *simulator.Manager, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: press <uuid> [gesture] [queued] [age]")
	}
	g := simulator.GestureClick
	if len(args) > 1 {
		var ok bool
		if g, ok = gestures[args[1]]; !ok {
			return fmt.Errorf("unknown gesture %q", args[1])
		}
	}
	queued := len(args) > 2 && args[2] == "queued"
	age := 0
	if len(args) > 3 {
		var err error
		if age, err = strconv.Atoi(args[3]); err != nil {
			return fmt.Errorf("invalid age %q", args[3])
		}
	}
	return sim.Press(args[0], g, queued, age)
}
