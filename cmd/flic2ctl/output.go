package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/chaz8081/flic2-bridge/internal/flic"
	"github.com/chaz8081/flic2-bridge/internal/message"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	blue   = color.New(color.FgBlue)
	red    = color.New(color.FgRed)
)

// printButton prints one button on a single line.
func printButton(w io.Writer, b flic.Button) {
	ready := "-"
	if b.IsReady {
		ready = "ready"
	}
	fmt.Fprintf(w, "%s  %-20s %-13s %-6s %-26s %-6s %.2fV  presses=%d\n",
		b.UUID, b.DisplayName(), b.State, ready, b.TriggerMode, b.LatencyMode, b.BatteryVoltage, b.PressCount)
}

func printButtons(w io.Writer, buttons []flic.Button) {
	if len(buttons) == 0 {
		fmt.Fprintln(w, "no paired buttons")
		return
	}
	for _, b := range buttons {
		printButton(w, b)
	}
}

// printManagerMessage prints a manager callback as received.
func printManagerMessage(w io.Writer, m message.ManagerMessage) {
	switch m := m.(type) {
	case message.DidUpdateState:
		blue.Fprintf(w, "manager  %s %s\n", m.Method(), m.State)
	default:
		blue.Fprintf(w, "manager  %s\n", m.Method())
	}
}

// printButtonMessage prints a button callback with the fields that vary
// by kind.
func printButtonMessage(w io.Writer, m message.ButtonMessage) {
	name := m.Subject().DisplayName()
	if p, ok := pressOf(m); ok {
		line := fmt.Sprintf("button   %-20s %s", name, strings.TrimPrefix(m.Method(), "buttonDidReceive"))
		if p.Queued {
			line += fmt.Sprintf(" (queued %ds ago)", p.Age)
		}
		green.Fprintln(w, line)
		return
	}
	if e, ok := errorOf(m); ok && e.Error != nil {
		red.Fprintf(w, "button   %-20s %s: %v\n", name, m.Method(), e.Error)
		return
	}
	switch m := m.(type) {
	case message.ButtonDidUpdateBatteryVoltage:
		fmt.Fprintf(w, "button   %-20s battery %.2fV\n", name, m.Voltage)
	case message.ButtonDidUpdateNickname:
		fmt.Fprintf(w, "button   %-20s nickname %q\n", name, m.Nickname)
	default:
		yellow.Fprintf(w, "button   %-20s %s\n", name, m.Method())
	}
}

func pressOf(m message.ButtonMessage) (message.PressArgs, bool) {
	switch m := m.(type) {
	case message.ButtonDidReceiveButtonClick:
		return m.PressArgs, true
	case message.ButtonDidReceiveButtonDoubleClick:
		return m.PressArgs, true
	case message.ButtonDidReceiveButtonHold:
		return m.PressArgs, true
	case message.ButtonDidReceiveButtonDown:
		return m.PressArgs, true
	case message.ButtonDidReceiveButtonUp:
		return m.PressArgs, true
	}
	return message.PressArgs{}, false
}

func errorOf(m message.ButtonMessage) (message.ErrorArgs, bool) {
	switch m := m.(type) {
	case message.ButtonDidDisconnectWithError:
		return m.ErrorArgs, true
	case message.ButtonDidFailToConnectWithError:
		return m.ErrorArgs, true
	case message.ButtonDidUnpairWithError:
		return m.ErrorArgs, true
	}
	return message.ErrorArgs{}, false
}

func printError(w io.Writer, err error) {
	red.Fprintf(w, "Error: %v\n", err)
}
