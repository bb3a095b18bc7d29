package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaz8081/flic2-bridge/internal/flic"
	"github.com/chaz8081/flic2-bridge/internal/sdk"
	"github.com/chaz8081/flic2-bridge/internal/sdk/simulator"
)

func TestConsoleCommands(t *testing.T) {
	sim := simulator.New(simulator.ButtonSpec{UUID: "desk", Nickname: "desk"})
	var out bytes.Buffer
	input := strings.Join([]string{
		"press desk",
		"press desk hold queued 3",
		"battery desk 2.5",
		"rename desk front door",
		"state poweredOff",
		"list",
		"bogus",
	}, "\n")

	require.NoError(t, runConsole(context.Background(), strings.NewReader(input), &out, sim))

	b, ok := sim.Button("desk")
	require.True(t, ok)
	assert.Equal(t, uint32(2), b.PressCount())
	assert.InDelta(t, 2.5, b.BatteryVoltage(), 0.001)
	assert.Equal(t, "front door", b.Nickname())
	assert.Equal(t, flic.ManagerStatePoweredOff, sim.State())
	assert.Contains(t, out.String(), "desk")
	assert.Contains(t, out.String(), `error: unknown command "bogus"`)
}

func TestConsoleRejectsBadArguments(t *testing.T) {
	sim := simulator.New(simulator.ButtonSpec{UUID: "desk"})
	var out bytes.Buffer

	assert.Error(t, execute(sim, &out, []string{"press"}))
	assert.Error(t, execute(sim, &out, []string{"press", "desk", "tap"}))
	assert.Error(t, execute(sim, &out, []string{"press", "missing"}))
	assert.Error(t, execute(sim, &out, []string{"battery", "desk", "lots"}))
	assert.Error(t, execute(sim, &out, []string{"state", "melted"}))
	assert.Error(t, execute(sim, &out, []string{"discover", "x", "exploded"}))
	assert.Error(t, execute(sim, &out, []string{"discover", "x", "unknown"}))
	assert.NoError(t, execute(sim, &out, []string{"discover", "x", "connectionTimeout"}))
	assert.NoError(t, execute(sim, &out, nil))
}

func TestConsoleUnpair(t *testing.T) {
	sim := simulator.New(simulator.ButtonSpec{UUID: "desk"})
	require.NoError(t, execute(sim, &bytes.Buffer{}, []string{"unpair", "desk"}))
	b, ok := sim.Button("desk")
	require.True(t, ok)
	assert.True(t, b.IsUnpaired())
}

func TestConsoleDiscoverRejectsSuccessCode(t *testing.T) {
	sim := simulator.New()
	err := execute(sim, &bytes.Buffer{}, []string{"discover", "u1", "unknown"})
	assert.ErrorContains(t, err, "cannot be simulated")

	var scanErr error
	sim.ScanForButtons(func(flic.ScannerStatusEvent) {}, func(_ sdk.Button, err error) { scanErr = err })
	assert.True(t, sim.IsScanning(), "no button was queued for the scan")
	_, ok := sim.Button("u1")
	assert.False(t, ok)

	sim.StopScan()
	var fe *sdk.Error
	require.ErrorAs(t, scanErr, &fe)
	assert.Equal(t, int(flic.ScannerErrorUserCanceled), fe.Code)
}
