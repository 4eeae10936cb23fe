package controller

import "trafficlight-go/types"

// NumPhases is the length of the normal cycle.
const NumPhases = 11

// BlinkStepMs is the fixed length of the green-blink and wrap phases.
const BlinkStepMs uint32 = 167

type phase struct {
	frame   types.Frame
	tunable bool        // length comes from Durations
	color   types.Color // which Durations field, when tunable
}

var (
	lampsOff   = types.Frame{}
	lampsRed   = types.FrameOf(true, false, false)
	lampsYel   = types.FrameOf(false, true, false)
	lampsGreen = types.FrameOf(false, false, true)
	lampsAll   = types.FrameOf(true, true, true)
)

// Every phase writes a full frame so no lamp survives from an earlier phase
// or mode.
var phases = [NumPhases]phase{
	{frame: lampsRed, tunable: true, color: types.Red},
	{frame: lampsYel, tunable: true, color: types.Yellow},
	{frame: lampsGreen, tunable: true, color: types.Green},
	{frame: lampsOff},
	{frame: lampsGreen},
	{frame: lampsOff},
	{frame: lampsGreen},
	{frame: lampsOff},
	{frame: lampsGreen},
	{frame: lampsYel, tunable: true, color: types.Yellow},
	{frame: lampsOff},
}

// holdMs is how long phase p stays lit, read from d at the moment p is
// entered.
func holdMs(p int, d types.Durations) uint32 {
	ph := phases[p]
	if ph.tunable {
		return d.Of(ph.color)
	}
	return BlinkStepMs
}

// PhaseFrame exposes the lamp frame of phase p, for tests and tooling.
func PhaseFrame(p int) types.Frame { return phases[p%NumPhases].frame }
