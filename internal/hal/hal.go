// Package hal holds the capability interfaces the firmware drives. The
// implementations are thin board bindings (internal/platform) with no logic
// of their own.
package hal

import "trafficlight-go/types"

// OutputDriver sets a brightness-scaled intensity per lamp channel.
// Writes are idempotent; the driver keeps nothing but the last value.
type OutputDriver interface {
	Set(c types.Color, level uint8)
}

// AnalogSource samples the brightness potentiometer and yields 0..255.
type AnalogSource interface {
	Brightness() uint8
}

// LineChannel is a buffered, line-oriented text transport.
// ReadLine never blocks; ok is false when no complete line is buffered.
type LineChannel interface {
	ReadLine() (line string, ok bool)
	WriteLine(s string)
}

// ---- GPIO abstractions ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Edge selection for IRQ.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

type GPIOPin interface {
	ConfigureInput(pull Pull) error
	Get() bool
	Number() int
}

// IRQPin extends GPIOPin with interrupts. The handler runs in interrupt
// context on hardware and must only do flag-level work.
type IRQPin interface {
	GPIOPin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}
