// Package platform binds the firmware's capability interfaces to a board.
// rp2 builds drive machine pins, PWM slices, the ADC and a serial port;
// every other build gets in-memory fakes that the simulator and tests can
// poke at.
package platform

import (
	"trafficlight-go/internal/buttons"
	"trafficlight-go/internal/config"
	"trafficlight-go/internal/firmware"
	"trafficlight-go/internal/hal"
	"trafficlight-go/internal/serialio"
	"trafficlight-go/types"
	"trafficlight-go/x/mathx"
	"trafficlight-go/x/timex"

	"tinygo.org/x/drivers"
)

// Board is an opened set of peripherals.
type Board struct {
	Name    string
	Out     *Lamps
	Analog  *Pot
	Lines   *serialio.Channel
	Buttons [types.NumButtons]hal.IRQPin

	detach []func()
}

// AttachButtons routes every button's falling edge into q.
func (b *Board) AttachButtons(q *buttons.Queue) error {
	for i, pin := range b.Buttons {
		if pin == nil {
			continue
		}
		off, err := q.Attach(pin, types.Button(i+1))
		if err != nil {
			b.DetachButtons()
			return err
		}
		b.detach = append(b.detach, off)
	}
	return nil
}

func (b *Board) DetachButtons() {
	for _, off := range b.detach {
		off()
	}
	b.detach = nil
}

// RunnerConfig assembles the main-cycle configuration for this board.
func (b *Board) RunnerConfig(cfg config.Config, clk timex.Clock, q *buttons.Queue) firmware.Config {
	t := cfg.Timing
	fc := firmware.Config{
		Out:                  b.Out,
		Analog:               b.Analog,
		Buttons:              q,
		Clock:                clk,
		Durations:            t.Durations,
		BrightnessIntervalMs: t.BrightnessIntervalMs,
		BlinkIntervalMs:      t.BlinkIntervalMs,
		RenderIntervalMs:     t.RenderIntervalMs,
		StatusIntervalMs:     t.StatusIntervalMs,
		MaxLinesPerPass:      t.MaxLinesPerPass,
		PotDeadband:          mathx.ClampU8(t.PotDeadband),
	}
	if b.Lines != nil {
		fc.Lines = b.Lines
	}
	return fc
}

// -----------------------------------------------------------------------------
// Lamps
// -----------------------------------------------------------------------------

// PWM is one PWM output channel with counter range [0, Top()].
type PWM interface {
	Set(value uint32)
	Top() uint32
}

// Lamps is the OutputDriver: one PWM channel per colour, duty scaled from
// the 0..255 level.
type Lamps struct {
	ch    [types.NumColors]PWM
	level [types.NumColors]uint8
}

func NewLamps(red, yellow, green PWM) *Lamps {
	return &Lamps{ch: [types.NumColors]PWM{red, yellow, green}}
}

func (l *Lamps) Set(c types.Color, level uint8) {
	if c >= types.NumColors {
		return
	}
	l.level[c] = level
	if ch := l.ch[c]; ch != nil {
		ch.Set(mathx.Level(level, ch.Top()))
	}
}

// Level returns the last level written to c.
func (l *Lamps) Level(c types.Color) uint8 {
	if c >= types.NumColors {
		return 0
	}
	return l.level[c]
}

// -----------------------------------------------------------------------------
// Potentiometer
// -----------------------------------------------------------------------------

// RawSensor is a voltage sensor that exposes its last 16-bit sample.
type RawSensor interface {
	drivers.Sensor
	Raw() uint16
}

// Pot is the AnalogSource: each Brightness call refreshes the sensor and
// maps the full ADC span onto 0..255. A failed update repeats the last value.
type Pot struct {
	s    RawSensor
	last uint8
	errs uint32
}

func NewPot(s RawSensor) *Pot { return &Pot{s: s} }

func (p *Pot) Brightness() uint8 {
	if err := p.s.Update(drivers.Voltage); err != nil {
		p.errs++
		return p.last
	}
	p.last = uint8(mathx.MapU16(p.s.Raw(), 0, 0xFFFF, 0, 255))
	return p.last
}

// Errors counts failed sensor updates.
func (p *Pot) Errors() uint32 { return p.errs }
