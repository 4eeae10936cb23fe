// Package config holds board wiring and timing settings. Firmware builds use
// a compiled-in board profile; host builds can also load a TOML file with
// environment overrides (see load.go).
package config

import (
	"trafficlight-go/errcode"
	"trafficlight-go/internal/command"
	"trafficlight-go/types"
	"trafficlight-go/x/conv"
)

// Serial transports.
const (
	SerialUSB   = "usb"   // USB CDC (machine.Serial)
	SerialUART1 = "uart1" // uartx.UART1
	SerialStdio = "stdio" // host stdin/stdout
)

type Board struct {
	Name string `toml:"name" env:"TL_BOARD"`

	RedPin    int `toml:"red_pin" env:"TL_RED_PIN"`
	YellowPin int `toml:"yellow_pin" env:"TL_YELLOW_PIN"`
	GreenPin  int `toml:"green_pin" env:"TL_GREEN_PIN"`

	Button1Pin int `toml:"button1_pin" env:"TL_BUTTON1_PIN"`
	Button2Pin int `toml:"button2_pin" env:"TL_BUTTON2_PIN"`
	Button3Pin int `toml:"button3_pin" env:"TL_BUTTON3_PIN"`

	PotPin int `toml:"pot_pin" env:"TL_POT_PIN"`

	Serial      string `toml:"serial" env:"TL_SERIAL"`
	Baud        uint32 `toml:"baud" env:"TL_BAUD"`
	PWMPeriodNs uint32 `toml:"pwm_period_ns" env:"TL_PWM_PERIOD_NS"`
}

// LampPins returns the PWM pins in colour order.
func (b Board) LampPins() [types.NumColors]int {
	return [types.NumColors]int{b.RedPin, b.YellowPin, b.GreenPin}
}

// ButtonPins returns the button pins in button order.
func (b Board) ButtonPins() [types.NumButtons]int {
	return [types.NumButtons]int{b.Button1Pin, b.Button2Pin, b.Button3Pin}
}

type Timing struct {
	Durations types.Durations `toml:"durations"`

	BrightnessIntervalMs uint32 `toml:"brightness_interval_ms" env:"TL_BRIGHTNESS_INTERVAL_MS"`
	BlinkIntervalMs      uint32 `toml:"blink_interval_ms" env:"TL_BLINK_INTERVAL_MS"`
	RenderIntervalMs     uint32 `toml:"render_interval_ms" env:"TL_RENDER_INTERVAL_MS"`
	StatusIntervalMs     uint32 `toml:"status_interval_ms" env:"TL_STATUS_INTERVAL_MS"`

	MaxLinesPerPass int `toml:"max_lines_per_pass" env:"TL_MAX_LINES_PER_PASS"`
	MaxLine         int `toml:"max_line" env:"TL_MAX_LINE"`
	PotDeadband     int `toml:"pot_deadband" env:"TL_POT_DEADBAND"`
}

type Config struct {
	Board  Board  `toml:"board"`
	Timing Timing `toml:"timing"`
}

// -----------------------------------------------------------------------------
// Profiles
// -----------------------------------------------------------------------------

var defaultTiming = Timing{
	Durations:            types.DefaultDurations(),
	BrightnessIntervalMs: 100,
	BlinkIntervalMs:      500,
	RenderIntervalMs:     100,
	StatusIntervalMs:     0,
	MaxLinesPerPass:      10,
	MaxLine:              128,
	PotDeadband:          2,
}

func picoBoard(name string) Board {
	return Board{
		Name:        name,
		RedPin:      5,
		YellowPin:   6,
		GreenPin:    7,
		Button1Pin:  2,
		Button2Pin:  3,
		Button3Pin:  4,
		PotPin:      26,
		Serial:      SerialUSB,
		Baud:        9600,
		PWMPeriodNs: 1_000_000, // 1 kHz
	}
}

// ProfileLookup resolves a board name to its built-in configuration.
// Tests may replace it.
var ProfileLookup = func(name string) (Config, bool) {
	switch name {
	case "pico", "pico2":
		return Config{Board: picoBoard(name), Timing: defaultTiming}, true
	case "host":
		b := picoBoard(name)
		b.Serial = SerialStdio
		return Config{Board: b, Timing: defaultTiming}, true
	}
	return Config{}, false
}

// Default is the Raspberry Pi Pico profile.
func Default() Config {
	c, _ := ProfileLookup("pico")
	return c
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

const (
	maxGPIO   = 28
	adcPinMin = 26
	adcPinMax = 29
)

func invalid(msg string) error {
	return &errcode.E{C: errcode.OutOfRange, Op: "config.validate", Msg: msg}
}

// Validate checks pin numbers, pin uniqueness, the serial transport and the
// timing ranges accepted over the wire.
func (c Config) Validate() error {
	b := c.Board
	seen := make(map[int]bool, 7)
	lamps, btns := b.LampPins(), b.ButtonPins()
	pins := append(lamps[:], btns[:]...)
	for _, p := range pins {
		if p < 0 || p > maxGPIO {
			return invalid("gpio out of range")
		}
		if seen[p] {
			return invalid("gpio assigned twice")
		}
		seen[p] = true
	}
	if b.PotPin < adcPinMin || b.PotPin > adcPinMax {
		return invalid("pot pin is not an ADC input")
	}
	if seen[b.PotPin] {
		return invalid("pot pin shared with a digital pin")
	}
	switch b.Serial {
	case SerialUSB, SerialUART1, SerialStdio:
	default:
		return &errcode.E{C: errcode.Unsupported, Op: "config.validate", Msg: "unknown serial transport " + b.Serial}
	}

	t := c.Timing
	d := t.Durations
	if d.Red > command.MaxDuration || d.Yellow > command.MaxDuration || d.Green > command.MaxDuration {
		return invalid("phase duration above limit")
	}
	if t.PotDeadband < 0 || t.PotDeadband > 255 {
		return invalid("pot deadband outside 0..255")
	}
	if t.MaxLinesPerPass < 0 || t.MaxLine < 0 {
		return invalid("negative line limit")
	}
	return nil
}

// DurationsLine renders d as the batch command that applies it, e.g.
// "cmd:redTime=2000;yellowTime=500;greenTime=2000;".
func DurationsLine(d types.Durations) string {
	b := make([]byte, 0, 64)
	b = append(b, "cmd:redTime="...)
	b = conv.AppendUint(b, uint64(d.Red))
	b = append(b, ";yellowTime="...)
	b = conv.AppendUint(b, uint64(d.Yellow))
	b = append(b, ";greenTime="...)
	b = conv.AppendUint(b, uint64(d.Green))
	b = append(b, ';')
	return string(b)
}
