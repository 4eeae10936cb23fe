package types

// ------------------------
// Operating mode
// ------------------------

type Mode uint8

const (
	ModeOff Mode = iota
	ModeNormal
	ModeEmergency
	ModeBlink
)

// String returns the status-line name. Off has no name of its own and
// reports the fallback "On/Off".
func (m Mode) String() string {
	switch m {
	case ModeEmergency:
		return "emergency"
	case ModeBlink:
		return "blink"
	case ModeNormal:
		return "normal"
	default:
		return "On/Off"
	}
}

// ------------------------
// Lamps
// ------------------------

type Color uint8

const (
	Red Color = iota
	Yellow
	Green

	NumColors = 3
)

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	case Green:
		return "green"
	default:
		return "unknown"
	}
}

// ParseColor accepts the lower-case colour names used on the wire.
func ParseColor(s string) (Color, bool) {
	switch s {
	case "red":
		return Red, true
	case "yellow":
		return Yellow, true
	case "green":
		return Green, true
	}
	return 0, false
}

// Frame is the logical on/off state of all three lamps.
type Frame [NumColors]bool

func FrameOf(r, y, g bool) Frame { return Frame{r, y, g} }

// ------------------------
// Buttons
// ------------------------

type Button uint8

const (
	Button1 Button = iota + 1
	Button2
	Button3

	NumButtons = 3
)

func (b Button) Valid() bool { return b >= Button1 && b <= Button3 }

// ------------------------
// Timing
// ------------------------

// Durations are the live-tunable phase lengths in milliseconds.
type Durations struct {
	Red    uint32 `toml:"red" json:"red" env:"TL_RED_MS"`
	Yellow uint32 `toml:"yellow" json:"yellow" env:"TL_YELLOW_MS"`
	Green  uint32 `toml:"green" json:"green" env:"TL_GREEN_MS"`
}

func DefaultDurations() Durations { return Durations{Red: 2000, Yellow: 500, Green: 2000} }

func (d Durations) Of(c Color) uint32 {
	switch c {
	case Red:
		return d.Red
	case Yellow:
		return d.Yellow
	default:
		return d.Green
	}
}

func (d *Durations) Set(c Color, ms uint32) {
	switch c {
	case Red:
		d.Red = ms
	case Yellow:
		d.Yellow = ms
	case Green:
		d.Green = ms
	}
}

// ------------------------
// Status
// ------------------------

type Status struct {
	Mode       Mode
	Brightness uint8
	Red        bool
	Yellow     bool
	Green      bool
}
