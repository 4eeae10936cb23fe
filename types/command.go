package types

import "trafficlight-go/errcode"

// ------------------------
// Command plans (one per input line, discarded after use)
// ------------------------

type Form uint8

const (
	FormNone   Form = iota // line ignored
	FormSingle             // "<KEY> <int>"
	FormBatch              // "cmd:k=v;k=v"
)

func (f Form) String() string {
	switch f {
	case FormSingle:
		return "single"
	case FormBatch:
		return "batch"
	default:
		return "none"
	}
}

type Op uint8

const (
	OpSetDuration Op = iota + 1
	OpSetBrightness
	OpSimulateButton
	OpReapply
)

func (o Op) String() string {
	switch o {
	case OpSetDuration:
		return "set_duration"
	case OpSetBrightness:
		return "set_brightness"
	case OpSimulateButton:
		return "button"
	case OpReapply:
		return "apply"
	default:
		return "unknown"
	}
}

// Action is one step of a Plan. Only the fields relevant to Op are set.
type Action struct {
	Op     Op
	Color  Color
	Value  uint32
	Button Button
}

func SetDuration(c Color, ms uint32) Action { return Action{Op: OpSetDuration, Color: c, Value: ms} }
func SetBrightness(v uint8) Action         { return Action{Op: OpSetBrightness, Value: uint32(v)} }
func SimulateButton(b Button) Action       { return Action{Op: OpSimulateButton, Button: b} }
func Reapply(c Color) Action               { return Action{Op: OpReapply, Color: c} }

// Issue records a fragment the parser skipped or coerced.
type Issue struct {
	Code  errcode.Code
	Token string
}

type Plan struct {
	Form    Form
	Actions []Action
	Issues  []Issue
}

func (p Plan) Empty() bool { return len(p.Actions) == 0 }
