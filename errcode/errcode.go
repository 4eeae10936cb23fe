package errcode

// Code is a stable, wire-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Command line decoding. None of these reach the serial peer.
	MalformedCommand Code = "malformed_command"
	InvalidNumeric   Code = "invalid_numeric"
	UnknownKey       Code = "unknown_key"
	OutOfRange       Code = "out_of_range"

	// Scheduler / board bring-up.
	Full        Code = "full"
	UnknownTask Code = "unknown_task"
	UnknownPin  Code = "unknown_pin"
	Unsupported Code = "unsupported"

	// Transport.
	WriteFailed Code = "write_failed"

	Error Code = "error" // generic fallback
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// Wrap returns an *E for op carrying code c and cause err.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Err: err}
}
