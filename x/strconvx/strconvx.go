// Package strconvx holds the few integer conversions the command parser
// needs, without pulling strconv's float tables onto the MCU.
package strconvx

type parseError string

func (e parseError) Error() string { return string(e) }

var (
	// ErrSyntax is returned for empty input or stray characters.
	ErrSyntax error = parseError("invalid syntax")
	// ErrRange is returned with a saturated value when the digits exceed
	// MaxInt.
	ErrRange error = parseError("value out of range")
)

// MaxInt bounds ParseInt results, far outside any duration or level the
// firmware accepts.
const MaxInt = 1<<31 - 1

// ParseInt parses an optionally signed base-10 integer. Values beyond
// ±MaxInt come back as ±MaxInt together with ErrRange.
func ParseInt(s string) (int64, error) {
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if len(s) == 0 {
		return 0, ErrSyntax
	}
	var v int64
	over := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, ErrSyntax
		}
		if over {
			continue
		}
		v = v*10 + int64(c-'0')
		if v > MaxInt {
			v, over = MaxInt, true
		}
	}
	if neg {
		v = -v
	}
	if over {
		return v, ErrRange
	}
	return v, nil
}

// Atoi is ParseInt narrowed to int.
func Atoi(s string) (int, error) {
	v, err := ParseInt(s)
	return int(v), err
}
