// Package command decodes one serial input line into a types.Plan.
//
// Two forms are understood:
//
//	RED 3000                          single key, integer value
//	cmd:brightness=100;redTime=1500;  batch of key=value pairs
//
// The parser is lenient. Fragments it cannot use are skipped and noted in
// Plan.Issues; nothing is ever reported back to the serial peer.
package command

import (
	"strings"

	"github.com/google/shlex"

	"trafficlight-go/errcode"
	"trafficlight-go/types"
	"trafficlight-go/x/mathx"
	"trafficlight-go/x/strconvx"
)

const (
	BatchPrefix = "cmd:"

	// MaxDuration caps any phase length accepted from the wire (10 minutes).
	MaxDuration uint32 = 600000
)

// Batch keys.
const (
	KeyBrightness = "brightness"
	KeyRedTime    = "redTime"
	KeyYellowTime = "yellowTime"
	KeyGreenTime  = "greenTime"
	KeyButton     = "button"
	KeyApply      = "apply"
)

// Parse is total over its input: every line yields a Plan, possibly empty.
func Parse(line string) types.Plan {
	line = strings.TrimSpace(line)
	if line == "" {
		return types.Plan{}
	}
	if strings.HasPrefix(line, BatchPrefix) {
		return parseBatch(line[len(BatchPrefix):])
	}
	if !strings.ContainsAny(line, " \t") {
		return types.Plan{}
	}
	return parseSingle(line)
}

func parseSingle(line string) types.Plan {
	p := types.Plan{Form: types.FormSingle}
	fields, err := shlex.Split(line)
	if err != nil || len(fields) != 2 {
		p.Issues = append(p.Issues, types.Issue{Code: errcode.MalformedCommand, Token: line})
		return p
	}
	var c types.Color
	switch strings.ToUpper(fields[0]) {
	case "RED":
		c = types.Red
	case "YELLOW":
		c = types.Yellow
	case "GREEN":
		c = types.Green
	default:
		p.Issues = append(p.Issues, types.Issue{Code: errcode.UnknownKey, Token: fields[0]})
		return p
	}
	p.Actions = append(p.Actions, types.SetDuration(c, durationValue(&p, fields[1])))
	return p
}

func parseBatch(body string) types.Plan {
	p := types.Plan{Form: types.FormBatch}
	for _, tok := range strings.Split(body, ";") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		k, v, ok := strings.Cut(tok, "=")
		if !ok {
			p.Issues = append(p.Issues, types.Issue{Code: errcode.MalformedCommand, Token: tok})
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		switch k {
		case KeyBrightness:
			p.Actions = append(p.Actions, types.SetBrightness(mathx.ClampU8(number(&p, v))))
		case KeyRedTime:
			p.Actions = append(p.Actions, types.SetDuration(types.Red, durationValue(&p, v)))
		case KeyYellowTime:
			p.Actions = append(p.Actions, types.SetDuration(types.Yellow, durationValue(&p, v)))
		case KeyGreenTime:
			p.Actions = append(p.Actions, types.SetDuration(types.Green, durationValue(&p, v)))
		case KeyButton:
			n := number(&p, v)
			b := types.Button(mathx.ClampU8(n))
			if n < 1 || !b.Valid() {
				p.Issues = append(p.Issues, types.Issue{Code: errcode.OutOfRange, Token: tok})
				continue
			}
			p.Actions = append(p.Actions, types.SimulateButton(b))
		case KeyApply:
			c, ok := types.ParseColor(v)
			if !ok {
				p.Issues = append(p.Issues, types.Issue{Code: errcode.OutOfRange, Token: tok})
				continue
			}
			p.Actions = append(p.Actions, types.Reapply(c))
		default:
			p.Issues = append(p.Issues, types.Issue{Code: errcode.UnknownKey, Token: k})
		}
	}
	return p
}

// number parses v, yielding 0 (and an invalid_numeric issue) when v is not
// a number. Oversized values saturate so callers clamp them like any other
// out-of-range value.
func number(p *types.Plan, v string) int64 {
	n, err := strconvx.ParseInt(v)
	if err == strconvx.ErrRange {
		return n
	}
	if err != nil {
		p.Issues = append(p.Issues, types.Issue{Code: errcode.InvalidNumeric, Token: v})
		return 0
	}
	return n
}

func durationValue(p *types.Plan, v string) uint32 {
	return mathx.ClampU32(number(p, v), MaxDuration)
}
