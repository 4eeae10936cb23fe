package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type stepKind uint8

const (
	stepLine  stepKind = iota // feed a line to the firmware
	stepPress                 // press a button
	stepPot                   // set the pot to a 0..255 level
	stepQuit                  // stop the simulation
)

type step struct {
	at   int64 // ms after start
	kind stepKind
	line string
	n    int
}

// script is a timed sequence of inputs. Each line of the source is one of
//
//	wait <ms>        advance the script clock
//	press <1-3>      press a button (through its pin interrupt)
//	pot <0-255>      turn the potentiometer
//	quit             end the simulation
//	# comment
//
// Anything else is sent to the firmware verbatim as a serial line.
type script struct {
	steps []step
	next  int
}

func parseScript(r io.Reader) (*script, error) {
	s := &script{}
	var at int64
	sc := bufio.NewScanner(r)
	for ln := 1; sc.Scan(); ln++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Fields(line)
		arg := func(lo, hi int) (int, error) {
			if len(f) != 2 {
				return 0, fmt.Errorf("script line %d: %s takes one argument", ln, f[0])
			}
			n, err := strconv.Atoi(f[1])
			if err != nil || n < lo || n > hi {
				return 0, fmt.Errorf("script line %d: %s argument %q outside %d..%d", ln, f[0], f[1], lo, hi)
			}
			return n, nil
		}
		switch strings.ToLower(f[0]) {
		case "wait":
			n, err := arg(0, 1<<30)
			if err != nil {
				return nil, err
			}
			at += int64(n)
		case "press":
			n, err := arg(1, 3)
			if err != nil {
				return nil, err
			}
			s.steps = append(s.steps, step{at: at, kind: stepPress, n: n})
		case "pot":
			n, err := arg(0, 255)
			if err != nil {
				return nil, err
			}
			s.steps = append(s.steps, step{at: at, kind: stepPot, n: n})
		case "quit":
			s.steps = append(s.steps, step{at: at, kind: stepQuit})
		default:
			s.steps = append(s.steps, step{at: at, kind: stepLine, line: line})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// due hands every step scheduled at or before elapsed to fn, in order.
func (s *script) due(elapsed int64, fn func(step)) {
	for s.next < len(s.steps) && s.steps[s.next].at <= elapsed {
		fn(s.steps[s.next])
		s.next++
	}
}

func (s *script) done() bool { return s.next >= len(s.steps) }
