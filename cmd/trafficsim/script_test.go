package main

import (
	"strings"
	"testing"
)

const demo = `
# boot, then tweak red while it is lit
RED 3000
wait 1000
pot 128
press 1
wait 500
cmd:button=1;
quit
`

func TestParseScript(t *testing.T) {
	s, err := parseScript(strings.NewReader(demo))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []step{
		{at: 0, kind: stepLine, line: "RED 3000"},
		{at: 1000, kind: stepPot, n: 128},
		{at: 1000, kind: stepPress, n: 1},
		{at: 1500, kind: stepLine, line: "cmd:button=1;"},
		{at: 1500, kind: stepQuit},
	}
	if len(s.steps) != len(want) {
		t.Fatalf("steps=%+v", s.steps)
	}
	for i := range want {
		if s.steps[i] != want[i] {
			t.Fatalf("step %d = %+v, want %+v", i, s.steps[i], want[i])
		}
	}
}

func TestScriptDue(t *testing.T) {
	s, err := parseScript(strings.NewReader(demo))
	if err != nil {
		t.Fatal(err)
	}
	var n int
	count := func(step) { n++ }
	s.due(0, count)
	if n != 1 {
		t.Fatalf("at 0: %d", n)
	}
	s.due(999, count)
	if n != 1 {
		t.Fatalf("at 999: %d", n)
	}
	s.due(5000, count)
	if n != 5 || !s.done() {
		t.Fatalf("at 5000: %d done=%v", n, s.done())
	}
}

func TestParseScriptErrors(t *testing.T) {
	for _, src := range []string{"press 4", "pot -1", "wait", "press one", "wait 1 2"} {
		if _, err := parseScript(strings.NewReader(src)); err == nil {
			t.Fatalf("%q: expected error", src)
		}
	}
}
