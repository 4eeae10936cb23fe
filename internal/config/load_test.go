package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trafficlight-go/errcode"
)

const sample = `
[board]
name = "pico2"
serial = "uart1"
baud = 115200

[timing]
status_interval_ms = 500

[timing.durations]
red = 3000
green = 2500
`

func TestParseFileOverridesProfile(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Board.Name != "pico2" || c.Board.Serial != SerialUART1 || c.Board.Baud != 115200 {
		t.Fatalf("board=%+v", c.Board)
	}
	// Unset keys keep the profile's values.
	if c.Board.RedPin != 5 || c.Timing.BlinkIntervalMs != 500 {
		t.Fatalf("profile values lost: %+v", c)
	}
	d := c.Timing.Durations
	if d.Red != 3000 || d.Yellow != 500 || d.Green != 2500 {
		t.Fatalf("durations=%+v", d)
	}
	if c.Timing.StatusIntervalMs != 500 {
		t.Fatalf("status interval=%d", c.Timing.StatusIntervalMs)
	}
}

func TestParseEmptyIsHostProfile(t *testing.T) {
	c, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Board.Name != "host" || c.Board.Serial != SerialStdio {
		t.Fatalf("board=%+v", c.Board)
	}
}

func TestEnvironmentWins(t *testing.T) {
	t.Setenv("TL_RED_MS", "4200")
	t.Setenv("TL_SERIAL", "usb")
	t.Setenv("TL_POT_DEADBAND", "5")
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Timing.Durations.Red != 4200 {
		t.Fatalf("red=%d", c.Timing.Durations.Red)
	}
	if c.Board.Serial != SerialUSB {
		t.Fatalf("serial=%q", c.Board.Serial)
	}
	if c.Timing.PotDeadband != 5 {
		t.Fatalf("deadband=%d", c.Timing.PotDeadband)
	}
}

func TestUnknownBoard(t *testing.T) {
	_, err := Parse([]byte("[board]\nname = \"esp32\"\n"))
	if errcode.Of(err) != errcode.Unsupported {
		t.Fatalf("err=%v", err)
	}
}

func TestMalformedAndInvalid(t *testing.T) {
	if _, err := Parse([]byte("[timing\n")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Parse([]byte("[timing.durations]\nred = 700000\n")); errcode.Of(err) != errcode.OutOfRange {
		t.Fatalf("err=%v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Board.Name != "host" {
		t.Fatalf("board=%q", c.Board.Name)
	}
}

func TestLoadAndEncode(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tl.toml")
	if err := os.WriteFile(p, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(out), "red_pin = 5") {
		t.Fatalf("encoded:\n%s", out)
	}
	back, err := Parse(out)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if back != c {
		t.Fatalf("re-parse mismatch:\n%+v\n%+v", back, c)
	}
}
