package firmware

import (
	"context"
	"strings"
	"testing"
	"time"

	"trafficlight-go/types"
	"trafficlight-go/x/timex"
)

type fakeOut struct{ lv [types.NumColors]uint8 }

func (f *fakeOut) Set(c types.Color, level uint8) { f.lv[c] = level }

type fakePot struct{ v uint8 }

func (p *fakePot) Brightness() uint8 { return p.v }

// fakeLines queues input lines and records output.
type fakeLines struct {
	in  []string
	out []string
}

func (l *fakeLines) ReadLine() (string, bool) {
	if len(l.in) == 0 {
		return "", false
	}
	s := l.in[0]
	l.in = l.in[1:]
	return s, true
}
func (l *fakeLines) WriteLine(s string) { l.out = append(l.out, s) }

func (l *fakeLines) last() string {
	if len(l.out) == 0 {
		return ""
	}
	return l.out[len(l.out)-1]
}

type rig struct {
	t     *testing.T
	clk   *timex.Manual
	out   *fakeOut
	pot   *fakePot
	lines *fakeLines
	r     *Runner
}

func newRig(t *testing.T, mut func(*Config)) *rig {
	t.Helper()
	g := &rig{t: t, clk: timex.NewManual(0), out: &fakeOut{}, pot: &fakePot{v: 80}, lines: &fakeLines{}}
	cfg := Config{Out: g.out, Analog: g.pot, Lines: g.lines, Clock: g.clk, PotDeadband: DefaultPotDeadband}
	if mut != nil {
		mut(&cfg)
	}
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g.r = r
	r.Start()
	return g
}

func (g *rig) pass(advance time.Duration) {
	g.clk.Advance(advance)
	g.r.Pass()
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := New(Config{Analog: &fakePot{}, Clock: timex.NewManual(0)}); err == nil {
		t.Fatal("expected error without output driver")
	}
}

func TestBootState(t *testing.T) {
	g := newRig(t, nil)
	g.pass(0)
	if got, want := g.lines.last(), "mode:normal,brightness:80,red:1,yellow:0,green:0"; got != want {
		t.Fatalf("status=%q, want %q", got, want)
	}
	if g.out.lv != [3]uint8{80, 0, 0} {
		t.Fatalf("levels=%v", g.out.lv)
	}
}

func TestStatusReflectsSamePassInput(t *testing.T) {
	g := newRig(t, nil)
	g.lines.in = []string{"cmd:button=2;"}
	g.pass(time.Millisecond)
	if got := g.lines.last(); !strings.HasPrefix(got, "mode:blink,") {
		t.Fatalf("status=%q", got)
	}
	c := g.r.Controller()
	if c.Mode() != types.ModeBlink || c.NormalEnabled() {
		t.Fatalf("mode=%s enabled=%v", c.Mode(), c.NormalEnabled())
	}
}

func TestBatchReadBack(t *testing.T) {
	g := newRig(t, nil)
	g.lines.in = []string{"cmd:brightness=100;redTime=1500;"}
	g.pass(time.Millisecond)
	if got, want := g.lines.last(), "mode:normal,brightness:100,red:1,yellow:0,green:0"; got != want {
		t.Fatalf("status=%q, want %q", got, want)
	}
	if g.r.Controller().Durations().Red != 1500 {
		t.Fatalf("red=%d", g.r.Controller().Durations().Red)
	}
	// Pot steady: the serial value holds across samples.
	for i := 0; i < 5; i++ {
		g.pass(100 * time.Millisecond)
	}
	if b := g.r.Controller().Brightness(); b != 100 {
		t.Fatalf("brightness=%d, want 100 while pot is steady", b)
	}
	// Pot moves past the deadband: it takes over.
	g.pot.v = 150
	g.pass(100 * time.Millisecond)
	if b := g.r.Controller().Brightness(); b != 150 {
		t.Fatalf("brightness=%d, want 150", b)
	}
}

func TestPotJitterInsideDeadbandIgnored(t *testing.T) {
	g := newRig(t, nil)
	g.pot.v = 82
	g.pass(100 * time.Millisecond)
	if b := g.r.Controller().Brightness(); b != 80 {
		t.Fatalf("brightness=%d", b)
	}
	g.pot.v = 83
	g.pass(100 * time.Millisecond)
	if b := g.r.Controller().Brightness(); b != 83 {
		t.Fatalf("brightness=%d", b)
	}
	if g.out.lv[types.Red] != 83 {
		t.Fatalf("lit lamp not refreshed: %v", g.out.lv)
	}
}

func TestRapidButtonPressesCoalesce(t *testing.T) {
	g := newRig(t, nil)
	q := g.r.Buttons()
	q.Raise(types.Button1)
	q.Raise(types.Button1)
	g.pass(time.Millisecond)
	if m := g.r.Controller().Mode(); m != types.ModeEmergency {
		t.Fatalf("two presses before one pass should toggle once: mode=%s", m)
	}
	g.pass(time.Millisecond)
	if m := g.r.Controller().Mode(); m != types.ModeEmergency {
		t.Fatalf("flag consumed twice: mode=%s", m)
	}
	// Presses in separate passes toggle separately.
	q.Raise(types.Button1)
	g.pass(time.Millisecond)
	if m := g.r.Controller().Mode(); m != types.ModeNormal {
		t.Fatalf("mode=%s", m)
	}
}

func TestInputAppliedBeforeButtons(t *testing.T) {
	g := newRig(t, nil)
	g.lines.in = []string{"cmd:button=1;"}
	g.r.Buttons().Raise(types.Button2)
	g.pass(time.Millisecond)
	// Serial enters emergency, then the queued button switches to blink.
	if m := g.r.Controller().Mode(); m != types.ModeBlink {
		t.Fatalf("mode=%s", m)
	}
}

func TestLinesPerPassBounded(t *testing.T) {
	g := newRig(t, func(c *Config) { c.MaxLinesPerPass = 2 })
	g.lines.in = []string{"RED 100", "RED 200", "RED 300"}
	g.pass(time.Millisecond)
	if red := g.r.Controller().Durations().Red; red != 200 {
		t.Fatalf("red=%d after one pass, want 200", red)
	}
	g.pass(time.Millisecond)
	if red := g.r.Controller().Durations().Red; red != 300 {
		t.Fatalf("red=%d, want 300", red)
	}
}

func TestStatusInterval(t *testing.T) {
	g := newRig(t, func(c *Config) { c.StatusIntervalMs = 250 })
	for i := 0; i < 10; i++ {
		g.pass(50 * time.Millisecond)
	}
	// Passes at 50..500 ms: reports at 50, 300.
	if n := len(g.lines.out); n != 2 {
		t.Fatalf("status lines=%d, want 2", n)
	}
}

func TestOnLineHook(t *testing.T) {
	var seen []string
	g := newRig(t, func(c *Config) {
		c.OnLine = func(line string, p types.Plan) {
			if len(p.Issues) > 0 {
				seen = append(seen, line)
			}
		}
	})
	g.lines.in = []string{"cmd:bogus=1;", "GREEN 10"}
	g.pass(time.Millisecond)
	if len(seen) != 1 || seen[0] != "cmd:bogus=1;" {
		t.Fatalf("seen=%q", seen)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	g := newRig(t, func(c *Config) { c.PassInterval = time.Microsecond })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.r.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	if g.r.Passes() == 0 {
		t.Fatal("no passes ran")
	}
}
