package telemetry

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trafficlight-go/bus"
	"trafficlight-go/errcode"
	"trafficlight-go/internal/command"
	"trafficlight-go/internal/controller"
	"trafficlight-go/internal/scheduler"
	"trafficlight-go/types"
	"trafficlight-go/x/timex"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func mustContain(t *testing.T, body string, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if !strings.Contains(body, l) {
			t.Fatalf("missing %q in:\n%s", l, body)
		}
	}
}

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics()
	m.Observe(&bus.Message{Payload: ModeEvent{From: types.ModeNormal, To: types.ModeBlink}})
	m.Observe(&bus.Message{Payload: PhaseEvent{Phase: 3, HoldMs: 167}})
	m.Observe(&bus.Message{Payload: PhaseEvent{Phase: 3, HoldMs: 167}})
	m.Observe(&bus.Message{Payload: command.Parse("cmd:bogus=1;brightness=x;")})
	m.Observe(&bus.Message{Payload: types.Status{Mode: types.ModeBlink, Brightness: 42, Red: true, Green: true}})

	mustContain(t, scrape(t, m),
		`trafficlight_mode_changes_total{mode="blink"} 1`,
		`trafficlight_mode{mode="blink"} 1`,
		`trafficlight_mode{mode="normal"} 0`,
		`trafficlight_normal_phase_entries_total{phase="3"} 2`,
		`trafficlight_normal_phase_hold_milliseconds 167`,
		`trafficlight_serial_commands_total{form="batch"} 1`,
		`trafficlight_serial_command_issues_total{code="`+string(errcode.UnknownKey)+`"} 1`,
		`trafficlight_serial_command_issues_total{code="`+string(errcode.InvalidNumeric)+`"} 1`,
		`trafficlight_brightness 42`,
		`trafficlight_lamp_lit{color="yellow"} 0`,
		`trafficlight_lamp_lit{color="green"} 1`,
	)
}

func TestMetricsRunFromBus(t *testing.T) {
	b := bus.NewBus(16)
	m := NewMetrics()
	sub := b.NewConnection("metrics").Subscribe(TopicAll)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { m.Run(ctx, sub); close(done) }()

	p := NewPublisher(b.NewConnection("ctl"))
	p.ModeChanged(types.ModeNormal, types.ModeEmergency)

	deadline := time.Now().Add(time.Second)
	for {
		if strings.Contains(scrape(t, m), `trafficlight_mode_changes_total{mode="emergency"} 1`) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("metric not updated from bus")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}

type nopOut struct{}

func (nopOut) Set(types.Color, uint8) {}

func TestIssueOnlyLineCounted(t *testing.T) {
	b := bus.NewBus(16)
	sub := b.NewConnection("metrics").Subscribe(TopicCommand)
	ctl, err := controller.New(controller.Config{
		Out:      nopOut{},
		Sched:    scheduler.New(8),
		Clock:    timex.NewManual(0),
		Observer: NewPublisher(b.NewConnection("ctl")),
	})
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	ctl.ApplyPlan(command.Parse("cmd:bogus=1;"))

	var msg *bus.Message
	select {
	case msg = <-sub.Channel():
	case <-time.After(time.Second):
		t.Fatal("issue-only plan not published")
	}
	m := NewMetrics()
	m.Observe(msg)
	mustContain(t, scrape(t, m),
		`trafficlight_serial_commands_total{form="batch"} 1`,
		`trafficlight_serial_command_issues_total{code="`+string(errcode.UnknownKey)+`"} 1`,
	)
}
