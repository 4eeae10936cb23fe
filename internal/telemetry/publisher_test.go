package telemetry

import (
	"testing"
	"time"

	"trafficlight-go/bus"
	"trafficlight-go/internal/config"
	"trafficlight-go/internal/controller"
	"trafficlight-go/types"
)

var _ controller.Observer = (*Publisher)(nil)

func recv(t *testing.T, s *bus.Subscription) *bus.Message {
	t.Helper()
	select {
	case m := <-s.Channel():
		return m
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("timeout on %v", s.Topic())
		return nil
	}
}

func TestPublisherRetainsModeAndPhase(t *testing.T) {
	b := bus.NewBus(8)
	p := NewPublisher(b.NewConnection("ctl"))
	p.ModeChanged(types.ModeOff, types.ModeNormal)
	p.PhaseEntered(2, types.FrameOf(false, false, true), 2000)

	late := b.NewConnection("late")
	m := recv(t, late.Subscribe(TopicMode)).Payload.(ModeEvent)
	if m.To != types.ModeNormal || m.From != types.ModeOff {
		t.Fatalf("mode=%+v", m)
	}
	ph := recv(t, late.Subscribe(TopicPhase)).Payload.(PhaseEvent)
	if ph.Phase != 2 || !ph.Frame[types.Green] || ph.HoldMs != 2000 {
		t.Fatalf("phase=%+v", ph)
	}
}

func TestPublisherStatusOnlyOnChange(t *testing.T) {
	b := bus.NewBus(8)
	c := b.NewConnection("sink")
	s := c.Subscribe(TopicStatus)
	p := NewPublisher(b.NewConnection("ctl"))

	st := types.Status{Mode: types.ModeNormal, Brightness: 80, Red: true}
	p.Status(st)
	p.Status(st)
	st.Brightness = 81
	p.Status(st)

	if got := recv(t, s).Payload.(types.Status); got.Brightness != 80 {
		t.Fatalf("first=%+v", got)
	}
	if got := recv(t, s).Payload.(types.Status); got.Brightness != 81 {
		t.Fatalf("second=%+v", got)
	}
	select {
	case m := <-s.Channel():
		t.Fatalf("duplicate status published: %+v", m.Payload)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestPublisherCommandNotRetained(t *testing.T) {
	b := bus.NewBus(8)
	p := NewPublisher(b.NewConnection("ctl"))
	p.PlanApplied(types.Plan{Form: types.FormSingle, Actions: []types.Action{types.SetDuration(types.Red, 10)}})

	s := b.NewConnection("late").Subscribe(TopicCommand)
	select {
	case m := <-s.Channel():
		t.Fatalf("command replayed: %+v", m.Payload)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestPublisherConfigSections(t *testing.T) {
	b := bus.NewBus(8)
	p := NewPublisher(b.NewConnection("ctl"))
	p.Config(config.Default())

	s := b.NewConnection("ui").Subscribe(bus.T(configPrefix, "+"))
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		m := recv(t, s)
		seen[m.Topic[1].(string)] = true
		switch v := m.Payload.(type) {
		case config.Board:
			if v.RedPin != 5 {
				t.Fatalf("board=%+v", v)
			}
		case config.Timing:
			if v.Durations.Red != 2000 {
				t.Fatalf("timing=%+v", v)
			}
		default:
			t.Fatalf("unexpected payload %T", v)
		}
	}
	if !seen["board"] || !seen["timing"] {
		t.Fatalf("sections=%v", seen)
	}
}
