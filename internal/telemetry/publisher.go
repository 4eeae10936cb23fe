// Package telemetry fans controller transitions out over the bus and turns
// them into metrics and log lines on the host.
package telemetry

import (
	"trafficlight-go/bus"
	"trafficlight-go/internal/config"
	"trafficlight-go/types"
)

var (
	TopicMode    = bus.T("traffic", "mode")    // retained ModeEvent
	TopicPhase   = bus.T("traffic", "phase")   // retained PhaseEvent
	TopicCommand = bus.T("traffic", "command") // types.Plan
	TopicStatus  = bus.T("traffic", "status")  // retained types.Status
	TopicAll     = bus.T("traffic", "#")
)

const configPrefix = "config"

type ModeEvent struct {
	From, To types.Mode
}

type PhaseEvent struct {
	Phase  int
	Frame  types.Frame
	HoldMs uint32
}

// Publisher is a controller.Observer that publishes each transition. It
// runs on the main cycle; Publish never blocks.
type Publisher struct {
	conn *bus.Connection

	last    types.Status
	hasLast bool
}

func NewPublisher(conn *bus.Connection) *Publisher { return &Publisher{conn: conn} }

func (p *Publisher) ModeChanged(from, to types.Mode) {
	p.conn.Publish(p.conn.NewMessage(TopicMode, ModeEvent{From: from, To: to}, true))
}

func (p *Publisher) PhaseEntered(phase int, frame types.Frame, holdMs uint32) {
	p.conn.Publish(p.conn.NewMessage(TopicPhase, PhaseEvent{Phase: phase, Frame: frame, HoldMs: holdMs}, true))
}

func (p *Publisher) PlanApplied(plan types.Plan) {
	p.conn.Publish(p.conn.NewMessage(TopicCommand, plan, false))
}

// Status publishes s if it differs from the last one published.
func (p *Publisher) Status(s types.Status) {
	if p.hasLast && s == p.last {
		return
	}
	p.last, p.hasLast = s, true
	p.conn.Publish(p.conn.NewMessage(TopicStatus, s, true))
}

// Config publishes the board and timing sections as retained messages
// under config/<section>.
func (p *Publisher) Config(cfg config.Config) {
	p.conn.Publish(p.conn.NewMessage(bus.T(configPrefix, "board"), cfg.Board, true))
	p.conn.Publish(p.conn.NewMessage(bus.T(configPrefix, "timing"), cfg.Timing, true))
}
