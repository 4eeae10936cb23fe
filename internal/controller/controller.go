// Package controller is the single owner of the traffic light's operating
// state: mode, normal-cycle phase, durations and brightness. All mutation
// goes through its methods, called from the main cycle only.
package controller

import (
	"trafficlight-go/errcode"
	"trafficlight-go/internal/hal"
	"trafficlight-go/internal/scheduler"
	"trafficlight-go/types"
	"trafficlight-go/x/conv"
	"trafficlight-go/x/timex"
)

const (
	DefaultBlinkIntervalMs  uint32 = 500
	DefaultRenderIntervalMs uint32 = 100
)

// Observer receives state transitions. Calls happen on the main cycle and
// must not block.
type Observer interface {
	ModeChanged(from, to types.Mode)
	PhaseEntered(phase int, frame types.Frame, holdMs uint32)
	PlanApplied(p types.Plan)
}

type Config struct {
	Out   hal.OutputDriver
	Sched *scheduler.Scheduler
	Clock timex.Clock

	Durations  types.Durations
	Brightness uint8

	BlinkIntervalMs  uint32
	RenderIntervalMs uint32

	Observer Observer // optional
}

type Controller struct {
	out   hal.OutputDriver
	sched *scheduler.Scheduler
	clock timex.Clock
	obs   Observer

	mode          types.Mode
	normalEnabled bool
	phase         int
	durations     types.Durations
	brightness    uint8
	lamps         types.Frame
	blinkOn       bool

	blinkMs uint32

	normalTask    scheduler.ID
	emergencyTask scheduler.ID
	blinkTask     scheduler.ID
}

// New registers the controller's rendering tasks on cfg.Sched, all
// disabled. Call Start to bring up Normal mode.
func New(cfg Config) (*Controller, error) {
	if cfg.Out == nil || cfg.Sched == nil || cfg.Clock == nil {
		return nil, &errcode.E{C: errcode.Error, Op: "controller.new", Msg: "missing output, scheduler or clock"}
	}
	if cfg.Durations == (types.Durations{}) {
		cfg.Durations = types.DefaultDurations()
	}
	if cfg.BlinkIntervalMs == 0 {
		cfg.BlinkIntervalMs = DefaultBlinkIntervalMs
	}
	if cfg.RenderIntervalMs == 0 {
		cfg.RenderIntervalMs = DefaultRenderIntervalMs
	}
	c := &Controller{
		out:        cfg.Out,
		sched:      cfg.Sched,
		clock:      cfg.Clock,
		obs:        cfg.Observer,
		durations:  cfg.Durations,
		brightness: cfg.Brightness,
		blinkMs:    cfg.BlinkIntervalMs,
	}
	var err error
	if c.normalTask, err = c.sched.Add(holdMs(0, c.durations), false, c.AdvanceNormalPhase); err != nil {
		return nil, errcode.Wrap(errcode.Of(err), "controller.new", err)
	}
	if c.emergencyTask, err = c.sched.Add(cfg.RenderIntervalMs, false, c.renderEmergency); err != nil {
		return nil, errcode.Wrap(errcode.Of(err), "controller.new", err)
	}
	if c.blinkTask, err = c.sched.Add(cfg.BlinkIntervalMs, false, c.blinkTick); err != nil {
		return nil, errcode.Wrap(errcode.Of(err), "controller.new", err)
	}
	return c, nil
}

// Start applies the power-up state: Normal mode at phase 0.
func (c *Controller) Start() { c.enterNormal() }

// ---- accessors ----

func (c *Controller) Mode() types.Mode           { return c.mode }
func (c *Controller) NormalEnabled() bool        { return c.normalEnabled }
func (c *Controller) Phase() int                 { return c.phase }
func (c *Controller) Durations() types.Durations { return c.durations }
func (c *Controller) Brightness() uint8          { return c.brightness }
func (c *Controller) Lamps() types.Frame         { return c.lamps }

// ---- brightness ----

// SetBrightness stores v. Outputs pick it up on the next render or Refresh.
func (c *Controller) SetBrightness(v uint8) { c.brightness = v }

// Refresh rewrites the current lamp frame at the current brightness.
func (c *Controller) Refresh() { c.render() }

// ---- modes ----

// ToggleEmergency enters or leaves red-only mode. Leaving always restarts
// Normal from phase 0; the interrupted phase is not resumed.
func (c *Controller) ToggleEmergency() {
	if c.mode == types.ModeEmergency {
		c.enterNormal()
		return
	}
	c.stopNormal()
	c.sched.Disable(c.blinkTask)
	c.blinkOn = false
	c.setMode(types.ModeEmergency)
	c.show(lampsRed)
	c.sched.RestartDelayed(c.emergencyTask, c.sched.Interval(c.emergencyTask), c.clock.NowMs())
}

// ToggleBlink enters or leaves all-lamps blink. Either way Normal's enable
// flag ends up as the negation of blink being active.
func (c *Controller) ToggleBlink() {
	if c.mode == types.ModeBlink {
		c.sched.Disable(c.blinkTask)
		c.blinkOn = false
		c.show(lampsOff)
		c.enterNormal()
		return
	}
	c.stopNormal()
	c.sched.Disable(c.emergencyTask)
	c.setMode(types.ModeBlink)
	c.blinkOn = true
	c.show(lampsAll)
	c.sched.RestartDelayed(c.blinkTask, c.blinkMs, c.clock.NowMs())
}

// ToggleNormalEnable flips the Normal on/off switch. With Normal driving,
// disabling blanks the lamps and halts the cycle (mode Off); enabling from
// Off resumes the stored phase with a fresh hold. While Emergency or Blink
// override, only the flag changes.
func (c *Controller) ToggleNormalEnable() {
	switch c.mode {
	case types.ModeNormal:
		c.stopNormal()
		c.setMode(types.ModeOff)
		c.show(lampsOff)
	case types.ModeOff:
		c.normalEnabled = true
		c.setMode(types.ModeNormal)
		c.enterPhase(c.phase)
	default:
		c.normalEnabled = !c.normalEnabled
	}
}

// AdvanceNormalPhase is the normal task's callback. It moves to the next
// phase, lights its frame and sets the task interval to that phase's hold,
// read from the live durations now.
func (c *Controller) AdvanceNormalPhase() {
	if c.mode != types.ModeNormal || !c.normalEnabled {
		c.sched.Disable(c.normalTask)
		return
	}
	c.phase = (c.phase + 1) % NumPhases
	hold := holdMs(c.phase, c.durations)
	c.show(phases[c.phase].frame)
	c.sched.SetInterval(c.normalTask, hold)
	if c.obs != nil {
		c.obs.PhaseEntered(c.phase, c.lamps, hold)
	}
}

// ---- durations ----

// SetDuration stores ms for colour col. If that colour's tunable phase is
// lit right now, the running hold is re-armed so the phase ends ms after
// this call instead of waiting on the old timer. This favours immediate
// response over keeping phase boundaries aligned.
func (c *Controller) SetDuration(col types.Color, ms uint32) {
	c.durations.Set(col, ms)
	c.rearmIfLit(col)
}

// Reapply re-arms the running hold if col's tunable phase is lit, without
// changing any duration.
func (c *Controller) Reapply(col types.Color) { c.rearmIfLit(col) }

func (c *Controller) rearmIfLit(col types.Color) {
	if c.mode != types.ModeNormal || !c.normalEnabled {
		return
	}
	ph := phases[c.phase]
	if !ph.tunable || ph.color != col {
		return
	}
	c.sched.RestartDelayed(c.normalTask, c.durations.Of(col), c.clock.NowMs())
}

// ---- events ----

// ApplyButton maps a press to its toggle.
func (c *Controller) ApplyButton(b types.Button) {
	switch b {
	case types.Button1:
		c.ToggleEmergency()
	case types.Button2:
		c.ToggleBlink()
	case types.Button3:
		c.ToggleNormalEnable()
	}
}

// ApplyPlan applies a parsed line's actions in order. The observer sees every
// plan that carries actions or issues; ignored lines are not reported.
func (c *Controller) ApplyPlan(p types.Plan) {
	for _, a := range p.Actions {
		switch a.Op {
		case types.OpSetDuration:
			c.SetDuration(a.Color, a.Value)
		case types.OpSetBrightness:
			c.SetBrightness(uint8(a.Value))
			c.Refresh()
		case types.OpSimulateButton:
			c.ApplyButton(a.Button)
		case types.OpReapply:
			c.Reapply(a.Color)
		}
	}
	if c.obs != nil && (len(p.Actions) > 0 || len(p.Issues) > 0) {
		c.obs.PlanApplied(p)
	}
}

// ---- status ----

// Status is a pure snapshot of the mode and lamp frame.
func (c *Controller) Status() types.Status {
	return types.Status{
		Mode:       c.mode,
		Brightness: c.brightness,
		Red:        c.lamps[types.Red],
		Yellow:     c.lamps[types.Yellow],
		Green:      c.lamps[types.Green],
	}
}

// AppendStatus renders s as
// "mode:<name>,brightness:<n>,red:<0|1>,yellow:<0|1>,green:<0|1>".
func AppendStatus(dst []byte, s types.Status) []byte {
	dst = append(dst, "mode:"...)
	dst = append(dst, s.Mode.String()...)
	dst = append(dst, ",brightness:"...)
	dst = conv.AppendUint(dst, uint64(s.Brightness))
	dst = append(dst, ",red:"...)
	dst = conv.AppendBit(dst, s.Red)
	dst = append(dst, ",yellow:"...)
	dst = conv.AppendBit(dst, s.Yellow)
	dst = append(dst, ",green:"...)
	dst = conv.AppendBit(dst, s.Green)
	return dst
}

// ---- internals ----

func (c *Controller) enterNormal() {
	c.sched.Disable(c.emergencyTask)
	c.sched.Disable(c.blinkTask)
	c.blinkOn = false
	c.normalEnabled = true
	c.setMode(types.ModeNormal)
	c.enterPhase(0)
}

// enterPhase lights phase p and arms its full hold from now.
func (c *Controller) enterPhase(p int) {
	c.phase = p
	hold := holdMs(p, c.durations)
	c.show(phases[p].frame)
	c.sched.RestartDelayed(c.normalTask, hold, c.clock.NowMs())
	if c.obs != nil {
		c.obs.PhaseEntered(p, c.lamps, hold)
	}
}

func (c *Controller) stopNormal() {
	c.normalEnabled = false
	c.sched.Disable(c.normalTask)
}

func (c *Controller) renderEmergency() {
	if c.mode == types.ModeEmergency {
		c.show(lampsRed)
	}
}

func (c *Controller) blinkTick() {
	if c.mode != types.ModeBlink {
		return
	}
	c.blinkOn = !c.blinkOn
	if c.blinkOn {
		c.show(lampsAll)
	} else {
		c.show(lampsOff)
	}
}

func (c *Controller) setMode(m types.Mode) {
	if m == c.mode {
		return
	}
	from := c.mode
	c.mode = m
	if c.obs != nil {
		c.obs.ModeChanged(from, m)
	}
}

func (c *Controller) show(f types.Frame) {
	c.lamps = f
	c.render()
}

func (c *Controller) render() {
	for col := types.Red; col <= types.Green; col++ {
		var lvl uint8
		if c.lamps[col] {
			lvl = c.brightness
		}
		c.out.Set(col, lvl)
	}
}
