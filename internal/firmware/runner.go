// Package firmware is the main cycle: it drains serial input and button
// flags into the controller, runs the scheduler, then reports status. One
// goroutine calls Pass repeatedly; nothing in a pass blocks.
package firmware

import (
	"context"
	"time"

	"trafficlight-go/errcode"
	"trafficlight-go/internal/buttons"
	"trafficlight-go/internal/command"
	"trafficlight-go/internal/controller"
	"trafficlight-go/internal/hal"
	"trafficlight-go/internal/scheduler"
	"trafficlight-go/types"
	"trafficlight-go/x/timex"
)

const (
	DefaultBrightnessIntervalMs uint32 = 100
	DefaultMaxLinesPerPass             = 10
	DefaultPotDeadband          uint8  = 2
	DefaultPassInterval                = time.Millisecond
)

type Config struct {
	Out     hal.OutputDriver
	Analog  hal.AnalogSource
	Lines   hal.LineChannel    // optional
	Buttons *buttons.Queue     // optional
	Clock   timex.Clock

	Durations            types.Durations
	BrightnessIntervalMs uint32
	BlinkIntervalMs      uint32
	RenderIntervalMs     uint32
	StatusIntervalMs     uint32 // 0 = every pass
	MaxLinesPerPass      int
	PotDeadband          uint8
	PassInterval         time.Duration

	Observer controller.Observer
	// OnLine, if set, sees every parsed input line (for host-side logging).
	OnLine func(line string, p types.Plan)
}

type Runner struct {
	cfg   Config
	clock timex.Clock
	sched *scheduler.Scheduler
	ctl   *controller.Controller
	lines hal.LineChannel
	btns  *buttons.Queue

	potSeen bool
	lastPot uint8

	statusAt   int64
	statusOnce bool
	statusBuf  []byte

	passes uint64
}

func New(cfg Config) (*Runner, error) {
	if cfg.Analog == nil || cfg.Clock == nil {
		return nil, &errcode.E{C: errcode.Error, Op: "firmware.new", Msg: "missing analog source or clock"}
	}
	if cfg.BrightnessIntervalMs == 0 {
		cfg.BrightnessIntervalMs = DefaultBrightnessIntervalMs
	}
	if cfg.MaxLinesPerPass <= 0 {
		cfg.MaxLinesPerPass = DefaultMaxLinesPerPass
	}
	if cfg.PassInterval <= 0 {
		cfg.PassInterval = DefaultPassInterval
	}
	r := &Runner{
		cfg:       cfg,
		clock:     cfg.Clock,
		sched:     scheduler.New(scheduler.DefaultCapacity),
		lines:     cfg.Lines,
		btns:      cfg.Buttons,
		statusBuf: make([]byte, 0, 64),
	}
	if r.btns == nil {
		r.btns = &buttons.Queue{}
	}
	ctl, err := controller.New(controller.Config{
		Out:              cfg.Out,
		Sched:            r.sched,
		Clock:            cfg.Clock,
		Durations:        cfg.Durations,
		BlinkIntervalMs:  cfg.BlinkIntervalMs,
		RenderIntervalMs: cfg.RenderIntervalMs,
		Observer:         cfg.Observer,
	})
	if err != nil {
		return nil, err
	}
	r.ctl = ctl
	if _, err := r.sched.Add(cfg.BrightnessIntervalMs, true, r.sampleBrightness); err != nil {
		return nil, errcode.Wrap(errcode.Of(err), "firmware.new", err)
	}
	return r, nil
}

func (r *Runner) Controller() *controller.Controller { return r.ctl }
func (r *Runner) Buttons() *buttons.Queue            { return r.btns }
func (r *Runner) Passes() uint64                     { return r.passes }

// Start samples the potentiometer and brings up Normal mode at phase 0.
func (r *Runner) Start() {
	r.sampleBrightness()
	r.ctl.Start()
}

// Pass runs one main-cycle iteration. Input is applied before the scheduler
// runs, and the status line is written last, so a report always reflects
// this pass's input and ticks.
func (r *Runner) Pass() {
	if r.lines != nil {
		for i := 0; i < r.cfg.MaxLinesPerPass; i++ {
			line, ok := r.lines.ReadLine()
			if !ok {
				break
			}
			p := command.Parse(line)
			if r.cfg.OnLine != nil {
				r.cfg.OnLine(line, p)
			}
			r.ctl.ApplyPlan(p)
		}
	}

	r.btns.Drain(r.ctl.ApplyButton)

	now := r.clock.NowMs()
	r.sched.Execute(now)

	if r.lines != nil && r.statusDue(now) {
		r.statusBuf = controller.AppendStatus(r.statusBuf[:0], r.ctl.Status())
		r.lines.WriteLine(string(r.statusBuf))
	}
	r.passes++
}

// Run calls Pass until ctx is done, sleeping PassInterval between passes so
// other goroutines (USB, UART pumps) get scheduled.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		r.Pass()
		time.Sleep(r.cfg.PassInterval)
	}
}

func (r *Runner) statusDue(now int64) bool {
	iv := int64(r.cfg.StatusIntervalMs)
	if iv == 0 || !r.statusOnce || now-r.statusAt >= iv {
		r.statusOnce = true
		r.statusAt = now
		return true
	}
	return false
}

// sampleBrightness pushes the pot reading into the controller when it has
// moved past the deadband. A brightness set over serial therefore holds
// until someone turns the knob.
func (r *Runner) sampleBrightness() {
	v := r.cfg.Analog.Brightness()
	if r.potSeen {
		d := int(v) - int(r.lastPot)
		if d < 0 {
			d = -d
		}
		if d <= int(r.cfg.PotDeadband) {
			return
		}
	}
	r.potSeen = true
	r.lastPot = v
	r.ctl.SetBrightness(v)
	r.ctl.Refresh()
}
