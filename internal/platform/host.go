//go:build !rp2040 && !rp2350

package platform

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"trafficlight-go/errcode"
	"trafficlight-go/internal/config"
	"trafficlight-go/internal/hal"
	"trafficlight-go/internal/serialio"
	"trafficlight-go/types"
	"trafficlight-go/x/shmring"

	"tinygo.org/x/drivers"
)

const hostRingSize = 1024

var errADC = &errcode.E{C: errcode.Error, Op: "adc.update", Msg: "sensor failure"}

// Open builds the host board on stdin/stdout.
func Open(ctx context.Context, cfg config.Config) (*Board, error) {
	return OpenWith(ctx, cfg, os.Stdin, os.Stdout)
}

// OpenWith builds the host board reading command bytes from in and writing
// status lines to out. in is drained by a goroutine into an SPSC ring until
// it ends or ctx is done; a nil in gives a write-only channel.
func OpenWith(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// The knob starts at full scale.
	adc := &FakeADC{}
	adc.SetLevel(255)
	b := &Board{
		Name:   cfg.Board.Name,
		Out:    NewLamps(&FakePWM{TopValue: 0xFFFF}, &FakePWM{TopValue: 0xFFFF}, &FakePWM{TopValue: 0xFFFF}),
		Analog: NewPot(adc),
	}
	for i, n := range cfg.Board.ButtonPins() {
		b.Buttons[i] = NewFakePin(n, true)
	}
	var src serialio.Source
	if in != nil {
		ring := shmring.New(hostRingSize)
		src = serialio.RingSource{R: ring}
		go func() { _ = serialio.Pump(ctx, in, ring) }()
	}
	b.Lines = serialio.New(src, out, cfg.Timing.MaxLine)
	return b, nil
}

// HostADC returns the simulated pot.
func (b *Board) HostADC() *FakeADC {
	adc, _ := b.Analog.s.(*FakeADC)
	return adc
}

// HostPin returns the simulated pin wired to btn, or nil.
func (b *Board) HostPin(btn types.Button) *FakePin {
	if !btn.Valid() {
		return nil
	}
	p, _ := b.Buttons[btn-1].(*FakePin)
	return p
}

// ----------------------------- PWM (host) ------------------------------------

// FakePWM records the last duty value.
type FakePWM struct {
	TopValue uint32
	value    atomic.Uint32
}

func (p *FakePWM) Set(v uint32)  { p.value.Store(v) }
func (p *FakePWM) Top() uint32   { return p.TopValue }
func (p *FakePWM) Value() uint32 { return p.value.Load() }

// ----------------------------- ADC (host) ------------------------------------

// FakeADC is a settable voltage sensor. Values are stored atomically so a
// simulator goroutine can turn the knob while the main cycle samples.
type FakeADC struct {
	raw  atomic.Uint32
	fail atomic.Bool
}

func (a *FakeADC) Update(which drivers.Measurement) error {
	if a.fail.Load() {
		return errADC
	}
	return nil
}

func (a *FakeADC) Raw() uint16 { return uint16(a.raw.Load()) }

// SetRaw sets the 16-bit sample.
func (a *FakeADC) SetRaw(v uint16) { a.raw.Store(uint32(v)) }

// SetLevel positions the knob so that it reads back as level.
func (a *FakeADC) SetLevel(level uint8) { a.raw.Store(uint32(level) * 257) }

// Fail makes subsequent updates fail (or succeed again).
func (a *FakeADC) Fail(on bool) { a.fail.Store(on) }

// ----------------------------- GPIO (host) -----------------------------------

// FakePin implements hal.IRQPin. Set drives the level and fires the handler
// synchronously on a matching edge, as an interrupt would.
type FakePin struct {
	mu      sync.RWMutex
	number  int
	level   bool
	pull    hal.Pull
	irqEdge hal.Edge
	irqFunc func()
}

func NewFakePin(n int, level bool) *FakePin { return &FakePin{number: n, level: level} }

func (p *FakePin) ConfigureInput(pull hal.Pull) error {
	p.mu.Lock()
	p.pull = pull
	if pull == hal.PullUp {
		p.level = true
	}
	p.mu.Unlock()
	return nil
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	irq := p.irqFunc
	want := irqWanted(p.irqEdge, edgeFrom(old, level))
	p.mu.Unlock()
	if want && irq != nil {
		irq()
	}
}

// Press pulls the pin low and releases it, as a momentary button to ground.
func (p *FakePin) Press() {
	p.Set(false)
	p.Set(true)
}

func (p *FakePin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *FakePin) Number() int { return p.number }

func (p *FakePin) Pull() hal.Pull {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pull
}

func (p *FakePin) SetIRQ(edge hal.Edge, handler func()) error {
	p.mu.Lock()
	p.irqEdge = edge
	p.irqFunc = handler
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ClearIRQ() error {
	p.mu.Lock()
	p.irqEdge = hal.EdgeNone
	p.irqFunc = nil
	p.mu.Unlock()
	return nil
}

func edgeFrom(old, new bool) hal.Edge {
	switch {
	case !old && new:
		return hal.EdgeRising
	case old && !new:
		return hal.EdgeFalling
	default:
		return hal.EdgeNone
	}
}

func irqWanted(cfg, seen hal.Edge) bool {
	if seen == hal.EdgeNone {
		return false
	}
	if cfg == hal.EdgeBoth {
		return true
	}
	return cfg == seen
}
