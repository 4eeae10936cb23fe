//go:build rp2040 || rp2350

package platform

import (
	"context"
	"io"
	"machine"

	"trafficlight-go/errcode"
	"trafficlight-go/internal/config"
	"trafficlight-go/internal/hal"
	"trafficlight-go/internal/serialio"

	"github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers"
)

// Open configures the lamp PWM channels, the pot ADC, the button pins and
// the serial transport named by cfg. ctx is unused on hardware; transports
// are polled from the main cycle.
func Open(_ context.Context, cfg config.Config) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bc := cfg.Board
	b := &Board{Name: bc.Name}

	var ch [3]PWM
	for i, n := range bc.LampPins() {
		p, err := newPWM(n, uint64(bc.PWMPeriodNs))
		if err != nil {
			return nil, err
		}
		ch[i] = p
	}
	b.Out = NewLamps(ch[0], ch[1], ch[2])

	machine.InitADC()
	adc := machine.ADC{Pin: machine.Pin(bc.PotPin)}
	adc.Configure(machine.ADCConfig{})
	b.Analog = NewPot(&adcSensor{adc: adc})

	for i, n := range bc.ButtonPins() {
		b.Buttons[i] = &rp2Pin{p: machine.Pin(n), n: n}
	}

	src, w, err := openSerial(bc)
	if err != nil {
		return nil, err
	}
	b.Lines = serialio.New(src, w, cfg.Timing.MaxLine)
	return b, nil
}

// -----------------------------------------------------------------------------
// PWM
// -----------------------------------------------------------------------------

// Local interface to avoid depending on an unexported concrete type in machine.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Top() uint32
	Set(channel uint8, value uint32)
}

func pwmGroupBySlice(slice uint8) pwmCtrl {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

// Slices configured so far; a slice's two channels share one period.
var slicePeriod [8]uint64

type rp2PWM struct {
	ctrl pwmCtrl
	ch   uint8 // 0 => A, 1 => B
}

func newPWM(pin int, periodNs uint64) (*rp2PWM, error) {
	slice := uint8(pin>>1) & 7
	ctrl := pwmGroupBySlice(slice)
	switch slicePeriod[slice] {
	case 0:
		if err := ctrl.Configure(machine.PWMConfig{Period: periodNs}); err != nil {
			return nil, err
		}
		slicePeriod[slice] = periodNs
	case periodNs:
	default:
		return nil, &errcode.E{C: errcode.Unsupported, Op: "pwm.configure", Msg: "slice already runs at another period"}
	}
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinPWM})
	p := &rp2PWM{ctrl: ctrl, ch: uint8(pin & 1)}
	p.Set(0)
	return p, nil
}

func (p *rp2PWM) Set(v uint32) { p.ctrl.Set(p.ch, v) }
func (p *rp2PWM) Top() uint32  { return p.ctrl.Top() }

// -----------------------------------------------------------------------------
// ADC
// -----------------------------------------------------------------------------

// adcSensor reads the pot wiper as a drivers.Sensor.
type adcSensor struct {
	adc machine.ADC
	raw uint16
}

func (s *adcSensor) Update(which drivers.Measurement) error {
	if which&drivers.Voltage == 0 {
		return nil
	}
	s.raw = s.adc.Get()
	return nil
}

func (s *adcSensor) Raw() uint16 { return s.raw }

// -----------------------------------------------------------------------------
// GPIO (buttons)
// -----------------------------------------------------------------------------

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(pull hal.Pull) error {
	var mode machine.PinMode
	switch pull {
	case hal.PullUp:
		mode = machine.PinInputPullup
	case hal.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) Get() bool   { return r.p.Get() }
func (r *rp2Pin) Number() int { return r.n }

func (r *rp2Pin) SetIRQ(edge hal.Edge, handler func()) error {
	return r.p.SetInterrupt(toPinChange(edge), func(machine.Pin) { handler() })
}

func (r *rp2Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

func toPinChange(e hal.Edge) machine.PinChange {
	switch e {
	case hal.EdgeRising:
		return machine.PinRising
	case hal.EdgeFalling:
		return machine.PinFalling
	case hal.EdgeBoth:
		return machine.PinToggle
	default:
		var zero machine.PinChange
		return zero
	}
}

// -----------------------------------------------------------------------------
// Serial
// -----------------------------------------------------------------------------

func openSerial(bc config.Board) (serialio.Source, io.Writer, error) {
	switch bc.Serial {
	case config.SerialUART1:
		u := uartx.UART1
		if err := u.Configure(uartx.UARTConfig{
			BaudRate: bc.Baud,
			TX:       machine.UART1_TX_PIN,
			RX:       machine.UART1_RX_PIN,
		}); err != nil {
			return nil, nil, err
		}
		return uartSource{u: u}, u, nil
	case config.SerialUSB:
		return usbSource{}, machine.Serial, nil
	}
	return nil, nil, &errcode.E{C: errcode.Unsupported, Op: "serial.open", Msg: bc.Serial}
}

// uartSource polls the uartx receive buffer without waiting.
type uartSource struct{ u *uartx.UART }

func (s uartSource) TryRead(p []byte) (int, error) {
	if s.u.Buffered() == 0 {
		return 0, nil
	}
	return s.u.TryRead(p)
}

// usbSource polls the USB CDC receive buffer without waiting.
type usbSource struct{}

func (usbSource) TryRead(p []byte) (int, error) {
	n := 0
	for n < len(p) && machine.Serial.Buffered() > 0 {
		c, err := machine.Serial.ReadByte()
		if err != nil {
			return n, err
		}
		p[n] = c
		n++
	}
	return n, nil
}
