// Package buttons captures button edges from interrupt context into one
// pending bit per button, consumed by the main cycle.
package buttons

import (
	"sync/atomic"

	"trafficlight-go/errcode"
	"trafficlight-go/internal/hal"
	"trafficlight-go/types"
)

// Queue is a single-writer (ISR) / single-reader (main cycle) edge set.
// Edges raised between two Takes coalesce into one pending press.
type Queue struct {
	bits   atomic.Uint32
	raised atomic.Uint32 // total Raise calls, for diagnostics
}

func bit(b types.Button) uint32 { return 1 << (uint32(b) - 1) }

// Raise marks b pending. Safe to call from an interrupt handler.
func (q *Queue) Raise(b types.Button) {
	if !b.Valid() {
		return
	}
	q.bits.Or(bit(b))
	q.raised.Add(1)
}

// Take atomically reads and clears all pending bits.
func (q *Queue) Take() uint32 { return q.bits.Swap(0) }

// Pending reports whether any press is waiting, without consuming it.
func (q *Queue) Pending() bool { return q.bits.Load() != 0 }

// Raised reports the number of edges seen since boot.
func (q *Queue) Raised() uint32 { return q.raised.Load() }

// Drain consumes pending presses and calls fn once per button, in button
// order. It returns the number of presses delivered.
func (q *Queue) Drain(fn func(types.Button)) int {
	pending := q.Take()
	n := 0
	for b := types.Button1; b <= types.Button3; b++ {
		if pending&bit(b) != 0 {
			fn(b)
			n++
		}
	}
	return n
}

// Attach configures pin as a pulled-up input and raises b on each falling
// edge (idle high, pressed low). The returned func detaches the handler.
func (q *Queue) Attach(pin hal.IRQPin, b types.Button) (func(), error) {
	if pin == nil || !b.Valid() {
		return nil, errcode.UnknownPin
	}
	if err := pin.ConfigureInput(hal.PullUp); err != nil {
		return nil, err
	}
	// ISR handler: one atomic OR, nothing else.
	if err := pin.SetIRQ(hal.EdgeFalling, func() { q.Raise(b) }); err != nil {
		return nil, err
	}
	return func() { _ = pin.ClearIRQ() }, nil
}
