package timex

import (
	"sync/atomic"
	"time"
)

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Clock yields a millisecond timestamp. Only differences are meaningful.
type Clock interface {
	NowMs() int64
}

// System is the wall clock.
type System struct{}

func (System) NowMs() int64 { return NowMs() }

// Manual is a clock advanced by hand, used by the simulator's virtual time
// mode and by tests. Safe for concurrent reads.
type Manual struct{ ms atomic.Int64 }

func NewManual(start int64) *Manual {
	m := &Manual{}
	m.ms.Store(start)
	return m
}

func (m *Manual) NowMs() int64 { return m.ms.Load() }

// Advance moves the clock forward by d (rounded down to whole ms).
func (m *Manual) Advance(d time.Duration) int64 { return m.ms.Add(d.Milliseconds()) }

func (m *Manual) Set(ms int64) { m.ms.Store(ms) }
