// Package scheduler is a cooperative task table polled once per main-cycle
// pass. Nothing in here blocks or spawns goroutines.
package scheduler

import "trafficlight-go/errcode"

// DefaultCapacity is enough for the firmware's four tasks plus headroom.
const DefaultCapacity = 8

// ID names a registered task.
type ID int

type task struct {
	interval uint32 // ms
	last     int64  // ms timestamp of the last firing
	ran      bool   // false until the first firing (or after Restart)
	enabled  bool
	fn       func()
}

type Scheduler struct {
	tasks []task
	cap   int
}

// New returns a scheduler holding at most capacity tasks.
func New(capacity int) *Scheduler {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Scheduler{tasks: make([]task, 0, capacity), cap: capacity}
}

// Add registers fn to run every interval ms. A new task fires on its first
// pass once enabled.
func (s *Scheduler) Add(interval uint32, enabled bool, fn func()) (ID, error) {
	if len(s.tasks) >= s.cap {
		return -1, errcode.Full
	}
	s.tasks = append(s.tasks, task{interval: interval, enabled: enabled, fn: fn})
	return ID(len(s.tasks) - 1), nil
}

func (s *Scheduler) get(id ID) *task {
	if id < 0 || int(id) >= len(s.tasks) {
		return nil
	}
	return &s.tasks[id]
}

// Execute runs every enabled task whose interval has elapsed, at most once
// each. Overdue tasks do not catch up; the next firing is measured from now.
func (s *Scheduler) Execute(now int64) (fired int) {
	for i := range s.tasks {
		t := &s.tasks[i]
		if !t.enabled || t.fn == nil {
			continue
		}
		if t.ran && now-t.last < int64(t.interval) {
			continue
		}
		t.ran = true
		t.last = now
		t.fn()
		fired++
	}
	return fired
}

// SetInterval changes the interval used from the next firing on. Called from
// a task's own callback this shapes the delay until that task runs again.
func (s *Scheduler) SetInterval(id ID, interval uint32) {
	if t := s.get(id); t != nil {
		t.interval = interval
	}
}

func (s *Scheduler) Interval(id ID) uint32 {
	if t := s.get(id); t != nil {
		return t.interval
	}
	return 0
}

// Enable is idempotent. The elapsed-time reference is kept across a
// Disable/Enable pair, so a task that was overdue when disabled fires on the
// next pass after re-enabling.
func (s *Scheduler) Enable(id ID) {
	if t := s.get(id); t != nil {
		t.enabled = true
	}
}

// Disable is idempotent and leaves the elapsed-time reference untouched.
func (s *Scheduler) Disable(id ID) {
	if t := s.get(id); t != nil {
		t.enabled = false
	}
}

func (s *Scheduler) Enabled(id ID) bool {
	if t := s.get(id); t != nil {
		return t.enabled
	}
	return false
}

// RestartDelayed enables the task and arms it to fire delay ms after now.
func (s *Scheduler) RestartDelayed(id ID, delay uint32, now int64) {
	if t := s.get(id); t != nil {
		t.interval = delay
		t.last = now
		t.ran = true
		t.enabled = true
	}
}

// Restart enables the task and makes it fire on the next pass.
func (s *Scheduler) Restart(id ID) {
	if t := s.get(id); t != nil {
		t.ran = false
		t.enabled = true
	}
}

// Len reports the number of registered tasks.
func (s *Scheduler) Len() int { return len(s.tasks) }
