package serialio

import (
	"sync"

	"trafficlight-go/internal/hal"
)

// Injector is a LineChannel that serves locally queued lines ahead of its
// base channel's input. Inject is safe from any goroutine; ReadLine and
// WriteLine belong to the main cycle.
type Injector struct {
	base hal.LineChannel

	mu    sync.Mutex
	queue []string
}

func NewInjector(base hal.LineChannel) *Injector { return &Injector{base: base} }

func (j *Injector) Inject(line string) {
	j.mu.Lock()
	j.queue = append(j.queue, line)
	j.mu.Unlock()
}

func (j *Injector) ReadLine() (string, bool) {
	j.mu.Lock()
	if len(j.queue) > 0 {
		s := j.queue[0]
		j.queue[0] = ""
		j.queue = j.queue[1:]
		j.mu.Unlock()
		return s, true
	}
	j.mu.Unlock()
	if j.base == nil {
		return "", false
	}
	return j.base.ReadLine()
}

func (j *Injector) WriteLine(s string) {
	if j.base != nil {
		j.base.WriteLine(s)
	}
}
