package serialio

import (
	"context"
	"io"
	"time"

	"trafficlight-go/x/shmring"
)

// RingSource reads from the consumer side of an SPSC ring.
type RingSource struct{ R *shmring.Ring }

func (s RingSource) TryRead(p []byte) (int, error) { return s.R.TryReadInto(p), nil }

// PumpRetry is how long Pump sleeps while the ring is full.
const PumpRetry = time.Millisecond

// Pump copies r into ring until r fails or ctx is done. It is the ring's
// only producer and runs on its own goroutine; when the ring is full it
// waits for the consumer rather than dropping input.
func Pump(ctx context.Context, r io.Reader, ring *shmring.Ring) error {
	buf := make([]byte, 64)
	var wait *time.Timer
	for {
		n, err := r.Read(buf)
		p := buf[:n]
		for len(p) > 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			k := ring.TryWriteFrom(p[:min(len(p), ring.Space())])
			if k == 0 {
				if wait == nil {
					wait = time.NewTimer(PumpRetry)
				} else {
					wait.Reset(PumpRetry)
				}
				select {
				case <-ctx.Done():
					wait.Stop()
					return ctx.Err()
				case <-wait.C:
				}
				continue
			}
			p = p[k:]
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
