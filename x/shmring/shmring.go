// Package shmring is a single-producer, single-consumer byte ring. The host
// serial source writes received bytes from a reader goroutine while the main
// cycle drains them without blocking.
package shmring

import "sync/atomic"

type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)

	readable chan struct{} // 0 -> >0 available edge
	dropped  atomic.Uint32 // bytes refused because the ring was full
}

// New allocates a ring of size bytes. size must be a power of two >= 2.
func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("shmring: size must be power of two >= 2")
	}
	return &Ring{
		buf:      make([]byte, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
	}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

func (r *Ring) Available() int { return int(r.wr.Load() - r.rd.Load()) }

func (r *Ring) Space() int { return int(r.size()) - r.Available() }

// Dropped reports bytes refused by TryWriteFrom since creation.
func (r *Ring) Dropped() uint32 { return r.dropped.Load() }

// Readable delivers a token when the ring goes from empty to non-empty.
func (r *Ring) Readable() <-chan struct{} { return r.readable }

// TryWriteFrom copies as much of src as fits and returns the count.
// Producer side only.
func (r *Ring) TryWriteFrom(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	before := wr - rd
	n := int(r.size() - before)
	if n > len(src) {
		n = len(src)
	}
	if short := len(src) - n; short > 0 {
		r.dropped.Add(uint32(short))
	}
	if n == 0 {
		return 0
	}
	idx := wr & r.mask
	first := copy(r.buf[idx:], src[:n])
	copy(r.buf, src[first:n])
	r.wr.Store(wr + uint32(n)) // release

	if before == 0 {
		select {
		case r.readable <- struct{}{}:
		default:
		}
	}
	return n
}

// TryReadInto copies up to len(dst) buffered bytes and returns the count.
// Consumer side only; never blocks.
func (r *Ring) TryReadInto(dst []byte) int {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	n := int(wr - rd)
	if n == 0 {
		return 0
	}
	if n > len(dst) {
		n = len(dst)
	}
	idx := rd & r.mask
	first := copy(dst[:n], r.buf[idx:])
	copy(dst[first:n], r.buf)
	r.rd.Store(rd + uint32(n)) // release
	return n
}

// Write implements io.Writer for producers; short writes are dropped bytes,
// not errors.
func (r *Ring) Write(p []byte) (int, error) {
	r.TryWriteFrom(p)
	return len(p), nil
}
