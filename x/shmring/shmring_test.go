package shmring

import (
	"sync"
	"testing"
)

func TestOrderAcrossWrapWithPartialProgress(t *testing.T) {
	r := New(64)

	const N = 2000
	src := make([]byte, N)
	for i := range src {
		src[i] = byte(i)
	}

	p := src
	dst := make([]byte, 0, N)
	for len(dst) < N {
		if len(p) > 0 {
			step := 7
			if step > len(p) {
				step = len(p)
			}
			// A full ring refuses bytes; only advance by what was accepted.
			space := r.Space()
			if step > space {
				step = space
			}
			p = p[r.TryWriteFrom(p[:step]):]
		}
		var tmp [17]byte
		n := r.TryReadInto(tmp[:])
		dst = append(dst, tmp[:n]...)
	}
	for i := 0; i < N; i++ {
		if dst[i] != src[i] {
			t.Fatalf("mismatch at %d: got=%d want=%d", i, dst[i], src[i])
		}
	}
	if r.Dropped() != 0 {
		t.Fatalf("dropped=%d, want 0", r.Dropped())
	}
}

func TestReadableEdgeAndOverflow(t *testing.T) {
	r := New(8)
	select {
	case <-r.Readable():
		t.Fatal("unexpected Readable on empty ring")
	default:
	}
	if n := r.TryWriteFrom([]byte{1, 2, 3}); n != 3 {
		t.Fatalf("write 3 -> %d", n)
	}
	select {
	case <-r.Readable():
	default:
		t.Fatal("expected Readable")
	}
	select {
	case <-r.Readable():
		t.Fatal("unexpected extra Readable")
	default:
	}
	if n := r.TryWriteFrom(make([]byte, 10)); n != 5 {
		t.Fatalf("overflow write accepted %d, want 5", n)
	}
	if r.Dropped() != 5 {
		t.Fatalf("dropped=%d, want 5", r.Dropped())
	}
	if r.Space() != 0 || r.Available() != 8 {
		t.Fatalf("space=%d avail=%d", r.Space(), r.Available())
	}
}

func TestConcurrentProducer(t *testing.T) {
	r := New(16)
	const N = 4096
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < N; {
			if r.TryWriteFrom([]byte{byte(i)}) == 1 {
				i++
			}
		}
	}()
	got := 0
	var tmp [5]byte
	for got < N {
		n := r.TryReadInto(tmp[:])
		for k := 0; k < n; k++ {
			if tmp[k] != byte(got) {
				t.Fatalf("byte %d = %d", got, tmp[k])
			}
			got++
		}
	}
	wg.Wait()
}
