// Package serialio turns a non-blocking byte transport into the
// line-oriented channel the main cycle reads commands from and writes status
// lines to.
package serialio

import (
	"io"

	"trafficlight-go/errcode"
)

// Source is a non-blocking byte source. TryRead returns 0 when nothing is
// buffered; it must never wait for data.
type Source interface {
	TryRead(p []byte) (int, error)
}

const (
	DefaultMaxLine = 128
	chunk          = 32
)

// Channel assembles LF-terminated lines (CR ignored) from a Source and
// writes newline-terminated lines to a Writer. Transport errors are counted
// and otherwise treated as "no data this pass".
type Channel struct {
	src Source
	w   io.Writer

	max       int
	line      []byte
	truncated bool
	pending   []byte // bytes read but not yet split into lines

	readErrs  uint32
	writeErrs uint32
	lastErr   error

	tx []byte
}

// New returns a Channel over src and w. maxLine bounds a single line;
// longer input is truncated to maxLine bytes.
func New(src Source, w io.Writer, maxLine int) *Channel {
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}
	return &Channel{
		src:     src,
		w:       w,
		max:     maxLine,
		line:    make([]byte, 0, maxLine),
		pending: make([]byte, 0, chunk),
		tx:      make([]byte, 0, maxLine+1),
	}
}

// ReadLine returns the next complete line without its terminator.
func (c *Channel) ReadLine() (string, bool) {
	for {
		for i, b := range c.pending {
			switch b {
			case '\n':
				c.pending = c.pending[:copy(c.pending, c.pending[i+1:])]
				s := string(c.line)
				c.line = c.line[:0]
				c.truncated = false
				return s, true
			case '\r':
			default:
				if len(c.line) < c.max {
					c.line = append(c.line, b)
				} else {
					c.truncated = true
				}
			}
		}
		c.pending = c.pending[:0]
		if c.src == nil {
			return "", false
		}
		var buf [chunk]byte
		n, err := c.src.TryRead(buf[:])
		if err != nil {
			c.readErrs++
			c.lastErr = errcode.Wrap(errcode.Error, "serial.read", err)
		}
		if n <= 0 {
			return "", false
		}
		c.pending = append(c.pending, buf[:n]...)
	}
}

// WriteLine writes s followed by "\n". Failures are counted, not returned.
func (c *Channel) WriteLine(s string) {
	c.tx = append(c.tx[:0], s...)
	c.tx = append(c.tx, '\n')
	c.Write(c.tx)
}

// Write sends p as-is, counting failures.
func (c *Channel) Write(p []byte) {
	if c.w == nil {
		return
	}
	if _, err := c.w.Write(p); err != nil {
		c.writeErrs++
		c.lastErr = errcode.Wrap(errcode.WriteFailed, "serial.write", err)
	}
}

// Truncated reports whether the line being assembled overflowed.
func (c *Channel) Truncated() bool { return c.truncated }

// Errors reports read and write failures since creation and the last one.
func (c *Channel) Errors() (reads, writes uint32, last error) {
	return c.readErrs, c.writeErrs, c.lastErr
}
