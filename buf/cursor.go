package buf

import "encoding/binary"

// Cursor is a non-owning sliding window over an accumulating byte
// stream. Bytes are appended by the driver (a transport, or a test)
// via Write; decoders consume them via the Read*/Peek*/Skip family and
// never see more than what has actually arrived.
//
// A Cursor owns exactly one RefBuf-backed allocation that grows as
// needed; reads never return partial results; anything past
// writerIndex is "not yet arrived" and every read method reports that
// explicitly rather than returning a truncated answer.
type Cursor struct {
	buf         *RefBuf
	readerIndex int
	writerIndex int
}

// NewCursor returns an empty cursor with a small initial allocation.
func NewCursor() *Cursor {
	return &Cursor{buf: New(make([]byte, 0, 256))}
}

// Write appends p to the stream, growing the backing allocation if
// necessary. It never fails.
func (c *Cursor) Write(p []byte) {
	need := c.writerIndex + len(p)
	data := c.buf.Bytes()
	if need > cap(data) {
		grown := make([]byte, len(data), max(need*2, 256))
		copy(grown, data)
		c.buf = New(grown)
	}
	raw := c.buf.s.data
	if need > len(raw) {
		raw = raw[:need]
		c.buf.s.data = raw
		c.buf.end = len(raw)
	}
	copy(raw[c.writerIndex:need], p)
	c.writerIndex = need
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ReadableBytes reports how many unread bytes are currently available.
func (c *Cursor) ReadableBytes() int {
	return c.writerIndex - c.readerIndex
}

// ReaderIndex reports the current read offset.
func (c *Cursor) ReaderIndex() int {
	return c.readerIndex
}

// WriterIndex reports the current write offset.
func (c *Cursor) WriterIndex() int {
	return c.writerIndex
}

// SetReaderIndex rewinds or advances the reader index directly. Used
// by decoders that need to un-read a partially examined frame.
func (c *Cursor) SetReaderIndex(i int) {
	if i < 0 || i > c.writerIndex {
		panic("buf: reader index out of range")
	}
	c.readerIndex = i
}

// Peek returns the byte at readerIndex+i without consuming it. The
// second return value is false if that byte has not arrived yet.
func (c *Cursor) Peek(i int) (byte, bool) {
	idx := c.readerIndex + i
	if idx >= c.writerIndex {
		return 0, false
	}
	return c.buf.s.data[idx], true
}

// PeekUnsignedShortBE reads a big-endian uint16 at readerIndex+i
// without consuming it.
func (c *Cursor) PeekUnsignedShortBE(i int) (uint16, bool) {
	if c.readerIndex+i+2 > c.writerIndex {
		return 0, false
	}
	return binary.BigEndian.Uint16(c.buf.s.data[c.readerIndex+i : c.readerIndex+i+2]), true
}

// ReadByte consumes and returns one byte.
func (c *Cursor) ReadByte() (byte, bool) {
	b, ok := c.Peek(0)
	if !ok {
		return 0, false
	}
	c.readerIndex++
	return b, true
}

// ReadUnsignedShortBE consumes and returns a big-endian uint16.
func (c *Cursor) ReadUnsignedShortBE() (uint16, bool) {
	v, ok := c.PeekUnsignedShortBE(0)
	if !ok {
		return 0, false
	}
	c.readerIndex += 2
	return v, true
}

// ReadSlice consumes n bytes and returns a retained RefBuf view over
// them. Returns false (without consuming anything) if fewer than n
// bytes are available.
func (c *Cursor) ReadSlice(n int) (*RefBuf, bool) {
	if c.readerIndex+n > c.writerIndex {
		return nil, false
	}
	view := c.buf.RetainedSlice(c.readerIndex, n)
	c.readerIndex += n
	return view, true
}

// SkipBytes advances the reader index by n without retaining
// anything. Returns false (without consuming anything) if fewer than
// n bytes are available.
func (c *Cursor) SkipBytes(n int) bool {
	if c.readerIndex+n > c.writerIndex {
		return false
	}
	c.readerIndex += n
	return true
}

// FindByte scans up to length unread bytes starting at start (relative
// to readerIndex) for the first byte satisfying predicate, returning
// its index relative to readerIndex, or -1 if not found within the
// bytes currently available. length is clamped to ReadableBytes; if
// the scan reaches the end of available data without a match, -1 is
// returned regardless of whether more bytes might still arrive — the
// caller decides whether that means "need more data".
func (c *Cursor) FindByte(start, length int, predicate func(byte) bool) int {
	avail := c.ReadableBytes()
	if start >= avail {
		return -1
	}
	if start+length > avail {
		length = avail - start
	}
	base := c.readerIndex + start
	for i := 0; i < length; i++ {
		if predicate(c.buf.s.data[base+i]) {
			return start + i
		}
	}
	return -1
}

// DiscardReadBytes compacts the buffer by dropping everything before
// readerIndex, so long-lived cursors (one per connection) don't retain
// unbounded memory for already-consumed bytes.
func (c *Cursor) DiscardReadBytes() {
	if c.readerIndex == 0 {
		return
	}
	data := c.buf.s.data
	fresh := make([]byte, c.writerIndex-c.readerIndex, cap(data))
	n := copy(fresh, data[c.readerIndex:c.writerIndex])
	c.buf = New(fresh)
	c.writerIndex = n
	c.readerIndex = 0
}
