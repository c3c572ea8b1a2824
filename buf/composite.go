package buf

// Composite accumulates a sequence of RefBuf chunks into a single
// logical buffer without requiring every chunk to be copied up front.
// It is the "allocate a composite buffer" capability spec.md leaves to
// the external transport layer; this is the reference implementation
// used by the bulk aggregator and by tests that exercise it directly.
type Composite struct {
	parts []*RefBuf
	size  int
}

// NewComposite returns an empty composite buffer.
func NewComposite() *Composite {
	return &Composite{}
}

// Append retains and appends a chunk to the composite.
func (c *Composite) Append(chunk *RefBuf) {
	c.parts = append(c.parts, chunk.Retain())
	c.size += chunk.Len()
}

// Len reports the total number of bytes appended so far.
func (c *Composite) Len() int {
	return c.size
}

// Finish flattens the accumulated chunks into a single owned RefBuf
// and releases the composite's own references to the chunks. The
// returned RefBuf has a reference count of one.
func (c *Composite) Finish() *RefBuf {
	out := make([]byte, 0, c.size)
	for _, p := range c.parts {
		out = append(out, p.Bytes()...)
		p.Release()
	}
	c.parts = nil
	c.size = 0
	return New(out)
}

// Discard releases every chunk retained so far without producing a
// result. Used when a decoder is torn down mid-aggregation.
func (c *Composite) Discard() {
	for _, p := range c.parts {
		p.Release()
	}
	c.parts = nil
	c.size = 0
}
