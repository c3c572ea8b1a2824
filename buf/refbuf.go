// Package buf provides the reference-counted byte buffer and the
// accumulating cursor that both codec cores are built on. Neither type
// is tied to a specific transport: a RefBuf only knows how to slice,
// retain, release and duplicate itself, and a Cursor only knows how to
// accumulate bytes and hand back RefBuf views of them.
package buf

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrIllegalReferenceCount is returned by Release when a RefBuf's
// count has already reached zero. A second release must be
// observable, never silently ignored.
var ErrIllegalReferenceCount = errors.New("buf: illegal reference count (already released)")

// store is the underlying allocation shared by a RefBuf and every
// slice/duplicate taken from it. Only store carries a reference count;
// RefBuf values are lightweight views over it.
type store struct {
	data     []byte
	refCount int32
}

func (s *store) retain() {
	atomic.AddInt32(&s.refCount, 1)
}

func (s *store) release() (bool, error) {
	n := atomic.AddInt32(&s.refCount, -1)
	if n < 0 {
		return false, ErrIllegalReferenceCount
	}
	return n == 0, nil
}

// RefBuf is a reference-counted, sliceable view over an owned byte
// allocation. The zero value is not usable; construct one with New.
type RefBuf struct {
	s          *store
	start, end int
}

// New wraps data in a freshly allocated store with a reference count
// of one. The caller owns the returned RefBuf and must Release it
// exactly once (after Retain-ing for however many additional owners
// exist).
func New(data []byte) *RefBuf {
	return &RefBuf{s: &store{data: data, refCount: 1}, start: 0, end: len(data)}
}

// Len reports the number of bytes visible through this view.
func (b *RefBuf) Len() int {
	return b.end - b.start
}

// Bytes returns the slice of the underlying allocation visible
// through this view. The caller must not retain the returned slice
// beyond the RefBuf's lifetime without copying it.
func (b *RefBuf) Bytes() []byte {
	return b.s.data[b.start:b.end]
}

// Retain increments the shared reference count and returns the
// receiver, mirroring the fluent retain() convention of netty-style
// buffers.
func (b *RefBuf) Retain() *RefBuf {
	b.s.retain()
	return b
}

// Release decrements the shared reference count. It returns true when
// this was the final reference (the caller may now drop the backing
// array). Releasing a RefBuf whose count has already reached zero
// returns ErrIllegalReferenceCount.
func (b *RefBuf) Release() (bool, error) {
	return b.s.release()
}

// Slice returns a new, non-retaining view over [off, off+length) of
// this view's bytes. The slice shares the parent's reference count: it
// is valid exactly as long as some owner of the parent (or one of its
// other slices/duplicates) holds a reference.
func (b *RefBuf) Slice(off, length int) *RefBuf {
	if off < 0 || length < 0 || off+length > b.Len() {
		panic("buf: slice out of range")
	}
	return &RefBuf{s: b.s, start: b.start + off, end: b.start + off + length}
}

// RetainedSlice is Slice followed by Retain, for callers that need the
// slice to outlive the parent's own lifetime.
func (b *RefBuf) RetainedSlice(off, length int) *RefBuf {
	return b.Slice(off, length).Retain()
}

// Duplicate returns a new view sharing the same storage and byte range
// as the receiver, without incrementing the reference count. Useful
// when a caller needs an independent RefBuf handle (e.g. to hand to
// two code paths) without implying ownership of an extra reference.
func (b *RefBuf) Duplicate() *RefBuf {
	return &RefBuf{s: b.s, start: b.start, end: b.end}
}
