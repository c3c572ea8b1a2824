package resp

import (
	"github.com/fango6/portentry/buf"
)

const (
	defaultMaxInlineMessageLength = 64 * 1024
	maxBulkStringLength           = 512 * 1024 * 1024 // 512 MiB, spec.md §3
	maxLengthLineScan             = 32                 // generous upper bound on "<=20 chars" length fields
)

type decoderState int

const (
	stateType decoderState = iota
	stateInline
	stateLength
	stateBulkEOL
	stateBulkContent
)

type lineKind int

const (
	kindSimpleString lineKind = iota
	kindError
	kindInteger
	kindInlineCommand
	kindArrayHeader
	kindBulkHeader
)

// Decoder is a streaming RESP decoder driven by the state machine in
// spec.md §4.3. One Decoder instance is bound to one connection and is
// never invoked concurrently.
type Decoder struct {
	state                  decoderState
	decodeInlineCommands   bool
	maxInlineMessageLength int
	pool                   *MessagePool

	pendingKind lineKind
	remaining   int64
}

// NewDecoder constructs a Decoder with the given options applied over
// the defaults (decodeInlineCommands=false, maxInlineMessageLength=64KiB,
// messagePool=SharedPool).
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		maxInlineMessageLength: defaultMaxInlineMessageLength,
		pool:                   SharedPool,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Decode drives the state machine forward with whatever bytes cur
// currently makes available, returning every message that could be
// fully framed from them. A decode error resets the state machine
// (idempotently) and is returned alongside whatever messages were
// produced before the failure.
func (d *Decoder) Decode(cur *buf.Cursor) ([]*Message, error) {
	var out []*Message
	for {
		msg, needMore, err := d.step(cur)
		if err != nil {
			d.state = stateType
			return out, err
		}
		if needMore {
			return out, nil
		}
		if msg != nil {
			out = append(out, msg)
		}
	}
}

func (d *Decoder) step(cur *buf.Cursor) (*Message, bool, error) {
	switch d.state {
	case stateType:
		return d.stepType(cur)
	case stateInline:
		return d.stepInline(cur)
	case stateLength:
		return d.stepLength(cur)
	case stateBulkEOL:
		return d.stepBulkEOL(cur)
	case stateBulkContent:
		return d.stepBulkContent(cur)
	}
	panic("resp: unreachable decoder state")
}

func (d *Decoder) stepType(cur *buf.Cursor) (*Message, bool, error) {
	b, ok := cur.ReadByte()
	if !ok {
		return nil, true, nil
	}
	switch b {
	case '+':
		d.pendingKind = kindSimpleString
		d.state = stateInline
	case '-':
		d.pendingKind = kindError
		d.state = stateInline
	case ':':
		d.pendingKind = kindInteger
		d.state = stateInline
	case '$':
		d.pendingKind = kindBulkHeader
		d.state = stateLength
	case '*':
		d.pendingKind = kindArrayHeader
		d.state = stateLength
	default:
		if !d.decodeInlineCommands {
			return nil, false, codecErr(ErrBadTypeByte)
		}
		cur.SetReaderIndex(cur.ReaderIndex() - 1)
		d.pendingKind = kindInlineCommand
		d.state = stateInline
	}
	return nil, false, nil
}

func (d *Decoder) stepInline(cur *buf.Cursor) (*Message, bool, error) {
	readable := cur.ReadableBytes()
	idx := cur.FindByte(0, readable, func(b byte) bool { return b == '\n' })
	if idx < 0 {
		if readable > d.maxInlineMessageLength {
			return nil, false, codecErr(ErrInlineTooLong)
		}
		return nil, true, nil
	}
	frameLen := idx + 1

	slice, _ := cur.ReadSlice(frameLen)
	defer slice.Release()
	data := slice.Bytes()
	if frameLen < 2 || data[frameLen-2] != '\r' {
		return nil, false, codecErr(ErrExpectedCRLF)
	}
	text := string(data[:frameLen-2])

	d.state = stateType
	switch d.pendingKind {
	case kindSimpleString:
		if m, ok := d.pool.TryGetSimpleString(text); ok {
			return m, false, nil
		}
		return SimpleString(text), false, nil
	case kindError:
		if m, ok := d.pool.TryGetError(text); ok {
			return m, false, nil
		}
		return Error(text), false, nil
	case kindInteger:
		v, err := parseDecimal([]byte(text))
		if err != nil {
			return nil, false, codecErr(err)
		}
		if m, ok := d.pool.TryGetInteger(v); ok {
			return m, false, nil
		}
		return Integer(v), false, nil
	case kindInlineCommand:
		return InlineCommand(text), false, nil
	}
	panic("resp: unreachable pending kind")
}

func (d *Decoder) stepLength(cur *buf.Cursor) (*Message, bool, error) {
	readable := cur.ReadableBytes()
	idx := cur.FindByte(0, readable, func(b byte) bool { return b == '\n' })
	if idx < 0 {
		if readable > maxLengthLineScan {
			return nil, false, codecErr(ErrIntegerTooLong)
		}
		return nil, true, nil
	}
	frameLen := idx + 1

	slice, _ := cur.ReadSlice(frameLen)
	defer slice.Release()
	data := slice.Bytes()
	if frameLen < 2 || data[frameLen-2] != '\r' {
		return nil, false, codecErr(ErrExpectedCRLF)
	}
	length, err := parseDecimal(data[:frameLen-2])
	if err != nil {
		return nil, false, codecErr(err)
	}
	if length < -1 {
		return nil, false, codecErr(ErrBadLength)
	}

	switch d.pendingKind {
	case kindArrayHeader:
		d.state = stateType
		return ArrayHeader(length), false, nil

	case kindBulkHeader:
		if length > maxBulkStringLength {
			return nil, false, codecErr(ErrBadLength)
		}
		if length == -1 {
			d.state = stateType
			return NullBulkString(), false, nil
		}
		if length == 0 {
			d.remaining = 0
			d.state = stateBulkEOL
			return nil, false, nil
		}
		d.remaining = length
		d.state = stateBulkContent
		return BulkStringHeader(length), false, nil
	}
	panic("resp: unreachable pending kind")
}

func (d *Decoder) stepBulkEOL(cur *buf.Cursor) (*Message, bool, error) {
	if cur.ReadableBytes() < 2 {
		return nil, true, nil
	}
	slice, _ := cur.ReadSlice(2)
	defer slice.Release()
	data := slice.Bytes()
	if data[0] != '\r' || data[1] != '\n' {
		return nil, false, codecErr(ErrExpectedCRLF)
	}
	d.state = stateType
	return FullBulkString(buf.New(nil)), false, nil
}

func (d *Decoder) stepBulkContent(cur *buf.Cursor) (*Message, bool, error) {
	readable := cur.ReadableBytes()
	if readable == 0 {
		return nil, true, nil
	}

	if d.remaining == 0 {
		if readable < 2 {
			return nil, true, nil
		}
		slice, _ := cur.ReadSlice(2)
		defer slice.Release()
		data := slice.Bytes()
		if data[0] != '\r' || data[1] != '\n' {
			return nil, false, codecErr(ErrExpectedCRLF)
		}
		d.state = stateType
		return BulkStringContent(buf.New(nil), true), false, nil
	}

	if int64(readable) >= d.remaining+2 {
		n := int(d.remaining)
		content, _ := cur.ReadSlice(n)
		crlf, _ := cur.ReadSlice(2)
		ok := crlf.Bytes()[0] == '\r' && crlf.Bytes()[1] == '\n'
		crlf.Release()
		if !ok {
			content.Release()
			return nil, false, codecErr(ErrExpectedCRLF)
		}
		d.remaining = 0
		d.state = stateType
		return BulkStringContent(content, true), false, nil
	}

	n := d.remaining
	if int64(readable) < n {
		n = int64(readable)
	}
	content, _ := cur.ReadSlice(int(n))
	d.remaining -= n
	return BulkStringContent(content, false), false, nil
}
