package resp

import (
	"net"
	"strconv"
)

// EncoderOption configures an Encoder at construction time.
type EncoderOption func(*Encoder)

// WithEncoderMessagePool overrides the shared interning pool consulted
// for already-framed simple-string/error/integer bytes.
func WithEncoderMessagePool(p *MessagePool) EncoderOption {
	return func(e *Encoder) { e.pool = p }
}

// Encoder renders Message values back onto the wire, per spec.md §4.6
// (component C8). It never mutates or retains the Message it's given;
// callers remain responsible for releasing any RefBuf the Message owns
// once Encode returns.
type Encoder struct {
	pool *MessagePool
}

// NewEncoder constructs an Encoder with the given options applied over
// the default of using SharedPool.
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{pool: SharedPool}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Encode renders msg as a sequence of wire buffers. For a
// FullBulkString (or a standalone BulkStringContent) with non-empty
// content, the content bytes are referenced directly rather than
// copied: the returned net.Buffers holds the header line, the content
// slice, and the trailing CRLF as separate entries so a vectored write
// (net.Buffers.WriteTo) never needs to materialize a concatenated copy.
func (e *Encoder) Encode(msg *Message) (net.Buffers, error) {
	switch msg.Kind {
	case KindInlineCommand:
		return net.Buffers{[]byte(msg.Text + "\r\n")}, nil

	case KindSimpleString:
		if b, ok := e.pool.TryGetSimpleStringBytes(msg.Text); ok {
			return net.Buffers{b}, nil
		}
		return net.Buffers{[]byte("+" + msg.Text + "\r\n")}, nil

	case KindError:
		if b, ok := e.pool.TryGetErrorBytes(msg.Text); ok {
			return net.Buffers{b}, nil
		}
		return net.Buffers{[]byte("-" + msg.Text + "\r\n")}, nil

	case KindInteger:
		if b, ok := e.pool.TryGetIntegerBytes(msg.Int); ok {
			return net.Buffers{b}, nil
		}
		return net.Buffers{[]byte(":" + strconv.FormatInt(msg.Int, 10) + "\r\n")}, nil

	case KindBulkStringHeader:
		return net.Buffers{[]byte("$" + strconv.FormatInt(msg.Len, 10) + "\r\n")}, nil

	case KindBulkStringContent:
		if msg.Content == nil || msg.Content.Len() == 0 {
			if msg.IsLast {
				return net.Buffers{crlf}, nil
			}
			return net.Buffers{}, nil
		}
		if msg.IsLast {
			return net.Buffers{msg.Content.Bytes(), crlf}, nil
		}
		return net.Buffers{msg.Content.Bytes()}, nil

	case KindFullBulkString:
		if msg.IsNull {
			return net.Buffers{[]byte("$-1\r\n")}, nil
		}
		length := int64(0)
		if msg.Content != nil {
			length = int64(msg.Content.Len())
		}
		header := []byte("$" + strconv.FormatInt(length, 10) + "\r\n")
		if length == 0 {
			return net.Buffers{header, crlf}, nil
		}
		return net.Buffers{header, msg.Content.Bytes(), crlf}, nil

	case KindArrayHeader:
		return net.Buffers{[]byte("*" + strconv.FormatInt(msg.Len, 10) + "\r\n")}, nil

	case KindArray:
		return e.encodeArray(msg)

	default:
		return nil, codecErr(ErrUnknownEncodeOp)
	}
}

var crlf = []byte("\r\n")

func (e *Encoder) encodeArray(msg *Message) (net.Buffers, error) {
	if msg.IsNull {
		return net.Buffers{[]byte("*-1\r\n")}, nil
	}
	out := net.Buffers{[]byte("*" + strconv.FormatInt(int64(len(msg.Children)), 10) + "\r\n")}
	for _, child := range msg.Children {
		bufs, err := e.Encode(child)
		if err != nil {
			return nil, err
		}
		out = append(out, bufs...)
	}
	return out, nil
}
