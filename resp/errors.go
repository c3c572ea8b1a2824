package resp

import "github.com/pkg/errors"

// CodecException is the error kind surfaced by the decoder and
// encoder, per spec.md §7. A decode-time CodecException resets the
// decoder's state machine (idempotently) before being returned; the
// caller decides whether that's fatal for the connection.
type CodecException struct {
	cause error
}

func (e *CodecException) Error() string { return e.cause.Error() }
func (e *CodecException) Unwrap() error { return e.cause }

func codecErr(err error) *CodecException {
	return &CodecException{cause: err}
}

var (
	ErrBadTypeByte     = errors.New("resp: unrecognized type byte")
	ErrBadLength       = errors.New("resp: length outside [-1, 512 MiB]")
	ErrNonDigit        = errors.New("resp: non-digit in a decimal field")
	ErrIntegerTooLong  = errors.New("resp: integer field longer than 20 characters")
	ErrExpectedCRLF    = errors.New("resp: expected CRLF delimiter")
	ErrInlineTooLong   = errors.New("resp: inline message exceeds configured maximum length")
	ErrUnknownEncodeOp = errors.New("resp: unknown message kind during encode")
)

// MessageAggregationException is raised by the bulk and array
// aggregators for per-message ordering violations. Unlike
// CodecException, these never corrupt the surrounding stream: the
// caller can keep feeding subsequent messages.
type MessageAggregationException struct {
	cause error
}

func (e *MessageAggregationException) Error() string { return e.cause.Error() }
func (e *MessageAggregationException) Unwrap() error  { return e.cause }

func aggErr(err error) *MessageAggregationException {
	return &MessageAggregationException{cause: err}
}

var (
	ErrAggregationInProgress   = errors.New("resp: bulk header arrived while a prior aggregation was in progress")
	ErrNoAggregationInProgress = errors.New("resp: content arrived with no aggregation in progress")
	ErrArrayLengthTooLarge     = errors.New("resp: array length exceeds a 32-bit index")
)

// TooLongFrame is not an error: it is the "fire on the context" event
// spec.md §4.4/§9 describes for oversized bulk-string content. The
// aggregator reports it and drops the current aggregation but keeps
// running; it is the caller's choice what (if anything) to do next.
type TooLongFrame struct {
	DeclaredOrAccumulated int64
	Max                   int64
}
