package resp

import "github.com/fango6/portentry/buf"

const defaultMaxContentLength = 512 * 1024 * 1024 // 512 MiB

// BulkAggregator coalesces a BulkStringHeader followed by zero or more
// BulkStringContent chunks into a single FullBulkString, per spec.md
// §4.4 (component C6). It does not decode RESP itself; it consumes the
// Message stream a Decoder produces.
//
// An oversized aggregation does not fail the connection: Feed reports
// a TooLongFrame, drops the in-progress aggregation, and keeps running
// so the caller can resynchronize on the next message.
type BulkAggregator struct {
	maxContentLength int64

	inProgress bool
	declared   int64
	acc        *buf.Composite
}

// NewBulkAggregator constructs a BulkAggregator with the given options
// applied over the default 512 MiB content cap.
func NewBulkAggregator(opts ...AggregatorOption) *BulkAggregator {
	a := &BulkAggregator{maxContentLength: defaultMaxContentLength}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Feed consumes one Message from the decoder stream. It returns at
// most one of: a completed *Message (KindFullBulkString), a
// *TooLongFrame event, or a *MessageAggregationException. Any message
// kind this aggregator doesn't act on is passed through unchanged as
// the first return value. All three are nil when msg was consumed but
// didn't complete an aggregation (e.g. a header that's still waiting
// on content).
func (a *BulkAggregator) Feed(msg *Message) (*Message, *TooLongFrame, error) {
	switch msg.Kind {
	case KindBulkStringHeader:
		if a.inProgress {
			return nil, nil, aggErr(ErrAggregationInProgress)
		}
		if msg.Len > a.maxContentLength {
			return nil, &TooLongFrame{DeclaredOrAccumulated: msg.Len, Max: a.maxContentLength}, nil
		}
		a.inProgress = true
		a.declared = msg.Len
		a.acc = buf.NewComposite()
		return nil, nil, nil

	case KindBulkStringContent:
		if !a.inProgress {
			return nil, nil, aggErr(ErrNoAggregationInProgress)
		}
		if msg.Content != nil {
			if msg.Content.Len() > 0 {
				a.acc.Append(msg.Content)
			}
			msg.Content.Release()
		}
		if int64(a.acc.Len()) > a.maxContentLength {
			accumulated := int64(a.acc.Len())
			a.reset()
			return nil, &TooLongFrame{DeclaredOrAccumulated: accumulated, Max: a.maxContentLength}, nil
		}
		if !msg.IsLast {
			return nil, nil, nil
		}
		full := a.acc.Finish()
		a.inProgress = false
		a.acc = nil
		return FullBulkString(full), nil, nil

	case KindFullBulkString:
		return msg, nil, nil

	default:
		return msg, nil, nil
	}
}

func (a *BulkAggregator) reset() {
	if a.acc != nil {
		a.acc.Discard()
	}
	a.inProgress = false
	a.declared = 0
	a.acc = nil
}
