package resp

import "math"

// arrayFrame tracks one level of array nesting while it's being filled in.
type arrayFrame struct {
	declared int64
	children []*Message
}

func (f *arrayFrame) complete() bool { return int64(len(f.children)) >= f.declared }

// ArrayAggregator coalesces an ArrayHeader (and, recursively, any
// nested ArrayHeaders among its elements) plus the flat stream of
// element messages that follows into a single nested Array message,
// per spec.md §4.4 (component C7). Non-array element messages
// (simple-strings, errors, integers, full bulk strings) are expected
// to already be complete by the time they reach this aggregator -
// run a BulkAggregator upstream of it in the pipeline.
type ArrayAggregator struct {
	stack []*arrayFrame
}

// NewArrayAggregator returns an ArrayAggregator with no aggregation in
// progress.
func NewArrayAggregator() *ArrayAggregator {
	return &ArrayAggregator{}
}

// Feed consumes one Message. It returns a completed top-level *Message
// once every open frame (including any the message itself opens) has
// been filled; otherwise it returns nil, nil. Non-array, non-header
// messages fed while no array is open are passed through unchanged as
// the first return value, so callers can run this aggregator over the
// full message stream unconditionally.
func (a *ArrayAggregator) Feed(msg *Message) (*Message, error) {
	if msg.Kind == KindArrayHeader {
		if msg.Len > math.MaxInt32 {
			return nil, aggErr(ErrArrayLengthTooLarge)
		}
		if msg.Len == -1 {
			return a.resolve(NullArray())
		}
		if msg.Len == 0 {
			return a.resolve(EmptyArray())
		}
		a.stack = append(a.stack, &arrayFrame{declared: msg.Len})
		return nil, nil
	}

	if len(a.stack) == 0 {
		return msg, nil
	}
	return a.resolve(msg)
}

// resolve appends a completed element to the innermost open frame,
// collapsing any frames (and their parents) that become complete as a
// result.
func (a *ArrayAggregator) resolve(elem *Message) (*Message, error) {
	for {
		if len(a.stack) == 0 {
			return elem, nil
		}
		top := a.stack[len(a.stack)-1]
		top.children = append(top.children, elem)
		if !top.complete() {
			return nil, nil
		}
		a.stack = a.stack[:len(a.stack)-1]
		elem = Array(top.children)
	}
}
