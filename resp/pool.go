package resp

import "strconv"

// MessagePool is an immutable, process-wide interning table for the
// handful of simple-strings, errors, and small integers that make up
// the overwhelming majority of RESP traffic. It is built once at
// package init and is safe to share across every connection without
// synchronization, per spec.md §5.
type MessagePool struct {
	simpleStrings map[string]*Message
	errors        map[string]*Message
	integers      map[int64]*Message

	// The *Frame maps hold fully wire-encoded bytes ("+OK\r\n", and so
	// on) so the encoder can hand them straight to the connection
	// instead of re-formatting a cached Message on every write.
	simpleStringFrames map[string][]byte
	errorFrames         map[string][]byte
	integerFrames       map[int64][]byte
}

const (
	minCachedInteger = -1
	maxCachedInteger = 128 // exclusive, per spec.md §9: [-1, 128)
)

var cannedSimpleStrings = []string{"OK", "PONG", "QUEUED"}

// cannedErrors lists the canonical server error strings eagerly
// interned by the shared pool. The exact wording is drawn from
// Redis's own well-known error replies.
var cannedErrors = []string{
	"ERR",
	"ERR unknown command",
	"ERR wrong number of arguments",
	"ERR value is not an integer or out of range",
	"ERR index out of range",
	"ERR syntax error",
	"ERR no such key",
	"ERR source and destination objects are the same",
	"ERR increment or decrement would overflow",
	"ERR invalid expire time",
	"ERR DB index is out of range",
	"ERR Protocol error",
	"WRONGTYPE Operation against a key holding the wrong kind of value",
	"NOSCRIPT No matching script",
	"NOAUTH Authentication required",
	"EXECABORT Transaction discarded because of previous errors",
	"BUSYGROUP Consumer Group name already exists",
}

func newMessagePool() *MessagePool {
	p := &MessagePool{
		simpleStrings:       make(map[string]*Message, len(cannedSimpleStrings)),
		errors:              make(map[string]*Message, len(cannedErrors)),
		integers:            make(map[int64]*Message, maxCachedInteger-minCachedInteger),
		simpleStringFrames:  make(map[string][]byte, len(cannedSimpleStrings)),
		errorFrames:         make(map[string][]byte, len(cannedErrors)),
		integerFrames:       make(map[int64][]byte, maxCachedInteger-minCachedInteger),
	}
	for _, s := range cannedSimpleStrings {
		p.simpleStrings[s] = SimpleString(s)
		p.simpleStringFrames[s] = []byte("+" + s + "\r\n")
	}
	for _, s := range cannedErrors {
		p.errors[s] = Error(s)
		p.errorFrames[s] = []byte("-" + s + "\r\n")
	}
	for v := int64(minCachedInteger); v < maxCachedInteger; v++ {
		p.integers[v] = Integer(v)
		p.integerFrames[v] = []byte(":" + strconv.FormatInt(v, 10) + "\r\n")
	}
	return p
}

// SharedPool is the default, process-wide interning pool used by any
// Decoder or Encoder that isn't explicitly given one of its own.
var SharedPool = newMessagePool()

func (p *MessagePool) TryGetSimpleString(text string) (*Message, bool) {
	m, ok := p.simpleStrings[text]
	return m, ok
}

// TryGetSimpleStringBytes returns the precomputed "+text\r\n" frame.
func (p *MessagePool) TryGetSimpleStringBytes(text string) ([]byte, bool) {
	b, ok := p.simpleStringFrames[text]
	return b, ok
}

func (p *MessagePool) TryGetError(text string) (*Message, bool) {
	m, ok := p.errors[text]
	return m, ok
}

// TryGetErrorBytes returns the precomputed "-text\r\n" frame.
func (p *MessagePool) TryGetErrorBytes(text string) ([]byte, bool) {
	b, ok := p.errorFrames[text]
	return b, ok
}

func (p *MessagePool) TryGetInteger(v int64) (*Message, bool) {
	m, ok := p.integers[v]
	return m, ok
}

// TryGetIntegerBytes returns the precomputed ":v\r\n" frame.
func (p *MessagePool) TryGetIntegerBytes(v int64) ([]byte, bool) {
	b, ok := p.integerFrames[v]
	return b, ok
}
