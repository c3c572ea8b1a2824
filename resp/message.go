// Package resp implements the Redis Serialization Protocol codec: a
// streaming decoder, two structural aggregators (bulk strings and
// arrays), and an encoder backed by a small-object interning pool.
package resp

import (
	"github.com/fango6/portentry/buf"
)

// Kind tags which RESP primitive (or higher-level aggregate) a
// Message carries.
type Kind int

const (
	KindInlineCommand Kind = iota
	KindSimpleString
	KindError
	KindInteger
	KindBulkStringHeader
	KindBulkStringContent
	KindFullBulkString
	KindArrayHeader
	KindArray
)

// Message is the sum type spec.md §3 describes as RedisMessage. Only
// the fields relevant to Kind are meaningful; see the constructors
// below for the canonical way to build one.
type Message struct {
	Kind Kind

	Text string // InlineCommand, SimpleString, Error
	Int  int64  // Integer

	Len int64 // BulkStringHeader, ArrayHeader: -1 means null

	Content *buf.RefBuf // BulkStringContent, FullBulkString
	IsLast  bool        // BulkStringContent

	IsNull   bool // FullBulkString, Array
	Children []*Message
}

func InlineCommand(text string) *Message { return &Message{Kind: KindInlineCommand, Text: text} }
func SimpleString(text string) *Message  { return &Message{Kind: KindSimpleString, Text: text} }
func Error(text string) *Message         { return &Message{Kind: KindError, Text: text} }
func Integer(v int64) *Message           { return &Message{Kind: KindInteger, Int: v} }

func BulkStringHeader(length int64) *Message {
	return &Message{Kind: KindBulkStringHeader, Len: length}
}

func BulkStringContent(content *buf.RefBuf, isLast bool) *Message {
	return &Message{Kind: KindBulkStringContent, Content: content, IsLast: isLast}
}

// NullBulkString is the canonical "$-1\r\n" message.
func NullBulkString() *Message {
	return &Message{Kind: KindFullBulkString, IsNull: true}
}

func FullBulkString(content *buf.RefBuf) *Message {
	return &Message{Kind: KindFullBulkString, Content: content}
}

func ArrayHeader(length int64) *Message {
	return &Message{Kind: KindArrayHeader, Len: length}
}

// NullArray is the canonical "*-1\r\n" message.
func NullArray() *Message {
	return &Message{Kind: KindArray, IsNull: true}
}

func EmptyArray() *Message {
	return &Message{Kind: KindArray, Children: []*Message{}}
}

func Array(children []*Message) *Message {
	return &Message{Kind: KindArray, Children: children}
}

// Release drops this message's owned content reference(s). Safe to
// call on any Kind; releases recursively through Array children.
func (m *Message) Release() {
	if m == nil {
		return
	}
	if m.Content != nil {
		m.Content.Release()
	}
	for _, c := range m.Children {
		c.Release()
	}
}
