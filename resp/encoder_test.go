package resp

import (
	"testing"

	"github.com/fango6/portentry/buf"
	"github.com/stretchr/testify/require"
)

func flatten(t *testing.T, bufs [][]byte) string {
	t.Helper()
	var out []byte
	for _, b := range bufs {
		out = append(out, b...)
	}
	return string(out)
}

func Test_Encoder_SimpleString_Interned(t *testing.T) {
	e := NewEncoder()
	out, err := e.Encode(SimpleString("OK"))
	require.NoError(t, err)
	require.Equal(t, "+OK\r\n", flatten(t, out))
}

func Test_Encoder_SimpleString_Uncached(t *testing.T) {
	e := NewEncoder()
	out, err := e.Encode(SimpleString("hi there"))
	require.NoError(t, err)
	require.Equal(t, "+hi there\r\n", flatten(t, out))
}

func Test_Encoder_Error(t *testing.T) {
	e := NewEncoder()
	out, err := e.Encode(Error("ERR"))
	require.NoError(t, err)
	require.Equal(t, "-ERR\r\n", flatten(t, out))
}

func Test_Encoder_Integer(t *testing.T) {
	e := NewEncoder()
	out, err := e.Encode(Integer(42))
	require.NoError(t, err)
	require.Equal(t, ":42\r\n", flatten(t, out))

	out, err = e.Encode(Integer(-5))
	require.NoError(t, err)
	require.Equal(t, ":-5\r\n", flatten(t, out))
}

func Test_Encoder_BulkStringHeader(t *testing.T) {
	e := NewEncoder()
	out, err := e.Encode(BulkStringHeader(5))
	require.NoError(t, err)
	require.Equal(t, "$5\r\n", flatten(t, out))
}

func Test_Encoder_BulkStringContent_Chunked(t *testing.T) {
	e := NewEncoder()

	chunk1 := buf.New([]byte("hel"))
	out, err := e.Encode(BulkStringContent(chunk1, false))
	require.NoError(t, err)
	require.Equal(t, "hel", flatten(t, out))
	chunk1.Release()

	chunk2 := buf.New([]byte("lo"))
	out, err = e.Encode(BulkStringContent(chunk2, true))
	require.NoError(t, err)
	require.Equal(t, "lo\r\n", flatten(t, out))
	chunk2.Release()
}

func Test_Encoder_NullBulkString(t *testing.T) {
	e := NewEncoder()
	out, err := e.Encode(NullBulkString())
	require.NoError(t, err)
	require.Equal(t, "$-1\r\n", flatten(t, out))
}

func Test_Encoder_FullBulkString_ZeroCopy(t *testing.T) {
	e := NewEncoder()
	content := buf.New([]byte("hello"))
	out, err := e.Encode(FullBulkString(content))
	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, "$5\r\nhello\r\n", flatten(t, out))
	content.Release()
}

func Test_Encoder_EmptyBulkString(t *testing.T) {
	e := NewEncoder()
	out, err := e.Encode(FullBulkString(buf.New(nil)))
	require.NoError(t, err)
	require.Equal(t, "$0\r\n\r\n", flatten(t, out))
}

func Test_Encoder_NullArray(t *testing.T) {
	e := NewEncoder()
	out, err := e.Encode(NullArray())
	require.NoError(t, err)
	require.Equal(t, "*-1\r\n", flatten(t, out))
}

func Test_Encoder_Array_Nested(t *testing.T) {
	e := NewEncoder()
	msg := Array([]*Message{
		Integer(1),
		Array([]*Message{SimpleString("OK")}),
	})
	out, err := e.Encode(msg)
	require.NoError(t, err)
	require.Equal(t, "*2\r\n:1\r\n*1\r\n+OK\r\n", flatten(t, out))
}

func Test_Encoder_UnknownKind(t *testing.T) {
	e := NewEncoder()
	_, err := e.Encode(&Message{Kind: Kind(999)})
	require.ErrorIs(t, err, ErrUnknownEncodeOp)
}
