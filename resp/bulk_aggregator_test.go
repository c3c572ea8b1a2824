package resp

import (
	"testing"

	"github.com/fango6/portentry/buf"
	"github.com/stretchr/testify/require"
)

func Test_BulkAggregator_SingleChunk(t *testing.T) {
	a := NewBulkAggregator()

	msg, tooLong, err := a.Feed(BulkStringHeader(5))
	require.NoError(t, err)
	require.Nil(t, tooLong)
	require.Nil(t, msg)

	msg, tooLong, err = a.Feed(BulkStringContent(buf.New([]byte("hello")), true))
	require.NoError(t, err)
	require.Nil(t, tooLong)
	require.NotNil(t, msg)
	require.Equal(t, KindFullBulkString, msg.Kind)
	require.Equal(t, "hello", string(msg.Content.Bytes()))
	msg.Release()
}

func Test_BulkAggregator_MultipleChunks(t *testing.T) {
	a := NewBulkAggregator()

	_, _, err := a.Feed(BulkStringHeader(5))
	require.NoError(t, err)

	msg, _, err := a.Feed(BulkStringContent(buf.New([]byte("he")), false))
	require.NoError(t, err)
	require.Nil(t, msg)

	msg, _, err = a.Feed(BulkStringContent(buf.New([]byte("llo")), true))
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.Equal(t, "hello", string(msg.Content.Bytes()))
	msg.Release()
}

func Test_BulkAggregator_NullPassesThrough(t *testing.T) {
	a := NewBulkAggregator()
	msg, tooLong, err := a.Feed(NullBulkString())
	require.NoError(t, err)
	require.Nil(t, tooLong)
	require.NotNil(t, msg)
	require.True(t, msg.IsNull)
}

func Test_BulkAggregator_HeaderWhileInProgress(t *testing.T) {
	a := NewBulkAggregator()
	_, _, err := a.Feed(BulkStringHeader(5))
	require.NoError(t, err)

	_, _, err = a.Feed(BulkStringHeader(3))
	require.Error(t, err)
	var aggEx *MessageAggregationException
	require.ErrorAs(t, err, &aggEx)
}

func Test_BulkAggregator_ContentWithoutHeader(t *testing.T) {
	a := NewBulkAggregator()
	_, _, err := a.Feed(BulkStringContent(buf.New([]byte("x")), true))
	require.Error(t, err)
}

func Test_BulkAggregator_TooLongFiresAndKeepsRunning(t *testing.T) {
	a := NewBulkAggregator(WithMaxContentLength(4))

	_, tooLong, err := a.Feed(BulkStringHeader(10))
	require.NoError(t, err)
	require.NotNil(t, tooLong)
	require.Equal(t, int64(10), tooLong.DeclaredOrAccumulated)
	require.Equal(t, int64(4), tooLong.Max)

	// The aggregator must still accept the next, well-formed aggregation.
	_, _, err = a.Feed(BulkStringHeader(2))
	require.NoError(t, err)
	msg, _, err := a.Feed(BulkStringContent(buf.New([]byte("hi")), true))
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.Equal(t, "hi", string(msg.Content.Bytes()))
	msg.Release()
}

func Test_BulkAggregator_TooLongAcrossChunks(t *testing.T) {
	a := NewBulkAggregator(WithMaxContentLength(3))

	_, _, err := a.Feed(BulkStringHeader(3))
	require.NoError(t, err)

	_, tooLong, err := a.Feed(BulkStringContent(buf.New([]byte("abcd")), false))
	require.NoError(t, err)
	require.NotNil(t, tooLong)

	_, _, err = a.Feed(BulkStringHeader(1))
	require.NoError(t, err)
	msg, _, err := a.Feed(BulkStringContent(buf.New([]byte("z")), true))
	require.NoError(t, err)
	require.NotNil(t, msg)
	msg.Release()
}
