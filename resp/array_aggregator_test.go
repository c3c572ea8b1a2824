package resp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func feedAll(t *testing.T, a *ArrayAggregator, msgs []*Message) []*Message {
	t.Helper()
	var out []*Message
	for _, m := range msgs {
		res, err := a.Feed(m)
		require.NoError(t, err)
		if res != nil {
			out = append(out, res)
		}
	}
	return out
}

func Test_ArrayAggregator_Flat(t *testing.T) {
	a := NewArrayAggregator()
	out := feedAll(t, a, []*Message{
		ArrayHeader(2),
		Integer(1),
		SimpleString("OK"),
	})
	require.Len(t, out, 1)
	require.Equal(t, KindArray, out[0].Kind)
	require.Len(t, out[0].Children, 2)
	require.Equal(t, int64(1), out[0].Children[0].Int)
	require.Equal(t, "OK", out[0].Children[1].Text)
}

func Test_ArrayAggregator_Nested(t *testing.T) {
	a := NewArrayAggregator()
	out := feedAll(t, a, []*Message{
		ArrayHeader(2),
		ArrayHeader(1),
		Integer(1),
		SimpleString("OK"),
	})
	require.Len(t, out, 1)
	top := out[0]
	require.Len(t, top.Children, 2)
	nested := top.Children[0]
	require.Equal(t, KindArray, nested.Kind)
	require.Len(t, nested.Children, 1)
	require.Equal(t, int64(1), nested.Children[0].Int)
	require.Equal(t, "OK", top.Children[1].Text)
}

func Test_ArrayAggregator_Null(t *testing.T) {
	a := NewArrayAggregator()
	out := feedAll(t, a, []*Message{ArrayHeader(-1)})
	require.Len(t, out, 1)
	require.True(t, out[0].IsNull)
}

func Test_ArrayAggregator_Empty(t *testing.T) {
	a := NewArrayAggregator()
	out := feedAll(t, a, []*Message{ArrayHeader(0)})
	require.Len(t, out, 1)
	require.Empty(t, out[0].Children)
}

func Test_ArrayAggregator_NonArrayPassthrough(t *testing.T) {
	a := NewArrayAggregator()
	out := feedAll(t, a, []*Message{SimpleString("OK")})
	require.Len(t, out, 1)
	require.Equal(t, "OK", out[0].Text)
}

func Test_ArrayAggregator_TooLarge(t *testing.T) {
	a := NewArrayAggregator()
	_, err := a.Feed(ArrayHeader(int64(1) << 33))
	require.Error(t, err)
}
