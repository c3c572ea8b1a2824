package buf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Composite_FinishConcatenates(t *testing.T) {
	c := NewComposite()
	a := New([]byte("foo"))
	b := New([]byte("bar"))

	c.Append(a)
	c.Append(b)
	require.Equal(t, 6, c.Len())

	result := c.Finish()
	require.Equal(t, "foobar", string(result.Bytes()))

	// Append retained each chunk then released it in Finish; the
	// original owners still hold their own reference.
	last, err := a.Release()
	require.NoError(t, err)
	require.True(t, last)
}

func Test_Composite_Discard(t *testing.T) {
	c := NewComposite()
	a := New([]byte("foo"))
	c.Append(a)

	c.Discard()
	require.Equal(t, 0, c.Len())

	last, err := a.Release()
	require.NoError(t, err)
	require.True(t, last)
}
