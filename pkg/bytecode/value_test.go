package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsFalsey(t *testing.T) {
	require.True(t, Nil.IsFalsey())
	require.True(t, Bool(false).IsFalsey())
	require.False(t, Bool(true).IsFalsey())
	require.False(t, Number(0).IsFalsey())
	require.False(t, FromObj(NewString("")).IsFalsey())
}

func TestEqual(t *testing.T) {
	require.True(t, Number(1).Equal(Number(1)))
	require.False(t, Number(1).Equal(Number(2)))
	require.True(t, Nil.Equal(Nil))
	require.False(t, Nil.Equal(Bool(false)))
	require.True(t, FromObj(NewString("abc")).Equal(FromObj(NewString("abc"))))
	require.False(t, FromObj(NewString("abc")).Equal(FromObj(NewString("abd"))))
	require.False(t, Number(1).Equal(Bool(true)))
}

func TestValueString(t *testing.T) {
	require.Equal(t, "nil", Nil.String())
	require.Equal(t, "true", Bool(true).String())
	require.Equal(t, "7", Number(7).String())
	require.Equal(t, "3.5", Number(3.5).String())
	require.Equal(t, "hi", FromObj(NewString("hi")).String())
}

func TestChunkAddConstantCapsAt256(t *testing.T) {
	c := NewChunk()
	for i := 0; i < 256; i++ {
		_, err := c.AddConstant(Number(float64(i)))
		require.NoError(t, err)
	}
	_, err := c.AddConstant(Number(256))
	require.Error(t, err)
}

func TestChunkWriteTracksLines(t *testing.T) {
	c := NewChunk()
	c.Write(byte(OpNil), 1)
	c.Write(byte(OpReturn), 1)
	require.Len(t, c.Lines, len(c.Code))
	require.Equal(t, int32(1), c.Lines[0])
}
