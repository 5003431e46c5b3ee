package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisassemble_RendersMnemonicsAndConstants(t *testing.T) {
	c := NewChunk()
	idx, err := c.AddConstant(Number(7))
	require.NoError(t, err)
	c.Write(byte(OpConstant), 1)
	c.Write(byte(idx), 1)
	c.Write(byte(OpReturn), 1)

	out := Disassemble(c, "test")
	require.Contains(t, out, "== test ==")
	require.Contains(t, out, "CONSTANT")
	require.Contains(t, out, "7")
	require.Contains(t, out, "RETURN")
}

func TestDisassemble_RendersJumpTarget(t *testing.T) {
	c := NewChunk()
	c.Write(byte(OpJumpIfFalse), 1)
	c.Write(0, 1)
	c.Write(3, 1)
	c.Write(byte(OpPop), 1)

	out := Disassemble(c, "jump")
	require.Contains(t, out, "JUMP_IF_FALSE")
	require.Contains(t, out, "-> 6")
}
