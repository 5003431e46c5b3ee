package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"loxvm/pkg/bytecode"
)

func compile(t *testing.T, source string) *bytecode.Obj {
	t.Helper()
	fn, err := Compile(source)
	require.NoError(t, err)
	require.NotNil(t, fn)
	return fn
}

func opsOf(fn *bytecode.Obj) []bytecode.Op {
	var ops []bytecode.Op
	code := fn.Chunk.Code
	for i := 0; i < len(code); {
		op := bytecode.Op(code[i])
		ops = append(ops, op)
		i += 1 + bytecode.OperandWidth(op)
	}
	return ops
}

func TestCompile_NumberLiteralExpressionStatement(t *testing.T) {
	fn := compile(t, "1 + 2;")
	require.Equal(t, []bytecode.Op{
		bytecode.OpConstant, bytecode.OpConstant, bytecode.OpAdd, bytecode.OpPop,
		bytecode.OpNil, bytecode.OpReturn,
	}, opsOf(fn))
}

func TestCompile_GlobalVarDeclarationAndRead(t *testing.T) {
	fn := compile(t, "var a = 1; print a;")
	require.Equal(t, []bytecode.Op{
		bytecode.OpConstant, bytecode.OpDefineGlobal,
		bytecode.OpGetGlobal, bytecode.OpPrint,
		bytecode.OpNil, bytecode.OpReturn,
	}, opsOf(fn))
}

func TestCompile_LocalVariableUsesSlotNotGlobalOps(t *testing.T) {
	fn := compile(t, "{ var a = 1; print a; }")
	ops := opsOf(fn)
	require.Contains(t, ops, bytecode.OpGetLocal)
	require.NotContains(t, ops, bytecode.OpGetGlobal)
	require.NotContains(t, ops, bytecode.OpDefineGlobal)
}

func TestCompile_IfElseEmitsJumps(t *testing.T) {
	fn := compile(t, `if (true) { print 1; } else { print 2; }`)
	ops := opsOf(fn)
	require.Contains(t, ops, bytecode.OpJumpIfFalse)
	require.Contains(t, ops, bytecode.OpJump)
}

func TestCompile_WhileLoopEmitsLoop(t *testing.T) {
	fn := compile(t, `while (true) { print 1; }`)
	require.Contains(t, opsOf(fn), bytecode.OpLoop)
}

func TestCompile_ForLoopDesugarsToLoop(t *testing.T) {
	fn := compile(t, `for (var i = 0; i < 3; i = i + 1) { print i; }`)
	require.Contains(t, opsOf(fn), bytecode.OpLoop)
	require.Contains(t, opsOf(fn), bytecode.OpGetLocal)
}

func TestCompile_FunctionDeclarationEmitsNestedConstant(t *testing.T) {
	fn := compile(t, `fun add(a, b) { return a + b; } print add(1, 2);`)
	var found *bytecode.Obj
	for _, c := range fn.Chunk.Constants {
		if c.IsObj() && c.AsObj().Kind == bytecode.ObjFunction && c.AsObj().Name == "add" {
			found = c.AsObj()
		}
	}
	require.NotNil(t, found)
	require.Equal(t, 2, found.Arity)
	require.Contains(t, opsOf(found), bytecode.OpReturn)
}

func TestCompile_CallEmitsArgCount(t *testing.T) {
	fn := compile(t, `fun noop() {} noop();`)
	ops := opsOf(fn)
	require.Contains(t, ops, bytecode.OpCall)

	code := fn.Chunk.Code
	for i := 0; i < len(code); i += 1 + bytecode.OperandWidth(bytecode.Op(code[i])) {
		if bytecode.Op(code[i]) == bytecode.OpCall {
			require.Equal(t, byte(0), code[i+1])
		}
	}
}

func TestCompile_AndOrShortCircuitJumps(t *testing.T) {
	fn := compile(t, `print true and false; print true or false;`)
	ops := opsOf(fn)
	require.Contains(t, ops, bytecode.OpJumpIfFalse)
	require.Contains(t, ops, bytecode.OpJump)
}

func TestCompile_ReturnOutsideFunctionIsError(t *testing.T) {
	_, err := Compile(`return 1;`)
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "Can't return from top-level code.", ce.Message)
}

func TestCompile_InvalidAssignmentTarget(t *testing.T) {
	_, err := Compile(`1 + 2 = 3;`)
	require.Error(t, err)
}

func TestCompile_ShadowingSameScopeIsError(t *testing.T) {
	_, err := Compile(`{ var a = 1; var a = 2; }`)
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "Already a variable with this name in this scope.", ce.Message)
}

func TestCompile_UnterminatedBlockIsError(t *testing.T) {
	_, err := Compile(`{ print 1;`)
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	require.True(t, ce.AtEnd)
}

func TestCompile_SyntaxErrorReportsLexemeAndLine(t *testing.T) {
	_, err := Compile("var;\n")
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, 1, ce.Line)
	require.Equal(t, ";", ce.Where)
}

func TestCompile_TooManyLocalsIsError(t *testing.T) {
	var b strings.Builder
	b.WriteString("{ ")
	for i := 0; i < maxLocals+1; i++ {
		fmt.Fprintf(&b, "var v%d = 0; ", i)
	}
	b.WriteString("}")

	_, err := Compile(b.String())
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "Too many local variables in function.", ce.Message)
}

func TestCompile_TooManyParametersIsError(t *testing.T) {
	var b strings.Builder
	b.WriteString("fun f(")
	for i := 0; i < maxParams+1; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "p%d", i)
	}
	b.WriteString(") {}")

	_, err := Compile(b.String())
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "Can't have more than 255 parameters.", ce.Message)
}

func TestCompile_TooManyArgumentsIsError(t *testing.T) {
	var b strings.Builder
	b.WriteString("fun f() {} f(")
	for i := 0; i < maxParams+1; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("nil")
	}
	b.WriteString(");")

	_, err := Compile(b.String())
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "Can't have more than 255 arguments.", ce.Message)
}

// TestCompile_JumpTooFarIsError exercises the 65,535-byte jump-distance
// cap: an if-branch body padded with enough POP-producing statements that
// the forward JUMP_IF_FALSE would need an offset too large to fit in the
// 2-byte operand.
func TestCompile_JumpTooFarIsError(t *testing.T) {
	var b strings.Builder
	b.WriteString("if (true) {")
	for i := 0; i < 40000; i++ {
		b.WriteString("nil;")
	}
	b.WriteString("}")

	_, err := Compile(b.String())
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "Too much code to jump over.", ce.Message)
}
