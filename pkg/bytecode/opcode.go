// Package bytecode defines the bytecode format, constant pool, value
// representation, and heap object model shared by the compiler and the VM.
//
// The bytecode is the low-level intermediate representation the compiler
// emits and the VM executes. Unlike a typed instruction struct, an
// instruction here is a plain byte stream: one opcode byte followed by a
// fixed number of operand bytes whose width is dictated by the opcode
// itself (never by a side table) — see the table on each Op constant below.
//
// Architecture:
//
//   1. Each function (the top-level script included) compiles into its own
//      Chunk: a byte-addressable code buffer plus a constant pool.
//   2. Constants (numbers, strings, nested function values) are referenced
//      from code by a single-byte pool index, capping any one chunk at 256
//      constants.
//   3. Jump instructions (JUMP, JUMP_IF_FALSE, LOOP) carry a 2-byte
//      big-endian offset, capping any one jump at 65,535 bytes.
//
// Value and Obj live in this package rather than their own, because a
// Value can hold a function object whose payload is itself a Chunk full of
// more Values — Go has no forward-declared types the way C headers do, so
// the constant-pool/Value/Chunk/Obj cycle is broken by keeping all of them
// in one package, the same way the teacher's own bytecode package bundles
// its Opcode, Instruction, and constant-bearing Bytecode type together.
package bytecode

// Op is a single bytecode operation.
type Op byte

// The complete, canonical instruction set. This table is exhaustive: the
// compiler emits only these opcodes and the VM decodes only these opcodes.
const (
	// OpReturn pops the current function's result and returns control to
	// the caller (or ends the program, for the top-level script).
	// Operands: none. Stack effect: pops 1 (the return value).
	OpReturn Op = iota

	// OpConstant pushes constants[idx] onto the stack.
	// Operands: 1 byte constant pool index. Stack effect: +1.
	OpConstant

	// OpNil, OpTrue, OpFalse push their literal value.
	// Operands: none. Stack effect: +1.
	OpNil
	OpTrue
	OpFalse

	// OpNegate replaces the top number with its negation. Runtime error if
	// the top of stack isn't a number.
	// Operands: none. Stack effect: -1/+1.
	OpNegate

	// OpNot replaces the top value with its logical negation (is_falsey).
	// Operands: none. Stack effect: -1/+1.
	OpNot

	// OpAdd pops two operands and pushes their sum — numeric addition, or
	// string concatenation if either operand is a string (both are then
	// coerced to their string form).
	// Operands: none. Stack effect: -2/+1.
	OpAdd

	// OpSubtract, OpMultiply, OpDivide: both operands must be numbers.
	// Operands: none. Stack effect: -2/+1.
	OpSubtract
	OpMultiply
	OpDivide

	// OpEqual: structural equality of the top two values.
	// Operands: none. Stack effect: -2/+1.
	OpEqual

	// OpGreater, OpLess: numeric comparison; both operands must be numbers.
	// Operands: none. Stack effect: -2/+1.
	OpGreater
	OpLess

	// OpPrint pops the top value and writes it to stdout.
	// Operands: none. Stack effect: -1.
	OpPrint

	// OpPop discards the top of stack.
	// Operands: none. Stack effect: -1.
	OpPop

	// OpDefineGlobal pops the top value and binds it to the global name
	// held at constants[idx].
	// Operands: 1 byte name-constant index. Stack effect: -1.
	OpDefineGlobal

	// OpGetGlobal pushes the value of the global named at constants[idx].
	// Runtime error if the name is unbound.
	// Operands: 1 byte name-constant index. Stack effect: +1.
	OpGetGlobal

	// OpSetGlobal assigns the top of stack to an existing global named at
	// constants[idx]; the value is left on the stack (assignment is an
	// expression). Runtime error if the name is unbound.
	// Operands: 1 byte name-constant index. Stack effect: 0.
	OpSetGlobal

	// OpGetLocal pushes stack[frame.base+slot].
	// Operands: 1 byte slot. Stack effect: +1.
	OpGetLocal

	// OpSetLocal stores the top of stack into stack[frame.base+slot],
	// leaving the value on the stack.
	// Operands: 1 byte slot. Stack effect: 0.
	OpSetLocal

	// OpJumpIfFalse advances ip by a 2-byte offset if the top of stack
	// (not popped) is falsey.
	// Operands: 2 byte big-endian offset. Stack effect: 0.
	OpJumpIfFalse

	// OpJump unconditionally advances ip by a 2-byte offset.
	// Operands: 2 byte big-endian offset. Stack effect: 0.
	OpJump

	// OpLoop rewinds ip by a 2-byte offset (back-edge for loops).
	// Operands: 2 byte big-endian offset. Stack effect: 0.
	OpLoop

	// OpCall invokes the callable found argCount slots below the top of
	// stack.
	// Operands: 1 byte argument count. Stack effect: -argCount (the
	// callee and arguments are replaced by a single result).
	OpCall
)

var opNames = map[Op]string{
	OpReturn: "RETURN", OpConstant: "CONSTANT",
	OpNil: "NIL", OpTrue: "TRUE", OpFalse: "FALSE",
	OpNegate: "NEGATE", OpNot: "NOT",
	OpAdd: "ADD", OpSubtract: "SUBTRACT", OpMultiply: "MULTIPLY", OpDivide: "DIVIDE",
	OpEqual: "EQUAL", OpGreater: "GREATER", OpLess: "LESS",
	OpPrint: "PRINT", OpPop: "POP",
	OpDefineGlobal: "DEFINE_GLOBAL", OpGetGlobal: "GET_GLOBAL", OpSetGlobal: "SET_GLOBAL",
	OpGetLocal: "GET_LOCAL", OpSetLocal: "SET_LOCAL",
	OpJumpIfFalse: "JUMP_IF_FALSE", OpJump: "JUMP", OpLoop: "LOOP",
	OpCall: "CALL",
}

// String returns the canonical mnemonic for an opcode, as used by the
// disassembler.
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// OperandWidth returns the number of operand bytes following the opcode
// byte in the instruction stream. It is the single source of truth the
// disassembler and any future instruction-length computation should use.
func OperandWidth(op Op) int {
	switch op {
	case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal,
		OpGetLocal, OpSetLocal, OpCall:
		return 1
	case OpJumpIfFalse, OpJump, OpLoop:
		return 2
	default:
		return 0
	}
}
