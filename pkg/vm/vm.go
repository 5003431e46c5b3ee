// Package vm implements loxvm's bytecode virtual machine: a stack-based
// interpreter that executes the instruction stream the compiler package
// produces.
//
// The VM is the final stage in the pipeline:
//
//	Source -> scanner -> compiler (single pass, no AST) -> bytecode.Chunk -> vm -> output
//
// Virtual Machine Architecture:
//
//  1. Value stack: holds every intermediate result and every local
//     variable. Locals live at fixed stack offsets computed at compile
//     time; there is no separate locals array.
//  2. Frame stack: one CallFrame per active function invocation, bounded
//     at 64 (see maxFrames). The top frame's instruction pointer is what
//     the run loop advances.
//  3. Globals: a name -> Value table, backed by a Swiss-table hash map
//     for O(1) expected-case lookup — most real Lox programs read global
//     functions and variables far more often than they write them.
//  4. Object list: every heap value (string, function, native) the VM
//     creates or first observes is linked into one intrusive list via
//     Obj.Next, so Reset can walk and drop them together. See objects.go
//     for the invariant this maintains.
//
// Execution Model:
//
// run is a straight-line fetch/decode/dispatch loop over whatever frame
// is on top of the frame stack; CALL pushes a new frame and RETURN pops
// one, exactly mirroring how the compiler's lexical nesting turned into a
// runtime call stack.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/dolthub/swiss"

	"loxvm/pkg/bytecode"
)

// VM is a reusable bytecode interpreter. Construct one with New and feed
// it compiled functions via Interpret; Reset clears per-run state while
// keeping the instance (and, unless told otherwise, its globals) around
// for the next input — the shape the REPL needs.
type VM struct {
	stack  []bytecode.Value
	frames []CallFrame

	globals *swiss.Map[string, bytecode.Value]
	objects *bytecode.Obj

	stdout io.Writer
}

// New creates a VM with its built-in natives already registered and
// ready to run its first program.
func New() *VM {
	vm := &VM{
		stack:   make([]bytecode.Value, 0, 256),
		frames:  make([]CallFrame, 0, maxFrames),
		globals: swiss.NewMap[string, bytecode.Value](32),
		stdout:  os.Stdout,
	}
	vm.defineNatives()
	return vm
}

// SetOutput redirects PRINT/println output, primarily for tests.
func (vm *VM) SetOutput(w io.Writer) { vm.stdout = w }

// Interpret runs a freshly compiled script (or, recursively by the host,
// any top-level function) to completion: it pushes fn as if it were the
// result of evaluating a call expression, establishes the first call
// frame, and runs until the script returns or a runtime error occurs.
//
// On a runtime error, Interpret resets the VM (per spec: frees objects,
// empties stacks) before returning, so the VM is immediately ready to
// interpret another program — the REPL's recovery path.
func (vm *VM) Interpret(fn *bytecode.Obj) error {
	vm.linkObject(fn)
	vm.push(bytecode.FromObj(fn))
	vm.frames = append(vm.frames, CallFrame{function: fn, base: 0})

	if err := vm.run(); err != nil {
		vm.Reset(false)
		return err
	}
	return nil
}

// Reset clears the stack, frame stack, and object list. When
// resetGlobals is true it also empties the globals table and
// re-registers the natives — the REPL's reference policy of resetting
// everything between lines.
func (vm *VM) Reset(resetGlobals bool) {
	vm.objects = nil
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	if resetGlobals {
		vm.globals = swiss.NewMap[string, bytecode.Value](32)
		vm.defineNatives()
	}
}

func (vm *VM) push(v bytecode.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() bytecode.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) peek(distance int) bytecode.Value {
	return vm.stack[len(vm.stack)-1-distance]
}

// readConstant fetches constants[frame.readByte()], linking it into the
// object list on its first appearance if it's a heap value — this is the
// one chokepoint every compile-time string or function constant passes
// through on its way to becoming "reachable by the VM" (spec §9).
func (vm *VM) readConstant(f *CallFrame) bytecode.Value {
	v := f.chunk().Constants[f.readByte()]
	if v.IsObj() {
		vm.linkObject(v.AsObj())
	}
	return v
}

// run is the main dispatch loop. It refetches the top frame at the start
// of every iteration rather than caching a pointer across CALL/RETURN,
// which keep the frame stack's backing array valid but change its
// length — simpler to reason about than manually patching a cached
// pointer, at the cost of one slice index per instruction.
func (vm *VM) run() error {
	for {
		frame := &vm.frames[len(vm.frames)-1]
		op := bytecode.Op(frame.readByte())

		switch op {
		case bytecode.OpConstant:
			vm.push(vm.readConstant(frame))

		case bytecode.OpNil:
			vm.push(bytecode.Nil)
		case bytecode.OpTrue:
			vm.push(bytecode.Bool(true))
		case bytecode.OpFalse:
			vm.push(bytecode.Bool(false))

		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpGetLocal:
			slot := frame.readByte()
			vm.push(vm.stack[frame.base+int(slot)])
		case bytecode.OpSetLocal:
			slot := frame.readByte()
			vm.stack[frame.base+int(slot)] = vm.peek(0)

		case bytecode.OpDefineGlobal:
			name := vm.readConstant(frame).AsString()
			vm.globals.Put(name, vm.pop())
		case bytecode.OpGetGlobal:
			name := vm.readConstant(frame).AsString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'", name)
			}
			vm.push(v)
		case bytecode.OpSetGlobal:
			name := vm.readConstant(frame).AsString()
			if _, ok := vm.globals.Get(name); !ok {
				return vm.runtimeError("Undefined variable '%s'", name)
			}
			vm.globals.Put(name, vm.peek(0))

		case bytecode.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(bytecode.Bool(a.Equal(b)))
		case bytecode.OpGreater:
			if err := vm.binaryCompare(op); err != nil {
				return err
			}
		case bytecode.OpLess:
			if err := vm.binaryCompare(op); err != nil {
				return err
			}

		case bytecode.OpAdd, bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide:
			if err := vm.binaryArith(op); err != nil {
				return err
			}

		case bytecode.OpNot:
			vm.push(bytecode.Bool(vm.pop().IsFalsey()))
		case bytecode.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(bytecode.Number(-vm.pop().AsNumber()))

		case bytecode.OpPrint:
			fmt.Fprint(vm.stdout, renderValue(vm.pop()))

		case bytecode.OpJump:
			offset := frame.readShort()
			frame.ip += int(offset)
		case bytecode.OpJumpIfFalse:
			offset := frame.readShort()
			if vm.peek(0).IsFalsey() {
				frame.ip += int(offset)
			}
		case bytecode.OpLoop:
			offset := frame.readShort()
			frame.ip -= int(offset)

		case bytecode.OpCall:
			argCount := int(frame.readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}

		case bytecode.OpReturn:
			result := vm.pop()
			base := frame.base
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				vm.pop() // the top-level script's own slot-0 value
				return nil
			}
			vm.stack = vm.stack[:base]
			vm.push(result)

		default:
			return vm.runtimeError("unknown opcode %v", op)
		}
	}
}

// binaryArith implements ADD/SUBTRACT/MULTIPLY/DIVIDE. Operands are
// popped right-then-left, matching the order they were pushed: for
// `a - b`, b is on top.
func (vm *VM) binaryArith(op bytecode.Op) error {
	b, a := vm.pop(), vm.pop()

	if op == bytecode.OpAdd && (a.IsString() || b.IsString()) {
		return vm.concatenate(a, b)
	}

	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("Invalid operation on these operands.")
	}

	var result float64
	switch op {
	case bytecode.OpAdd:
		result = a.AsNumber() + b.AsNumber()
	case bytecode.OpSubtract:
		result = a.AsNumber() - b.AsNumber()
	case bytecode.OpMultiply:
		result = a.AsNumber() * b.AsNumber()
	case bytecode.OpDivide:
		result = a.AsNumber() / b.AsNumber()
	}
	vm.push(bytecode.Number(result))
	return nil
}

func (vm *VM) binaryCompare(op bytecode.Op) error {
	b, a := vm.pop(), vm.pop()
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("Invalid operation on these operands.")
	}
	var result bool
	if op == bytecode.OpGreater {
		result = a.AsNumber() > b.AsNumber()
	} else {
		result = a.AsNumber() < b.AsNumber()
	}
	vm.push(bytecode.Bool(result))
	return nil
}

// concatenate renders both operands to their string form and allocates a
// new heap string for the result. Per spec §9, operand strings already on
// the object list are unlinked first, so the concatenation's own
// allocation is the only one reset_vm will see for this expression.
func (vm *VM) concatenate(a, b bytecode.Value) error {
	if a.IsString() {
		vm.unlinkObject(a.AsObj())
	}
	if b.IsString() {
		vm.unlinkObject(b.AsObj())
	}
	result := bytecode.NewString(a.String() + b.String())
	vm.linkObject(result)
	vm.push(bytecode.FromObj(result))
	return nil
}

// callValue dispatches CALL's callee, found argCount slots below the top
// of stack: a compiled function gets a new CallFrame, a native is invoked
// directly in Go.
func (vm *VM) callValue(callee bytecode.Value, argCount int) error {
	if !callee.IsObj() {
		return vm.runtimeError("Can only call functions and classes")
	}

	switch callee.AsObj().Kind {
	case bytecode.ObjFunction:
		return vm.call(callee.AsObj(), argCount)
	case bytecode.ObjNative:
		args := append([]bytecode.Value(nil), vm.stack[len(vm.stack)-argCount:]...)
		result, err := callee.AsObj().Native(args)
		if err != nil {
			return vm.runtimeError("%s", err.Error())
		}
		vm.stack = vm.stack[:len(vm.stack)-argCount-1]
		vm.push(result)
		return nil
	default:
		return vm.runtimeError("Can only call functions and classes")
	}
}

func (vm *VM) call(fn *bytecode.Obj, argCount int) error {
	if argCount != fn.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", fn.Arity, argCount)
	}
	if len(vm.frames) == maxFrames {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames = append(vm.frames, CallFrame{
		function: fn,
		base:     len(vm.stack) - argCount - 1,
	})
	return nil
}
