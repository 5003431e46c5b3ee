package vm

import (
	"fmt"
	"time"

	"loxvm/pkg/bytecode"
)

// defineNatives registers the interpreter's two built-ins directly into
// globals, the same way a top-level `var` declaration would, so NAME
// resolves through the ordinary GET_GLOBAL path with no special-casing in
// the run loop.
func (vm *VM) defineNatives() {
	vm.defineNative("clock", clockNative)
	vm.defineNative("println", vm.printlnNative)
}

func (vm *VM) defineNative(name string, fn bytecode.NativeFn) {
	obj := bytecode.NewNative(fn)
	vm.linkObject(obj)
	vm.globals.Put(name, bytecode.FromObj(obj))
}

// clockNative returns seconds since the Unix epoch, matching the
// reference implementation's clock() so timing-sensitive Lox scripts
// behave the same way under either runtime.
func clockNative(args []bytecode.Value) (bytecode.Value, error) {
	return bytecode.Number(float64(time.Now().UnixNano()) / 1e9), nil
}

// printlnNative writes its single argument followed by a newline, or a
// bare newline if called with no arguments, and always returns nil.
func (vm *VM) printlnNative(args []bytecode.Value) (bytecode.Value, error) {
	if len(args) == 0 {
		fmt.Fprintln(vm.stdout)
		return bytecode.Nil, nil
	}
	fmt.Fprintln(vm.stdout, renderValue(args[0]))
	return bytecode.Nil, nil
}
