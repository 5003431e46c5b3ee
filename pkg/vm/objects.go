package vm

import "loxvm/pkg/bytecode"

// linkObject inserts o at the head of the VM's object list, the point at
// which it becomes reachable for reset_vm to walk. It is idempotent: an
// object already linked (it is the current head, or has a non-nil Next)
// is left alone, since inserting it a second time would make reset_vm
// visit — and in an unsafe-memory implementation, free — it twice.
func (vm *VM) linkObject(o *bytecode.Obj) {
	if o == vm.objects || o.Next != nil {
		return
	}
	o.Next = vm.objects
	vm.objects = o
}

// unlinkObject removes o from the object list, used just before a heap
// string is consumed by concatenation so the same backing object is
// never walked twice by reset_vm.
func (vm *VM) unlinkObject(o *bytecode.Obj) {
	if o == nil {
		return
	}
	if vm.objects == o {
		vm.objects = o.Next
		o.Next = nil
		return
	}
	for cur := vm.objects; cur != nil; cur = cur.Next {
		if cur.Next == o {
			cur.Next = o.Next
			o.Next = nil
			return
		}
	}
}

// countObjects walks the object list; it exists for tests asserting
// reset_vm's free-exactly-once invariant, not for production use.
func (vm *VM) countObjects() int {
	n := 0
	for o := vm.objects; o != nil; o = o.Next {
		n++
	}
	return n
}
