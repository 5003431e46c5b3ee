package bytecode

import "strconv"

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	ValNil ValueKind = iota
	ValBool
	ValNumber
	ValObj
)

// Value is loxvm's tagged union of runtime values. It is kept as a small
// struct with one field per variant rather than an interface, so that nil,
// booleans, and numbers never allocate — only ValObj carries a pointer.
type Value struct {
	kind    ValueKind
	boolean bool
	number  float64
	obj     *Obj
}

// Nil is the single nil value.
var Nil = Value{kind: ValNil}

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{kind: ValBool, boolean: b} }

// Number constructs a numeric value.
func Number(n float64) Value { return Value{kind: ValNumber, number: n} }

// FromObj constructs a value referencing a heap object.
func FromObj(o *Obj) Value { return Value{kind: ValObj, obj: o} }

func (v Value) IsNil() bool    { return v.kind == ValNil }
func (v Value) IsBool() bool   { return v.kind == ValBool }
func (v Value) IsNumber() bool { return v.kind == ValNumber }
func (v Value) IsObj() bool    { return v.kind == ValObj }
func (v Value) IsString() bool { return v.kind == ValObj && v.obj.Kind == ObjString }

func (v Value) AsBool() bool       { return v.boolean }
func (v Value) AsNumber() float64  { return v.number }
func (v Value) AsObj() *Obj        { return v.obj }
func (v Value) AsString() string   { return v.obj.Str }

// IsFalsey reports whether v is one of Lox's two falsey values: nil and
// false. Every other value, including 0 and the empty string, is truthy.
func (v Value) IsFalsey() bool {
	return v.kind == ValNil || (v.kind == ValBool && !v.boolean)
}

// Equal implements Lox's structural equality: values of different kinds are
// never equal, strings compare by content, everything else by underlying
// Go equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case ValNil:
		return true
	case ValBool:
		return v.boolean == other.boolean
	case ValNumber:
		return v.number == other.number
	case ValObj:
		if v.obj.Kind == ObjString && other.obj.Kind == ObjString {
			return v.obj.Str == other.obj.Str
		}
		return v.obj == other.obj
	default:
		return false
	}
}

// String renders v the way PRINT and string coercion (for ADD) do.
func (v Value) String() string {
	switch v.kind {
	case ValNil:
		return "nil"
	case ValBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case ValNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case ValObj:
		return v.obj.String()
	default:
		return "?"
	}
}

// ObjKind discriminates the variants of a heap-allocated Obj.
type ObjKind int

const (
	ObjString ObjKind = iota
	ObjFunction
	ObjNative
)

// NativeFn is the signature every host-supplied native function implements.
type NativeFn func(args []Value) (Value, error)

// Obj is a heap-allocated value: a string, a compiled function, or a
// native-function handle. Every Obj created during evaluation is linked
// into the VM's intrusive object list (via Next) so that VM.Reset can
// drop them in one step — see the vm package for how the list head is
// owned.
type Obj struct {
	Kind ObjKind
	Next *Obj

	// ObjString payload: an owned byte sequence.
	Str string

	// ObjFunction payload.
	Arity int
	Name  string // empty for the nameless top-level script
	Chunk *Chunk

	// ObjNative payload. The name a native is registered under lives only
	// in the globals table, per spec — the object itself need not know it.
	Native NativeFn
}

// NewString allocates a string object. The caller is responsible for
// linking it into the VM's object list.
func NewString(s string) *Obj {
	return &Obj{Kind: ObjString, Str: s}
}

// NewFunction allocates a function object around a freshly compiled chunk.
func NewFunction(name string, arity int, chunk *Chunk) *Obj {
	return &Obj{Kind: ObjFunction, Name: name, Arity: arity, Chunk: chunk}
}

// NewNative allocates a native-function handle.
func NewNative(fn NativeFn) *Obj {
	return &Obj{Kind: ObjNative, Native: fn}
}

func (o *Obj) String() string {
	switch o.Kind {
	case ObjString:
		return o.Str
	case ObjFunction:
		if o.Name == "" {
			return "<script>"
		}
		return "<fn " + o.Name + ">"
	case ObjNative:
		return "<native fn>"
	default:
		return "<obj>"
	}
}
