package value

// VM is the minimal host contract a primitive method needs from the
// virtual machine: enough to allocate new objects, inspect/switch the
// running thread, and signal a runtime error. Declaring it here (rather
// than importing the vm package) keeps pkg/value free of any dependency on
// pkg/vm, while pkg/vm's concrete *VM satisfies it structurally and
// pkg/corelib can register primitives against it without either package
// importing the other.
type VM interface {
	Heap() *Heap
	CurrentThread() *Thread
	SetCurrentThread(*Thread)
	RuntimeError(format string, args ...interface{})
}

// PrimitiveFn is the calling convention from §4.7: a primitive is invoked
// with the VM and the argument slice (args[0] is the receiver), and
// returns true on success (result left in args[0]) or false to request
// either a runtime error (CurrentThread().Error set) or a cooperative
// thread switch (CurrentThread().Error left Undefined, vm.CurrentThread()
// itself changed).
type PrimitiveFn func(vm VM, args []Value) bool

// MethodKind selects which of the method-slot variants a Method holds.
type MethodKind uint8

const (
	MethodNone MethodKind = iota
	MethodPrimitive
	MethodScript
	// MethodFnCall marks a slot whose receiver is itself a callable
	// closure — the trick behind `f.call(...)`. Dispatch just calls the
	// receiver closure directly instead of looking anything else up.
	MethodFnCall
	// MethodImport marks the `import(_)` slot: the host (pkg/vm) resolves
	// and compiles the named module and pushes its top-level body as a new
	// frame, rather than running a Go-backed primitive or script closure.
	MethodImport
)

// Method is one slot of a Class's method table.
type Method struct {
	Kind      MethodKind
	Primitive PrimitiveFn
	Closure   *Closure
}

// Class is a heap object like any other: it has its own class (its "meta
// class", holding static methods), a superclass (nullable only for the
// object hierarchy's root), and a method table indexed uniformly by the
// VM-global method-name index (see Heap.InternMethodName).
type Class struct {
	H          Header
	Name       *String
	Super      *Class
	FieldCount int // includes inherited fields
	Methods    []Method
	IsMeta     bool
}

func (c *Class) Header() *Header { return &c.H }

// MethodAt returns the method installed at index i, or a None-kind Method
// if i is out of range (an unimplemented method, not a fatal error).
func (c *Class) MethodAt(i int) Method {
	if i < 0 || i >= len(c.Methods) {
		return Method{}
	}
	return c.Methods[i]
}

// BindMethod installs m at index i, growing the method table with
// MethodNone slots as needed so that position i always holds the
// implementation (possibly none) for allMethodNames[i].
func (c *Class) BindMethod(i int, m Method) {
	for len(c.Methods) <= i {
		c.Methods = append(c.Methods, Method{})
	}
	c.Methods[i] = m
}

// Instance is a flat array of field values sized by its class's
// FieldCount.
type Instance struct {
	H      Header
	Fields []Value
}

func (i *Instance) Header() *Header { return &i.H }
