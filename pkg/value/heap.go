package value

// Heap holds every piece of VM-global state described in §3: the
// process-wide all-objects list (anchored here as a head pointer, each
// object linking to the next via its Header), an allocation counter
// (AllocatedBytes, incremented once per linked object rather than by size),
// references to the built-in classes, the table of loaded modules, and the
// global method-name table (allMethodNames) used to index every class's
// method vector uniformly.
//
// It lives in pkg/value (not pkg/vm) so that Obj headers — which must
// carry a *Class pointer regardless of kind — and the constructors that
// populate them can live next to the types they construct without pkg/value
// importing pkg/vm.
type Heap struct {
	allObjects     Obj
	AllocatedBytes int64

	BuiltinClasses map[string]*Class
	Modules        map[string]*Module // keyed by module name; "" is the core module

	allMethodNames []string
	methodNameIdx  map[string]int
}

// CoreModuleKey is the map key under which the nameless core module is
// registered (standing in for the data model's "Null key designates the
// core module").
const CoreModuleKey = ""

// NewHeap returns an empty Heap ready for bootstrap.
func NewHeap() *Heap {
	return &Heap{
		BuiltinClasses: make(map[string]*Class),
		Modules:        make(map[string]*Module),
		methodNameIdx:  make(map[string]int),
	}
}

func (h *Heap) link(o Obj) {
	o.Header().Next = h.allObjects
	h.allObjects = o
	h.AllocatedBytes++
}

// AllObjects returns the head of the intrusive all-objects list, for
// diagnostics or a future reachability walk.
func (h *Heap) AllObjects() Obj { return h.allObjects }

// InternMethodName returns the global index for a method signature,
// allocating a new slot the first time a signature is seen.
func (h *Heap) InternMethodName(sig string) int {
	if idx, ok := h.methodNameIdx[sig]; ok {
		return idx
	}
	idx := len(h.allMethodNames)
	h.allMethodNames = append(h.allMethodNames, sig)
	h.methodNameIdx[sig] = idx
	return idx
}

// MethodNameAt returns the signature string interned at index i.
func (h *Heap) MethodNameAt(i int) string {
	if i < 0 || i >= len(h.allMethodNames) {
		return ""
	}
	return h.allMethodNames[i]
}

// MethodNameCount returns how many distinct signatures have been interned.
func (h *Heap) MethodNameCount() int { return len(h.allMethodNames) }

// NewString allocates a String object, computing its FNV-1a hash.
func (h *Heap) NewString(s string) *String {
	b := []byte(s)
	str := &String{Bytes: b, Hash: HashBytes(b)}
	str.H.Kind = ObjStringKind
	str.H.Class = h.BuiltinClasses["String"]
	h.link(str)
	return str
}

// NewList allocates an empty List.
func (h *Heap) NewList() *List {
	l := &List{}
	l.H.Kind = ObjListKind
	l.H.Class = h.BuiltinClasses["List"]
	h.link(l)
	return l
}

// NewMap allocates an empty Map.
func (h *Heap) NewMap() *Map {
	m := &Map{}
	m.H.Kind = ObjMapKind
	m.H.Class = h.BuiltinClasses["Map"]
	h.link(m)
	return m
}

// NewRange allocates a Range object.
func (h *Heap) NewRange(from, to float64) *Range {
	r := &Range{From: from, To: to}
	r.H.Kind = ObjRangeKind
	r.H.Class = h.BuiltinClasses["Range"]
	h.link(r)
	return r
}

// NewModule allocates a Module and registers it under its name (or the
// core module key, if name is nil).
func (h *Heap) NewModule(name *String) *Module {
	m := &Module{Name: name}
	m.H.Kind = ObjModuleKind
	m.H.Class = h.BuiltinClasses["Module"]
	h.link(m)
	key := CoreModuleKey
	if name != nil {
		key = string(name.Bytes)
	}
	h.Modules[key] = m
	return m
}

// NewFn allocates a Fn object belonging to the given module.
func (h *Heap) NewFn(mod *Module) *Fn {
	f := &Fn{Module: mod}
	f.H.Kind = ObjFnKind
	f.H.Class = h.BuiltinClasses["Fn"]
	h.link(f)
	return f
}

// NewClosure allocates a Closure over fn with upvalueNum empty upvalue
// slots (to be filled in by CREATE_CLOSURE).
func (h *Heap) NewClosure(fn *Fn) *Closure {
	c := &Closure{Fn: fn, Upvalues: make([]*Upvalue, fn.UpvalueNum)}
	c.H.Kind = ObjClosureKind
	c.H.Class = h.BuiltinClasses["Fn"]
	h.link(c)
	return c
}

// NewUpvalue allocates a fresh, still-to-be-configured open upvalue.
func (h *Heap) NewUpvalue() *Upvalue {
	u := &Upvalue{}
	u.H.Kind = ObjUpvalueKind
	h.link(u)
	return u
}

// NewClass allocates a class object. The caller is responsible for wiring
// Super and FieldCount per §4.8's construction rules.
func (h *Heap) NewClass(name *String, isMeta bool) *Class {
	c := &Class{Name: name, IsMeta: isMeta}
	c.H.Kind = ObjClassKind
	c.H.Class = h.BuiltinClasses["Class"]
	h.link(c)
	return c
}

// NewInstance allocates an instance of class with FieldCount fields, each
// initialized to Null.
func (h *Heap) NewInstance(class *Class) *Instance {
	inst := &Instance{Fields: make([]Value, class.FieldCount)}
	for i := range inst.Fields {
		inst.Fields[i] = Null
	}
	inst.H.Kind = ObjInstanceKind
	inst.H.Class = class
	h.link(inst)
	return inst
}

// NewThread allocates a new green thread with an initial value stack.
func (h *Heap) NewThread(caller *Thread) *Thread {
	t := &Thread{Stack: make([]Value, initialStackCapacity), Caller: caller, Error: Undefined}
	t.H.Kind = ObjThreadKind
	t.H.Class = h.BuiltinClasses["Thread"]
	h.link(t)
	return t
}

// ClassOf returns the built-in class for non-object Values, or the
// object's own class pointer otherwise. Hitting an unreachable Kind is a
// fatal internal error, per §4.1.
func (h *Heap) ClassOf(v Value) *Class {
	if v.Kind != KindObject {
		c := ClassOfPrimitive(h, v)
		if c == nil {
			panic("value: unreachable Value kind in ClassOf")
		}
		return c
	}
	if v.Obj == nil {
		panic("value: nil object reference in ClassOf")
	}
	return v.Obj.Header().Class
}
