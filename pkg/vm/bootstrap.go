package vm

import "github.com/kristofer/loom/pkg/value"

// builtinNames lists every class Bootstrap installs directly into
// Heap.BuiltinClasses, beyond Object and Class themselves, each inheriting
// straight from Object. pkg/corelib populates their method tables once
// Bootstrap has wired the class graph; this file only builds the shape.
var builtinNames = []string{
	"Number", "Bool", "Null", "String", "Range",
	"List", "Map", "Fn", "Thread", "Module", "System",
}

// Bootstrap builds the builtin class graph a fresh Heap needs before any
// user code runs: Object and Class at the root (with the cyclic metaclass
// wiring Class.Class == Class), then one ordinary builtin class per core
// type, each with its own metaclass inheriting from Class. It mirrors
// wrenNewClass/wrenBindSuperclass's bootstrap sequence: metaclasses never
// parallel the value hierarchy, they all inherit directly from Class.
func Bootstrap() *value.Heap {
	h := value.NewHeap()

	object := h.NewClass(h.NewString("Object"), false)
	object.Super = nil
	object.FieldCount = 0

	class := h.NewClass(h.NewString("Class"), false)
	class.Super = object
	class.FieldCount = object.FieldCount

	objectMeta := h.NewClass(h.NewString("Object metaclass"), true)
	objectMeta.Super = class
	objectMeta.H.Class = class
	object.H.Class = objectMeta

	class.H.Class = class // Class is its own metaclass.

	h.BuiltinClasses["Object"] = object
	h.BuiltinClasses["Class"] = class

	for _, name := range builtinNames {
		h.BuiltinClasses[name] = newBuiltinClass(h, name, object)
	}

	return h
}

// SeedModule registers every builtin class as a module variable on mod,
// the way wrenInitializeCore populates the core module's variable table so
// user code can reference Object, Number, System, and the rest by name
// without an explicit import. It is called once for the core module and
// again for every module runImport compiles.
func SeedModule(mod *value.Module, h *value.Heap) {
	mod.DefineVar("Object", value.FromObj(h.BuiltinClasses["Object"]))
	mod.DefineVar("Class", value.FromObj(h.BuiltinClasses["Class"]))
	for _, name := range builtinNames {
		mod.DefineVar(name, value.FromObj(h.BuiltinClasses[name]))
	}
}

// newBuiltinClass allocates a builtin class inheriting from super, plus a
// metaclass of its own inheriting Class's own methods (never super's
// metaclass's — see createClass's doc comment on static-method inheritance).
func newBuiltinClass(h *value.Heap, name string, super *value.Class) *value.Class {
	classClass := h.BuiltinClasses["Class"]

	cls := h.NewClass(h.NewString(name), false)
	cls.Super = super
	cls.FieldCount = super.FieldCount

	meta := h.NewClass(h.NewString(name+" metaclass"), true)
	meta.Super = classClass
	meta.Methods = append(meta.Methods, classClass.Methods...)
	meta.H.Class = classClass

	cls.H.Class = meta
	return cls
}
