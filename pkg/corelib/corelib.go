// Package corelib implements Loom's primitive method set: the native
// methods every built-in class (Object, Class, Bool, Null, Number, String,
// Range, List, Map, Fn, Thread, System) needs so a bootstrapped VM can
// actually run a program, rather than just compile one. Every method here
// follows the PrimitiveFn calling convention from pkg/value: (vm, args),
// result left in args[0], true on success.
package corelib

import "github.com/kristofer/loom/pkg/value"

// Install binds every primitive this package implements onto the builtin
// classes of an already-bootstrapped Heap (see vm.Bootstrap). It is the
// counterpart of the class-graph construction Bootstrap performs: Bootstrap
// builds the shape, Install fills in the behavior.
func Install(h *value.Heap) {
	installObject(h)
	installClass(h)
	installBool(h)
	installNull(h)
	installNumber(h)
	installString(h)
	installRange(h)
	installList(h)
	installMap(h)
	installFn(h)
	installThread(h)
	installSystem(h)

	// Bootstrap built the builtin classes and their metaclasses before any
	// method existed, so each copies down its superclass's bindings here (the
	// way createClass does for a user class); a class's own bindings win.
	inherit := func(sub *value.Class) {
		for i, m := range sub.Super.Methods {
			if sub.MethodAt(i).Kind == value.MethodNone {
				sub.BindMethod(i, m)
			}
		}
	}
	class := h.BuiltinClasses["Class"]
	inherit(class)
	for _, c := range h.BuiltinClasses {
		if c != class && c.Super != nil {
			inherit(c)
		}
		if meta := c.H.Class; meta != class {
			inherit(meta)
		}
	}
}

// def installs a Go-backed primitive at signature sig on class, allocating
// the signature's global method-name slot if this is the first class to
// use it.
func def(h *value.Heap, class *value.Class, sig string, fn value.PrimitiveFn) {
	idx := h.InternMethodName(sig)
	class.BindMethod(idx, value.Method{Kind: value.MethodPrimitive, Primitive: fn})
}

// defStatic is def, but installs onto class's meta class (the slot a
// `static` call resolves against).
func defStatic(h *value.Heap, class *value.Class, sig string, fn value.PrimitiveFn) {
	def(h, class.H.Class, sig, fn)
}

func underscores(n int) string {
	if n == 0 {
		return ""
	}
	s := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			s = append(s, ',')
		}
		s = append(s, '_')
	}
	return string(s)
}
