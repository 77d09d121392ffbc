package corelib

import "github.com/kristofer/loom/pkg/value"

// installObject binds the methods every value in the language answers to,
// regardless of class, since every class's chain ultimately reaches Object.
func installObject(h *value.Heap) {
	object := h.BuiltinClasses["Object"]

	def(h, object, "==(_)", func(vm value.VM, args []value.Value) bool {
		args[0] = value.Bool(value.Equal(args[0], args[1]))
		return true
	})
	def(h, object, "!=(_)", func(vm value.VM, args []value.Value) bool {
		args[0] = value.Bool(!value.Equal(args[0], args[1]))
		return true
	})
	def(h, object, "is(_)", func(vm value.VM, args []value.Value) bool {
		target, ok := args[1].Obj.(*value.Class)
		if !ok {
			vm.RuntimeError("'is' right-hand side must be a class")
			return false
		}
		for c := vm.Heap().ClassOf(args[0]); c != nil; c = c.Super {
			if c == target {
				args[0] = value.True
				return true
			}
		}
		args[0] = value.False
		return true
	})
	def(h, object, "toString", func(vm value.VM, args []value.Value) bool {
		class := vm.Heap().ClassOf(args[0])
		args[0] = value.FromObj(vm.Heap().NewString("instance of " + string(class.Name.Bytes)))
		return true
	})
	def(h, object, "type", func(vm value.VM, args []value.Value) bool {
		args[0] = value.FromObj(vm.Heap().ClassOf(args[0]))
		return true
	})

	// import(_) is a MethodImport slot: pkg/vm's dispatchCall special-cases
	// this kind and resolves/compiles/runs the named module itself, rather
	// than calling a Go-backed primitive (see pkg/vm/imports.go).
	importIdx := h.InternMethodName("import(_)")
	object.BindMethod(importIdx, value.Method{Kind: value.MethodImport})
}

// installClass binds the handful of methods every class object (and every
// metaclass, which inherits straight from Class) answers to.
func installClass(h *value.Heap) {
	class := h.BuiltinClasses["Class"]

	def(h, class, "name", func(vm value.VM, args []value.Value) bool {
		c := args[0].Obj.(*value.Class)
		args[0] = value.FromObj(c.Name)
		return true
	})
	def(h, class, "supertype", func(vm value.VM, args []value.Value) bool {
		c := args[0].Obj.(*value.Class)
		if c.Super == nil {
			args[0] = value.Null
			return true
		}
		args[0] = value.FromObj(c.Super)
		return true
	})
	def(h, class, "toString", func(vm value.VM, args []value.Value) bool {
		c := args[0].Obj.(*value.Class)
		args[0] = value.FromObj(vm.Heap().NewString(string(c.Name.Bytes)))
		return true
	})
}
