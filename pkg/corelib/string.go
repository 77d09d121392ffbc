package corelib

import "github.com/kristofer/loom/pkg/value"

func installString(h *value.Heap) {
	s := h.BuiltinClasses["String"]

	def(h, s, "+(_)", func(vm value.VM, args []value.Value) bool {
		other, ok := args[1].Obj.(*value.String)
		if !ok {
			vm.RuntimeError("right operand must be a string")
			return false
		}
		self := args[0].Obj.(*value.String)
		args[0] = value.FromObj(vm.Heap().NewString(string(self.Bytes) + string(other.Bytes)))
		return true
	})
	def(h, s, "==(_)", func(vm value.VM, args []value.Value) bool {
		args[0] = value.Bool(value.Equal(args[0], args[1]))
		return true
	})
	def(h, s, "!=(_)", func(vm value.VM, args []value.Value) bool {
		args[0] = value.Bool(!value.Equal(args[0], args[1]))
		return true
	})
	def(h, s, "toString", func(vm value.VM, args []value.Value) bool {
		return true // already a string
	})
	def(h, s, "count", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.String)
		args[0] = value.Number(float64(len(self.Bytes)))
		return true
	})
	def(h, s, "[_]", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.String)
		if args[1].Kind != value.KindNumber {
			vm.RuntimeError("string index must be a number")
			return false
		}
		idx := int(args[1].AsNumber())
		if idx < 0 || idx >= len(self.Bytes) {
			vm.RuntimeError("string index out of bounds")
			return false
		}
		args[0] = value.FromObj(vm.Heap().NewString(string(self.Bytes[idx])))
		return true
	})
	def(h, s, "iterate(_)", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.String)
		next := 0
		if args[1].Kind == value.KindNumber {
			next = int(args[1].AsNumber()) + 1
		}
		if next >= len(self.Bytes) {
			args[0] = value.False
			return true
		}
		args[0] = value.Number(float64(next))
		return true
	})
	def(h, s, "iteratorValue(_)", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.String)
		idx := int(args[1].AsNumber())
		args[0] = value.FromObj(vm.Heap().NewString(string(self.Bytes[idx])))
		return true
	})
}
