package corelib

import "github.com/kristofer/loom/pkg/value"

func installList(h *value.Heap) {
	l := h.BuiltinClasses["List"]

	defStatic(h, l, "new()", func(vm value.VM, args []value.Value) bool {
		args[0] = value.FromObj(vm.Heap().NewList())
		return true
	})
	def(h, l, "add(_)", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.List)
		self.Push(args[1])
		args[0] = args[1]
		return true
	})
	def(h, l, "count", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.List)
		args[0] = value.Number(float64(self.Len()))
		return true
	})
	def(h, l, "[_]", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.List)
		idx, ok := listIndex(vm, self.Len(), args[1])
		if !ok {
			return false
		}
		args[0] = self.At(idx)
		return true
	})
	def(h, l, "[_]=(_)", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.List)
		idx, ok := listIndex(vm, self.Len(), args[1])
		if !ok {
			return false
		}
		self.Set(idx, args[2])
		args[0] = args[2]
		return true
	})
	def(h, l, "remove(_)", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.List)
		idx, ok := listIndex(vm, self.Len(), args[1])
		if !ok {
			return false
		}
		args[0] = self.RemoveAt(idx)
		return true
	})
	def(h, l, "iterate(_)", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.List)
		next := 0
		if args[1].Kind == value.KindNumber {
			next = int(args[1].AsNumber()) + 1
		}
		if next >= self.Len() {
			args[0] = value.False
			return true
		}
		args[0] = value.Number(float64(next))
		return true
	})
	def(h, l, "iteratorValue(_)", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.List)
		args[0] = self.At(int(args[1].AsNumber()))
		return true
	})
	def(h, l, "toString", func(vm value.VM, args []value.Value) bool {
		args[0] = value.FromObj(vm.Heap().NewString("[list]"))
		return true
	})
}

// listIndex validates idx as an in-bounds integer List index, supporting
// negative indices counted from the end the way §4's subscript sugar
// implies for sequence types.
func listIndex(vm value.VM, length int, idx value.Value) (int, bool) {
	if idx.Kind != value.KindNumber {
		vm.RuntimeError("list index must be a number")
		return 0, false
	}
	i := int(idx.AsNumber())
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		vm.RuntimeError("list index out of bounds")
		return 0, false
	}
	return i, true
}
