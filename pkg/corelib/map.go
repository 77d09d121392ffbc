package corelib

import "github.com/kristofer/loom/pkg/value"

func installMap(h *value.Heap) {
	m := h.BuiltinClasses["Map"]

	defStatic(h, m, "new()", func(vm value.VM, args []value.Value) bool {
		args[0] = value.FromObj(vm.Heap().NewMap())
		return true
	})
	def(h, m, "[_]", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.Map)
		if !value.Hashable(args[1]) {
			vm.RuntimeError("map key is not hashable")
			return false
		}
		v := self.Get(args[1])
		if v.Kind == value.KindUndefined {
			v = value.Null
		}
		args[0] = v
		return true
	})
	def(h, m, "[_]=(_)", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.Map)
		if !value.Hashable(args[1]) {
			vm.RuntimeError("map key is not hashable")
			return false
		}
		self.Set(args[1], args[2])
		args[0] = args[2]
		return true
	})
	def(h, m, "remove(_)", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.Map)
		if !value.Hashable(args[1]) {
			vm.RuntimeError("map key is not hashable")
			return false
		}
		args[0] = self.Remove(args[1])
		return true
	})
	def(h, m, "count", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.Map)
		args[0] = value.Number(float64(self.Count()))
		return true
	})
	def(h, m, "containsKey(_)", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.Map)
		v := self.Get(args[1])
		args[0] = value.Bool(v.Kind != value.KindUndefined)
		return true
	})
	def(h, m, "keys", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.Map)
		out := vm.Heap().NewList()
		self.Iterate(func(k, v value.Value) { out.Push(k) })
		args[0] = value.FromObj(out)
		return true
	})
	def(h, m, "values", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.Map)
		out := vm.Heap().NewList()
		self.Iterate(func(k, v value.Value) { out.Push(v) })
		args[0] = value.FromObj(out)
		return true
	})
	// iterate(_)/iteratorValue(_) walk the backing slot array directly so a
	// for-loop's cursor is stable across calls without materializing a
	// snapshot list on every step.
	def(h, m, "iterate(_)", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.Map)
		next := 0
		if args[1].Kind == value.KindNumber {
			next = int(args[1].AsNumber()) + 1
		}
		for next < self.SlotCount() {
			if self.SlotIsEntry(next) {
				args[0] = value.Number(float64(next))
				return true
			}
			next++
		}
		args[0] = value.False
		return true
	})
	def(h, m, "iteratorValue(_)", func(vm value.VM, args []value.Value) bool {
		self := args[0].Obj.(*value.Map)
		idx := int(args[1].AsNumber())
		args[0] = self.SlotKey(idx)
		return true
	})
	def(h, m, "toString", func(vm value.VM, args []value.Value) bool {
		args[0] = value.FromObj(vm.Heap().NewString("[map]"))
		return true
	})
}
