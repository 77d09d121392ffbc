package corelib

import "github.com/kristofer/loom/pkg/value"

func installBool(h *value.Heap) {
	b := h.BuiltinClasses["Bool"]

	def(h, b, "!", func(vm value.VM, args []value.Value) bool {
		args[0] = value.Bool(!args[0].AsBool())
		return true
	})
	def(h, b, "toString", func(vm value.VM, args []value.Value) bool {
		text := "false"
		if args[0].AsBool() {
			text = "true"
		}
		args[0] = value.FromObj(vm.Heap().NewString(text))
		return true
	})
}

func installNull(h *value.Heap) {
	n := h.BuiltinClasses["Null"]

	def(h, n, "!", func(vm value.VM, args []value.Value) bool {
		args[0] = value.True
		return true
	})
	def(h, n, "toString", func(vm value.VM, args []value.Value) bool {
		args[0] = value.FromObj(vm.Heap().NewString("null"))
		return true
	})
}
