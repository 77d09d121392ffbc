package corelib

import (
	"fmt"

	"github.com/kristofer/loom/pkg/value"
)

func installRange(h *value.Heap) {
	r := h.BuiltinClasses["Range"]

	def(h, r, "from", func(vm value.VM, args []value.Value) bool {
		args[0] = value.Number(args[0].Obj.(*value.Range).From)
		return true
	})
	def(h, r, "to", func(vm value.VM, args []value.Value) bool {
		args[0] = value.Number(args[0].Obj.(*value.Range).To)
		return true
	})
	def(h, r, "toString", func(vm value.VM, args []value.Value) bool {
		rg := args[0].Obj.(*value.Range)
		args[0] = value.FromObj(vm.Heap().NewString(fmt.Sprintf("%s..%s", formatNumber(rg.From), formatNumber(rg.To))))
		return true
	})
	def(h, r, "iterate(_)", func(vm value.VM, args []value.Value) bool {
		rg := args[0].Obj.(*value.Range)
		step := 1.0
		if rg.To < rg.From {
			step = -1.0
		}
		cur := rg.From
		if args[1].Kind == value.KindNumber {
			cur = args[1].AsNumber() + step
		}
		if (step > 0 && cur > rg.To) || (step < 0 && cur < rg.To) {
			args[0] = value.False
			return true
		}
		args[0] = value.Number(cur)
		return true
	})
	def(h, r, "iteratorValue(_)", func(vm value.VM, args []value.Value) bool {
		args[0] = args[1]
		return true
	})
}
