package corelib

import (
	"fmt"
	"math"

	"github.com/kristofer/loom/pkg/value"
)

func installNumber(h *value.Heap) {
	n := h.BuiltinClasses["Number"]

	binaryArith := func(op func(a, b float64) float64) value.PrimitiveFn {
		return func(vm value.VM, args []value.Value) bool {
			if args[1].Kind != value.KindNumber {
				vm.RuntimeError("right operand must be a number")
				return false
			}
			args[0] = value.Number(op(args[0].AsNumber(), args[1].AsNumber()))
			return true
		}
	}
	binaryCompare := func(op func(a, b float64) bool) value.PrimitiveFn {
		return func(vm value.VM, args []value.Value) bool {
			if args[1].Kind != value.KindNumber {
				vm.RuntimeError("right operand must be a number")
				return false
			}
			args[0] = value.Bool(op(args[0].AsNumber(), args[1].AsNumber()))
			return true
		}
	}
	binaryBitwise := func(op func(a, b int64) int64) value.PrimitiveFn {
		return func(vm value.VM, args []value.Value) bool {
			if args[1].Kind != value.KindNumber {
				vm.RuntimeError("right operand must be a number")
				return false
			}
			a, b := int64(args[0].AsNumber()), int64(args[1].AsNumber())
			args[0] = value.Number(float64(op(a, b)))
			return true
		}
	}

	def(h, n, "+(_)", binaryArith(func(a, b float64) float64 { return a + b }))
	def(h, n, "-(_)", binaryArith(func(a, b float64) float64 { return a - b }))
	def(h, n, "*(_)", binaryArith(func(a, b float64) float64 { return a * b }))
	def(h, n, "/(_)", binaryArith(func(a, b float64) float64 { return a / b }))
	def(h, n, "%(_)", binaryArith(math.Mod))

	def(h, n, "<(_)", binaryCompare(func(a, b float64) bool { return a < b }))
	def(h, n, "<=(_)", binaryCompare(func(a, b float64) bool { return a <= b }))
	def(h, n, ">(_)", binaryCompare(func(a, b float64) bool { return a > b }))
	def(h, n, ">=(_)", binaryCompare(func(a, b float64) bool { return a >= b }))
	def(h, n, "==(_)", func(vm value.VM, args []value.Value) bool {
		args[0] = value.Bool(args[1].Kind == value.KindNumber && args[0].AsNumber() == args[1].AsNumber())
		return true
	})
	def(h, n, "!=(_)", func(vm value.VM, args []value.Value) bool {
		args[0] = value.Bool(args[1].Kind != value.KindNumber || args[0].AsNumber() != args[1].AsNumber())
		return true
	})

	def(h, n, "&(_)", binaryBitwise(func(a, b int64) int64 { return a & b }))
	def(h, n, "|(_)", binaryBitwise(func(a, b int64) int64 { return a | b }))
	def(h, n, "<<(_)", binaryBitwise(func(a, b int64) int64 { return a << uint(b) }))
	def(h, n, ">>(_)", binaryBitwise(func(a, b int64) int64 { return a >> uint(b) }))

	def(h, n, "-", func(vm value.VM, args []value.Value) bool {
		args[0] = value.Number(-args[0].AsNumber())
		return true
	})
	def(h, n, "~", func(vm value.VM, args []value.Value) bool {
		args[0] = value.Number(float64(^int64(args[0].AsNumber())))
		return true
	})

	def(h, n, "..(_)", func(vm value.VM, args []value.Value) bool {
		if args[1].Kind != value.KindNumber {
			vm.RuntimeError("range bound must be a number")
			return false
		}
		args[0] = value.FromObj(vm.Heap().NewRange(args[0].AsNumber(), args[1].AsNumber()))
		return true
	})

	def(h, n, "toString", func(vm value.VM, args []value.Value) bool {
		args[0] = value.FromObj(vm.Heap().NewString(formatNumber(args[0].AsNumber())))
		return true
	})
}

// formatNumber renders a float64 the way script source would write it:
// integral values print without a trailing ".0".
func formatNumber(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%g", f)
}
