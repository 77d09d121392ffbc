package corelib

import (
	"fmt"

	"github.com/kristofer/loom/pkg/value"
)

// installFn binds call() through call(_,_,...,_) (17 arities, 0..16
// arguments) on Fn as MethodFnCall slots: dispatchCall recognizes this kind
// and invokes the receiver closure directly rather than looking up a
// Go-backed primitive or script method, which is what lets `someFn.call(x)`
// work for every closure regardless of what class created it.
func installFn(h *value.Heap) {
	fn := h.BuiltinClasses["Fn"]
	for n := 0; n <= 16; n++ {
		sig := fmt.Sprintf("call(%s)", underscores(n))
		idx := h.InternMethodName(sig)
		fn.BindMethod(idx, value.Method{Kind: value.MethodFnCall})
	}
	def(h, fn, "toString", func(vm value.VM, args []value.Value) bool {
		args[0] = value.FromObj(vm.Heap().NewString("[fn]"))
		return true
	})
}
