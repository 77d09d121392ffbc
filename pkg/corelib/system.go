package corelib

import (
	"fmt"
	"os"
	"time"

	"github.com/kristofer/loom/pkg/value"
)

// installSystem binds System's static methods. print/write go to stdout
// directly, the way cmd/loom's REPL and script-run surfaces expect their
// program's own output to behave.
func installSystem(h *value.Heap) {
	sys := h.BuiltinClasses["System"]

	defStatic(h, sys, "print(_)", func(vm value.VM, args []value.Value) bool {
		fmt.Fprintln(os.Stdout, toDisplayString(vm, args[1]))
		args[0] = args[1]
		return true
	})
	defStatic(h, sys, "write(_)", func(vm value.VM, args []value.Value) bool {
		fmt.Fprint(os.Stdout, toDisplayString(vm, args[1]))
		args[0] = args[1]
		return true
	})
	defStatic(h, sys, "clock()", func(vm value.VM, args []value.Value) bool {
		args[0] = value.Number(float64(time.Now().UnixNano()) / 1e9)
		return true
	})
}

// toDisplayString renders v for System.print/write without going through a
// full method dispatch (print must work even for values whose class hasn't
// finished defining toString yet, e.g. during bootstrap diagnostics).
func toDisplayString(vm value.VM, v value.Value) string {
	switch v.Kind {
	case value.KindNull:
		return "null"
	case value.KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case value.KindNumber:
		return formatNumber(v.AsNumber())
	case value.KindObject:
		if s, ok := v.Obj.(*value.String); ok {
			return string(s.Bytes)
		}
		return fmt.Sprintf("%s", v.Obj.Header().Kind)
	default:
		return ""
	}
}
