package vm

import (
	"strings"

	"github.com/kristofer/loom/pkg/bytecode"
	"github.com/kristofer/loom/pkg/value"
)

// DisassembleFn renders fn (and every nested Fn its CREATE_CLOSURE
// instructions reference, depth-first) as text, adapting *value.Fn to
// pkg/bytecode's DisassembledFn view so the disassembler itself never needs
// to import pkg/value.
func DisassembleFn(h *value.Heap, fn *value.Fn) string {
	seen := map[*value.Fn]bool{}
	var b strings.Builder
	var walk func(f *value.Fn)
	walk = func(f *value.Fn) {
		if seen[f] {
			return
		}
		seen[f] = true
		b.WriteString(bytecode.Disassemble(adaptFn(f)))
		for _, c := range f.Constants {
			if nested, ok := c.Obj.(*value.Fn); ok {
				walk(nested)
			}
		}
	}
	walk(fn)
	return b.String()
}

func adaptFn(f *value.Fn) bytecode.DisassembledFn {
	return bytecode.DisassembledFn{
		Name: f.Name,
		Code: f.Code,
		ConstantUpvalueNum: func(idx uint16) int {
			if int(idx) >= len(f.Constants) {
				return 0
			}
			if nested, ok := f.Constants[idx].Obj.(*value.Fn); ok {
				return nested.UpvalueNum
			}
			return 0
		},
		ConstantString: func(idx uint16) (string, bool) {
			if int(idx) >= len(f.Constants) {
				return "", false
			}
			if s, ok := f.Constants[idx].Obj.(*value.String); ok {
				return string(s.Bytes), true
			}
			return "", false
		},
	}
}
