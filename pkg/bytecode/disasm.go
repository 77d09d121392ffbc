package bytecode

import (
	"fmt"
	"strings"
)

// DisassembledFn is the minimal view of a compiled function the
// disassembler needs; pkg/vm's driver adapts a *value.Fn to this so that
// pkg/bytecode stays free of a pkg/value import.
type DisassembledFn struct {
	Name               string
	Code               []byte
	ConstantUpvalueNum func(constantIndex uint16) int
	ConstantString     func(constantIndex uint16) (string, bool)
}

// Disassemble renders every instruction in fn.Code as one line of text,
// the way the teacher's format.go rendered smog bytecode for `smog
// disassemble`. It relies only on OperandBytes to skip operands it
// doesn't otherwise decode, so it never goes out of sync with the opcode
// table.
func Disassemble(fn DisassembledFn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", fn.Name)
	ip := 0
	for ip < len(fn.Code) {
		ip = disassembleInstruction(&b, fn, ip)
	}
	return b.String()
}

func disassembleInstruction(b *strings.Builder, fn DisassembledFn, ip int) int {
	op := Op(fn.Code[ip])
	fmt.Fprintf(b, "%04d %-16s", ip, op.Name())
	width := OperandBytes(op, fn.Code, ip, fn.ConstantUpvalueNum)

	switch {
	case op == LoadConstant || op == LoadModuleVar || op == StoreModuleVar:
		idx := ReadU16(fn.Code, ip+1)
		fmt.Fprintf(b, " %d", idx)
		if s, ok := fn.ConstantString(idx); ok {
			fmt.Fprintf(b, " %q", s)
		}
	case IsCall(op) || IsSuper(op):
		idx := ReadU16(fn.Code, ip+1)
		fmt.Fprintf(b, " %d", idx)
		if s, ok := fn.ConstantString(idx); ok {
			fmt.Fprintf(b, " %q", s)
		}
	case op == Jump || op == JumpIfFalse:
		off := ReadI16(fn.Code, ip+1)
		fmt.Fprintf(b, " -> %04d", ip+1+2+int(off))
	case op == Loop:
		off := ReadU16(fn.Code, ip+1)
		fmt.Fprintf(b, " -> %04d", ip+1+2-int(off))
	case op == CreateClosure:
		idx := ReadU16(fn.Code, ip+1)
		fmt.Fprintf(b, " fn#%d (%d upvalues)", idx, (width-2)/2)
	case width > 0:
		for i := 0; i < width; i++ {
			fmt.Fprintf(b, " %d", fn.Code[ip+1+i])
		}
	}
	b.WriteByte('\n')
	return ip + 1 + width
}
