// Package bytecode declares Loom's fixed opcode set: one byte of operation
// code, a fixed operand width, and a static stack-delta per opcode. The
// compiler (pkg/compiler) emits instruction streams built from this table;
// the VM (pkg/vm) decodes and dispatches on it; the disassembler
// (disasm.go) walks it without understanding what any individual opcode
// does, using only the widths declared here.
package bytecode

// Op is a single bytecode opcode, one byte wide.
type Op byte

const (
	// --- Stack manipulation ---

	// Pop discards the top stack value. No operand.
	Pop Op = iota
	// PushNull pushes the null value. No operand.
	PushNull
	// PushTrue pushes true. No operand.
	PushTrue
	// PushFalse pushes false. No operand.
	PushFalse
	// LoadConstant pushes Fn.Constants[u16]. Operand: u16 constant index.
	LoadConstant

	// --- Variables ---

	// LoadLocalVar pushes the local at slot u8.
	LoadLocalVar
	// StoreLocalVar stores the top value into local slot u8 (value stays
	// on the stack: assignment is itself an expression).
	StoreLocalVar
	// LoadUpvalue pushes the value of upvalue u8.
	LoadUpvalue
	// StoreUpvalue stores the top value into upvalue u8.
	StoreUpvalue
	// LoadModuleVar pushes module variable u16.
	LoadModuleVar
	// StoreModuleVar stores the top value into module variable u16.
	StoreModuleVar
	// LoadThisField pushes field u8 of the receiver (stackStart[0]).
	LoadThisField
	// StoreThisField stores the top value into field u8 of the receiver.
	StoreThisField
	// LoadField pushes field u8 of the value on top of the stack (the
	// field's instance is popped, explicit-receiver field access).
	LoadField
	// StoreField pops [instance, value] and stores value into field u8 of
	// instance, pushing value back.
	StoreField

	// --- Calls ---

	// Call0 through Call16 send a message with 0..16 arguments. Operand:
	// u16 global method-name index. Args (and the receiver) are already on
	// the stack: [receiver, arg1, ..., argN].
	Call0
	Call1
	Call2
	Call3
	Call4
	Call5
	Call6
	Call7
	Call8
	Call9
	Call10
	Call11
	Call12
	Call13
	Call14
	Call15
	Call16

	// Super0 through Super16 send a message starting lookup in a fixed
	// superclass rather than the receiver's own class. Operands: u16
	// method-name index, u16 constant-pool index of the superclass (the
	// patch pass fills this in once the class finishes constructing).
	Super0
	Super1
	Super2
	Super3
	Super4
	Super5
	Super6
	Super7
	Super8
	Super9
	Super10
	Super11
	Super12
	Super13
	Super14
	Super15
	Super16

	// --- Closures and classes ---

	// CreateClosure reads a u16 Fn constant index, then 2*Fn.UpvalueNum
	// bytes (pairs of u8 isEnclosingLocalVar, u8 index), builds a Closure,
	// and pushes it.
	CreateClosure
	// CloseUpvalue closes every open upvalue at or above the current top
	// stack slot, then pops that slot (the local leaving scope). No operand.
	CloseUpvalue
	// CreateClass pops [superclass, name], builds the class (and its meta
	// class), and pushes it. Operand: u8 declared field count (added to
	// the superclass's inherited FieldCount by the VM).
	CreateClass
	// InstanceMethod pops a closure, installs it as instance method u16 on
	// the class currently on top of the stack (left in place).
	InstanceMethod
	// StaticMethod is InstanceMethod but installs onto the class's meta
	// class.
	StaticMethod
	// Construct allocates a new Instance of the class in args[0] in place
	// of the class, ready for the constructor body to run against it.
	Construct
	// End marks the end of a function/method body's instruction stream.
	End

	// --- Branches ---

	// Jump adds a signed i16 offset to ip unconditionally.
	Jump
	// JumpIfFalse peeks the top value (leaving it on the stack) and adds a
	// signed i16 offset to ip if it is falsy.
	JumpIfFalse
	// Loop subtracts a u16 offset from ip (a backward jump).
	Loop
)

// operandWidth is the number of operand bytes that follow the opcode byte
// itself, for every opcode whose width does not depend on runtime state.
// CreateClosure is the one variable-width exception and is handled
// specially by OperandBytes.
var operandWidth = map[Op]int{
	Pop:            0,
	PushNull:       0,
	PushTrue:       0,
	PushFalse:      0,
	LoadConstant:   2,
	LoadLocalVar:   1,
	StoreLocalVar:  1,
	LoadUpvalue:    1,
	StoreUpvalue:   1,
	LoadModuleVar:  2,
	StoreModuleVar: 2,
	LoadThisField:  1,
	StoreThisField: 1,
	LoadField:      1,
	StoreField:     1,
	CreateClosure:  2, // plus 2*upvalueNum, resolved via the Fn constant
	CloseUpvalue:   0,
	CreateClass:    1,
	InstanceMethod: 2,
	StaticMethod:   2,
	Construct:      0,
	End:            0,
	Jump:           2,
	JumpIfFalse:    2,
	Loop:           2,
}

func init() {
	for op := Call0; op <= Call16; op++ {
		operandWidth[op] = 2
	}
	for op := Super0; op <= Super16; op++ {
		operandWidth[op] = 4
	}
}

// CallOp returns the CallN opcode for the given argument count (0..16).
func CallOp(argCount int) Op { return Call0 + Op(argCount) }

// SuperOp returns the SuperN opcode for the given argument count (0..16).
func SuperOp(argCount int) Op { return Super0 + Op(argCount) }

// ArgCountOfCall returns the argument count encoded in a CallN opcode.
func ArgCountOfCall(op Op) int { return int(op - Call0) }

// ArgCountOfSuper returns the argument count encoded in a SuperN opcode.
func ArgCountOfSuper(op Op) int { return int(op - Super0) }

// IsCall reports whether op is one of Call0..Call16.
func IsCall(op Op) bool { return op >= Call0 && op <= Call16 }

// IsSuper reports whether op is one of Super0..Super16.
func IsSuper(op Op) bool { return op >= Super0 && op <= Super16 }

// StackDelta returns the static net stack-depth change an opcode produces,
// used by the compiler to track peak stack-slot usage (property 2). Call
// and super opcodes derive theirs from the argument count encoded in the
// opcode; CreateClosure's upvalue operands do not touch the stack, so it is
// a plain push.
func StackDelta(op Op) int {
	switch op {
	case Pop:
		return -1
	case JumpIfFalse:
		// JumpIfFalse peeks its condition rather than popping it. if/while/
		// for/?: emit an explicit Pop of the condition on both paths; && and
		// || pop it only on the path that evaluates the right operand and
		// otherwise leave it as the expression's result.
		return 0
	case PushNull, PushTrue, PushFalse, LoadConstant,
		LoadLocalVar, LoadUpvalue, LoadModuleVar, LoadThisField,
		CreateClosure:
		return 1
	case CreateClass:
		return -1 // pops superclass and name, pushes the class
	case InstanceMethod, StaticMethod:
		return -1 // pops the closure, leaves the class in place
	case StoreLocalVar, StoreUpvalue, StoreModuleVar, StoreThisField:
		return 0
	case LoadField:
		return 0 // pops instance, pushes field value
	case StoreField:
		return -1 // pops instance and value, pushes value back
	case CloseUpvalue:
		return -1 // closes the open upvalue at the current top slot, then pops it
	case Jump, Loop, End:
		return 0
	case Construct:
		return 0
	default:
		if IsCall(op) {
			return -ArgCountOfCall(op) // pops receiver+args, pushes 1 result
		}
		if IsSuper(op) {
			return -ArgCountOfSuper(op)
		}
		return 0
	}
}

// Name returns a human-readable mnemonic for op, used by the disassembler.
func (op Op) Name() string {
	switch {
	case IsCall(op):
		return "CALL" + itoa(ArgCountOfCall(op))
	case IsSuper(op):
		return "SUPER" + itoa(ArgCountOfSuper(op))
	}
	switch op {
	case Pop:
		return "POP"
	case PushNull:
		return "PUSH_NULL"
	case PushTrue:
		return "PUSH_TRUE"
	case PushFalse:
		return "PUSH_FALSE"
	case LoadConstant:
		return "LOAD_CONSTANT"
	case LoadLocalVar:
		return "LOAD_LOCAL_VAR"
	case StoreLocalVar:
		return "STORE_LOCAL_VAR"
	case LoadUpvalue:
		return "LOAD_UPVALUE"
	case StoreUpvalue:
		return "STORE_UPVALUE"
	case LoadModuleVar:
		return "LOAD_MODULE_VAR"
	case StoreModuleVar:
		return "STORE_MODULE_VAR"
	case LoadThisField:
		return "LOAD_THIS_FIELD"
	case StoreThisField:
		return "STORE_THIS_FIELD"
	case LoadField:
		return "LOAD_FIELD"
	case StoreField:
		return "STORE_FIELD"
	case CreateClosure:
		return "CREATE_CLOSURE"
	case CloseUpvalue:
		return "CLOSE_UPVALUE"
	case CreateClass:
		return "CREATE_CLASS"
	case InstanceMethod:
		return "INSTANCE_METHOD"
	case StaticMethod:
		return "STATIC_METHOD"
	case Construct:
		return "CONSTRUCT"
	case End:
		return "END"
	case Jump:
		return "JUMP"
	case JumpIfFalse:
		return "JUMP_IF_FALSE"
	case Loop:
		return "LOOP"
	default:
		return "UNKNOWN"
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// ReadU16 reads a big-endian 16-bit operand at code[ip].
func ReadU16(code []byte, ip int) uint16 {
	return uint16(code[ip])<<8 | uint16(code[ip+1])
}

// ReadI16 reads a big-endian signed 16-bit operand at code[ip].
func ReadI16(code []byte, ip int) int16 { return int16(ReadU16(code, ip)) }

// WriteU16 writes a big-endian 16-bit operand at code[ip].
func WriteU16(code []byte, ip int, v uint16) {
	code[ip] = byte(v >> 8)
	code[ip+1] = byte(v)
}

// ConstantUpvalueNumLookup is the minimal view of a compiled function
// OperandBytes needs to resolve CreateClosure's variable-width operand (it must look up the
// referenced Fn's UpvalueNum in the constant pool). pkg/value.Fn and
// pkg/value.Value satisfy this via small adapter functions passed in by
// the caller, keeping this package free of a pkg/value import.
type ConstantUpvalueNumLookup func(constantIndex uint16) int

// OperandBytes returns how many bytes follow the opcode byte at code[ip]
// (not counting the opcode byte itself), so that both the patch pass and a
// debugger can skip operands without decoding their meaning. lookupFn is
// only consulted for CreateClosure, whose width depends on the target
// Fn's upvalue count.
func OperandBytes(op Op, code []byte, ip int, lookupFn ConstantUpvalueNumLookup) int {
	if op == CreateClosure {
		fnIdx := ReadU16(code, ip+1)
		n := 0
		if lookupFn != nil {
			n = lookupFn(fnIdx)
		}
		return 2 + 2*n
	}
	if w, ok := operandWidth[op]; ok {
		return w
	}
	return 0
}
