package vm

import (
	"github.com/kristofer/loom/pkg/bytecode"
	"github.com/kristofer/loom/pkg/value"
)

// createClosure implements CREATE_CLOSURE: read the Fn constant, then for
// each of its declared upvalues read the (isEnclosingLocal, index) pair the
// compiler emitted and resolve it against the *calling* frame — either by
// capturing a still-live local slot (creating or reusing an open upvalue
// for it) or by forwarding an upvalue the enclosing closure already holds.
func (vm *VM) createClosure(t *value.Thread, frame *value.Frame, code []byte) {
	idx := bytecode.ReadU16(code, frame.IP)
	frame.IP += 2

	fnVal := frame.Closure.Fn.Constants[idx]
	fn, ok := fnVal.Obj.(*value.Fn)
	if !ok {
		vm.RuntimeError("CREATE_CLOSURE: constant is not a function")
		return
	}

	closure := vm.heap.NewClosure(fn)
	for i := 0; i < fn.UpvalueNum; i++ {
		isLocal := code[frame.IP] != 0
		index := int(code[frame.IP+1])
		frame.IP += 2

		if isLocal {
			loc := frame.StackStart + index
			closure.Upvalues[i] = t.InsertOpenUpvalue(loc, vm.heap.NewUpvalue)
		} else {
			closure.Upvalues[i] = frame.Closure.Upvalues[index]
		}
	}

	t.Push(value.FromObj(closure))
}

// createClass implements CREATE_CLASS: pop [superclass, name] (pushed by
// the compiler ahead of the opcode), build the class and its meta class
// following the superclass chain the way wrenNewClass/wrenBindSuperclass
// do, and push the finished class.
func (vm *VM) createClass(t *value.Thread, frame *value.Frame, code []byte) {
	declaredFields := int(code[frame.IP])
	frame.IP++

	superVal := t.Pop()
	nameVal := t.Pop()

	super, ok := superVal.Obj.(*value.Class)
	if !ok {
		vm.RuntimeError("class declaration: superclass expression is not a class")
		return
	}
	name, ok := nameVal.Obj.(*value.String)
	if !ok {
		vm.RuntimeError("class declaration: name is not a string")
		return
	}

	classClass := vm.heap.BuiltinClasses["Class"]

	class := vm.heap.NewClass(name, false)
	class.Super = super
	class.FieldCount = super.FieldCount + declaredFields
	class.Methods = append(class.Methods, super.Methods...)

	metaName := vm.heap.NewString(string(name.Bytes) + " metaclass")
	meta := vm.heap.NewClass(metaName, true)
	// Metaclasses always inherit from Class itself, not from the
	// superclass's metaclass: static methods never inherit down a normal
	// class hierarchy in Loom, only Class's own (name/toString/...) do.
	meta.Super = classClass
	meta.Methods = append(meta.Methods, classClass.Methods...)

	class.H.Class = meta
	meta.H.Class = classClass

	t.Push(value.FromObj(class))
}

// installMethod implements INSTANCE_METHOD/STATIC_METHOD: pop the closure
// the preceding CREATE_CLOSURE pushed, patch any SUPERn placeholders and
// field-index offsets its bytecode (and any nested closures it in turn
// creates) still carries from compile time, and install it into the class
// left on top of the stack (or that class's meta class, for statics).
func (vm *VM) installMethod(t *value.Thread, frame *value.Frame, code []byte, static bool) {
	sigIdx := int(bytecode.ReadU16(code, frame.IP))
	frame.IP += 2

	closureVal := t.Pop()
	closure, ok := closureVal.Obj.(*value.Closure)
	if !ok {
		vm.RuntimeError("method declaration: expected a closure")
		return
	}

	class, ok := t.Peek(0).Obj.(*value.Class)
	if !ok {
		vm.RuntimeError("method declaration: no class on the stack to bind to")
		return
	}

	target := class
	if static {
		target = class.H.Class
	}

	patchMethodSuperclass(closure.Fn, target.Super)
	target.BindMethod(sigIdx, value.Method{Kind: value.MethodScript, Closure: closure})
}

// patchMethodSuperclass walks fn's instruction stream, rewriting every
// SUPERn's placeholder constant-pool slot (a Null the compiler left behind)
// to point at super, offsetting every LOAD_THIS_FIELD/STORE_THIS_FIELD
// index by super.FieldCount (the compiler numbers a class's own fields
// starting at 0; the patch pass is what turns that into the field's real
// position in Instance.Fields once the superclass's field count is known),
// and recurses into every Fn a CREATE_CLOSURE in this body references, the
// way bindMethodCode's nested closure walk does — a method's local
// functions and blocks can themselves contain `super` calls and field
// references that weren't resolvable until the enclosing class finished.
func patchMethodSuperclass(fn *value.Fn, super *value.Class) {
	code := fn.Code
	ip := 0
	for ip < len(code) {
		opStart := ip
		op := bytecode.Op(code[ip])
		ip++

		switch {
		case bytecode.IsSuper(op):
			ip += 2 // method-name index, already correct
			constIdx := bytecode.ReadU16(code, ip)
			fn.Constants[constIdx] = value.FromObj(super)
			ip += 2
			continue

		case op == bytecode.LoadThisField || op == bytecode.StoreThisField:
			code[ip] = byte(int(code[ip]) + super.FieldCount)
			ip++
			continue

		case op == bytecode.CreateClosure:
			constIdx := bytecode.ReadU16(code, ip)
			if nested, ok := fn.Constants[constIdx].Obj.(*value.Fn); ok {
				patchMethodSuperclass(nested, super)
			}
		}

		ip += bytecode.OperandBytes(op, code, opStart, func(constantIndex uint16) int {
			if nested, ok := fn.Constants[constantIndex].Obj.(*value.Fn); ok {
				return nested.UpvalueNum
			}
			return 0
		})
	}
}

// dispatchCall implements CALLn and SUPERn: resolve the method-name index
// against either the receiver's own class (CALLn) or the fixed superclass
// baked into the SUPERn operand (patched in by installMethod), then
// dispatch on the resolved Method's kind.
func (vm *VM) dispatchCall(t *value.Thread, frame *value.Frame, code []byte, op bytecode.Op, isSuper bool) {
	var argCount int
	var sigIdx int
	var lookupClass *value.Class

	if isSuper {
		argCount = bytecode.ArgCountOfSuper(op)
		sigIdx = int(bytecode.ReadU16(code, frame.IP))
		frame.IP += 2
		constIdx := bytecode.ReadU16(code, frame.IP)
		frame.IP += 2
		super, ok := frame.Closure.Fn.Constants[constIdx].Obj.(*value.Class)
		if !ok {
			vm.RuntimeError("super call used outside of a method")
			return
		}
		lookupClass = super
	} else {
		argCount = bytecode.ArgCountOfCall(op)
		sigIdx = int(bytecode.ReadU16(code, frame.IP))
		frame.IP += 2
	}

	receiverSlot := t.ESP - argCount - 1
	receiver := t.Stack[receiverSlot]

	if lookupClass == nil {
		lookupClass = vm.heap.ClassOf(receiver)
	}

	method := lookupClass.MethodAt(sigIdx)
	switch method.Kind {
	case value.MethodNone:
		sig := vm.heap.MethodNameAt(sigIdx)
		vm.RuntimeError("%s does not implement '%s'", lookupClass.Name.Bytes, sig)

	case value.MethodPrimitive:
		args := t.Stack[receiverSlot:t.ESP]
		ok := method.Primitive(vm, args)
		if !ok {
			if t.Error.Kind == value.KindUndefined {
				// Cooperative thread switch (Thread.yield/Thread.call): the
				// primitive has already repositioned vm.current and is
				// responsible for collapsing this thread's stack itself
				// once it resumes, via t.ResumeSlot.
				t.ResumeSlot = receiverSlot
			}
			return
		}
		t.ESP = receiverSlot
		t.Push(args[0])

	case value.MethodFnCall:
		closure, ok := receiver.Obj.(*value.Closure)
		if !ok {
			vm.RuntimeError("'call' requires a Fn receiver")
			return
		}
		vm.invoke(t, closure, receiverSlot, argCount)

	case value.MethodScript:
		vm.invoke(t, method.Closure, receiverSlot, argCount)

	case value.MethodImport:
		vm.runImport(t, receiverSlot)
	}
}

// invoke pushes a new call frame for closure over the arguments already on
// the stack at [stackStart, stackStart+argCount], matching the frame's
// slot 0 up with the receiver the way every call convention in this VM
// expects, and grows the stack to the callee's declared peak usage.
func (vm *VM) invoke(t *value.Thread, closure *value.Closure, stackStart int, argCount int) {
	want := closure.Fn.ArgCount
	if argCount != want {
		vm.RuntimeError("expected %d argument(s), got %d", want, argCount)
		return
	}
	t.EnsureStack(closure.Fn.MaxSlots)
	if extra := closure.Fn.MaxSlots - (argCount + 1); extra > 0 {
		t.ESP += extra
	}
	t.PushFrame(closure, stackStart)
}
