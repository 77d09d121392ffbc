// Package vm implements Loom's stack-based virtual machine: the dispatch
// loop that executes the bytecode pkg/compiler emits, against the value and
// object model in pkg/value.
//
// The VM owns a single process-wide Heap and, at any moment, at most one
// running Thread (vm.current). Script calls push frames onto the running
// thread and continue the same dispatch loop rather than recursing into the
// host (Go) call stack; only native primitive calls use the host stack, one
// level deep. Cooperative thread switches happen only at points a primitive
// chooses (Thread.call / Thread.yield in pkg/corelib) — there is no
// preemption.
package vm

import (
	"fmt"

	"github.com/kristofer/loom/pkg/bytecode"
	"github.com/kristofer/loom/pkg/value"
)

// VM drives one Loom process: the shared heap plus whichever thread is
// currently running. It satisfies value.VM structurally, so pkg/corelib's
// primitives can call back into it without pkg/value ever importing pkg/vm.
type VM struct {
	heap    *value.Heap
	current *value.Thread

	// rootDir is the directory import(_) resolves module names against,
	// per §6's "the directory of the file becomes the search root for
	// import" — the CLI sets it from the path of the file being run.
	rootDir string

	// finalResult/finalError capture the outcome of the outermost thread
	// (the one with no Caller) once it stops running, for Interpret to
	// return.
	finalResult value.Value
	finalError  *RuntimeError
}

// New returns a VM over an already-bootstrapped heap (see Bootstrap).
func New(heap *value.Heap) *VM {
	return &VM{heap: heap}
}

// SetRootDir sets the directory import(_) resolves relative module names
// against. The REPL and cmd/loom both call this once before Interpret.
func (vm *VM) SetRootDir(dir string) { vm.rootDir = dir }

func (vm *VM) Heap() *value.Heap                   { return vm.heap }
func (vm *VM) CurrentThread() *value.Thread         { return vm.current }
func (vm *VM) SetCurrentThread(t *value.Thread)     { vm.current = t }

// RuntimeError records a failure on the current thread: per §7's Runtime
// taxonomy it is stored as a String in Thread.Error (so script-visible
// error state follows the Value model), and mirrored into vm.finalError as
// a *RuntimeError carrying a call-stack snapshot for the Go-API boundary.
func (vm *VM) RuntimeError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	t := vm.current
	if t == nil {
		vm.finalError = &RuntimeError{Message: msg}
		return
	}
	t.Error = value.FromObj(vm.heap.NewString(msg))
	vm.finalError = &RuntimeError{Message: msg, Stack: captureStack(t)}
}

// Interpret runs a compiled module-level Fn to completion on a fresh thread
// and returns the value its top-level body leaves behind, or the runtime
// error that terminated it.
func (vm *VM) Interpret(fn *value.Fn) (value.Value, error) {
	closure := vm.heap.NewClosure(fn)
	t := vm.heap.NewThread(nil)
	t.EnsureStack(fn.MaxSlots)
	t.ESP = fn.MaxSlots
	t.PushFrame(closure, 0)
	vm.current = t
	vm.finalResult = value.Null
	vm.finalError = nil

	vm.run()

	if vm.finalError != nil {
		return value.Null, vm.finalError
	}
	return vm.finalResult, nil
}

// run executes instructions until no thread remains current: either the
// outermost thread finished (finalResult set) or an unrecovered runtime
// error reached a thread with no caller (finalError set).
func (vm *VM) run() {
	for {
		t := vm.current
		if t == nil {
			return
		}
		if t.Error.Kind != value.KindUndefined {
			vm.unwind(t)
			continue
		}
		vm.step(t)
	}
}

// unwind terminates a thread whose Error has been set: its frames are
// discarded, and if it has a caller the error propagates there (to be
// detected and unwound in turn on the next loop iteration); otherwise
// execution ends and the error becomes Interpret's result.
func (vm *VM) unwind(t *value.Thread) {
	t.Frames = t.Frames[:0]
	t.ESP = 0
	caller := t.Caller
	t.Caller = nil
	if caller != nil {
		caller.Error = t.Error
		vm.current = caller
		return
	}
	if vm.finalError == nil {
		msg := "runtime error"
		if s, ok := t.Error.Obj.(*value.String); ok {
			msg = string(s.Bytes)
		}
		vm.finalError = &RuntimeError{Message: msg}
	}
	vm.current = nil
}

// step decodes and executes exactly one instruction on t's active frame.
func (vm *VM) step(t *value.Thread) {
	frame := t.CurrentFrame()
	if frame == nil {
		vm.current = nil
		return
	}
	code := frame.Closure.Fn.Code
	op := bytecode.Op(code[frame.IP])
	frame.IP++

	switch op {
	case bytecode.Pop:
		t.Pop()
	case bytecode.PushNull:
		t.Push(value.Null)
	case bytecode.PushTrue:
		t.Push(value.True)
	case bytecode.PushFalse:
		t.Push(value.False)
	case bytecode.LoadConstant:
		idx := bytecode.ReadU16(code, frame.IP)
		frame.IP += 2
		t.Push(frame.Closure.Fn.Constants[idx])

	case bytecode.LoadLocalVar:
		idx := int(code[frame.IP])
		frame.IP++
		t.Push(t.Stack[frame.StackStart+idx])
	case bytecode.StoreLocalVar:
		idx := int(code[frame.IP])
		frame.IP++
		t.Stack[frame.StackStart+idx] = t.Peek(0)
	case bytecode.LoadUpvalue:
		idx := int(code[frame.IP])
		frame.IP++
		t.Push(frame.Closure.Upvalues[idx].Get())
	case bytecode.StoreUpvalue:
		idx := int(code[frame.IP])
		frame.IP++
		frame.Closure.Upvalues[idx].Set(t.Peek(0))
	case bytecode.LoadModuleVar:
		idx := bytecode.ReadU16(code, frame.IP)
		frame.IP += 2
		t.Push(frame.Closure.Fn.Module.VarValues[idx])
	case bytecode.StoreModuleVar:
		idx := bytecode.ReadU16(code, frame.IP)
		frame.IP += 2
		frame.Closure.Fn.Module.VarValues[idx] = t.Peek(0)
	case bytecode.LoadThisField:
		idx := int(code[frame.IP])
		frame.IP++
		inst, ok := t.Stack[frame.StackStart].Obj.(*value.Instance)
		if !ok {
			vm.RuntimeError("'this' is not an instance")
			return
		}
		t.Push(inst.Fields[idx])
	case bytecode.StoreThisField:
		idx := int(code[frame.IP])
		frame.IP++
		inst, ok := t.Stack[frame.StackStart].Obj.(*value.Instance)
		if !ok {
			vm.RuntimeError("'this' is not an instance")
			return
		}
		inst.Fields[idx] = t.Peek(0)
	case bytecode.LoadField:
		idx := int(code[frame.IP])
		frame.IP++
		recv := t.Pop()
		inst, ok := recv.Obj.(*value.Instance)
		if !ok {
			vm.RuntimeError("LOAD_FIELD: receiver is not an instance")
			return
		}
		t.Push(inst.Fields[idx])
	case bytecode.StoreField:
		idx := int(code[frame.IP])
		frame.IP++
		val := t.Pop()
		recv := t.Pop()
		inst, ok := recv.Obj.(*value.Instance)
		if !ok {
			vm.RuntimeError("STORE_FIELD: receiver is not an instance")
			return
		}
		inst.Fields[idx] = val
		t.Push(val)

	case bytecode.CreateClosure:
		vm.createClosure(t, frame, code)
	case bytecode.CloseUpvalue:
		t.CloseUpvaluesFrom(t.ESP - 1)
		t.Pop() // the local leaving scope

	case bytecode.CreateClass:
		vm.createClass(t, frame, code)
	case bytecode.InstanceMethod:
		vm.installMethod(t, frame, code, false)
	case bytecode.StaticMethod:
		vm.installMethod(t, frame, code, true)
	case bytecode.Construct:
		class, ok := t.Stack[frame.StackStart].Obj.(*value.Class)
		if !ok {
			vm.RuntimeError("CONSTRUCT: receiver is not a class")
			return
		}
		inst := vm.heap.NewInstance(class)
		t.Stack[frame.StackStart] = value.FromObj(inst)

	case bytecode.End:
		vm.endFrame(t, frame)

	case bytecode.Jump:
		off := bytecode.ReadI16(code, frame.IP)
		frame.IP += 2 + int(off)
	case bytecode.JumpIfFalse:
		off := bytecode.ReadI16(code, frame.IP)
		frame.IP += 2
		// Peek, don't pop: the compiler emits the condition's Pop itself
		// (ifStatement, whileStatement, forStatement and ternary on both
		// paths; logicAnd and logicOr only before evaluating the right
		// operand, keeping the condition as the result otherwise).
		if !t.Peek(0).IsTruthy() {
			frame.IP += int(off)
		}
	case bytecode.Loop:
		off := bytecode.ReadU16(code, frame.IP)
		frame.IP += 2
		frame.IP -= int(off)

	default:
		if bytecode.IsCall(op) {
			vm.dispatchCall(t, frame, code, op, false)
			return
		}
		if bytecode.IsSuper(op) {
			vm.dispatchCall(t, frame, code, op, true)
			return
		}
		vm.RuntimeError("unknown opcode %d", op)
	}
}

// endFrame implements END: pop the frame's result, close any upvalues into
// its locals, and either resume the calling frame on the same thread (the
// common case) or, if this was the thread's outermost frame, hand control
// to whoever resumed it (or finish the VM run, if nobody did).
func (vm *VM) endFrame(t *value.Thread, frame *value.Frame) {
	result := t.Pop()
	popped := t.PopFrame()
	t.CloseUpvaluesFrom(popped.StackStart)
	t.ESP = popped.StackStart

	if popped.Closure.Fn.IsConstructor {
		result = t.Stack[popped.StackStart]
	}

	if len(t.Frames) > 0 {
		t.Push(result)
		return
	}

	caller := t.Caller
	t.Caller = nil
	if caller != nil {
		caller.ESP = caller.ResumeSlot
		caller.Push(result)
		vm.current = caller
		return
	}
	vm.finalResult = result
	vm.current = nil
}
