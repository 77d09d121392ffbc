package corelib

import "github.com/kristofer/loom/pkg/value"

// installThread binds Loom's green-thread scheduling primitives. A Thread
// starts out holding an un-run Entry closure; the first call() pushes its
// initial frame and runs it to completion or to its first yield. A
// suspended thread remembers where to splice the next call()'s argument
// back in via ResumeSlot, set by dispatchCall whenever a primitive call
// returns false without setting an error (pkg/vm/dispatch.go).
func installThread(h *value.Heap) {
	th := h.BuiltinClasses["Thread"]

	defStatic(h, th, "new(_)", func(vm value.VM, args []value.Value) bool {
		closure, ok := args[1].Obj.(*value.Closure)
		if !ok {
			vm.RuntimeError("Thread.new requires a function")
			return false
		}
		t := vm.Heap().NewThread(nil)
		t.Entry = closure
		args[0] = value.FromObj(t)
		return true
	})
	defStatic(h, th, "current", func(vm value.VM, args []value.Value) bool {
		args[0] = value.FromObj(vm.CurrentThread())
		return true
	})

	def(h, th, "call()", threadCall(0))
	def(h, th, "call(_)", threadCall(1))
	defStatic(h, th, "yield()", threadYield(0))
	defStatic(h, th, "yield(_)", threadYield(1))

	def(h, th, "toString", func(vm value.VM, args []value.Value) bool {
		args[0] = value.FromObj(vm.Heap().NewString("[thread]"))
		return true
	})
}

// threadCall resumes (or starts) the receiver thread, suspending the
// calling thread as its Caller until the callee finishes or yields.
func threadCall(arity int) value.PrimitiveFn {
	return func(vm value.VM, args []value.Value) bool {
		self, ok := args[0].Obj.(*value.Thread)
		if !ok {
			vm.RuntimeError("call requires a Thread receiver")
			return false
		}
		arg := value.Null
		if arity == 1 {
			arg = args[1]
		}

		if self.Entry != nil {
			entry := self.Entry
			self.Entry = nil
			self.EnsureStack(entry.Fn.MaxSlots)
			self.Stack[0] = arg
			for i := 1; i < entry.Fn.MaxSlots; i++ {
				self.Stack[i] = value.Null
			}
			self.ESP = entry.Fn.MaxSlots
			self.PushFrame(entry, 0)
		} else {
			self.ESP = self.ResumeSlot
			self.Push(arg)
		}

		self.Caller = vm.CurrentThread()
		vm.SetCurrentThread(self)
		return false
	}
}

// threadYield suspends the currently running thread, handing result back
// to whichever thread last resumed it.
func threadYield(arity int) value.PrimitiveFn {
	return func(vm value.VM, args []value.Value) bool {
		current := vm.CurrentThread()
		caller := current.Caller
		if caller == nil {
			vm.RuntimeError("no calling thread to yield to")
			return false
		}
		result := value.Null
		if arity == 1 {
			result = args[1]
		}
		current.Caller = nil
		vm.SetCurrentThread(caller)
		caller.ESP = caller.ResumeSlot
		caller.Push(result)
		return false
	}
}
