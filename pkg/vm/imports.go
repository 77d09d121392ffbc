package vm

import (
	"os"
	"path/filepath"

	"github.com/kristofer/loom/pkg/compiler"
	"github.com/kristofer/loom/pkg/value"
)

// runImport implements the import(_) host hook bound on Object (§6's
// import protocol): resolve the named module's source relative to
// rootDir, compile it into a freshly registered Module, and splice its
// top-level body in as a new frame on the importing thread. Once that
// frame's END runs, control returns to the importer exactly the way any
// MethodScript call does — this is why the two reserved argument slots
// (the nameless receiver and the module-name string) simply collapse to
// the callee's own reserved slot 0 rather than being passed through.
func (vm *VM) runImport(t *value.Thread, receiverSlot int) {
	nameVal := t.Stack[receiverSlot+1]
	nameStr, ok := nameVal.Obj.(*value.String)
	if !ok {
		vm.RuntimeError("import requires a string module name")
		return
	}
	name := string(nameStr.Bytes)

	if vm.heap.Modules[name] != nil {
		// Already imported: re-running it would re-execute side effects
		// and re-declare module vars, so just yield null.
		t.ESP = receiverSlot
		t.Push(value.Null)
		return
	}

	path := filepath.Join(vm.rootDir, name)
	if filepath.Ext(path) == "" {
		path += ".loom"
	}
	src, err := os.ReadFile(path)
	if err != nil {
		vm.RuntimeError("cannot import %q: %v", name, err)
		return
	}

	mod := vm.heap.NewModule(vm.heap.NewString(name))
	SeedModule(mod, vm.heap)

	fn, err := compiler.Compile(vm.heap, mod, name, string(src))
	if err != nil {
		vm.RuntimeError("error compiling import %q: %v", name, err)
		return
	}

	closure := vm.heap.NewClosure(fn)
	t.ESP = receiverSlot
	t.EnsureStack(fn.MaxSlots)
	t.ESP = receiverSlot + fn.MaxSlots
	t.PushFrame(closure, receiverSlot)
}
