package vm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kristofer/loom/pkg/compiler"
	"github.com/kristofer/loom/pkg/corelib"
	"github.com/kristofer/loom/pkg/value"
)

// TestImportRunsModuleBodyOnce exercises §6's import protocol: import(_)
// resolves a sibling module relative to rootDir, compiles it, and splices
// its top-level body into the importing thread's call stack.
func TestImportRunsModuleBodyOnce(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "greeting.loom"), []byte(`var message = "hi"`), 0o644); err != nil {
		t.Fatalf("failed to write fixture module: %v", err)
	}

	h := Bootstrap()
	corelib.Install(h)
	v := New(h)
	v.SetRootDir(dir)

	mod := h.NewModule(nil)
	SeedModule(mod, h)

	fn, err := compiler.Compile(h, mod, "main", `import "greeting"`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if _, err := v.Interpret(fn); err != nil {
		t.Fatalf("runtime error: %v", err)
	}

	imported := h.Modules["greeting"]
	if imported == nil {
		t.Fatal("expected \"greeting\" to be registered as a loaded module")
	}
	idx := imported.IndexOf("message")
	if idx == -1 {
		t.Fatal("expected imported module to define 'message'")
	}
	s, ok := imported.VarValues[idx].Obj.(*value.String)
	if !ok || string(s.Bytes) != "hi" {
		t.Fatalf("expected imported message to be %q, got %#v", "hi", imported.VarValues[idx])
	}
}

// TestImportMissingFileRaisesRuntimeError exercises the error path when the
// named module cannot be found under rootDir.
func TestImportMissingFileRaisesRuntimeError(t *testing.T) {
	h := Bootstrap()
	corelib.Install(h)
	v := New(h)
	v.SetRootDir(t.TempDir())

	mod := h.NewModule(nil)
	SeedModule(mod, h)

	fn, err := compiler.Compile(h, mod, "main", `import "missing"`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if _, err := v.Interpret(fn); err == nil {
		t.Fatal("expected a runtime error importing a nonexistent module")
	}
}
