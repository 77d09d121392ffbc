package compiler

import (
	"testing"

	"github.com/kristofer/loom/pkg/bytecode"
	"github.com/kristofer/loom/pkg/value"
)

func compileModule(t *testing.T, src string) *value.Fn {
	t.Helper()
	heap := value.NewHeap()
	mod := heap.NewModule(nil)
	fn, err := Compile(heap, mod, "test", src)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return fn
}

func TestCompileNumberLiteral(t *testing.T) {
	fn := compileModule(t, "1")
	if len(fn.Constants) != 1 {
		t.Fatalf("expected 1 constant, got %d", len(fn.Constants))
	}
	if fn.Constants[0].Kind != value.KindNumber || fn.Constants[0].AsNumber() != 1 {
		t.Fatalf("expected constant 1, got %#v", fn.Constants[0])
	}
	if bytecode.Op(fn.Code[0]) != bytecode.LoadConstant {
		t.Fatalf("expected LOAD_CONSTANT as first instruction, got %v", bytecode.Op(fn.Code[0]))
	}
}

func TestCompileVarDeclCreatesModuleVar(t *testing.T) {
	heap := value.NewHeap()
	mod := heap.NewModule(nil)
	_, err := Compile(heap, mod, "test", "var a = 3")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	if idx := mod.IndexOf("a"); idx != 0 {
		t.Fatalf("expected module var 'a' at slot 0, got %d", idx)
	}
	if mod.VarValues[0].Kind == value.KindNumber {
		t.Fatalf("module var should hold its assigned value, not a forward-ref marker")
	}
}

// TestForwardReferenceResolvesWhenDefinedLater exercises §4.4's forward
// reference rule (S3): a function referencing another defined later in the
// same module compiles cleanly once the whole module has been seen.
func TestForwardReferenceResolvesWhenDefinedLater(t *testing.T) {
	src := `
fun f() { return g() }
fun g() { return 42 }
`
	heap := value.NewHeap()
	mod := heap.NewModule(nil)
	if _, err := Compile(heap, mod, "test", src); err != nil {
		t.Fatalf("expected forward reference to resolve, got error: %v", err)
	}
}

// TestForwardReferenceNeverDefinedFails is S3's negative case: §8 property 1
// requires that an undefined-after-module variable fails compilation.
func TestForwardReferenceNeverDefinedFails(t *testing.T) {
	src := `
fun f() { return g() }
`
	heap := value.NewHeap()
	mod := heap.NewModule(nil)
	_, err := Compile(heap, mod, "test", src)
	if err == nil {
		t.Fatal("expected compile error for undefined identifier g")
	}
	ce, ok := err.(*CompileError)
	if !ok {
		t.Fatalf("expected *CompileError, got %T", err)
	}
	found := false
	for _, e := range ce.Errors {
		if contains(e, "g") && contains(e, "not defined") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an error naming g as undefined, got %v", ce.Errors)
	}
}

func TestDuplicateModuleVarDefinitionFails(t *testing.T) {
	src := `
var a = 1
var a = 2
`
	heap := value.NewHeap()
	mod := heap.NewModule(nil)
	_, err := Compile(heap, mod, "test", src)
	if err == nil {
		t.Fatal("expected a duplicate-definition compile error")
	}
}

// TestClosureCapturesEnclosingLocal exercises §4.4's upvalue-resolution
// rule: a nested function referencing an enclosing local must register an
// upvalue entry and emit CREATE_CLOSURE with a matching upvalue count.
func TestClosureCapturesEnclosingLocal(t *testing.T) {
	src := `
fun make(n) {
  fun inner() { return n }
  return inner
}
`
	fn := compileModule(t, src)

	var innerFn *value.Fn
	for _, c := range fn.Constants {
		if f, ok := c.Obj.(*value.Fn); ok && f.Name == "make" {
			for _, cc := range f.Constants {
				if inner, ok := cc.Obj.(*value.Fn); ok && inner.Name == "inner" {
					innerFn = inner
				}
			}
		}
	}
	if innerFn == nil {
		t.Fatal("could not locate compiled 'inner' function in constant pool")
	}
	if innerFn.UpvalueNum != 1 {
		t.Fatalf("expected inner() to capture exactly 1 upvalue, got %d", innerFn.UpvalueNum)
	}
}

// TestMethodSignatureSynthesis exercises §4.4's signature-construction
// rules across every member form.
func TestMethodSignatureSynthesis(t *testing.T) {
	src := `
class Box {
  construct() {}
  value { return 0 }
  value=(v) {}
  add(a, b) { return 0 }
  [i] { return 0 }
  [i]=(v) {}
  static new() { return 0 }
}
`
	heap := value.NewHeap()
	mod := heap.NewModule(nil)
	mod.DefineVar("Object", value.Null) // implicit superclass, resolved by name
	if _, err := Compile(heap, mod, "test", src); err != nil {
		t.Fatalf("compile error: %v", err)
	}
	wantSigs := []string{
		"construct()",
		"value",
		"value=(_)",
		"add(_,_)",
		"[_]",
		"[_]=(_)",
		"new()",
	}
	for _, sig := range wantSigs {
		if heap.MethodNameAt(heap.InternMethodName(sig)) != sig {
			t.Errorf("expected signature %q to be interned", sig)
		}
	}
}

// TestSuperCallCompiles exercises the compiler side of the deferred
// superclass patching from §4.4: the SUPERn opcode and its placeholder
// constant are emitted at compile time, with the real patching left for the
// VM's INSTANCE_METHOD/STATIC_METHOD handling (covered in pkg/vm).
func TestSuperCallCompiles(t *testing.T) {
	src := `
class A { m() { return 1 } }
class B < A { m() { return super.m() } }
`
	heap := value.NewHeap()
	mod := heap.NewModule(nil)
	mod.DefineVar("Object", value.Null) // implicit superclass of A, resolved by name
	if _, err := Compile(heap, mod, "test", src); err != nil {
		t.Fatalf("compile error: %v", err)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
