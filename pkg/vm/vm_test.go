package vm

import (
	"testing"

	"github.com/kristofer/loom/pkg/compiler"
	"github.com/kristofer/loom/pkg/corelib"
	"github.com/kristofer/loom/pkg/value"
)

// newTestVM builds a fully bootstrapped VM (builtin class graph plus
// corelib's primitives) with a fresh nameless module seeded the way
// cmd/loom seeds every module it runs.
func newTestVM() (*VM, *value.Module) {
	h := Bootstrap()
	corelib.Install(h)
	mod := h.NewModule(nil)
	SeedModule(mod, h)
	return New(h), mod
}

// run compiles and interprets src as a fresh module body, starting a new
// module/thread pair each call (matching one REPL line or one script run).
func run(t *testing.T, src string) (value.Value, error) {
	t.Helper()
	v, mod := newTestVM()
	fn, err := compiler.Compile(v.Heap(), mod, "test", src)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return v.Interpret(fn)
}

func TestArithmeticOnModuleVariable(t *testing.T) {
	result, err := run(t, "var a = 3\nvar b = 4\na * b + 1")
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if result.Kind != value.KindNumber || result.AsNumber() != 13 {
		t.Fatalf("expected 13, got %#v", result)
	}
}

// TestClosurePerCallCapturesOwnSlot exercises §4.4/§4.6's closure model:
// each call to make() must capture its own "n", not a shared slot.
func TestClosurePerCallCapturesOwnSlot(t *testing.T) {
	src := `
fun make(n) {
  fun inner() { return n }
  return inner
}
var f1 = make(1)
var f2 = make(2)
f1.call() + f2.call()
`
	result, err := run(t, src)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if result.Kind != value.KindNumber || result.AsNumber() != 3 {
		t.Fatalf("expected 3, got %#v", result)
	}
}

// TestInheritanceAndSuperCall exercises class declaration, method
// dispatch, and the SUPERn patch pass together (S5 in spec.md §8).
func TestInheritanceAndSuperCall(t *testing.T) {
	result, err := run(t, `
class Animal {
  static new() {}
  speak() { return "..." }
}
class Dog < Animal {
  static new() {}
  speak() { return super.speak() + " woof" }
}
Dog.new().speak()
`)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	s, ok := result.Obj.(*value.String)
	if !ok || string(s.Bytes) != "... woof" {
		t.Fatalf("expected %q, got %#v", "... woof", result)
	}
}

// TestFieldStorageRespectsSuperclassOffset exercises patchMethodSuperclass's
// field-index offsetting: a subclass field access inside an inherited method
// body must land on the correct slot once the superclass's own fields are
// accounted for.
func TestFieldStorageRespectsSuperclassOffset(t *testing.T) {
	src := `
class Base {
  static new() {}
  setBase(v) { _base = v }
  getBase() { return _base }
}
class Derived < Base {
  static new() {}
  setDerived(v) { _derived = v }
  getDerived() { return _derived }
}
var d = Derived.new()
d.setBase(1)
d.setDerived(2)
d.getBase() * 10 + d.getDerived()
`
	result, err := run(t, src)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if result.Kind != value.KindNumber || result.AsNumber() != 12 {
		t.Fatalf("expected 12, got %#v", result)
	}
}

func TestUndefinedMethodRaisesRuntimeError(t *testing.T) {
	_, err := run(t, `
class Empty { static new() {} }
var e = Empty.new()
e.nope()
`)
	if err == nil {
		t.Fatal("expected a runtime error calling an unimplemented method")
	}
}

// TestCooperativeThreadSwitch exercises §5's green-thread model: Thread.new
// plus Thread.call hands control to the new thread and its return value
// comes back to the caller once it finishes.
func TestCooperativeThreadSwitch(t *testing.T) {
	src := `
fun work() { return 7 }
var t = Thread.new(work)
t.call()
`
	result, err := run(t, src)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if result.Kind != value.KindNumber || result.AsNumber() != 7 {
		t.Fatalf("expected 7, got %#v", result)
	}
}

// TestYieldRoundTrip exercises Thread.yield()/Thread.call() passing a value
// back and forth across a suspend/resume boundary.
func TestYieldRoundTrip(t *testing.T) {
	src := `
fun work() {
  var x = Thread.yield(1)
  return x + 1
}
var t = Thread.new(work)
var first = t.call()
var second = t.call(first * 10)
first * 100 + second
`
	result, err := run(t, src)
	if err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	if result.Kind != value.KindNumber || result.AsNumber() != 111 {
		t.Fatalf("expected 111, got %#v", result)
	}
}
