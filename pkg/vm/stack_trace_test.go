package vm

import (
	"strings"
	"testing"
)

// TestRuntimeErrorCarriesStackTrace exercises captureStack: a runtime error
// several calls deep must list every active frame, innermost first, with
// line numbers resolved from the failing Fn's Lines table.
func TestRuntimeErrorCarriesStackTrace(t *testing.T) {
	src := `
fun inner() {
  var x = null
  return x.missing()
}
fun outer() { return inner() }
outer()
`
	_, err := run(t, src)
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	re, ok := err.(*RuntimeError)
	if !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
	if len(re.Stack) < 2 {
		t.Fatalf("expected at least 2 stack frames, got %d", len(re.Stack))
	}
	names := make([]string, len(re.Stack))
	for i, f := range re.Stack {
		names[i] = f.Name
	}
	if names[0] != "inner" {
		t.Errorf("expected innermost frame to be 'inner', got %q", names[0])
	}
	if !strings.Contains(re.Error(), "inner") || !strings.Contains(re.Error(), "outer") {
		t.Errorf("expected rendered error to mention both frames, got: %s", re.Error())
	}
}

// TestRuntimeErrorMessagePropagatesFromThreadErrorSlot exercises §7's rule
// that a RuntimeError's Message is exactly what RuntimeError() formatted
// into the failing thread's Error slot.
func TestRuntimeErrorMessagePropagatesFromThreadErrorSlot(t *testing.T) {
	_, err := run(t, `
class Empty { static new() {} }
Empty.new().nope()
`)
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Errorf("expected error message to name the missing method, got: %v", err)
	}
}
