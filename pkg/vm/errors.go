package vm

import (
	"fmt"
	"strings"

	"github.com/kristofer/loom/pkg/value"
)

// StackFrame is a snapshot of one call-stack entry taken at the moment a
// runtime error fires, decoupled from the live value.Frame so it survives
// after the thread that produced it has been unwound.
type StackFrame struct {
	Name string // the frame's Fn.Name (method signature or function name)
	IP   int    // instruction pointer within Fn.Code at the time of the error
	Line int    // source line for that IP, from Fn.Lines
}

// RuntimeError is what Interpret returns when a script thread fails: the
// message that was stored (as a String) in the failing Thread's Error slot,
// plus the call stack captured at the moment it was raised.
type RuntimeError struct {
	Message string
	Stack   []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Stack) > 0 {
		b.WriteString("\n\nStack trace:")
		for i := len(e.Stack) - 1; i >= 0; i-- {
			f := e.Stack[i]
			b.WriteString(fmt.Sprintf("\n  at %s", f.Name))
			if f.Line > 0 {
				b.WriteString(fmt.Sprintf(" [line %d]", f.Line))
			}
			b.WriteString(fmt.Sprintf(" [IP %d]", f.IP))
		}
	}
	return b.String()
}

// captureStack walks t's active frames, innermost first, into a detached
// snapshot a RuntimeError can carry after the thread itself is unwound.
func captureStack(t *value.Thread) []StackFrame {
	stack := make([]StackFrame, 0, len(t.Frames))
	for i := len(t.Frames) - 1; i >= 0; i-- {
		f := t.Frames[i]
		fn := f.Closure.Fn
		line := 0
		if f.IP >= 0 && f.IP < len(fn.Lines) {
			line = fn.Lines[f.IP]
		}
		name := fn.Name
		if name == "" {
			name = "<fn>"
		}
		stack = append(stack, StackFrame{Name: name, IP: f.IP, Line: line})
	}
	return stack
}
