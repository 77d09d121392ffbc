// Command loom is Loom's command-line driver: the file-read/REPL-loop
// collaborator spec.md §6 describes but leaves out of the core. It wires
// together pkg/compiler and pkg/vm (bootstrapped with pkg/corelib's
// primitives) the same way cmd/smog/main.go wires the teacher's own
// parser/compiler/vm trio.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kristofer/loom/pkg/compiler"
	"github.com/kristofer/loom/pkg/corelib"
	"github.com/kristofer/loom/pkg/value"
	"github.com/kristofer/loom/pkg/vm"
)

func main() {
	if len(os.Args) < 2 {
		runREPL()
		return
	}

	switch os.Args[1] {
	case "disasm", "disassemble":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: loom disasm <file>")
			os.Exit(1)
		}
		disasmFile(os.Args[2])
	case "help", "-h", "--help":
		printUsage()
	default:
		runFile(os.Args[1])
	}
}

func printUsage() {
	fmt.Println("loom - a small dynamically-typed, class-based scripting language")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  loom                 Start the interactive REPL")
	fmt.Println("  loom <path>          Compile and run a .loom file")
	fmt.Println("  loom disasm <path>   Compile a .loom file and print its bytecode")
	fmt.Println("  loom help            Show this help")
}

// newInterpreter builds a freshly bootstrapped heap and VM: pkg/vm.Bootstrap
// builds the builtin class graph, pkg/corelib.Install fills in the
// primitive method tables, and a single VM drives execution against the
// result. Both the REPL and runFile build exactly one of these and keep it
// alive for the whole process, per §9's "one VM object owns everything".
func newInterpreter() *vm.VM {
	heap := vm.Bootstrap()
	corelib.Install(heap)
	return vm.New(heap)
}

// runFile compiles and executes path as a module named after the file
// (without its extension), with rootDir set to the file's own directory so
// that import(_) resolves sibling modules the way §6's import protocol
// requires. Exit code 0 on clean termination, 1 on any reported error.
func runFile(path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loom: cannot read %s: %v\n", path, err)
		os.Exit(1)
	}

	v := newInterpreter()
	v.SetRootDir(filepath.Dir(path))

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	mod := v.Heap().NewModule(v.Heap().NewString(name))
	vm.SeedModule(mod, v.Heap())

	fn, err := compiler.Compile(v.Heap(), mod, name, string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(1)
	}

	if _, err := v.Interpret(fn); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(1)
	}
}

// runREPL implements the line-oriented REPL from §6: prompt ">>> ", one
// compile-and-run cycle per line, sharing one module ("cli") and one VM
// across the whole session so definitions accumulate the way the teacher's
// REPL keeps its compiler and VM alive across inputs. Typing "quit" (or any
// prefix of it, e.g. "q", "qui") terminates the session.
func runREPL() {
	v := newInterpreter()
	v.SetRootDir(".")

	mod := v.Heap().NewModule(v.Heap().NewString("cli"))
	vm.SeedModule(mod, v.Heap())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(">>> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix("quit", line) {
			return
		}

		fn, err := compiler.Compile(v.Heap(), mod, "cli", line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if result, err := v.Interpret(fn); err != nil {
			fmt.Fprintln(os.Stderr, err)
		} else if result.Kind != value.KindNull {
			fmt.Println(displayValue(v, result))
		}
	}
	fmt.Println()
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "loom: %v\n", err)
	}
}

// displayValue renders a REPL result line without a full method dispatch.
// Numbers use %g and non-string objects are shown by their class, so the
// output can differ from what System.print writes for the same value.
func displayValue(v *vm.VM, val value.Value) string {
	switch val.Kind {
	case value.KindBool:
		if val.AsBool() {
			return "true"
		}
		return "false"
	case value.KindNumber:
		return fmt.Sprintf("%g", val.AsNumber())
	case value.KindObject:
		if s, ok := val.Obj.(*value.String); ok {
			return string(s.Bytes)
		}
		return "instance of " + string(v.Heap().ClassOf(val).Name.Bytes)
	default:
		return ""
	}
}

func disasmFile(path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loom: cannot read %s: %v\n", path, err)
		os.Exit(1)
	}

	heap := vm.Bootstrap()
	corelib.Install(heap)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	mod := heap.NewModule(heap.NewString(name))
	vm.SeedModule(mod, heap)

	fn, err := compiler.Compile(heap, mod, name, string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(1)
	}

	fmt.Print(vm.DisassembleFn(heap, fn))
}
