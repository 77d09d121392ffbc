// Package compiler implements Loom's single-pass Pratt-parsing bytecode
// compiler: it reads a token stream straight from pkg/lexer and emits
// pkg/bytecode instructions into pkg/value.Fn objects, with no
// intermediate AST. Scope and upvalue resolution, class/method-signature
// synthesis, and module-variable bookkeeping all happen inline as each
// token is consumed.
package compiler

import (
	"fmt"
	"strings"

	"github.com/kristofer/loom/pkg/bytecode"
	"github.com/kristofer/loom/pkg/lexer"
	"github.com/kristofer/loom/pkg/value"
)

const (
	maxLocalVarNum = 256
	maxUpvalueNum  = 256
)

// bindingPower is the Pratt engine's precedence ladder, increasing.
type bindingPower int

const (
	bpNone bindingPower = iota
	bpLowest
	bpAssign
	bpCondition
	bpLogicOr
	bpLogicAnd
	bpEqual
	bpIs
	bpCompare
	bpBitOr
	bpBitAnd
	bpBitShift
	bpRange
	bpTerm
	bpFactor
	bpUnary
	bpCall
	bpHighest
)

var infixBP = map[lexer.TokenType]bindingPower{
	lexer.TokenQuestion:   bpCondition,
	lexer.TokenPipePipe:   bpLogicOr,
	lexer.TokenAndAnd:     bpLogicAnd,
	lexer.TokenEq:         bpEqual,
	lexer.TokenNotEq:      bpEqual,
	lexer.TokenIs:         bpIs,
	lexer.TokenLess:       bpCompare,
	lexer.TokenLessEq:     bpCompare,
	lexer.TokenGreater:    bpCompare,
	lexer.TokenGreaterEq:  bpCompare,
	lexer.TokenPipe:       bpBitOr,
	lexer.TokenAmp:        bpBitAnd,
	lexer.TokenShl:        bpBitShift,
	lexer.TokenShr:        bpBitShift,
	lexer.TokenDotDot:     bpRange,
	lexer.TokenPlus:       bpTerm,
	lexer.TokenMinus:      bpTerm,
	lexer.TokenStar:       bpFactor,
	lexer.TokenSlash:      bpFactor,
	lexer.TokenPercent:    bpFactor,
	lexer.TokenDot:        bpCall,
	lexer.TokenLBracket:   bpCall,
	lexer.TokenLParen:     bpCall,
}

// localVar is one slot in a compile unit's local-variable table.
type localVar struct {
	name       string
	depth      int
	isCaptured bool
}

// upvalueEntry records how a compile unit's upvalue slot i was resolved:
// either directly from a local in the immediately enclosing unit, or by
// forwarding an upvalue of that enclosing unit.
type upvalueEntry struct {
	isEnclosingLocal bool
	index            int
}

// classBookkeeping tracks the class currently being compiled, so that
// `this`, `super`, and field accesses inside its methods can be resolved.
type classBookkeeping struct {
	name       string
	fieldIndex map[string]int // declared-here fields only; patch pass offsets these
	inStatic   bool
}

// unit is one compile unit: a module body, function body, or method body.
type unit struct {
	fn         *value.Fn
	locals     []localVar
	upvalues   []upvalueEntry
	scopeDepth int
	parent     *unit
	class      *classBookkeeping
	isMethod   bool

	// curDepth/maxDepth track the running stack-slot estimate described by
	// §8 testable property 2: every LOAD/PUSH/CALL opcode's static
	// StackDelta updates curDepth, and maxDepth records its high-water
	// mark, seeded by the slots locals already occupy at unit entry.
	curDepth int
	maxDepth int
}

// Compiler drives the Pratt engine over one module's source text.
type Compiler struct {
	heap   *value.Heap
	module *value.Module
	lex    *lexer.Lexer

	cur  lexer.Token
	prev lexer.Token

	unit *unit

	loops []*loopCtx

	errors []string
}

// loopCtx tracks one enclosing loop's jump-patch bookkeeping so break and
// continue can be compiled as ordinary forward/backward jumps.
type loopCtx struct {
	start      int
	breakJumps []int
}

// CompileError reports every accumulated compile error for a module; per
// §4.4 compile errors are fatal for the whole module and partial bytecode
// is discarded.
type CompileError struct {
	Errors []string
}

func (e *CompileError) Error() string {
	return "compile error:\n  " + strings.Join(e.Errors, "\n  ")
}

// Compile compiles source text as a top-level module body, returning the
// module-level Fn ready to run in frame 0 of a new thread.
func Compile(heap *value.Heap, mod *value.Module, name string, source string) (*value.Fn, error) {
	c := &Compiler{heap: heap, module: mod, lex: lexer.New(source)}
	c.advance()

	fn := heap.NewFn(mod)
	fn.Name = name
	fn.ArgCount = 0
	c.unit = &unit{fn: fn, scopeDepth: -1}
	// Slot 0 is reserved per §4.4 even for the module body, keeping the
	// calling convention uniform.
	c.unit.locals = append(c.unit.locals, localVar{name: "", depth: -1})
	c.unit.curDepth, c.unit.maxDepth = 1, 1

	keepLast := false
	for c.cur.Type != lexer.TokenEOF {
		keepLast = c.statement()
	}
	// A module's result is whatever its last top-level expression statement
	// computed (vm_test.go asserts on it); every other ending (a
	// declaration, a control-flow statement, or an empty module) leaves
	// nothing useful behind, so a bare PushNull is the result instead.
	if keepLast {
		c.undoTrailingPop()
	} else {
		c.emitOp(bytecode.PushNull)
	}
	c.emitOp(bytecode.End)
	fn.UpvalueNum = len(c.unit.upvalues)
	fn.MaxSlots = c.unit.maxDepth

	if unresolved := mod.UndefinedForwardRefs(); len(unresolved) > 0 {
		for _, ref := range unresolved {
			c.errorAt(ref.Line, fmt.Sprintf("identifier %s used but not defined", ref.Name))
		}
	}

	if len(c.errors) > 0 {
		return nil, &CompileError{Errors: c.errors}
	}
	return fn, nil
}

// --- token stream plumbing ---

func (c *Compiler) advance() {
	c.prev = c.cur
	c.cur = c.lex.NextToken()
	for c.cur.Type == lexer.TokenUnknown {
		c.errorAt(c.cur.Line, fmt.Sprintf("unexpected character %q", c.cur.Text))
		c.cur = c.lex.NextToken()
	}
}

func (c *Compiler) check(tt lexer.TokenType) bool { return c.cur.Type == tt }

func (c *Compiler) matchToken(tt lexer.TokenType) bool {
	if !c.check(tt) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) assertCurToken(tt lexer.TokenType, msg string) {
	if !c.check(tt) {
		c.errorAt(c.cur.Line, msg)
		return
	}
	c.advance()
}

func (c *Compiler) errorAt(line int, msg string) {
	c.errors = append(c.errors, fmt.Sprintf("line %d: %s", line, msg))
}

// --- emitters ---

func (c *Compiler) emitByte(b byte) {
	c.unit.fn.Code = append(c.unit.fn.Code, b)
	c.unit.fn.Lines = append(c.unit.fn.Lines, c.prev.Line)
}

func (c *Compiler) emitOp(op bytecode.Op) {
	c.emitByte(byte(op))
	c.trackStack(bytecode.StackDelta(op))
}

func (c *Compiler) emitU16(v uint16) {
	c.emitByte(byte(v >> 8))
	c.emitByte(byte(v))
}

func (c *Compiler) emitOpU16(op bytecode.Op, v uint16) {
	c.emitOp(op)
	c.emitU16(v)
}

// emitOpU8 emits op followed by its single-byte operand, for the
// local/upvalue/field slot opcodes (u8-width per pkg/bytecode's operand
// table), as opposed to the u16-width constant/module-var opcodes.
func (c *Compiler) emitOpU8(op bytecode.Op, v uint8) {
	c.emitOp(op)
	c.emitByte(v)
}

func (c *Compiler) trackStack(delta int) {
	c.unit.curDepth += delta
	if c.unit.curDepth > c.unit.maxDepth {
		c.unit.maxDepth = c.unit.curDepth
	}
}

func (c *Compiler) addConstant(v value.Value) uint16 {
	c.unit.fn.Constants = append(c.unit.fn.Constants, v)
	idx := len(c.unit.fn.Constants) - 1
	if idx > 0xFFFF {
		c.errorAt(c.prev.Line, "too many constants in one function")
	}
	return uint16(idx)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emitOpU16(bytecode.LoadConstant, c.addConstant(v))
}

// emitJump emits a jump opcode with a placeholder offset, returning the
// index of the first operand byte to be patched once the target is known.
func (c *Compiler) emitJump(op bytecode.Op) int {
	c.emitOp(op)
	c.emitByte(0xFF)
	c.emitByte(0xFF)
	return len(c.unit.fn.Code) - 2
}

func (c *Compiler) patchJump(operandIdx int) {
	offset := len(c.unit.fn.Code) - operandIdx - 2
	bytecode.WriteU16(c.unit.fn.Code, operandIdx, uint16(int16(offset)))
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(bytecode.Loop)
	offset := len(c.unit.fn.Code) - loopStart + 2
	c.emitU16(uint16(offset))
}

// --- scope management ---

func (c *Compiler) beginScope() { c.unit.scopeDepth++ }

func (c *Compiler) endScope() {
	c.unit.scopeDepth--
	for len(c.unit.locals) > 0 && c.unit.locals[len(c.unit.locals)-1].depth > c.unit.scopeDepth {
		last := c.unit.locals[len(c.unit.locals)-1]
		if last.isCaptured {
			c.emitOp(bytecode.CloseUpvalue)
		} else {
			c.emitOp(bytecode.Pop)
		}
		c.unit.locals = c.unit.locals[:len(c.unit.locals)-1]
	}
}

func (c *Compiler) declareLocal(name string) int {
	if len(c.unit.locals) >= maxLocalVarNum {
		c.errorAt(c.prev.Line, "too many local variables in one function")
		return -1
	}
	c.unit.locals = append(c.unit.locals, localVar{name: name, depth: c.unit.scopeDepth})
	return len(c.unit.locals) - 1
}

func (u *unit) resolveLocal(name string) int {
	for i := len(u.locals) - 1; i >= 0; i-- {
		if u.locals[i].name == name {
			return i
		}
	}
	return -1
}

func (u *unit) addUpvalue(isLocal bool, index int) int {
	for i, uv := range u.upvalues {
		if uv.isEnclosingLocal == isLocal && uv.index == index {
			return i
		}
	}
	if len(u.upvalues) >= maxUpvalueNum {
		return -1
	}
	u.upvalues = append(u.upvalues, upvalueEntry{isEnclosingLocal: isLocal, index: index})
	return len(u.upvalues) - 1
}

// resolveUpvalue implements §4.4's "walk enclosing units outward" rule.
func (u *unit) resolveUpvalue(name string) int {
	if u.parent == nil {
		return -1
	}
	if idx := u.parent.resolveLocal(name); idx != -1 {
		u.parent.locals[idx].isCaptured = true
		return u.addUpvalue(true, idx)
	}
	if idx := u.parent.resolveUpvalue(name); idx != -1 {
		return u.addUpvalue(false, idx)
	}
	return -1
}

// --- statements ---

// statement compiles one statement and reports whether it was a bare
// expression statement — the only kind that leaves a meaningful value
// behind before its trailing Pop, which Compile uses to recover a module's
// final result (see undoTrailingPop).
func (c *Compiler) statement() bool {
	switch {
	case c.matchToken(lexer.TokenVar):
		c.varDeclStatement()
	case c.matchToken(lexer.TokenFun):
		c.funDeclStatement()
	case c.matchToken(lexer.TokenClass):
		c.classDeclStatement()
	case c.matchToken(lexer.TokenIf):
		c.ifStatement()
	case c.matchToken(lexer.TokenWhile):
		c.whileStatement()
	case c.matchToken(lexer.TokenFor):
		c.forStatement()
	case c.matchToken(lexer.TokenReturn):
		c.returnStatement()
	case c.matchToken(lexer.TokenImport):
		c.importStatement()
	case c.matchToken(lexer.TokenBreak):
		c.breakStatement()
	case c.matchToken(lexer.TokenContinue):
		c.continueStatement()
	case c.check(lexer.TokenLBrace):
		c.advance()
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expression(bpLowest, true)
		c.emitOp(bytecode.Pop)
		return true
	}
	return false
}

// undoTrailingPop strips the Pop a bare expression statement just emitted,
// leaving its value on the stack, and restores the compiler's stack-depth
// bookkeeping to match (Pop's StackDelta of -1 undone).
func (c *Compiler) undoTrailingPop() {
	fn := c.unit.fn
	fn.Code = fn.Code[:len(fn.Code)-1]
	fn.Lines = fn.Lines[:len(fn.Lines)-1]
	c.unit.curDepth -= bytecode.StackDelta(bytecode.Pop)
}

func (c *Compiler) block() {
	for !c.check(lexer.TokenRBrace) && !c.check(lexer.TokenEOF) {
		c.statement()
	}
	c.assertCurToken(lexer.TokenRBrace, "expected '}' to close block")
}

func (c *Compiler) varDeclStatement() {
	if !c.check(lexer.TokenIdentifier) {
		c.errorAt(c.cur.Line, "expected identifier after 'var'")
		return
	}
	name := c.cur.Text
	c.advance()

	if c.matchToken(lexer.TokenAssign) {
		c.expression(bpLowest, true)
	} else {
		c.emitOp(bytecode.PushNull)
	}

	c.defineVariable(name)
}

func (c *Compiler) defineVariable(name string) {
	if c.unit.scopeDepth > 0 {
		idx := c.declareLocal(name)
		c.emitOpU8(bytecode.StoreLocalVar, uint8(idx))
		return
	}
	idx, err := c.module.DefineVar(name, value.Undefined)
	if err != nil {
		c.errorAt(c.prev.Line, err.Error())
		return
	}
	if idx == -1 {
		c.errorAt(c.prev.Line, fmt.Sprintf("module variable %q is already defined", name))
		return
	}
	c.emitOpU16(bytecode.StoreModuleVar, uint16(idx))
	c.emitOp(bytecode.Pop)
}

func (c *Compiler) funDeclStatement() {
	if !c.check(lexer.TokenIdentifier) {
		c.errorAt(c.cur.Line, "expected function name")
		return
	}
	name := c.cur.Text
	c.advance()

	// Reserve the module slot before the body compiles, so recursive and
	// forward calls resolve (S3's forward-reference scenario).
	var localIdx int
	if c.unit.scopeDepth > 0 {
		localIdx = c.declareLocal(name)
	} else {
		idx, err := c.module.DefineVar(name, value.Undefined)
		if err != nil {
			c.errorAt(c.prev.Line, err.Error())
		} else if idx == -1 {
			c.errorAt(c.prev.Line, fmt.Sprintf("module variable %q is already defined", name))
		}
		localIdx = -1
		_ = idx
	}

	c.functionBody(name, false, nil, false)

	if c.unit.scopeDepth > 0 {
		c.emitOpU8(bytecode.StoreLocalVar, uint8(localIdx))
		c.emitOp(bytecode.Pop)
	} else {
		idx := c.module.IndexOf(name)
		c.emitOpU16(bytecode.StoreModuleVar, uint16(idx))
		c.emitOp(bytecode.Pop)
	}
}

// functionBody compiles a function/method body into a fresh compile unit
// and emits CREATE_CLOSURE for it in the enclosing unit. When params is
// nil it parses its own `(name, name, ...)` parameter list (the plain
// function-declaration and method-with-parens forms); when params is
// non-nil (possibly empty) those names are used as-is and no parameter
// list is consumed (the getter and pre-parsed subscript forms), and the
// body must start directly with '{'. isConstructor marks a `static new`
// class member: its body opens with CONSTRUCT (replacing the class
// receiver in slot 0 with a fresh Instance) and its Fn is flagged so END
// always returns that instance. Returns the declared argument count.
func (c *Compiler) functionBody(name string, isMethod bool, params []string, isConstructor bool) int {
	fn := c.heap.NewFn(c.module)
	fn.Name = name
	child := &unit{fn: fn, parent: c.unit, scopeDepth: 0, isMethod: isMethod, class: c.unit.class}
	child.locals = append(child.locals, localVar{name: "this", depth: 0})

	enclosing := c.unit
	c.unit = child

	argCount := 0
	if params != nil {
		for _, p := range params {
			c.declareLocal(p)
			argCount++
		}
	} else {
		c.assertCurToken(lexer.TokenLParen, "expected '(' after function name")
		if !c.check(lexer.TokenRParen) {
			for {
				if !c.check(lexer.TokenIdentifier) {
					c.errorAt(c.cur.Line, "expected parameter name")
					break
				}
				c.declareLocal(c.cur.Text)
				c.advance()
				argCount++
				if !c.matchToken(lexer.TokenComma) {
					break
				}
			}
		}
		c.assertCurToken(lexer.TokenRParen, "expected ')' after parameters")
	}
	fn.ArgCount = argCount
	fn.IsConstructor = isConstructor
	c.unit.curDepth = len(c.unit.locals)
	c.unit.maxDepth = c.unit.curDepth

	c.assertCurToken(lexer.TokenLBrace, "expected '{' before function body")
	if isConstructor {
		c.emitOp(bytecode.Construct)
	}
	c.block()
	c.emitOp(bytecode.PushNull)
	c.emitOp(bytecode.End)

	fn.UpvalueNum = len(c.unit.upvalues)
	fn.MaxSlots = c.unit.maxDepth
	childUpvalues := c.unit.upvalues

	c.unit = enclosing
	constIdx := c.addConstant(value.FromObj(fn))
	c.emitOp(bytecode.CreateClosure)
	c.emitU16(constIdx)
	for _, uv := range childUpvalues {
		if uv.isEnclosingLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(byte(uv.index))
	}
	return argCount
}

func (c *Compiler) ifStatement() {
	c.assertCurToken(lexer.TokenLParen, "expected '(' after 'if'")
	c.expression(bpLowest, true)
	c.assertCurToken(lexer.TokenRParen, "expected ')' after condition")

	thenJump := c.emitJump(bytecode.JumpIfFalse)
	c.emitOp(bytecode.Pop)
	c.statement()

	elseJump := c.emitJump(bytecode.Jump)
	c.patchJump(thenJump)
	c.emitOp(bytecode.Pop)

	if c.matchToken(lexer.TokenElse) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) breakStatement() {
	if len(c.loops) == 0 {
		c.errorAt(c.prev.Line, "'break' outside of a loop")
		return
	}
	lc := c.loops[len(c.loops)-1]
	lc.breakJumps = append(lc.breakJumps, c.emitJump(bytecode.Jump))
}

func (c *Compiler) continueStatement() {
	if len(c.loops) == 0 {
		c.errorAt(c.prev.Line, "'continue' outside of a loop")
		return
	}
	lc := c.loops[len(c.loops)-1]
	c.emitLoop(lc.start)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.unit.fn.Code)
	lc := &loopCtx{start: loopStart}
	c.loops = append(c.loops, lc)

	c.assertCurToken(lexer.TokenLParen, "expected '(' after 'while'")
	c.expression(bpLowest, true)
	c.assertCurToken(lexer.TokenRParen, "expected ')' after condition")

	exitJump := c.emitJump(bytecode.JumpIfFalse)
	c.emitOp(bytecode.Pop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(bytecode.Pop)

	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
	c.loops = c.loops[:len(c.loops)-1]
}

// forStatement desugars `for (x is range) body` into a while loop driving
// the Range/List iterate()/iteratorValue() protocol, the way the corelib
// exposes iteration per SPEC_FULL.md §2.
func (c *Compiler) forStatement() {
	c.assertCurToken(lexer.TokenLParen, "expected '(' after 'for'")
	if !c.check(lexer.TokenIdentifier) {
		c.errorAt(c.cur.Line, "expected loop variable name")
		return
	}
	varName := c.cur.Text
	c.advance()
	c.assertCurToken(lexer.TokenIs, "expected 'is' in for-loop header") // `for (x is seq)`

	c.beginScope()
	c.expression(bpLowest, true)
	seqSlot := c.declareLocal(" seq")
	c.emitOpU8(bytecode.StoreLocalVar, uint8(seqSlot))
	c.emitOp(bytecode.PushNull)
	iterSlot := c.declareLocal(" iter")
	c.emitOpU8(bytecode.StoreLocalVar, uint8(iterSlot))
	c.assertCurToken(lexer.TokenRParen, "expected ')' after for-loop header")

	loopStart := len(c.unit.fn.Code)
	lc := &loopCtx{start: loopStart}
	c.loops = append(c.loops, lc)

	seqIdx := c.unit.resolveLocal(" seq")
	iterIdx := c.unit.resolveLocal(" iter")

	c.emitOpU8(bytecode.LoadLocalVar, uint8(seqIdx))
	c.emitOpU8(bytecode.LoadLocalVar, uint8(iterIdx))
	c.emitCallSig("iterate(_)", 1)
	c.emitOpU8(bytecode.StoreLocalVar, uint8(iterIdx))

	exitJump := c.emitJump(bytecode.JumpIfFalse)
	c.emitOp(bytecode.Pop)

	c.beginScope()
	c.emitOpU8(bytecode.LoadLocalVar, uint8(seqIdx))
	c.emitOpU8(bytecode.LoadLocalVar, uint8(iterIdx))
	c.emitCallSig("iteratorValue(_)", 1)
	c.emitOpU8(bytecode.StoreLocalVar, uint8(c.declareLocal(varName)))

	c.statement()
	c.endScope()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(bytecode.Pop)

	for _, j := range lc.breakJumps {
		c.patchJump(j)
	}
	c.loops = c.loops[:len(c.loops)-1]
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.check(lexer.TokenRBrace) || c.check(lexer.TokenEOF) {
		c.emitOp(bytecode.PushNull)
	} else {
		c.expression(bpLowest, true)
	}
	c.emitOp(bytecode.End)
}

func (c *Compiler) importStatement() {
	if !c.check(lexer.TokenString) {
		c.errorAt(c.cur.Line, "expected module name string after 'import'")
		return
	}
	name := c.cur.Text
	c.advance()
	// Import resolution (source lookup, module registration, running the
	// target's top-level function) is the host's job per spec.md §6's
	// import protocol; the compiler only emits the request, sent to a
	// nameless receiver since import(_) is bound on Object and ignores it.
	c.emitOp(bytecode.PushNull)
	c.emitConstant(value.FromObj(c.heap.NewString(name)))
	c.emitCallSig("import(_)", 1)
	c.emitOp(bytecode.Pop)
}

// --- class declarations ---

func (c *Compiler) classDeclStatement() {
	if !c.check(lexer.TokenIdentifier) {
		c.errorAt(c.cur.Line, "expected class name")
		return
	}
	name := c.cur.Text
	c.advance()
	nameIdx, err := c.module.DefineVar(name, value.Undefined)
	if err != nil {
		c.errorAt(c.prev.Line, err.Error())
		return
	}
	if nameIdx == -1 {
		c.errorAt(c.prev.Line, fmt.Sprintf("module variable %q is already defined", name))
		return
	}

	c.emitConstant(value.FromObj(c.heap.NewString(name)))
	if c.matchToken(lexer.TokenLess) {
		c.expression(bpCall, false) // superclass expression
	} else {
		c.resolveNamedVariable("Object", false)
	}

	bk := &classBookkeeping{name: name, fieldIndex: map[string]int{}}
	enclosingClass := c.unit.class

	c.emitOp(bytecode.CreateClass)
	fieldCountIdx := len(c.unit.fn.Code)
	c.emitByte(0) // patched once classBody has seen every field reference

	c.assertCurToken(lexer.TokenLBrace, "expected '{' to begin class body")
	c.classBody(bk)
	c.unit.class = enclosingClass

	c.unit.fn.Code[fieldCountIdx] = byte(len(bk.fieldIndex))

	c.emitOpU16(bytecode.StoreModuleVar, uint16(nameIdx))
	c.emitOp(bytecode.Pop)
}

func underscoreList(n int) string {
	return strings.TrimSuffix(strings.Repeat("_,", n), ",")
}

// classBody compiles every member. Each method's CREATE_CLOSURE is emitted
// immediately followed by the INSTANCE_METHOD/STATIC_METHOD instruction that
// installs it, so each closure is consumed as soon as it is pushed while the
// class left on the stack by CREATE_CLASS stays in place underneath.
func (c *Compiler) classBody(bk *classBookkeeping) {
	c.unit.class = bk
	for !c.check(lexer.TokenRBrace) && !c.check(lexer.TokenEOF) {
		isStatic := c.matchToken(lexer.TokenStatic)
		bk.inStatic = isStatic

		var sig string
		switch {
		case c.check(lexer.TokenLBracket):
			c.advance()
			var params []string
			for !c.check(lexer.TokenRBracket) {
				if len(params) > 0 {
					c.assertCurToken(lexer.TokenComma, "expected ',' between subscript parameters")
				}
				if !c.check(lexer.TokenIdentifier) {
					c.errorAt(c.cur.Line, "expected subscript parameter name")
					break
				}
				params = append(params, c.cur.Text)
				c.advance()
			}
			c.assertCurToken(lexer.TokenRBracket, "expected ']' in subscript signature")
			if c.matchToken(lexer.TokenAssign) {
				sig = fmt.Sprintf("[%s]=(_)", underscoreList(len(params)))
				c.assertCurToken(lexer.TokenLParen, "expected '(' in subscript setter parameter")
				if !c.check(lexer.TokenIdentifier) {
					c.errorAt(c.cur.Line, "expected subscript setter parameter name")
				}
				rhs := c.cur.Text
				c.advance()
				c.assertCurToken(lexer.TokenRParen, "expected ')' after subscript setter parameter")
				c.functionBody(sig, true, append(params, rhs), false)
			} else {
				sig = fmt.Sprintf("[%s]", underscoreList(len(params)))
				c.functionBody(sig, true, params, false)
			}

		case c.check(lexer.TokenIdentifier):
			name := c.cur.Text
			c.advance()
			isCtor := isStatic && name == "new"
			switch {
			case c.matchToken(lexer.TokenAssign):
				sig = name + "=(_)"
				c.assertCurToken(lexer.TokenLParen, "expected '(' in setter parameter")
				if !c.check(lexer.TokenIdentifier) {
					c.errorAt(c.cur.Line, "expected setter parameter name")
				}
				param := c.cur.Text
				c.advance()
				c.assertCurToken(lexer.TokenRParen, "expected ')' after setter parameter")
				c.functionBody(sig, true, []string{param}, false)
			case c.check(lexer.TokenLParen):
				argCount := c.functionBody(name, true, nil, isCtor)
				sig = fmt.Sprintf("%s(%s)", name, underscoreList(argCount))
			default:
				sig = name
				c.functionBody(sig, true, []string{}, isCtor)
			}

		default:
			c.errorAt(c.cur.Line, "expected method name in class body")
			c.advance()
			continue
		}

		op := bytecode.InstanceMethod
		if isStatic {
			op = bytecode.StaticMethod
		}
		c.emitOp(op)
		c.emitU16(uint16(c.heap.InternMethodName(sig)))
	}
	c.assertCurToken(lexer.TokenRBrace, "expected '}' to close class body")
}

// --- expressions (Pratt engine) ---

func (c *Compiler) expression(rbp bindingPower, canAssignOuter bool) {
	canAssign := canAssignOuter && rbp < bpAssign
	c.prefixRule(canAssign)

	for rbp < c.currentBP() {
		c.advance()
		c.infixRule(canAssign)
	}
}

func (c *Compiler) currentBP() bindingPower {
	if bp, ok := infixBP[c.cur.Type]; ok {
		return bp
	}
	if c.cur.Type == lexer.TokenAssign {
		return bpAssign
	}
	return bpNone
}

func (c *Compiler) prefixRule(canAssign bool) {
	tok := c.cur
	switch tok.Type {
	case lexer.TokenNumber:
		c.advance()
		c.emitConstant(value.Number(tok.NumberValue))
	case lexer.TokenString:
		c.advance()
		c.compileStringLiteral(tok)
	case lexer.TokenInterpolation:
		c.advance()
		c.compileInterpolation(tok)
	case lexer.TokenTrue:
		c.advance()
		c.emitOp(bytecode.PushTrue)
	case lexer.TokenFalse:
		c.advance()
		c.emitOp(bytecode.PushFalse)
	case lexer.TokenNull:
		c.advance()
		c.emitOp(bytecode.PushNull)
	case lexer.TokenThis:
		c.advance()
		c.resolveNamedVariable("this", false)
	case lexer.TokenSuper:
		c.advance()
		c.superCall()
	case lexer.TokenIdentifier:
		c.advance()
		c.resolveNamedVariable(tok.Text, canAssign)
	case lexer.TokenLParen:
		c.advance()
		c.expression(bpLowest, true)
		c.assertCurToken(lexer.TokenRParen, "expected ')' after expression")
	case lexer.TokenLBracket:
		c.advance()
		c.listLiteral()
	case lexer.TokenLBrace:
		c.advance()
		c.mapLiteral()
	case lexer.TokenMinus:
		c.advance()
		c.expression(bpUnary, false)
		c.emitCallSig("-", 0)
	case lexer.TokenBang:
		c.advance()
		c.expression(bpUnary, false)
		c.emitCallSig("!", 0)
	case lexer.TokenTilde:
		c.advance()
		c.expression(bpUnary, false)
		c.emitCallSig("~", 0)
	default:
		c.errorAt(tok.Line, fmt.Sprintf("unexpected token %v in expression", tok.Type))
		c.advance()
	}
}

var binaryOpSig = map[lexer.TokenType]string{
	lexer.TokenPlus: "+(_)", lexer.TokenMinus: "-(_)", lexer.TokenStar: "*(_)",
	lexer.TokenSlash: "/(_)", lexer.TokenPercent: "%(_)",
	lexer.TokenLess: "<(_)", lexer.TokenLessEq: "<=(_)",
	lexer.TokenGreater: ">(_)", lexer.TokenGreaterEq: ">=(_)",
	lexer.TokenEq: "==(_)", lexer.TokenNotEq: "!=(_)",
	lexer.TokenDotDot: "..(_)", lexer.TokenAmp: "&(_)", lexer.TokenPipe: "|(_)",
	lexer.TokenShl: "<<(_)", lexer.TokenShr: ">>(_)",
}

func (c *Compiler) infixRule(canAssign bool) {
	tok := c.prev
	switch tok.Type {
	case lexer.TokenDot:
		c.methodCall(canAssign)
	case lexer.TokenLBracket:
		c.subscript(canAssign)
	case lexer.TokenLParen:
		c.fnCallArgs()
	case lexer.TokenAndAnd:
		c.logicAnd()
	case lexer.TokenPipePipe:
		c.logicOr()
	case lexer.TokenQuestion:
		c.ternary()
	case lexer.TokenIs:
		c.expression(bpIs, false)
		c.emitCallSig("is(_)", 1)
	default:
		if sig, ok := binaryOpSig[tok.Type]; ok {
			c.expression(infixBP[tok.Type], false)
			c.emitCallSig(sig, 1)
			return
		}
		c.errorAt(tok.Line, fmt.Sprintf("unexpected infix token %v", tok.Type))
	}
}

func (c *Compiler) logicAnd() {
	endJump := c.emitJump(bytecode.JumpIfFalse)
	c.emitOp(bytecode.Pop)
	c.expression(bpLogicAnd, false)
	c.patchJump(endJump)
}

func (c *Compiler) logicOr() {
	elseJump := c.emitJump(bytecode.JumpIfFalse)
	endJump := c.emitJump(bytecode.Jump)
	c.patchJump(elseJump)
	c.emitOp(bytecode.Pop)
	c.expression(bpLogicOr, false)
	c.patchJump(endJump)
}

func (c *Compiler) ternary() {
	thenJump := c.emitJump(bytecode.JumpIfFalse)
	c.emitOp(bytecode.Pop)
	c.expression(bpCondition, false)
	elseJump := c.emitJump(bytecode.Jump)
	c.patchJump(thenJump)
	c.emitOp(bytecode.Pop)
	c.assertCurToken(lexer.TokenColon, "expected ':' in conditional expression")
	c.expression(bpCondition, false)
	c.patchJump(elseJump)
}

// emitCallSig interns sig and emits the matching CALLn instruction; n is
// the argument count already pushed on top of the receiver.
func (c *Compiler) emitCallSig(sig string, argCount int) {
	idx := c.heap.InternMethodName(sig)
	c.emitOp(bytecode.CallOp(argCount))
	c.emitU16(uint16(idx))
}

// methodCall compiles `.name`, `.name(args)`, or `.name = value` following
// a receiver already on the stack.
func (c *Compiler) methodCall(canAssign bool) {
	if !c.check(lexer.TokenIdentifier) {
		c.errorAt(c.cur.Line, "expected method name after '.'")
		return
	}
	name := c.cur.Text
	c.advance()

	if canAssign && c.matchToken(lexer.TokenAssign) {
		c.expression(bpAssign, true)
		c.emitCallSig(name+"=(_)", 1)
		return
	}

	if c.matchToken(lexer.TokenLParen) {
		n := c.argumentList(lexer.TokenRParen)
		underscores := strings.TrimSuffix(strings.Repeat("_,", n), ",")
		c.emitCallSig(fmt.Sprintf("%s(%s)", name, underscores), n)
		return
	}

	c.emitCallSig(name, 0)
}

func (c *Compiler) argumentList(closing lexer.TokenType) int {
	n := 0
	if !c.check(closing) {
		for {
			c.expression(bpLowest, true)
			n++
			if !c.matchToken(lexer.TokenComma) {
				break
			}
		}
	}
	c.assertCurToken(closing, "expected closing token after argument list")
	return n
}

// subscript compiles `[args]` and an optional trailing `= value`.
func (c *Compiler) subscript(canAssign bool) {
	n := c.argumentList(lexer.TokenRBracket)
	underscores := strings.TrimSuffix(strings.Repeat("_,", n), ",")

	if canAssign && c.matchToken(lexer.TokenAssign) {
		c.expression(bpAssign, true)
		c.emitCallSig(fmt.Sprintf("[%s]=(_)", underscores), n+1)
		return
	}
	c.emitCallSig(fmt.Sprintf("[%s]", underscores), n)
}

// fnCallArgs compiles a bare `(args)` applied to a value already on the
// stack, used for `f.call(...)`-less direct invocation via `expr(...)`.
func (c *Compiler) fnCallArgs() {
	n := c.argumentList(lexer.TokenRParen)
	underscores := strings.TrimSuffix(strings.Repeat("_,", n), ",")
	c.emitCallSig(fmt.Sprintf("call(%s)", underscores), n)
}

// superCall compiles `super.name(args)` into a SUPERn instruction, with a
// Null placeholder left in the constant table for the superclass (see
// §4.4's deferred-patching discussion); the VM's INSTANCE_METHOD /
// STATIC_METHOD handler patches it once the class exists.
func (c *Compiler) superCall() {
	c.resolveNamedVariable("this", false)
	c.assertCurToken(lexer.TokenDot, "expected '.' after 'super'")
	if !c.check(lexer.TokenIdentifier) {
		c.errorAt(c.cur.Line, "expected method name after 'super.'")
		return
	}
	name := c.cur.Text
	c.advance()

	n := 0
	sig := name
	if c.matchToken(lexer.TokenLParen) {
		n = c.argumentList(lexer.TokenRParen)
		underscores := strings.TrimSuffix(strings.Repeat("_,", n), ",")
		sig = fmt.Sprintf("%s(%s)", name, underscores)
	}

	sigIdx := c.heap.InternMethodName(sig)
	superConstIdx := c.addConstant(value.Null) // placeholder, patched at class-construction time
	c.emitOp(bytecode.SuperOp(n))
	c.emitU16(uint16(sigIdx))
	c.emitU16(superConstIdx)
}

// listLiteral desugars `[e1, e2, ...]` into `List.new()` followed by a
// chain of `add(_)` sends, the way a literal-free corelib exposes
// collection construction. A synthetic local holds the list across the
// chain since `add` returns the added element, not the receiver.
func (c *Compiler) listLiteral() {
	c.resolveNamedVariable("List", false)
	c.emitCallSig("new()", 0)
	tmp := c.declareLocal(" listLiteral")
	c.emitOpU8(bytecode.StoreLocalVar, uint8(tmp))
	c.emitOp(bytecode.Pop)

	if !c.check(lexer.TokenRBracket) {
		for {
			c.emitOpU8(bytecode.LoadLocalVar, uint8(tmp))
			c.expression(bpLowest, true)
			c.emitCallSig("add(_)", 1)
			c.emitOp(bytecode.Pop)
			if !c.matchToken(lexer.TokenComma) {
				break
			}
		}
	}
	c.assertCurToken(lexer.TokenRBracket, "expected ']' to close list literal")
	c.emitOpU8(bytecode.LoadLocalVar, uint8(tmp))
}

// mapLiteral desugars `{k1: v1, k2: v2, ...}` into `Map.new()` followed by
// a chain of `[_]=(_)` subscript-sets, mirroring listLiteral.
func (c *Compiler) mapLiteral() {
	c.resolveNamedVariable("Map", false)
	c.emitCallSig("new()", 0)
	tmp := c.declareLocal(" mapLiteral")
	c.emitOpU8(bytecode.StoreLocalVar, uint8(tmp))
	c.emitOp(bytecode.Pop)

	if !c.check(lexer.TokenRBrace) {
		for {
			c.emitOpU8(bytecode.LoadLocalVar, uint8(tmp))
			c.expression(bpLowest, true)
			c.assertCurToken(lexer.TokenColon, "expected ':' between map key and value")
			c.expression(bpLowest, true)
			c.emitCallSig("[_]=(_)", 2)
			c.emitOp(bytecode.Pop)
			if !c.matchToken(lexer.TokenComma) {
				break
			}
		}
	}
	c.assertCurToken(lexer.TokenRBrace, "expected '}' to close map literal")
	c.emitOpU8(bytecode.LoadLocalVar, uint8(tmp))
}

// compileStringLiteral emits the constant for a plain (non-interpolated)
// string; allocation is the compiler's job, since the lexer hands back plain
// Go strings and never touches the heap.
func (c *Compiler) compileStringLiteral(tok lexer.Token) {
	c.emitConstant(value.FromObj(c.heap.NewString(tok.StringValue)))
}

// compileInterpolation compiles `"frag1%(expr1)frag2%(expr2)...last"` as a
// chain of toString + string-concatenation calls.
func (c *Compiler) compileInterpolation(tok lexer.Token) {
	c.emitConstant(value.FromObj(c.heap.NewString(tok.StringValue)))
	for {
		c.expression(bpLowest, true)
		c.emitCallSig("toString", 0)
		c.emitCallSig("+(_)", 1)

		// The expression stops at its closing ')', which the lexer has
		// already consumed, so the literal's next fragment starts right here.
		if c.cur.Type != lexer.TokenRParen {
			c.errorAt(c.cur.Line, "expected ')' to close string interpolation expression")
		}
		frag := c.lex.ResumeString()
		c.emitConstant(value.FromObj(c.heap.NewString(frag.StringValue)))
		c.emitCallSig("+(_)", 1)
		c.advance()
		if frag.Type != lexer.TokenInterpolation {
			return
		}
	}
}

// resolveNamedVariable implements §4.4's three-tier resolution order:
// locals, then upvalues (walking enclosing units), then module variables.
func (c *Compiler) resolveNamedVariable(name string, canAssign bool) {
	if idx := c.unit.resolveLocal(name); idx != -1 {
		if canAssign && c.matchToken(lexer.TokenAssign) {
			c.expression(bpAssign, true)
			c.emitOpU8(bytecode.StoreLocalVar, uint8(idx))
			return
		}
		c.emitOpU8(bytecode.LoadLocalVar, uint8(idx))
		return
	}
	if idx := c.unit.resolveUpvalue(name); idx != -1 {
		if canAssign && c.matchToken(lexer.TokenAssign) {
			c.expression(bpAssign, true)
			c.emitOpU8(bytecode.StoreUpvalue, uint8(idx))
			return
		}
		c.emitOpU8(bytecode.LoadUpvalue, uint8(idx))
		return
	}
	if strings.HasPrefix(name, "_") && c.unit.class != nil {
		idx := c.fieldIndex(name)
		if canAssign && c.matchToken(lexer.TokenAssign) {
			c.expression(bpAssign, true)
			c.emitOpU8(bytecode.StoreThisField, uint8(idx))
			return
		}
		c.emitOpU8(bytecode.LoadThisField, uint8(idx))
		return
	}

	idx := c.module.IndexOf(name)
	if idx == -1 {
		idx = c.module.DeclareVar(name, value.Number(float64(c.prev.Line)))
	}
	if canAssign && c.matchToken(lexer.TokenAssign) {
		c.expression(bpAssign, true)
		c.emitOpU16(bytecode.StoreModuleVar, uint16(idx))
		return
	}
	c.emitOpU16(bytecode.LoadModuleVar, uint16(idx))
}

func (c *Compiler) fieldIndex(name string) int {
	u := c.unit
	for u != nil && u.class == nil {
		u = u.parent
	}
	if u == nil {
		return 0
	}
	if idx, ok := u.class.fieldIndex[name]; ok {
		return idx
	}
	idx := len(u.class.fieldIndex)
	u.class.fieldIndex[name] = idx
	return idx
}
