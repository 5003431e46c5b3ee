// Package compiler implements loxvm's single-pass compiler: source text
// goes straight to bytecode with no intervening AST. Expressions are
// compiled by a Pratt (precedence-climbing) parser; statements by a small
// recursive-descent layer on top of it.
//
// Compiler Architecture:
//
// A Compile call walks the token stream exactly once. There is no separate
// parse tree to build or walk a second time: every grammar production
// emits bytecode for itself as soon as it is recognized. This mirrors the
// structure of a classic single-pass Pascal compiler rather than the
// lex-then-parse-then-lower pipeline of a tree-walking interpreter.
//
// State is split in two:
//
//   - parser holds what is shared across the whole compilation: the
//     scanner, the current and previous tokens, and the source text itself
//     (token spans are resolved against it lazily).
//   - funcState holds what is scoped to a single function body being
//     compiled: its target Chunk, its local-variable slots, and its
//     lexical scope depth. Compiling a nested `fun` pushes a new funcState
//     in front of the parser's current one and pops it back off when the
//     function body is done — a plain singly linked list via the
//     enclosing field, not a slice-backed stack, since each frame outlives
//     everything compiled inside it.
//
// Variable Resolution:
//
// A variable declared at scope depth 0 is global and is looked up by name
// at run time (GET_GLOBAL/SET_GLOBAL/DEFINE_GLOBAL, keyed by a string
// constant). A variable declared inside any block or function body is
// local and is looked up by stack slot, resolved entirely at compile time
// (GET_LOCAL/SET_LOCAL, keyed by a one-byte index) — there is no runtime
// name lookup for locals at all.
package compiler

import (
	"loxvm/pkg/bytecode"
	"loxvm/pkg/scanner"
)

const maxLocals = 256
const maxParams = 255

// funcType distinguishes the implicit top-level script from a real
// function body, so the compiler can reject any `return` statement in
// top-level code.
type funcType int

const (
	typeScript funcType = iota
	typeFunction
)

// local is one entry in a funcState's compile-time local-variable table.
// depth is -1 between the local's declaration and the point its
// initializer finishes compiling — see declareVariable/markInitialized —
// so that reading the right-hand `a` in a local `var a = a;` is reported
// as a compile error by resolveLocal.
type local struct {
	name  string
	depth int
}

// funcState is the compiler's state for a single function body (the
// top-level script counts as one). enclosing chains to the funcState of
// the lexically surrounding function, forming the "compiler stack" that a
// nested `fun` declaration pushes onto and pops off of.
type funcState struct {
	enclosing *funcState

	function *bytecode.Obj // ObjFunction being built; its Chunk is the emit target
	kind     funcType

	locals     []local
	scopeDepth int
}

// parser is the compiler's shared, top-level state: the token cursor and
// the source it is scanning. A parser owns a chain of funcStates, with
// state always pointing at the innermost (currently being compiled)
// function.
type parser struct {
	scanner *scanner.Scanner
	source  string

	previous scanner.Token
	current  scanner.Token

	state *funcState
}

// Compile compiles a complete source file into the implicit top-level
// script function. On success the returned Obj is an ObjFunction of
// arity 0 whose Chunk, when run, executes the file's top-level
// statements in order and implicitly returns nil.
//
// Compile reports the first error it encounters and stops; loxvm's
// grammar has no synchronization/panic-mode recovery (spec choice,
// carried over unchanged from the distilled specification).
func Compile(source string) (fn *bytecode.Obj, err error) {
	p := &parser{scanner: scanner.New(source), source: source}
	p.pushFuncState(typeScript, "")

	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			err = ce
		}
	}()

	p.advance()
	for !p.check(scanner.EOF) {
		p.declaration()
	}
	p.consume(scanner.EOF, "Expect end of expression.")

	fn = p.endFuncState()
	return fn, nil
}

// --- token cursor -----------------------------------------------------

func (p *parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scanner.NextToken()
		if p.current.Kind != scanner.Error {
			return
		}
		p.errorAtCurrent(p.current.Message)
	}
}

func (p *parser) check(k scanner.Kind) bool {
	return p.current.Kind == k
}

func (p *parser) match(k scanner.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(k scanner.Kind, msg string) {
	if p.current.Kind == k {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *parser) lexeme(t scanner.Token) string {
	return t.Lexeme(p.source)
}

// errorAt reports a diagnostic anchored to t and aborts the compile via
// panic, unwound by Compile's recover. There is no panic-mode
// resynchronization: the first error wins.
func (p *parser) errorAt(t scanner.Token, msg string) {
	e := &Error{Line: t.Line, Message: msg}
	if t.Kind == scanner.EOF {
		e.AtEnd = true
	} else {
		e.Where = p.lexeme(t)
	}
	panic(e)
}

func (p *parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *parser) error(msg string)          { p.errorAt(p.previous, msg) }

// --- funcState stack ---------------------------------------------------

func (p *parser) pushFuncState(kind funcType, name string) {
	fn := bytecode.NewFunction(name, 0, bytecode.NewChunk())
	fs := &funcState{enclosing: p.state, function: fn, kind: kind}
	// Slot 0 of every call frame is reserved for the callee itself; the
	// compiler models it as an unnamed local so real locals start at 1.
	fs.locals = append(fs.locals, local{name: "", depth: 0})
	p.state = fs
}

// endFuncState finishes the current funcState (emitting the implicit
// `nil; return` trailer every function body gets, in case control falls
// off the end) and pops back to the enclosing one.
func (p *parser) endFuncState() *bytecode.Obj {
	p.emitReturn()
	fn := p.state.function
	p.state = p.state.enclosing
	return fn
}

func (p *parser) chunk() *bytecode.Chunk { return p.state.function.Chunk }

// --- byte emission ------------------------------------------------------

func (p *parser) emitByte(b byte) {
	p.chunk().Write(b, p.previous.Line)
}

func (p *parser) emitOp(op bytecode.Op) { p.emitByte(byte(op)) }

func (p *parser) emitOps(op bytecode.Op, b byte) {
	p.emitOp(op)
	p.emitByte(b)
}

func (p *parser) emitReturn() {
	p.emitOp(bytecode.OpNil)
	p.emitOp(bytecode.OpReturn)
}

// emitConstant adds v to the current chunk's constant pool and emits a
// CONSTANT instruction pushing it.
func (p *parser) emitConstant(v bytecode.Value) {
	p.emitOps(bytecode.OpConstant, p.makeConstant(v))
}

func (p *parser) makeConstant(v bytecode.Value) byte {
	idx, err := p.chunk().AddConstant(v)
	if err != nil {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

// emitJump emits a two-operand-byte jump instruction with a placeholder
// offset and returns the offset of the first placeholder byte, to be
// filled in later by patchJump once the jump target is known.
func (p *parser) emitJump(op bytecode.Op) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.chunk().Code) - 2
}

// patchJump backpatches the jump instruction at offset to land on the
// instruction about to be emitted next.
func (p *parser) patchJump(offset int) {
	jump := len(p.chunk().Code) - offset - 2
	if jump > 0xffff {
		p.error("Too much code to jump over.")
		return
	}
	p.chunk().Code[offset] = byte(jump >> 8)
	p.chunk().Code[offset+1] = byte(jump & 0xff)
}

// emitLoop emits a LOOP instruction that jumps backward to loopStart.
func (p *parser) emitLoop(loopStart int) {
	p.emitOp(bytecode.OpLoop)
	offset := len(p.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		p.error("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset & 0xff))
}

// --- scopes --------------------------------------------------------------

func (p *parser) beginScope() { p.state.scopeDepth++ }

// endScope closes the innermost scope, popping its locals off the
// compile-time table and emitting a POP for each one still live on the
// runtime stack.
func (p *parser) endScope() {
	fs := p.state
	fs.scopeDepth--
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.scopeDepth {
		p.emitOp(bytecode.OpPop)
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
}

// --- declarations ----------------------------------------------------

func (p *parser) declaration() {
	switch {
	case p.match(scanner.Fun):
		p.funDeclaration()
	case p.match(scanner.Var):
		p.varDeclaration()
	default:
		p.statement()
	}
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(typeFunction)
	p.defineVariable(global)
}

// function compiles the body of a `fun` as its own funcState, then
// registers the finished function object as a constant back in the
// enclosing chunk.
func (p *parser) function(kind funcType) {
	name := p.lexeme(p.previous)
	p.pushFuncState(kind, name)
	p.beginScope()

	p.consume(scanner.LeftParen, "Expect '(' after function name.")
	if !p.check(scanner.RightParen) {
		for {
			p.state.function.Arity++
			if p.state.function.Arity > maxParams {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := p.parseVariable("Expect parameter name.")
			p.defineVariable(constant)
			if !p.match(scanner.Comma) {
				break
			}
		}
	}
	p.consume(scanner.RightParen, "Expect ')' after parameters.")
	p.consume(scanner.LeftBrace, "Expect '{' before function body.")
	p.block()

	fn := p.endFuncState()
	p.emitConstant(bytecode.FromObj(fn))
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(scanner.Equal) {
		p.expression()
	} else {
		p.emitOp(bytecode.OpNil)
	}
	p.consume(scanner.Semicolon, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

// parseVariable consumes an identifier token and declares it. For a local
// the return value is unused (defineVariable for locals is a no-op beyond
// marking it initialized); for a global it is the name's constant-pool
// index.
func (p *parser) parseVariable(errMsg string) byte {
	p.consume(scanner.Identifier, errMsg)
	p.declareVariable()
	if p.state.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous)
}

func (p *parser) identifierConstant(name scanner.Token) byte {
	return p.makeConstant(bytecode.FromObj(bytecode.NewString(p.lexeme(name))))
}

// declareVariable adds previous to the current scope's local table,
// rejecting a redeclaration of the same name within the same scope. It is
// a no-op at global scope, where names are resolved at run time instead.
func (p *parser) declareVariable() {
	fs := p.state
	if fs.scopeDepth == 0 {
		return
	}
	name := p.lexeme(p.previous)
	for i := len(fs.locals) - 1; i >= 0; i-- {
		l := fs.locals[i]
		if l.depth != -1 && l.depth < fs.scopeDepth {
			break
		}
		if l.name == name {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *parser) addLocal(name string) {
	fs := p.state
	if len(fs.locals) >= maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	fs.locals = append(fs.locals, local{name: name, depth: -1})
}

// markInitialized flips the most recently declared local from "declared"
// to "ready", letting later code in the same scope resolve it. It is a
// no-op at global scope.
func (p *parser) markInitialized() {
	fs := p.state
	if fs.scopeDepth == 0 {
		return
	}
	fs.locals[len(fs.locals)-1].depth = fs.scopeDepth
}

// defineVariable finishes a variable declaration. Locals need no runtime
// instruction — the value is already sitting in its slot on the stack;
// globals are bound by name via DEFINE_GLOBAL.
func (p *parser) defineVariable(global byte) {
	if p.state.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOps(bytecode.OpDefineGlobal, global)
}

// resolveLocal looks up name among fs's locals, innermost first. It
// returns -1 if name isn't a local in fs, meaning the caller should treat
// it as global.
func (p *parser) resolveLocal(fs *funcState, name string) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			if fs.locals[i].depth == -1 {
				p.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// --- statements --------------------------------------------------------

func (p *parser) statement() {
	switch {
	case p.match(scanner.Print):
		p.printStatement()
	case p.match(scanner.For):
		p.forStatement()
	case p.match(scanner.If):
		p.ifStatement()
	case p.match(scanner.Return):
		p.returnStatement()
	case p.match(scanner.While):
		p.whileStatement()
	case p.match(scanner.LeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) block() {
	for !p.check(scanner.RightBrace) && !p.check(scanner.EOF) {
		p.declaration()
	}
	p.consume(scanner.RightBrace, "Expect '}' after block.")
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(scanner.Semicolon, "Expect ';' after value.")
	p.emitOp(bytecode.OpPrint)
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(scanner.Semicolon, "Expect ';' after expression.")
	p.emitOp(bytecode.OpPop)
}

func (p *parser) returnStatement() {
	if p.state.kind == typeScript {
		p.error("Can't return from top-level code.")
	}
	if p.match(scanner.Semicolon) {
		p.emitReturn()
		return
	}
	p.expression()
	p.consume(scanner.Semicolon, "Expect ';' after return value.")
	p.emitOp(bytecode.OpReturn)
}

func (p *parser) ifStatement() {
	p.consume(scanner.LeftParen, "Expect '(' after 'if'.")
	p.expression()
	p.consume(scanner.RightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.statement()

	elseJump := p.emitJump(bytecode.OpJump)
	p.patchJump(thenJump)
	p.emitOp(bytecode.OpPop)

	if p.match(scanner.Else) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := len(p.chunk().Code)
	p.consume(scanner.LeftParen, "Expect '(' after 'while'.")
	p.expression()
	p.consume(scanner.RightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(bytecode.OpPop)
}

// forStatement desugars the C-style for loop into the while-loop bytecode
// shape directly, rather than building and lowering any intermediate
// representation: there is nothing to lower here, since there is no AST.
func (p *parser) forStatement() {
	p.beginScope()
	p.consume(scanner.LeftParen, "Expect '(' after 'for'.")

	switch {
	case p.match(scanner.Semicolon):
		// no initializer
	case p.match(scanner.Var):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.chunk().Code)
	exitJump := -1
	if !p.match(scanner.Semicolon) {
		p.expression()
		p.consume(scanner.Semicolon, "Expect ';' after loop condition.")
		exitJump = p.emitJump(bytecode.OpJumpIfFalse)
		p.emitOp(bytecode.OpPop)
	}

	if !p.match(scanner.RightParen) {
		bodyJump := p.emitJump(bytecode.OpJump)
		incrementStart := len(p.chunk().Code)
		p.expression()
		p.emitOp(bytecode.OpPop)
		p.consume(scanner.RightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(bytecode.OpPop)
	}
	p.endScope()
}

// --- expressions ---------------------------------------------------------

func (p *parser) expression() {
	p.parsePrecedence(precAssignment)
}

// argumentList compiles a call's comma-separated argument expressions and
// returns how many there were.
func (p *parser) argumentList() byte {
	var count int
	if !p.check(scanner.RightParen) {
		for {
			p.expression()
			if count == maxParams {
				p.error("Can't have more than 255 arguments.")
			}
			count++
			if !p.match(scanner.Comma) {
				break
			}
		}
	}
	p.consume(scanner.RightParen, "Expect ')' after arguments.")
	return byte(count)
}
