package compiler

import (
	"strconv"

	"loxvm/pkg/bytecode"
	"loxvm/pkg/scanner"
)

// precedence orders binary operators from loosest- to tightest-binding.
// parsePrecedence climbs this ladder: it keeps consuming infix operators
// whose precedence is at least as tight as the level it was called with.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! - (prefix)
	precCall                  // . ()
	precPrimary
)

// parseFn compiles one grammar production rooted at p.previous. canAssign
// is true only when the production appears where an assignment target is
// legal (precedence <= precAssignment); variable() uses it to decide
// whether a following '=' is a variable assignment or a syntax error.
type parseFn func(p *parser, canAssign bool)

type rule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

// rules is the Pratt table: for every token kind that can start or
// continue an expression, the prefix production it roots, the infix
// production it continues, and the infix production's binding power.
var rules map[scanner.Kind]rule

func init() {
	rules = map[scanner.Kind]rule{
		scanner.LeftParen:  {prefix: grouping, infix: call, precedence: precCall},
		scanner.Minus:      {prefix: unary, infix: binary, precedence: precTerm},
		scanner.Plus:       {infix: binary, precedence: precTerm},
		scanner.Slash:      {infix: binary, precedence: precFactor},
		scanner.Star:       {infix: binary, precedence: precFactor},
		scanner.Bang:       {prefix: unary},
		scanner.BangEqual:  {infix: binary, precedence: precEquality},
		scanner.EqualEqual: {infix: binary, precedence: precEquality},
		scanner.Greater:    {infix: binary, precedence: precComparison},
		scanner.GreaterEqual: {infix: binary, precedence: precComparison},
		scanner.Less:         {infix: binary, precedence: precComparison},
		scanner.LessEqual:    {infix: binary, precedence: precComparison},
		scanner.Identifier:   {prefix: variable},
		scanner.String:       {prefix: stringLiteral},
		scanner.Number:       {prefix: number},
		scanner.And:          {infix: and_, precedence: precAnd},
		scanner.Or:           {infix: or_, precedence: precOr},
		scanner.False:        {prefix: literal},
		scanner.Nil:          {prefix: literal},
		scanner.True:         {prefix: literal},
	}
}

func getRule(k scanner.Kind) rule {
	return rules[k]
}

// parsePrecedence compiles the expression rooted at the upcoming tokens,
// consuming every prefix and infix production whose precedence is at
// least prec. This is the whole of Pratt parsing: everything else in this
// file just feeds entries into the rules table above.
func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	prefixRule := getRule(p.previous.Kind).prefix
	if prefixRule == nil {
		p.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefixRule(p, canAssign)

	for prec <= getRule(p.current.Kind).precedence {
		p.advance()
		infixRule := getRule(p.previous.Kind).infix
		infixRule(p, canAssign)
	}

	if canAssign && p.match(scanner.Equal) {
		p.error("Invalid assignment target.")
	}
}

func number(p *parser, _ bool) {
	text := p.lexeme(p.previous)
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.error("Invalid number literal.")
		return
	}
	p.emitConstant(bytecode.Number(n))
}

func stringLiteral(p *parser, _ bool) {
	// Strip the surrounding quotes; loxvm has no escape sequences (spec).
	lex := p.lexeme(p.previous)
	p.emitConstant(bytecode.FromObj(bytecode.NewString(lex[1 : len(lex)-1])))
}

func literal(p *parser, _ bool) {
	switch p.previous.Kind {
	case scanner.False:
		p.emitOp(bytecode.OpFalse)
	case scanner.True:
		p.emitOp(bytecode.OpTrue)
	case scanner.Nil:
		p.emitOp(bytecode.OpNil)
	}
}

func grouping(p *parser, _ bool) {
	p.expression()
	p.consume(scanner.RightParen, "Expect ')' after expression.")
}

func unary(p *parser, _ bool) {
	opKind := p.previous.Kind
	p.parsePrecedence(precUnary)
	switch opKind {
	case scanner.Minus:
		p.emitOp(bytecode.OpNegate)
	case scanner.Bang:
		p.emitOp(bytecode.OpNot)
	}
}

func binary(p *parser, _ bool) {
	opKind := p.previous.Kind
	r := getRule(opKind)
	p.parsePrecedence(r.precedence + 1)

	switch opKind {
	case scanner.Plus:
		p.emitOp(bytecode.OpAdd)
	case scanner.Minus:
		p.emitOp(bytecode.OpSubtract)
	case scanner.Star:
		p.emitOp(bytecode.OpMultiply)
	case scanner.Slash:
		p.emitOp(bytecode.OpDivide)
	case scanner.BangEqual:
		p.emitOp(bytecode.OpEqual)
		p.emitOp(bytecode.OpNot)
	case scanner.EqualEqual:
		p.emitOp(bytecode.OpEqual)
	case scanner.Greater:
		p.emitOp(bytecode.OpGreater)
	case scanner.GreaterEqual:
		p.emitOp(bytecode.OpLess)
		p.emitOp(bytecode.OpNot)
	case scanner.Less:
		p.emitOp(bytecode.OpLess)
	case scanner.LessEqual:
		p.emitOp(bytecode.OpGreater)
		p.emitOp(bytecode.OpNot)
	}
}

// and_ implements short-circuiting: if the left operand is falsey, skip
// the right operand entirely and leave the falsey left value as the
// result.
func and_(p *parser, _ bool) {
	endJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

// or_ implements short-circuiting the mirror way: if the left operand is
// truthy, skip the right operand and keep the left value.
func or_(p *parser, _ bool) {
	elseJump := p.emitJump(bytecode.OpJumpIfFalse)
	endJump := p.emitJump(bytecode.OpJump)

	p.patchJump(elseJump)
	p.emitOp(bytecode.OpPop)

	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

func call(p *parser, _ bool) {
	argCount := p.argumentList()
	p.emitOps(bytecode.OpCall, argCount)
}

// variable compiles an identifier reference, resolving it to a local
// slot, and falling back to a global name lookup when it isn't a local of
// the current funcState (locals of enclosing functions are not searched).
// When canAssign and a '=' follows, it compiles
// an assignment instead of a read.
func variable(p *parser, canAssign bool) {
	name := p.previous

	var getOp, setOp bytecode.Op
	var arg byte

	if slot := p.resolveLocal(p.state, p.lexeme(name)); slot != -1 {
		getOp, setOp = bytecode.OpGetLocal, bytecode.OpSetLocal
		arg = byte(slot)
	} else {
		getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
		arg = p.identifierConstant(name)
	}

	if canAssign && p.match(scanner.Equal) {
		p.expression()
		p.emitOps(setOp, arg)
		return
	}
	p.emitOps(getOp, arg)
}
