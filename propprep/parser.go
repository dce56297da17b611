package propprep

import (
	"fmt"

	"github.com/onderjan/machine-check-sub004/manip"
)

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = fmt.Errorf("propprep: syntax error")

// Parse parses src per the surface grammar into a property AST. The returned
// Node is not yet normalized; call Normalize before using it with the
// checker.
func Parse(src string) (node *Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			node = nil
			err = fmt.Errorf("%w: %v", ErrSyntax, r)
		}
	}()
	p := &parser{lex: newLexer(src), bound: map[string]bool{}}
	n := p.parseOr()
	if p.lex.tok.kind != tokEOF {
		return nil, fmt.Errorf("%w: trailing input %q", ErrSyntax, p.lex.tok.text)
	}
	return n, nil
}

type parser struct {
	lex   *lexer
	bound map[string]bool
}

func (p *parser) expect(kind tokenKind, what string) token {
	if p.lex.tok.kind != kind {
		panic(fmt.Sprintf("expected %s, got %q", what, p.lex.tok.text))
	}
	tok := p.lex.tok
	p.lex.advance()
	return tok
}

func (p *parser) parseOr() *Node {
	left := p.parseAnd()
	for p.lex.tok.kind == tokOr {
		p.lex.advance()
		right := p.parseAnd()
		left = binary(KindOr, left, right)
	}
	return left
}

func (p *parser) parseAnd() *Node {
	left := p.parseUnary()
	for p.lex.tok.kind == tokAnd {
		p.lex.advance()
		right := p.parseUnary()
		left = binary(KindAnd, left, right)
	}
	return left
}

func (p *parser) parseUnary() *Node {
	switch p.lex.tok.kind {
	case tokBang:
		p.lex.advance()
		return unary(KindNot, p.parseUnary())
	case tokLParen:
		p.lex.advance()
		n := p.parseOr()
		p.expect(tokRParen, ")")
		return n
	case tokIdent:
		switch p.lex.tok.text {
		case "true":
			p.lex.advance()
			return &Node{Kind: KindConst, BoolConst: true}
		case "false":
			p.lex.advance()
			return &Node{Kind: KindConst, BoolConst: false}
		case "EX", "AX", "EF", "AF", "EG", "AG":
			return p.parseUnaryTemporal()
		case "EU", "AU", "ER", "AR":
			return p.parseBinaryTemporal()
		case "lfp", "gfp":
			return p.parseFixedPoint()
		case "as_signed", "as_unsigned":
			return p.parseCastAtom(p.lex.tok.text == "as_signed")
		default:
			name := p.lex.tok.text
			if p.bound[name] {
				p.lex.advance()
				return &Node{Kind: KindVar, VarName: name}
			}
			return p.finishAtom(p.parseFieldRef(), false)
		}
	default:
		panic(fmt.Sprintf("unexpected token %q", p.lex.tok.text))
	}
}

var unaryTemporalKind = map[string]Kind{
	"EX": KindEX, "AX": KindAX, "EF": KindEF, "AF": KindAF, "EG": KindEG, "AG": KindAG,
}

func (p *parser) parseUnaryTemporal() *Node {
	name := p.expect(tokIdent, "temporal operator").text
	p.expect(tokBang, "!")
	p.expect(tokLBracket, "[")
	inner := p.parseOr()
	p.expect(tokRBracket, "]")
	return unary(unaryTemporalKind[name], inner)
}

var binaryTemporalKind = map[string]Kind{
	"EU": KindEU, "AU": KindAU, "ER": KindER, "AR": KindAR,
}

func (p *parser) parseBinaryTemporal() *Node {
	name := p.expect(tokIdent, "temporal operator").text
	p.expect(tokBang, "!")
	p.expect(tokLBracket, "[")
	left := p.parseOr()
	p.expect(tokComma, ",")
	right := p.parseOr()
	p.expect(tokRBracket, "]")
	return binary(binaryTemporalKind[name], left, right)
}

func (p *parser) parseFixedPoint() *Node {
	kind := KindLfp
	if p.lex.tok.text == "gfp" {
		kind = KindGfp
	}
	p.lex.advance()
	p.expect(tokBang, "!")
	p.expect(tokLBracket, "[")
	name := p.expect(tokIdent, "bound variable name").text
	p.expect(tokComma, ",")
	alreadyBound := p.bound[name]
	p.bound[name] = true
	body := p.parseOr()
	if !alreadyBound {
		delete(p.bound, name)
	}
	p.expect(tokRBracket, "]")
	return &Node{Kind: kind, VarName: name, Children: []*Node{body}}
}

// parseCastAtom parses an atom whose field reference is wrapped in
// as_signed(...) or as_unsigned(...), forcing the comparison's signedness
// regardless of how the literal is written.
func (p *parser) parseCastAtom(signed bool) *Node {
	p.lex.advance() // consumes "as_signed" / "as_unsigned"
	p.expect(tokLParen, "(")
	field := p.parseFieldRef()
	p.expect(tokRParen, ")")
	return p.finishAtom(field, signed)
}

func (p *parser) parseFieldRef() manip.FieldKey {
	fieldName := p.expect(tokIdent, "field name").text
	index := -1
	if p.lex.tok.kind == tokLBracket {
		p.lex.advance()
		numTok := p.expect(tokNumber, "array index")
		n, err := parseLiteral(numTok.text)
		if err != nil || n < 0 {
			panic(fmt.Sprintf("invalid array index %q", numTok.text))
		}
		index = int(n)
		p.expect(tokRBracket, "]")
	}
	return manip.FieldKey{Name: fieldName, Index: index}
}

func (p *parser) finishAtom(field manip.FieldKey, signed bool) *Node {
	cmp := p.parseCmp()
	numTok := p.expect(tokNumber, "literal")
	lit, err := parseLiteral(numTok.text)
	if err != nil {
		panic(fmt.Sprintf("invalid literal %q", numTok.text))
	}
	return &Node{
		Kind: KindAtom,
		Atom: &Atom{
			Field:   field,
			Signed:  signed,
			Cmp:     cmp,
			Literal: lit,
		},
	}
}

func (p *parser) parseCmp() Cmp {
	var c Cmp
	switch p.lex.tok.kind {
	case tokEq:
		c = CmpEq
	case tokNe:
		c = CmpNe
	case tokLt:
		c = CmpLt
	case tokLe:
		c = CmpLe
	case tokGt:
		c = CmpGt
	case tokGe:
		c = CmpGe
	default:
		panic(fmt.Sprintf("expected comparison operator, got %q", p.lex.tok.text))
	}
	p.lex.advance()
	return c
}
