// Package propprep implements property representation and preparation:
// parsing the surface grammar into an AST, rewriting it to positive
// normal form and then to a canonical existential-normal-form basis of
// {const, atom, ∨, ∧, EX, AX, μ, ν, bound-var} (a negated atom is an
// atom with the complementary comparison), and
// flattening the result into an indexed, dependency-ordered slice the
// checker can iterate.
package propprep

import "github.com/onderjan/machine-check-sub004/manip"

// Cmp is a comparison operator for an atomic proposition.
type Cmp int

const (
	CmpEq Cmp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

// Negate returns the logical negation of cmp (used when pushing a ¬
// through an atom during positive-normal-form conversion).
func (c Cmp) Negate() Cmp {
	switch c {
	case CmpEq:
		return CmpNe
	case CmpNe:
		return CmpEq
	case CmpLt:
		return CmpGe
	case CmpLe:
		return CmpGt
	case CmpGt:
		return CmpLe
	case CmpGe:
		return CmpLt
	default:
		panic("propprep: unknown comparison")
	}
}

// Atom is an atomic proposition: a (possibly array-indexed, possibly
// forced-signed) field compared against a literal.
type Atom struct {
	Field   manip.FieldKey
	Signed  bool
	Cmp     Cmp
	Literal int64
}

// Kind discriminates a Node's shape.
type Kind int

const (
	KindConst Kind = iota
	KindAtom
	KindNot // produced by the parser only; PNF folds every negation into an Atom's Cmp
	KindAnd
	KindOr
	KindEX
	KindAX
	KindEF
	KindAF
	KindEG
	KindAG
	KindEU
	KindAU
	KindER
	KindAR
	KindLfp
	KindGfp
	KindVar
)

// Node is a property AST node. Children is used positionally depending
// on Kind: EX/AX/EF/AF/EG/AG/Not/Lfp/Gfp use Children[0] as their single
// operand; And/Or/EU/AU/ER/AR use Children[0] and Children[1].
type Node struct {
	Kind      Kind
	BoolConst bool
	Atom      *Atom
	Children  []*Node
	VarName   string // binder name for Lfp/Gfp, reference name for Var
}

func unary(k Kind, child *Node) *Node { return &Node{Kind: k, Children: []*Node{child}} }
func binary(k Kind, a, b *Node) *Node { return &Node{Kind: k, Children: []*Node{a, b}} }
