package propprep

// toPNF pushes negation down to the leaves (atoms and bound-variable
// uses), so that the only place ¬ survives in the result is flipped
// directly into an Atom's Cmp. neg carries whether the node currently
// being visited is itself negated relative to the original formula.
//
// Fixed-point binders are special: ¬μX.φ = νX.¬φ[X:=¬X] (and the dual),
// which in a negation-threaded recursion means flipping μ<->ν and
// continuing to recurse with the SAME neg value into the body — the
// variable's own occurrences absorb the negation by being re-bound to
// the (now dualized) binder of the same name, rather than appearing as
// an explicit ¬X leaf. This assumes no two nested binders reuse the
// same name.
func toPNF(n *Node, neg bool) *Node {
	switch n.Kind {
	case KindConst:
		if neg {
			return &Node{Kind: KindConst, BoolConst: !n.BoolConst}
		}
		return &Node{Kind: KindConst, BoolConst: n.BoolConst}

	case KindAtom:
		if !neg {
			return &Node{Kind: KindAtom, Atom: n.Atom}
		}
		negated := *n.Atom
		negated.Cmp = n.Atom.Cmp.Negate()
		return &Node{Kind: KindAtom, Atom: &negated}

	case KindNot:
		return toPNF(n.Children[0], !neg)

	case KindAnd:
		if !neg {
			return binary(KindAnd, toPNF(n.Children[0], false), toPNF(n.Children[1], false))
		}
		return binary(KindOr, toPNF(n.Children[0], true), toPNF(n.Children[1], true))

	case KindOr:
		if !neg {
			return binary(KindOr, toPNF(n.Children[0], false), toPNF(n.Children[1], false))
		}
		return binary(KindAnd, toPNF(n.Children[0], true), toPNF(n.Children[1], true))

	case KindEX:
		return dualUnary(n, neg, KindEX, KindAX)
	case KindAX:
		return dualUnary(n, neg, KindAX, KindEX)
	case KindEF:
		return dualUnary(n, neg, KindEF, KindAG)
	case KindAG:
		return dualUnary(n, neg, KindAG, KindEF)
	case KindAF:
		return dualUnary(n, neg, KindAF, KindEG)
	case KindEG:
		return dualUnary(n, neg, KindEG, KindAF)

	case KindEU:
		return dualBinary(n, neg, KindEU, KindAR)
	case KindAR:
		return dualBinary(n, neg, KindAR, KindEU)
	case KindAU:
		return dualBinary(n, neg, KindAU, KindER)
	case KindER:
		return dualBinary(n, neg, KindER, KindAU)

	case KindLfp:
		return fixedPoint(n, neg, KindLfp, KindGfp)
	case KindGfp:
		return fixedPoint(n, neg, KindGfp, KindLfp)

	case KindVar:
		return &Node{Kind: KindVar, VarName: n.VarName}

	default:
		panic("propprep: toPNF: unhandled kind")
	}
}

func dualUnary(n *Node, neg bool, same, dual Kind) *Node {
	kind := same
	if neg {
		kind = dual
	}
	return unary(kind, toPNF(n.Children[0], neg))
}

func dualBinary(n *Node, neg bool, same, dual Kind) *Node {
	kind := same
	if neg {
		kind = dual
	}
	return binary(kind, toPNF(n.Children[0], neg), toPNF(n.Children[1], neg))
}

func fixedPoint(n *Node, neg bool, same, dual Kind) *Node {
	kind := same
	if neg {
		kind = dual
	}
	return &Node{Kind: kind, VarName: n.VarName, Children: []*Node{toPNF(n.Children[0], neg)}}
}

// Normalize converts a freshly parsed property into canonical form: PNF
// (negation pushed to literals), then ENF (macro temporal connectives
// rewritten in terms of EX/AX and least/greatest fixed points), ready
// for Flatten.
func Normalize(n *Node) *Node {
	return toENF(toPNF(n, false))
}
