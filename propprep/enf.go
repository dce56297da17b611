package propprep

import "fmt"

// enfState generates fresh synthetic fixed-point binder names, distinct
// from any user-chosen lfp!/gfp! identifier, while eliminating the macro
// temporal connectives.
type enfState struct {
	next int
}

func (e *enfState) fresh() string {
	e.next++
	return fmt.Sprintf("$%d", e.next)
}

// toENF rewrites a PNF'd tree so only {const, atom, ∨, ∧, EX, AX, μ, ν,
// bound-var} remain, per the standard fixed-point expansions:
//
//	EF φ    = μX. φ ∨ EX X         AF φ    = μX. φ ∨ AX X
//	EG φ    = νX. φ ∧ EX X         AG φ    = νX. φ ∧ AX X
//	EU[p,q] = μX. q ∨ (p ∧ EX X)   AU[p,q] = μX. q ∨ (p ∧ AX X)
//	ER[p,q] = νX. q ∧ (p ∨ EX X)   AR[p,q] = νX. q ∧ (p ∨ AX X)
func toENF(n *Node) *Node {
	e := &enfState{}
	return enf(n, e)
}

func enf(n *Node, e *enfState) *Node {
	switch n.Kind {
	case KindConst, KindAtom, KindVar:
		return n

	case KindAnd, KindOr:
		return binary(n.Kind, enf(n.Children[0], e), enf(n.Children[1], e))

	case KindEX, KindAX:
		return unary(n.Kind, enf(n.Children[0], e))

	case KindLfp, KindGfp:
		return &Node{Kind: n.Kind, VarName: n.VarName, Children: []*Node{enf(n.Children[0], e)}}

	case KindEF:
		return expandReach(enf(n.Children[0], e), e, KindLfp, KindOr, KindEX)
	case KindAF:
		return expandReach(enf(n.Children[0], e), e, KindLfp, KindOr, KindAX)
	case KindEG:
		return expandReach(enf(n.Children[0], e), e, KindGfp, KindAnd, KindEX)
	case KindAG:
		return expandReach(enf(n.Children[0], e), e, KindGfp, KindAnd, KindAX)

	case KindEU:
		return expandUntil(enf(n.Children[0], e), enf(n.Children[1], e), e, KindLfp, KindEX)
	case KindAU:
		return expandUntil(enf(n.Children[0], e), enf(n.Children[1], e), e, KindLfp, KindAX)
	case KindER:
		return expandRelease(enf(n.Children[0], e), enf(n.Children[1], e), e, KindGfp, KindEX)
	case KindAR:
		return expandRelease(enf(n.Children[0], e), enf(n.Children[1], e), e, KindGfp, KindAX)

	default:
		panic("propprep: toENF: unhandled kind")
	}
}

// expandReach builds fpKind X. phi `combine` exX X, for EF/AF/EG/AG.
func expandReach(phi *Node, e *enfState, fpKind, combine, ex Kind) *Node {
	name := e.fresh()
	body := binary(combine, phi, unary(ex, &Node{Kind: KindVar, VarName: name}))
	return &Node{Kind: fpKind, VarName: name, Children: []*Node{body}}
}

// expandUntil builds μX. q ∨ (p ∧ exX X), for EU/AU.
func expandUntil(p, q *Node, e *enfState, fpKind, ex Kind) *Node {
	name := e.fresh()
	ref := &Node{Kind: KindVar, VarName: name}
	body := binary(KindOr, q, binary(KindAnd, p, unary(ex, ref)))
	return &Node{Kind: fpKind, VarName: name, Children: []*Node{body}}
}

// expandRelease builds νX. q ∧ (p ∨ exX X), for ER/AR.
func expandRelease(p, q *Node, e *enfState, fpKind, ex Kind) *Node {
	name := e.fresh()
	ref := &Node{Kind: KindVar, VarName: name}
	body := binary(KindAnd, q, binary(KindOr, p, unary(ex, ref)))
	return &Node{Kind: fpKind, VarName: name, Children: []*Node{body}}
}
