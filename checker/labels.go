// Package checker labels every reachable state with the three-valued
// truth of every subformula of a prepared property and extracts a
// conclusion: a definite verdict with a witness path, or Unknown with a
// refinement culprit path.
//
// Fixed points are evaluated by Kleene iteration over a time-stamped
// History; EX and AX are the exists/forall transfer functions over a
// state's direct successors, recording the successor that decided each
// value as its witness. Ties are broken by earlier decision time, so a
// value once decided stays decided the same way across iterations and
// incremental sweeps.
package checker

import (
	"github.com/onderjan/machine-check-sub004/bv"
	"github.com/onderjan/machine-check-sub004/propprep"
	"github.com/onderjan/machine-check-sub004/statespace"
)

// CheckValue is a subformula's three-valued truth at one state together
// with the witness successors that decided it: for EX/AX the successor
// providing the decisive value, for ∧/∨ the dominating child's
// witnesses, empty for atoms and constants. Witnesses are NodeId
// indices, never owning references, so cyclic witness chains are
// representable.
type CheckValue struct {
	Truth     bv.Truth
	Witnesses []statespace.NodeId
}

// TimedCheckValue stamps a CheckValue with the time it was decided at.
// Time ticks once per fixed-point iteration; ties between equally good
// candidates always go to the earlier time, freezing the first decision.
type TimedCheckValue struct {
	Time  uint64
	Value CheckValue
}

// Labels is the full per-subformula, per-node table produced by
// Evaluate: Labels[i][node] is the timed value of Flat[i] at node.
type Labels map[int]map[statespace.NodeId]TimedCheckValue

// AtomResolver evaluates one atomic proposition at one state node.
type AtomResolver func(atom *propprep.Atom, node statespace.NodeId) (bv.Truth, error)

// SuccessorFunc returns a node's direct successors.
type SuccessorFunc func(statespace.NodeId) []statespace.NodeId

// EvalOptions carries the cross-sweep state an incremental Evaluate
// reuses. The zero value requests a cold sweep with a fresh History.
type EvalOptions struct {
	// Prev is the previous sweep's table. When set, atom labels of
	// nodes outside Focus are reused (a node's state never changes once
	// inserted) and fixed points are warm-started where sound.
	Prev Labels
	// Focus is the set of nodes whose leaf labels must be recomputed:
	// the dirty nodes plus their forward cone. nil means every node.
	Focus map[statespace.NodeId]bool
	// History archives fixed-point iteration values; bound variables
	// read their binder's previous-iteration value through it.
	History *History
	// Time is the starting value of the decision-time counter, carried
	// across sweeps so later decisions never reuse earlier stamps.
	Time uint64
}

// Evaluate labels every node in nodes against every subformula of
// flat, starting from the root subformula at index root, and returns
// the table together with the advanced time counter. A cold sweep
// (zero opts) recomputes everything; with opts.Prev set it reuses
// previous labels as described on EvalOptions, producing the same
// valuations a cold sweep would.
func Evaluate(flat []propprep.SubProperty, root int, nodes []statespace.NodeId, succ SuccessorFunc, resolve AtomResolver, opts EvalOptions) (Labels, uint64, error) {
	hist := opts.History
	if hist == nil {
		hist = NewHistory()
	}
	e := &evaluator{
		flat:    flat,
		nodes:   nodes,
		succ:    succ,
		resolve: resolve,
		labels:  make(Labels),
		prev:    opts.Prev,
		focus:   opts.Focus,
		hist:    hist,
		time:    opts.Time,
	}
	e.get(root)
	return e.labels, e.time, e.err
}

type evaluator struct {
	flat    []propprep.SubProperty
	nodes   []statespace.NodeId
	succ    SuccessorFunc
	resolve AtomResolver
	labels  Labels
	prev    Labels
	focus   map[statespace.NodeId]bool
	hist    *History
	time    uint64
	fpDepth int
	err     error
}

func (e *evaluator) get(idx int) map[statespace.NodeId]TimedCheckValue {
	if m, ok := e.labels[idx]; ok {
		return m
	}
	m := e.compute(idx)
	if e.err == nil {
		e.labels[idx] = m
	}
	return m
}

func (e *evaluator) prevAt(idx int, node statespace.NodeId) (TimedCheckValue, bool) {
	if e.prev == nil {
		return TimedCheckValue{}, false
	}
	byNode, ok := e.prev[idx]
	if !ok {
		return TimedCheckValue{}, false
	}
	v, ok := byNode[node]
	return v, ok
}

func (e *evaluator) compute(idx int) map[statespace.NodeId]TimedCheckValue {
	n := e.flat[idx]
	out := make(map[statespace.NodeId]TimedCheckValue, len(e.nodes))
	switch n.Kind {
	case propprep.KindConst:
		v := bv.False3
		if n.BoolConst {
			v = bv.True3
		}
		for _, id := range e.nodes {
			out[id] = TimedCheckValue{Value: CheckValue{Truth: v}}
		}

	case propprep.KindAtom:
		for _, id := range e.nodes {
			if e.focus != nil && !e.focus[id] {
				if p, ok := e.prevAt(idx, id); ok {
					out[id] = p
					continue
				}
			}
			t, err := e.resolve(n.Atom, id)
			if err != nil {
				e.err = err
				return out
			}
			out[id] = TimedCheckValue{Value: CheckValue{Truth: t}}
		}

	case propprep.KindAnd:
		l, r := e.get(n.Children[0]), e.get(n.Children[1])
		for _, id := range e.nodes {
			out[id] = pickLattice(l[id], r[id], true)
		}

	case propprep.KindOr:
		l, r := e.get(n.Children[0]), e.get(n.Children[1])
		for _, id := range e.nodes {
			out[id] = pickLattice(l[id], r[id], false)
		}

	case propprep.KindEX:
		child := e.get(n.Children[0])
		for _, id := range e.nodes {
			out[id] = existsNext(e.succ(id), child)
		}

	case propprep.KindAX:
		child := e.get(n.Children[0])
		for _, id := range e.nodes {
			out[id] = forallNext(e.succ(id), child)
		}

	case propprep.KindLfp:
		return e.fixpoint(idx, false)

	case propprep.KindGfp:
		return e.fixpoint(idx, true)

	case propprep.KindVar:
		for _, id := range e.nodes {
			v, ok := e.hist.AtOrBefore(n.BinderIndex, id, e.time-1)
			if !ok {
				panic("checker: bound variable read before its binder was seeded")
			}
			out[id] = v
		}

	default:
		panic("checker: Evaluate: unhandled SubProperty kind")
	}
	return out
}

// fixpoint computes the Kleene iteration for a least (greatest=false)
// or greatest (greatest=true) fixed point at idx, repeatedly
// re-evaluating the body against the History's latest entries until no
// node's truth changes. A node whose truth is unchanged by an iteration
// keeps its earlier stamp and witnesses; a changed node is stamped with
// the current iteration time. Monotonicity of every connective used in
// a normalized property guarantees convergence within
// len(nodes)*height(lattice) rounds.
func (e *evaluator) fixpoint(idx int, greatest bool) map[statespace.NodeId]TimedCheckValue {
	e.fpDepth++
	defer func() { e.fpDepth-- }()
	bodyIdx := e.flat[idx].Children[0]
	approx := e.seed(idx, greatest)
	for _, id := range e.nodes {
		e.hist.Record(idx, id, e.time, approx[id])
	}
	maxIters := 2*len(e.nodes) + 2
	for i := 0; i < maxIters; i++ {
		e.time++
		e.clearSubtree(bodyIdx)
		next := e.get(bodyIdx)
		if e.err != nil {
			return next
		}
		changed := false
		merged := make(map[statespace.NodeId]TimedCheckValue, len(e.nodes))
		for _, id := range e.nodes {
			nv, ov := next[id], approx[id]
			if nv.Value.Truth == ov.Value.Truth {
				merged[id] = ov // freeze the earlier decision
				continue
			}
			nv.Time = e.time
			merged[id] = nv
			e.hist.Record(idx, id, e.time, nv)
			changed = true
		}
		approx = merged
		if !changed {
			break
		}
	}
	e.labels[idx] = approx
	return approx
}

// seed builds a fixed point's starting approximation: lattice bottom
// for μ, top for ν — or, on an incremental sweep where the graph has
// only grown, the previous sweep's stabilized values, which the
// iteration then re-descends or re-ascends to the identical fixed
// point. Warm-starting is sound only when graph growth moves the body
// in the iteration's direction: edge additions enlarge EX and shrink
// AX, so a μ may warm-start iff its subtree is AX-free and a ν iff it
// is EX-free. A nested fixed point never warm-starts: it restarts per
// enclosing iteration against a changing environment, for which the
// previous sweep's stabilized values carry no bound.
func (e *evaluator) seed(idx int, greatest bool) map[statespace.NodeId]TimedCheckValue {
	bottom := bv.False3
	if greatest {
		bottom = bv.True3
	}
	var banned propprep.Kind = propprep.KindAX
	if greatest {
		banned = propprep.KindEX
	}
	warm := e.fpDepth == 1 && e.prev != nil && !e.subtreeHas(idx, banned)
	out := make(map[statespace.NodeId]TimedCheckValue, len(e.nodes))
	for _, id := range e.nodes {
		if warm {
			if p, ok := e.prevAt(idx, id); ok {
				out[id] = p
				continue
			}
		}
		out[id] = TimedCheckValue{Time: e.time, Value: CheckValue{Truth: bottom}}
	}
	return out
}

func (e *evaluator) subtreeHas(idx int, kind propprep.Kind) bool {
	if e.flat[idx].Kind == kind {
		return true
	}
	for _, c := range e.flat[idx].Children {
		if e.subtreeHas(c, kind) {
			return true
		}
	}
	return false
}

func (e *evaluator) clearSubtree(idx int) {
	delete(e.labels, idx)
	for _, c := range e.flat[idx].Children {
		e.clearSubtree(c)
	}
}

func truthRank(t bv.Truth) int {
	switch t {
	case bv.False3:
		return 0
	case bv.Unknown3:
		return 1
	default:
		return 2
	}
}

// pickLattice is the ∧/∨ transfer: the child whose value dominates (the
// lesser for ∧, the greater for ∨) decides the result and its witnesses
// propagate; equal values go to the earlier decision time.
func pickLattice(a, b TimedCheckValue, pickLesser bool) TimedCheckValue {
	ra, rb := truthRank(a.Value.Truth), truthRank(b.Value.Truth)
	if ra == rb {
		if a.Time <= b.Time {
			return a
		}
		return b
	}
	if (ra < rb) == pickLesser {
		return a
	}
	return b
}

// existsNext is EX's transfer: the lattice-max of the child's value
// over the direct successors. The successor providing the decisive
// value is recorded as the witness (ties to the earlier time, then to
// edge order); a definite False has no single decisive successor and
// carries no witness. A node with no successors vacuously fails EX.
func existsNext(succs []statespace.NodeId, child map[statespace.NodeId]TimedCheckValue) TimedCheckValue {
	return overNext(succs, child, false)
}

// forallNext is AX's transfer, dual to existsNext: the lattice-min over
// successors, witnessing the refuting (or blocking-Unknown) successor.
// A node with no successors vacuously satisfies AX.
func forallNext(succs []statespace.NodeId, child map[statespace.NodeId]TimedCheckValue) TimedCheckValue {
	return overNext(succs, child, true)
}

func overNext(succs []statespace.NodeId, child map[statespace.NodeId]TimedCheckValue, forall bool) TimedCheckValue {
	if len(succs) == 0 {
		truth := bv.False3
		if forall {
			truth = bv.True3
		}
		return TimedCheckValue{Value: CheckValue{Truth: truth}}
	}
	var best statespace.NodeId
	var bestVal TimedCheckValue
	first := true
	for _, s := range succs {
		v := child[s]
		if first {
			best, bestVal, first = s, v, false
			continue
		}
		rv, rb := truthRank(v.Value.Truth), truthRank(bestVal.Value.Truth)
		better := rv > rb
		if forall {
			better = rv < rb
		}
		if better || (rv == rb && v.Time < bestVal.Time) {
			best, bestVal = s, v
		}
	}
	decisive := bestVal.Value.Truth != bv.False3
	if forall {
		decisive = bestVal.Value.Truth != bv.True3
	}
	out := TimedCheckValue{Time: bestVal.Time, Value: CheckValue{Truth: bestVal.Value.Truth}}
	if decisive {
		out.Value.Witnesses = []statespace.NodeId{best}
	}
	return out
}
