package refine

import (
	"github.com/onderjan/machine-check-sub004/bv"
	"github.com/onderjan/machine-check-sub004/precision"
	"github.com/onderjan/machine-check-sub004/statespace"
)

// Engine applies backward mark propagation over a whole culprit path to
// a precision.Store, enforcing the one-bit-at-a-time ApplyRefin
// discipline that bounds CEGAR convergence: each successful call marks
// at most one additional bit of some path node's stored precision.
type Engine struct {
	Precision *precision.Store

	// UseDecay additionally records marks that cross a step boundary in
	// the per-step state-decay map, so the next forward sweep coarsens
	// the state bits the culprit does not depend on.
	UseDecay bool
}

// New returns an Engine sharing the given precision store.
func New(p *precision.Store) *Engine {
	return &Engine{Precision: p}
}

// Apply walks the culprit path backward from its final state. For each
// step i (the transition that produced path[i]), it replays path[i]'s
// recorded trace against the current result mark; a non-empty input
// mark refines the precision of that step's source node (path[i-1], or
// START for the initial step) and Apply reports true. A non-empty
// previous-state mark instead crosses the boundary and becomes step
// i-1's result mark. Apply reports false when the path is exhausted
// without producing an input mark (the culprit is inherent) or when the
// produced mark adds no fresh bit (refinement has converged).
//
// The initial result mark covers exactly the final state's unknown
// bits, at the given importance.
func (e *Engine) Apply(path []statespace.NodeId, traceOf func(statespace.NodeId) Trace, totalWidth bv.Width, importance uint8, lookup func(statespace.NodeId) precision.Coverer) bool {
	if len(path) == 0 {
		return false
	}
	last := traceOf(path[len(path)-1])
	if len(last) == 0 {
		return false
	}
	finalOutput := last[len(last)-1].Output
	resultMark := bv.FullyMarked(finalOutput.Width(), importance).Limit(finalOutput)

	for i := len(path) - 1; i >= 0; i-- {
		trace := traceOf(path[i])
		if len(trace) == 0 {
			return false
		}
		inputMark, stateMark := Refine(trace, resultMark, totalWidth)
		if inputMark.IsMarked() {
			source := statespace.START
			if i > 0 {
				source = path[i-1]
			}
			current := e.effective(source, totalWidth, lookup)
			if !current.ApplyRefin(inputMark) {
				return false
			}
			e.Precision.Insert(source, current)
			return true
		}
		if !stateMark.IsMarked() || i == 0 {
			return false
		}
		if e.UseDecay && i >= 2 {
			// the mark over path[i-1]'s state bits protects them from
			// decay when path[i-2] is re-expanded
			e.joinDecay(path[i-2], stateMark)
		}
		resultMark = stateMark
	}
	return false
}

// effective reads the precision currently in force at node: the
// covers-joined mark for a state node, or the raw stored mark for
// START, which carries no abstract state to cover-compare.
func (e *Engine) effective(node statespace.NodeId, totalWidth bv.Width, lookup func(statespace.NodeId) precision.Coverer) bv.Mark {
	def := bv.UnmarkedOf(totalWidth)
	if node == statespace.START {
		if m, ok := e.Precision.InputMark(node); ok {
			return m
		}
		return def
	}
	return e.Precision.Get(node, def, lookup)
}

func (e *Engine) joinDecay(node statespace.NodeId, mark bv.Mark) {
	if existing, ok := e.Precision.Decay(node); ok {
		mark = existing.ApplyJoin(mark)
	}
	e.Precision.InsertDecay(node, mark)
}
