package driver

import (
	"context"
	"fmt"

	"github.com/onderjan/machine-check-sub004/bv"
	"github.com/onderjan/machine-check-sub004/forward"
	"github.com/onderjan/machine-check-sub004/precision"
	"github.com/onderjan/machine-check-sub004/refine"
	"github.com/onderjan/machine-check-sub004/statespace"
)

// InherentPanicError reports that the system can reach a state whose
// panic value is known nonzero: the inherent "no reachable panic"
// property fails regardless of any checked property. Witness is a
// shortest path of state nodes from an initial state to the panicking
// one.
type InherentPanicError struct {
	Message string
	Witness []statespace.NodeId
}

func (e *InherentPanicError) Error() string {
	return fmt.Sprintf("driver: inherent panic: %s", e.Message)
}

// PanicProber is optionally implemented by a system's State type to
// report that the state's panic value is not known zero — the state may
// panic without being known to. In inherent-only verification such a
// state is a culprit for refinement.
type PanicProber interface {
	PanicPossible() bool
}

// verifyInherent is Verify's property-less mode: it checks the inherent
// safety property that no reachable state panics, refining abstract
// may-panic states until the verdict is definite or refinement is
// exhausted.
func verifyInherent[State forward.ModelState[State]](
	ctx context.Context,
	space *statespace.Space[State],
	sys forward.System[State],
	totalWidth bv.Width,
	options *Options,
) (VerifyResult, error) {
	prec := precision.New()
	fengine := forward.New(space, sys, prec, totalWidth)
	rengine := refine.New(prec)
	rengine.UseDecay = options.useDecay
	lookup := func(id statespace.NodeId) precision.Coverer {
		if !space.Has(id) {
			return nil
		}
		return any(space.State(id)).(precision.Coverer)
	}

	stats := Stats{}
	log := options.logger.WithField("component", "driver")

	for iteration := 0; ; iteration++ {
		select {
		case <-ctx.Done():
			return VerifyResult{}, ctx.Err()
		default:
		}

		grow := fengine.Grow()
		stats.NumGeneratedStates += len(grow.NewNodes)
		stats.NumGeneratedTransitions += grow.NewTransitions

		if node, msg, found := findInherentPanic(space, grow.NewNodes); found {
			stats.InherentPanicMessage = msg
			stats.NumFinalStates = space.Len()
			stats.NumFinalTransitions = stats.NumGeneratedTransitions
			witness := witnessTo(space, node)
			return VerifyResult{Verdict: bv.False3, Witness: witness, Stats: stats},
				&InherentPanicError{Message: msg, Witness: witness}
		}

		culprit, possible := findPossiblePanic(space)
		log.WithFields(map[string]any{
			"iteration":   iteration,
			"states":      space.Len(),
			"refinements": stats.NumRefinements,
		}).Debug("inherent iteration")

		if !possible {
			stats.NumFinalStates = space.Len()
			stats.NumFinalTransitions = stats.NumGeneratedTransitions
			return VerifyResult{Verdict: bv.True3, Stats: stats}, nil
		}

		if options.maxIterations > 0 && iteration >= options.maxIterations {
			stats.NumFinalStates = space.Len()
			stats.NumFinalTransitions = stats.NumGeneratedTransitions
			return VerifyResult{Verdict: bv.Unknown3, Stats: stats}, nil
		}

		path := witnessTo(space, culprit)
		changed := rengine.Apply(path, fengine.Trace, totalWidth, options.importance, lookup)
		if !changed {
			stats.NumFinalStates = space.Len()
			stats.NumFinalTransitions = stats.NumGeneratedTransitions
			return VerifyResult{Verdict: bv.Unknown3, Stats: stats}, nil
		}
		stats.NumRefinements++
		fengine.Reopen(append([]statespace.NodeId{statespace.START}, path...))

		reachable := space.ReachableFromStart()
		space.Retain(reachable)
		prec.Forget(reachable)
	}
}

// findInherentPanic scans nodes for a state that reports a certain panic.
func findInherentPanic[State statespace.MetaEqual](space *statespace.Space[State], nodes []statespace.NodeId) (statespace.NodeId, string, bool) {
	for _, id := range nodes {
		reporter, ok := any(space.State(id)).(PanicReporter)
		if !ok {
			continue
		}
		if msg, panics := reporter.PanicMessage(); panics {
			return id, msg, true
		}
	}
	return 0, "", false
}

// findPossiblePanic returns the first reachable state whose panic value
// is not known zero, in insertion order.
func findPossiblePanic[State statespace.MetaEqual](space *statespace.Space[State]) (statespace.NodeId, bool) {
	for _, id := range space.States() {
		prober, ok := any(space.State(id)).(PanicProber)
		if ok && prober.PanicPossible() {
			return id, true
		}
	}
	return 0, false
}

// witnessTo returns a shortest path of state nodes from an initial state
// to target, found by breadth-first search from START.
func witnessTo[State statespace.MetaEqual](space *statespace.Space[State], target statespace.NodeId) []statespace.NodeId {
	parent := map[statespace.NodeId]statespace.NodeId{}
	visited := map[statespace.NodeId]bool{}
	queue := space.DirectSuccessors(statespace.START)
	for _, n := range queue {
		visited[n] = true
	}
	for i := 0; i < len(queue); i++ {
		id := queue[i]
		if id == target {
			break
		}
		for _, next := range space.DirectSuccessors(id) {
			if !visited[next] {
				visited[next] = true
				parent[next] = id
				queue = append(queue, next)
			}
		}
	}
	var path []statespace.NodeId
	cur := target
	for {
		path = append([]statespace.NodeId{cur}, path...)
		prev, ok := parent[cur]
		if !ok {
			break
		}
		cur = prev
	}
	return path
}
