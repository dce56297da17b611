package refine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onderjan/machine-check-sub004/bv"
	"github.com/onderjan/machine-check-sub004/precision"
	"github.com/onderjan/machine-check-sub004/refine"
	"github.com/onderjan/machine-check-sub004/statespace"
)

type flatCoverer struct{}

func (flatCoverer) Covers(other any) bool { return false }

func noopLookup(statespace.NodeId) precision.Coverer { return flatCoverer{} }

func traceTable(m map[statespace.NodeId]refine.Trace) func(statespace.NodeId) refine.Trace {
	return func(id statespace.NodeId) refine.Trace { return m[id] }
}

func TestApplyWithEmptyTraceMakesNoProgress(t *testing.T) {
	store := precision.New()
	engine := refine.New(store)
	changed := engine.Apply([]statespace.NodeId{1}, traceTable(nil), 8, 1, noopLookup)
	require.False(t, changed)
}

func TestApplySingleStepPathRefinesTheStartPrecision(t *testing.T) {
	store := precision.New()
	engine := refine.New(store)
	a := bv.Unknown(4)
	b := bv.Unknown(4)
	traces := map[statespace.NodeId]refine.Trace{
		1: {{Kind: refine.OpAdd, A: refine.Leaf(0, a), B: refine.Leaf(4, b), Output: a.Add(b)}},
	}
	changed := engine.Apply([]statespace.NodeId{1}, traceTable(traces), 8, 1, noopLookup)
	require.True(t, changed)

	// a one-step path's transition is the init step, so its source is START
	mark, ok := store.InputMark(statespace.START)
	require.True(t, ok)
	require.True(t, mark.IsMarked())
}

func TestApplyRepeatedCallsConvergeOneBitAtATime(t *testing.T) {
	store := precision.New()
	engine := refine.New(store)
	a := bv.Unknown(4)
	b := bv.Unknown(4)
	traces := map[statespace.NodeId]refine.Trace{
		1: {{Kind: refine.OpAdd, A: refine.Leaf(0, a), B: refine.Leaf(4, b), Output: a.Add(b)}},
	}

	calls := 0
	for {
		changed := engine.Apply([]statespace.NodeId{1}, traceTable(traces), 8, 1, noopLookup)
		calls++
		if !changed {
			break
		}
		require.Less(t, calls, 20) // must converge well within the 8-bit vector
	}

	final, ok := store.InputMark(statespace.START)
	require.True(t, ok)
	require.Equal(t, uint64(0xFF), final.Mask().Uint64())
}

// chainTraces models a three-node path 1 -> 2 -> 3 where node 3's value
// copies node 2's state (no input of its own), and node 2's value comes
// from an input bit. Backward propagation must cross the 3->2 boundary
// and then refine the precision of node 1, step 2's source.
func chainTraces() map[statespace.NodeId]refine.Trace {
	v := bv.Unknown(4)
	return map[statespace.NodeId]refine.Trace{
		2: {{Kind: refine.OpNot, A: refine.Leaf(0, v), Output: v.Not()}},
		3: {{Kind: refine.OpNot, A: refine.StateLeaf(0, v), Output: v.Not()}},
	}
}

func TestApplyRecursesAcrossTheStepBoundaryAndInsertsAtTheSourceNode(t *testing.T) {
	store := precision.New()
	engine := refine.New(store)

	changed := engine.Apply([]statespace.NodeId{1, 2, 3}, traceTable(chainTraces()), 4, 1, noopLookup)
	require.True(t, changed)

	// the input mark was produced by node 2's step, whose source is node 1
	mark := store.Get(1, bv.UnmarkedOf(4), noopLookup)
	require.True(t, mark.IsMarked())
	_, startMarked := store.InputMark(statespace.START)
	require.False(t, startMarked)
}

func TestApplyRecordsDecayForBoundaryCrossingMarksWhenEnabled(t *testing.T) {
	store := precision.New()
	engine := refine.New(store)
	engine.UseDecay = true

	changed := engine.Apply([]statespace.NodeId{1, 2, 3}, traceTable(chainTraces()), 4, 1, noopLookup)
	require.True(t, changed)

	// the mark that crossed the 3->2 boundary protects node 2's state
	// bits, recorded at node 1 whose expansion recomputes node 2
	decay, ok := store.Decay(1)
	require.True(t, ok)
	require.True(t, decay.IsMarked())
}

func TestApplyReportsInherentWhenNoStepYieldsAnInputMark(t *testing.T) {
	store := precision.New()
	engine := refine.New(store)
	v := bv.Unknown(4)
	// every step only consumes the previous state; the path exhausts
	// without any input bit to refine
	traces := map[statespace.NodeId]refine.Trace{
		1: {{Kind: refine.OpNot, A: refine.StateLeaf(0, v), Output: v.Not()}},
		2: {{Kind: refine.OpNot, A: refine.StateLeaf(0, v), Output: v.Not()}},
	}
	changed := engine.Apply([]statespace.NodeId{1, 2}, traceTable(traces), 4, 1, noopLookup)
	require.False(t, changed)
	_, ok := store.InputMark(statespace.START)
	require.False(t, ok)
}
