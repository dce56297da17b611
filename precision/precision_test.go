package precision_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onderjan/machine-check-sub004/bv"
	"github.com/onderjan/machine-check-sub004/precision"
	"github.com/onderjan/machine-check-sub004/statespace"
)

// coarseState covers fineState whenever it has a lower rank: a tiny stand-in
// for an abstract-interpretation "is coarser than" relation.
type coarseState struct{ rank int }

func (c coarseState) Covers(other any) bool {
	o, ok := other.(coarseState)
	return ok && c.rank <= o.rank
}

func TestGetReturnsDefaultWhenNothingStored(t *testing.T) {
	store := precision.New()
	def := bv.NewMark(bv.New(4, 0b0001), 1)
	lookup := func(statespace.NodeId) precision.Coverer { return coarseState{rank: 0} }
	got := store.Get(1, def, lookup)
	require.Equal(t, def.Mask().Uint64(), got.Mask().Uint64())
}

func TestGetReturnsStoredMarkWhenNoCoveringNode(t *testing.T) {
	store := precision.New()
	stored := bv.NewMark(bv.New(4, 0b0010), 1)
	store.Insert(1, stored)
	states := map[statespace.NodeId]coarseState{1: {rank: 0}}
	lookup := func(id statespace.NodeId) precision.Coverer { return states[id] }
	got := store.Get(1, bv.UnmarkedOf(4), lookup)
	require.Equal(t, uint64(0b0010), got.Mask().Uint64())
}

func TestGetJoinsMarksFromCoveringNodes(t *testing.T) {
	store := precision.New()
	store.Insert(1, bv.NewMark(bv.New(4, 0b0001), 1))
	store.Insert(2, bv.NewMark(bv.New(4, 0b0010), 1)) // node 2 covers node 1
	states := map[statespace.NodeId]coarseState{
		1: {rank: 1},
		2: {rank: 0},
	}
	lookup := func(id statespace.NodeId) precision.Coverer { return states[id] }
	got := store.Get(1, bv.UnmarkedOf(4), lookup)
	require.Equal(t, uint64(0b0011), got.Mask().Uint64())
}

func TestGetIgnoresNonCoveringNodes(t *testing.T) {
	store := precision.New()
	store.Insert(1, bv.NewMark(bv.New(4, 0b0001), 1))
	store.Insert(2, bv.NewMark(bv.New(4, 0b0010), 1)) // node 2 does NOT cover node 1
	states := map[statespace.NodeId]coarseState{
		1: {rank: 0},
		2: {rank: 5},
	}
	lookup := func(id statespace.NodeId) precision.Coverer { return states[id] }
	got := store.Get(1, bv.UnmarkedOf(4), lookup)
	require.Equal(t, uint64(0b0001), got.Mask().Uint64())
}

func TestDecayRoundTrip(t *testing.T) {
	store := precision.New()
	_, ok := store.Decay(1)
	require.False(t, ok)

	m := bv.NewMark(bv.New(4, 0b1100), 2)
	store.InsertDecay(1, m)
	got, ok := store.Decay(1)
	require.True(t, ok)
	require.Equal(t, uint64(0b1100), got.Mask().Uint64())
}

func TestForgetDropsUnkeptNodes(t *testing.T) {
	store := precision.New()
	store.Insert(1, bv.NewMark(bv.New(4, 1), 1))
	store.Insert(2, bv.NewMark(bv.New(4, 1), 1))
	store.InsertDecay(1, bv.NewMark(bv.New(4, 1), 1))

	store.Forget(map[statespace.NodeId]bool{1: true})

	require.ElementsMatch(t, []statespace.NodeId{1}, store.UsedNodes())
	_, ok := store.Decay(2)
	require.False(t, ok)
}

func TestForgetKeepsTheStartMark(t *testing.T) {
	store := precision.New()
	store.Insert(statespace.START, bv.NewMark(bv.New(4, 1), 1))
	store.Insert(2, bv.NewMark(bv.New(4, 1), 1))

	store.Forget(map[statespace.NodeId]bool{})

	_, ok := store.InputMark(statespace.START)
	require.True(t, ok)
	_, ok = store.InputMark(2)
	require.False(t, ok)
}

func TestGetSkipsNodesWithoutAState(t *testing.T) {
	store := precision.New()
	store.Insert(statespace.START, bv.NewMark(bv.New(4, 0b1000), 1))
	store.Insert(2, bv.NewMark(bv.New(4, 0b0001), 1))
	lookup := func(id statespace.NodeId) precision.Coverer {
		if id == statespace.START {
			return nil
		}
		return coarseState{rank: 0}
	}

	got := store.Get(2, bv.UnmarkedOf(4), lookup)
	require.Equal(t, uint64(0b0001), got.Mask().Uint64())
}
