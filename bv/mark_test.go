package bv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onderjan/machine-check-sub004/bv"
)

func TestNewMarkWithZeroMaskIsUnmarked(t *testing.T) {
	m := bv.NewMark(bv.New(8, 0), 5)
	require.False(t, m.IsMarked())
}

func TestFullyMarkedCoversEveryBit(t *testing.T) {
	m := bv.FullyMarked(4, 1)
	require.True(t, m.IsMarked())
	require.Equal(t, uint64(0xF), m.Mask().Uint64())
}

func TestLimitRestrictsToUnknownBits(t *testing.T) {
	full := bv.FullyMarked(4, 1)
	// joining 0101 and 0000 disagrees on bits 0 and 2, leaving them unknown
	v := bv.FromBV(bv.New(4, 0b0101)).ConcreteJoin(bv.New(4, 0b0000))
	limited := full.Limit(v)
	require.Equal(t, v.UnknownBits().Uint64(), limited.Mask().Uint64())
}

func TestApplyJoinUnionsMasksAndTakesMaxImportance(t *testing.T) {
	a := bv.NewMark(bv.New(8, 0b0001), 2)
	b := bv.NewMark(bv.New(8, 0b0010), 9)
	joined := a.ApplyJoin(b)
	require.Equal(t, uint64(0b0011), joined.Mask().Uint64())
	require.Equal(t, uint8(9), joined.Importance())
}

func TestApplyJoinWithUnmarkedOtherIsNoop(t *testing.T) {
	a := bv.NewMark(bv.New(8, 0b0001), 2)
	unmarked := bv.UnmarkedOf(8)
	joined := a.ApplyJoin(unmarked)
	require.Equal(t, a.Mask().Uint64(), joined.Mask().Uint64())
}

func TestApplyRefinAddsOneBitAtATime(t *testing.T) {
	m := bv.UnmarkedOf(8)
	offer := bv.FullyMarked(8, 3)

	changed := m.ApplyRefin(offer)
	require.True(t, changed)
	// highest set bit of offer's mask (0xFF) is bit 7
	require.Equal(t, uint64(1<<7), m.Mask().Uint64())

	changed = m.ApplyRefin(offer)
	require.True(t, changed)
	require.Equal(t, uint64(1<<7|1<<6), m.Mask().Uint64())
}

func TestApplyRefinConvergesWhenNoNewBitsOffered(t *testing.T) {
	m := bv.NewMark(bv.New(8, 0xFF), 1)
	offer := bv.FullyMarked(8, 1)
	changed := m.ApplyRefin(offer)
	require.False(t, changed)
	require.Equal(t, uint64(0xFF), m.Mask().Uint64())
}

func TestApplyRefinWithUnmarkedOfferMakesNoProgress(t *testing.T) {
	m := bv.UnmarkedOf(8)
	unmarked := bv.UnmarkedOf(8)
	changed := m.ApplyRefin(unmarked)
	require.False(t, changed)
	require.False(t, m.IsMarked())
}

func TestForceDecayCoarsensUnmarkedBits(t *testing.T) {
	known := bv.FromBV(bv.New(4, 0b1010))
	mark := bv.NewMark(bv.New(4, 0b0011), 1) // only bits 0,1 kept precise
	decayed := mark.ForceDecay(known)
	// bits 2,3 become unknown; bits 0,1 remain as in known (1,0)
	require.False(t, decayed.ContainsConcrete(bv.New(4, 0b0001))) // bit1=0 not bit1=1
	require.True(t, decayed.ContainsConcrete(bv.New(4, 0b1010)))
	require.True(t, decayed.ContainsConcrete(bv.New(4, 0b0010)))
}
