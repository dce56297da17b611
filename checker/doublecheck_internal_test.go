package checker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onderjan/machine-check-sub004/bv"
	"github.com/onderjan/machine-check-sub004/statespace"
)

func tcv(truth bv.Truth) TimedCheckValue {
	return TimedCheckValue{Value: CheckValue{Truth: truth}}
}

func TestValuationsAgreeOnIdenticalTables(t *testing.T) {
	a := Labels{0: {statespace.NodeId(1): tcv(bv.True3), statespace.NodeId(2): tcv(bv.Unknown3)}}
	b := Labels{0: {statespace.NodeId(1): tcv(bv.True3), statespace.NodeId(2): tcv(bv.Unknown3)}}
	require.True(t, valuationsAgree(a, b))
}

func TestValuationsAgreeIgnoresTimeAndWitnessDifferences(t *testing.T) {
	a := Labels{0: {statespace.NodeId(1): {Time: 3, Value: CheckValue{Truth: bv.True3, Witnesses: []statespace.NodeId{2}}}}}
	b := Labels{0: {statespace.NodeId(1): {Time: 7, Value: CheckValue{Truth: bv.True3}}}}
	require.True(t, valuationsAgree(a, b))
}

func TestValuationsAgreeRejectsDifferingTruth(t *testing.T) {
	a := Labels{0: {statespace.NodeId(1): tcv(bv.True3)}}
	b := Labels{0: {statespace.NodeId(1): tcv(bv.False3)}}
	require.False(t, valuationsAgree(a, b))
}

func TestValuationsAgreeRejectsDifferingDomain(t *testing.T) {
	a := Labels{0: {statespace.NodeId(1): tcv(bv.True3)}}
	b := Labels{0: {statespace.NodeId(1): tcv(bv.True3), statespace.NodeId(2): tcv(bv.True3)}}
	require.False(t, valuationsAgree(a, b))
	require.False(t, valuationsAgree(b, a))
}

func TestDoubleCheckToggleIsReadOnceAndStable(t *testing.T) {
	first := doubleCheckOn()
	for i := 0; i < 3; i++ {
		require.Equal(t, first, doubleCheckOn())
	}
}
