package driver_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onderjan/machine-check-sub004/bv"
	"github.com/onderjan/machine-check-sub004/driver"
	"github.com/onderjan/machine-check-sub004/manip"
	"github.com/onderjan/machine-check-sub004/refine"
	"github.com/onderjan/machine-check-sub004/statespace"
)

// End-to-end verification runs over small concrete systems, one per
// behavior family: a wrapping counter, conditional and division panics,
// an alternator, a parametric clamp, and a fixed Kripke structure whose
// branching-time properties need nested fixed points.

// tickState is a counter value. All scenario states here are concrete,
// so coverage is plain equality and decay is the identity.
type tickState struct{ value uint64 }

func (s tickState) MetaEqualKey() string { return strconv.FormatUint(s.value, 10) }

func (s tickState) Covers(other any) bool {
	o, ok := other.(tickState)
	return ok && o.value == s.value
}

func (s tickState) Decay(bv.Mark) tickState { return s }

// boundedCounter counts up by a one-bit input increment; when the sum
// reaches the wrap bound it resets to zero, so the bound value itself
// never occurs as a state.
type boundedCounter struct{ wrapAt uint64 }

func (c boundedCounter) Init(bv.Mark) []refine.Transition[tickState] {
	return []refine.Transition[tickState]{{State: tickState{value: 0}}}
}

func (c boundedCounter) Next(s tickState, _ bv.Mark) []refine.Transition[tickState] {
	out := make([]refine.Transition[tickState], 0, 2)
	for inc := uint64(0); inc <= 1; inc++ {
		sum := s.value + inc
		if sum >= c.wrapAt {
			sum = 0
		}
		out = append(out, refine.Transition[tickState]{State: tickState{value: sum}})
	}
	return out
}

func counterRegistry() *manip.Registry[tickState] {
	r := manip.NewRegistry[tickState]()
	r.Register("value", func(s tickState) bv.TV { return bv.FromBV(bv.New(8, s.value)) })
	r.Register("safe", func(s tickState) bv.TV { return bv.KnownBool(s.value < 156).TV() })
	return r
}

func TestVerifyCounterStaysBelowWrapBound(t *testing.T) {
	space := statespace.New[tickState]()
	sys := boundedCounter{wrapAt: 156}

	result, err := driver.Verify[tickState](context.Background(), space, sys, counterRegistry(), "AG![safe == 1]", 8)
	require.NoError(t, err)
	require.Equal(t, bv.True3, result.Verdict)
	require.Equal(t, 0, result.Stats.NumRefinements)
}

func TestVerifyCounterWrapValueUnreachable(t *testing.T) {
	space := statespace.New[tickState]()
	sys := boundedCounter{wrapAt: 156}

	result, err := driver.Verify[tickState](context.Background(), space, sys, counterRegistry(), "EF![value == 156]", 8)
	require.NoError(t, err)
	require.Equal(t, bv.False3, result.Verdict)
}

func TestVerifyCounterReachesHighValues(t *testing.T) {
	space := statespace.New[tickState]()
	sys := boundedCounter{wrapAt: 156}

	result, err := driver.Verify[tickState](context.Background(), space, sys, counterRegistry(), "EF![as_unsigned(value) > 150]", 8)
	require.NoError(t, err)
	require.Equal(t, bv.True3, result.Verdict)
}

// panicFlagState models a system whose only interesting content is
// whether a panic site fired.
type panicFlagState struct {
	panicked bool
	msg      string
}

func (s panicFlagState) MetaEqualKey() string {
	if !s.panicked {
		return "ok"
	}
	return "panic:" + s.msg
}

func (s panicFlagState) Covers(other any) bool {
	o, ok := other.(panicFlagState)
	return ok && o == s
}

func (s panicFlagState) Decay(bv.Mark) panicFlagState { return s }

func (s panicFlagState) PanicMessage() (string, bool) { return s.msg, s.panicked }

// condPanicSystem panics with a fixed message exactly when a one-bit
// input is set, and otherwise keeps running.
type condPanicSystem struct{}

func (condPanicSystem) Init(bv.Mark) []refine.Transition[panicFlagState] {
	return []refine.Transition[panicFlagState]{{State: panicFlagState{}}}
}

func (condPanicSystem) Next(s panicFlagState, _ bv.Mark) []refine.Transition[panicFlagState] {
	if s.panicked {
		return []refine.Transition[panicFlagState]{{State: s}}
	}
	return []refine.Transition[panicFlagState]{
		{State: panicFlagState{}},
		{State: panicFlagState{panicked: true, msg: "P2"}},
	}
}

func TestVerifyInherentPanicOnConditionalPanicInput(t *testing.T) {
	space := statespace.New[panicFlagState]()
	registry := manip.NewRegistry[panicFlagState]()

	result, err := driver.Verify[panicFlagState](context.Background(), space, condPanicSystem{}, registry, "", 1)
	require.Error(t, err)

	var inherent *driver.InherentPanicError
	require.ErrorAs(t, err, &inherent)
	require.Equal(t, "P2", inherent.Message)
	require.Len(t, inherent.Witness, 2)
	require.Equal(t, bv.False3, result.Verdict)
	require.Equal(t, "P2", result.Stats.InherentPanicMessage)
}

// divState is the result of one input-driven division step.
type divState struct {
	quotient uint64
	panicked bool
}

func (s divState) MetaEqualKey() string {
	if s.panicked {
		return "panic"
	}
	return "q" + strconv.FormatUint(s.quotient, 10)
}

func (s divState) Covers(other any) bool {
	o, ok := other.(divState)
	return ok && o == s
}

func (s divState) Decay(bv.Mark) divState { return s }

func (s divState) PanicMessage() (string, bool) { return "div by zero", s.panicked }

// divSystem divides an input dividend by an input divisor each step,
// reaching a panicking state when the divisor is zero.
type divSystem struct{}

func (divSystem) Init(bv.Mark) []refine.Transition[divState] {
	return []refine.Transition[divState]{{State: divState{}}}
}

func (divSystem) Next(s divState, _ bv.Mark) []refine.Transition[divState] {
	if s.panicked {
		return []refine.Transition[divState]{{State: s}}
	}
	var out []refine.Transition[divState]
	for dividend := uint64(1); dividend <= 2; dividend++ {
		for divisor := uint64(0); divisor <= 1; divisor++ {
			q, kind := bv.FromBV(bv.New(8, dividend)).UDiv(bv.FromBV(bv.New(8, divisor)))
			if kind == bv.MustPanic {
				out = append(out, refine.Transition[divState]{State: divState{panicked: true}})
				continue
			}
			concrete, _ := q.ConcreteValue()
			out = append(out, refine.Transition[divState]{State: divState{quotient: concrete.Uint64()}})
		}
	}
	return out
}

func TestVerifyInherentPanicOnDivisionByZero(t *testing.T) {
	space := statespace.New[divState]()
	registry := manip.NewRegistry[divState]()

	result, err := driver.Verify[divState](context.Background(), space, divSystem{}, registry, "", 8)
	require.Error(t, err)

	var inherent *driver.InherentPanicError
	require.ErrorAs(t, err, &inherent)
	require.Equal(t, "div by zero", inherent.Message)
	require.Equal(t, bv.False3, result.Verdict)
}

// maybePanicState carries an abstract panic code that is never resolved
// by refinement: it stays possibly-nonzero no matter how many input bits
// are marked.
type maybePanicState struct{ code bv.TV }

func (s maybePanicState) MetaEqualKey() string {
	return fmt.Sprintf("%d/%d", s.code.Zeros().Uint64(), s.code.Ones().Uint64())
}

func (s maybePanicState) Covers(other any) bool {
	o, ok := other.(maybePanicState)
	return ok && s.code.Contains(o.code)
}

func (s maybePanicState) Decay(mark bv.Mark) maybePanicState {
	return maybePanicState{code: mark.ForceDecay(s.code)}
}

func (s maybePanicState) PanicPossible() bool {
	v, ok := s.code.ConcreteValue()
	return !ok || !v.IsZero()
}

type maybePanicSystem struct{ width bv.Width }

func (p maybePanicSystem) transition() refine.Transition[maybePanicState] {
	raw := bv.Unknown(p.width)
	mid := raw.Not()
	final := mid.Not()
	return refine.Transition[maybePanicState]{
		State: maybePanicState{code: final},
		Trace: refine.Trace{
			{Kind: refine.OpNot, A: refine.Leaf(0, raw), Output: mid},
			{Kind: refine.OpNot, A: refine.FromStep(0, mid), Output: final},
		},
	}
}

func (p maybePanicSystem) Init(bv.Mark) []refine.Transition[maybePanicState] {
	return []refine.Transition[maybePanicState]{p.transition()}
}

func (p maybePanicSystem) Next(_ maybePanicState, _ bv.Mark) []refine.Transition[maybePanicState] {
	return []refine.Transition[maybePanicState]{p.transition()}
}

func TestVerifyInherentUnknownWhenPanicStaysUnresolved(t *testing.T) {
	space := statespace.New[maybePanicState]()
	registry := manip.NewRegistry[maybePanicState]()
	sys := maybePanicSystem{width: 4}

	result, err := driver.Verify[maybePanicState](context.Background(), space, sys, registry, "", 4)
	require.NoError(t, err)
	require.Equal(t, bv.Unknown3, result.Verdict)
	require.Greater(t, result.Stats.NumRefinements, 0)
}

func TestVerifyInherentHoldsWhenNoPanicReachable(t *testing.T) {
	space := statespace.New[tickState]()
	sys := boundedCounter{wrapAt: 8}

	result, err := driver.Verify[tickState](context.Background(), space, sys, counterRegistry(), "", 8)
	require.NoError(t, err)
	require.Equal(t, bv.True3, result.Verdict)
	require.Equal(t, 0, result.Stats.NumRefinements)
}

// alternatorState toggles between even and odd positions; its value is
// input-driven at odd positions and forced to zero at even ones.
type alternatorState struct {
	odd   uint64
	value uint64
}

func (s alternatorState) MetaEqualKey() string {
	return fmt.Sprintf("%d/%d", s.odd, s.value)
}

func (s alternatorState) Covers(other any) bool {
	o, ok := other.(alternatorState)
	return ok && o == s
}

func (s alternatorState) Decay(bv.Mark) alternatorState { return s }

type alternatorSystem struct{}

func (alternatorSystem) Init(bv.Mark) []refine.Transition[alternatorState] {
	return []refine.Transition[alternatorState]{{State: alternatorState{}}}
}

func (alternatorSystem) Next(s alternatorState, _ bv.Mark) []refine.Transition[alternatorState] {
	if s.odd == 1 {
		return []refine.Transition[alternatorState]{{State: alternatorState{odd: 0, value: 0}}}
	}
	return []refine.Transition[alternatorState]{
		{State: alternatorState{odd: 1, value: 0}},
		{State: alternatorState{odd: 1, value: 1}},
	}
}

func alternatorRegistry() *manip.Registry[alternatorState] {
	r := manip.NewRegistry[alternatorState]()
	r.Register("value", func(s alternatorState) bv.TV { return bv.FromBV(bv.New(1, s.value)) })
	return r
}

func TestVerifyAlternatorZeroAtEveryEvenStep(t *testing.T) {
	space := statespace.New[alternatorState]()

	result, err := driver.Verify[alternatorState](context.Background(), space, alternatorSystem{}, alternatorRegistry(),
		"gfp![X, value == 0 && AX![AX![X]]]", 1)
	require.NoError(t, err)
	require.Equal(t, bv.True3, result.Verdict)
}

func TestVerifyAlternatorNotAlwaysZero(t *testing.T) {
	space := statespace.New[alternatorState]()

	result, err := driver.Verify[alternatorState](context.Background(), space, alternatorSystem{}, alternatorRegistry(),
		"AG![value == 0]", 1)
	require.NoError(t, err)
	require.Equal(t, bv.False3, result.Verdict)
	require.NotEmpty(t, result.Witness)
}

// clampState carries a running value and the maximum it is clamped to,
// the latter loaded once at init from a parameter.
type clampState struct {
	value uint64
	max   uint64
}

func (s clampState) MetaEqualKey() string {
	return fmt.Sprintf("%d/%d", s.value, s.max)
}

func (s clampState) Covers(other any) bool {
	o, ok := other.(clampState)
	return ok && o == s
}

func (s clampState) Decay(bv.Mark) clampState { return s }

// clampSystem sets value to min(input, max) each step.
type clampSystem struct{ max uint64 }

func (c clampSystem) Init(bv.Mark) []refine.Transition[clampState] {
	return []refine.Transition[clampState]{{State: clampState{value: 0, max: c.max}}}
}

func (c clampSystem) Next(s clampState, _ bv.Mark) []refine.Transition[clampState] {
	out := make([]refine.Transition[clampState], 0, 16)
	for input := uint64(0); input < 16; input++ {
		v := input
		if v > s.max {
			v = s.max
		}
		out = append(out, refine.Transition[clampState]{State: clampState{value: v, max: s.max}})
	}
	return out
}

func clampRegistry() *manip.Registry[clampState] {
	r := manip.NewRegistry[clampState]()
	r.Register("value", func(s clampState) bv.TV { return bv.FromBV(bv.New(8, s.value)) })
	r.Register("max", func(s clampState) bv.TV { return bv.FromBV(bv.New(8, s.max)) })
	return r
}

func TestVerifyClampReachesAboveThresholdWhenMaxAllows(t *testing.T) {
	space := statespace.New[clampState]()
	sys := clampSystem{max: 9}

	result, err := driver.Verify[clampState](context.Background(), space, sys, clampRegistry(),
		"EF![as_unsigned(value) > 8]", 8)
	require.NoError(t, err)
	require.Equal(t, bv.True3, result.Verdict)
}

func TestVerifyClampNeverExceedsLowMax(t *testing.T) {
	space := statespace.New[clampState]()
	sys := clampSystem{max: 5}

	result, err := driver.Verify[clampState](context.Background(), space, sys, clampRegistry(),
		"EF![as_unsigned(value) > 8]", 8)
	require.NoError(t, err)
	require.Equal(t, bv.False3, result.Verdict)
}

// kripkeState is one node of a fixed four-state structure labeled by a
// single proposition p.
type kripkeState struct {
	id uint64
	p  uint64
}

func (s kripkeState) MetaEqualKey() string { return strconv.FormatUint(s.id, 10) }

func (s kripkeState) Covers(other any) bool {
	o, ok := other.(kripkeState)
	return ok && o.id == s.id
}

func (s kripkeState) Decay(bv.Mark) kripkeState { return s }

// diamondSystem is a four-state structure where one cycle alternates p
// with not-p and a separate branch settles into a p-only loop: no path
// is forced to stabilize on p, yet a path visiting p infinitely often
// always exists.
//
//	s0(p) -> s1(!p), s2(p)
//	s1    -> s0
//	s2    -> s3(p)
//	s3    -> s3
type diamondSystem struct{}

func kripke(id, p uint64) kripkeState { return kripkeState{id: id, p: p} }

func (diamondSystem) Init(bv.Mark) []refine.Transition[kripkeState] {
	return []refine.Transition[kripkeState]{{State: kripke(0, 1)}}
}

func (diamondSystem) Next(s kripkeState, _ bv.Mark) []refine.Transition[kripkeState] {
	switch s.id {
	case 0:
		return []refine.Transition[kripkeState]{{State: kripke(1, 0)}, {State: kripke(2, 1)}}
	case 1:
		return []refine.Transition[kripkeState]{{State: kripke(0, 1)}}
	case 2:
		return []refine.Transition[kripkeState]{{State: kripke(3, 1)}}
	default:
		return []refine.Transition[kripkeState]{{State: kripke(3, 1)}}
	}
}

func kripkeRegistry() *manip.Registry[kripkeState] {
	r := manip.NewRegistry[kripkeState]()
	r.Register("p", func(s kripkeState) bv.TV { return bv.FromBV(bv.New(1, s.p)) })
	return r
}

func TestVerifyDiamondCannotForcePToStabilize(t *testing.T) {
	space := statespace.New[kripkeState]()

	result, err := driver.Verify[kripkeState](context.Background(), space, diamondSystem{}, kripkeRegistry(),
		"AF![AG![p == 1]]", 1)
	require.NoError(t, err)
	require.Equal(t, bv.False3, result.Verdict)
	require.NotEmpty(t, result.Witness)
}

func TestVerifyDiamondHasPathWithPInfinitelyOften(t *testing.T) {
	space := statespace.New[kripkeState]()

	result, err := driver.Verify[kripkeState](context.Background(), space, diamondSystem{}, kripkeRegistry(),
		"gfp![Y, lfp![X, (p == 1 && EX![Y]) || EX![X]]]", 1)
	require.NoError(t, err)
	require.Equal(t, bv.True3, result.Verdict)
}
