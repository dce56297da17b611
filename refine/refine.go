// Package refine implements the refinement engine: given a culprit path
// (the states leading to a node whose atomic truth the checker could not
// resolve), it replays each step's recorded elementary-operation trace
// backward in reverse order, using the bv package's Backward* operators,
// propagating marks across step boundaries until some step yields a
// non-empty input mark — from which one fresh bit is then added (via
// ApplyRefin) to the precision store's mark at that step's source node.
package refine

import "github.com/onderjan/machine-check-sub004/bv"

// OpKind tags one elementary operation recorded in a Trace.
type OpKind int

const (
	OpNot OpKind = iota
	OpBitwiseBinary
	OpAdd
	OpSub
	OpMul
	OpDivRem
	OpShl
	OpLshr
	OpAshr
	OpCmp
	OpUExt
	OpSExt
	OpSlice
)

// Operand identifies one input to a Step: the output of another Step in
// the same Trace (FromStep >= 0), a leaf bit range of the system's input
// vector (Slot >= 0), or a leaf bit range of the previous state's vector
// (StateSlot >= 0). Input and state slots share the combined precision
// vector's coordinate space, so one width covers both and the System's
// Decay implementation can interpret state-slot marks directly.
type Operand struct {
	Value     bv.TV
	FromStep  int
	Slot      int
	StateSlot int
}

// Leaf returns an Operand referencing an input leaf at the given bit
// offset within the combined precision vector.
func Leaf(slot int, value bv.TV) Operand {
	return Operand{Value: value, FromStep: -1, Slot: slot, StateSlot: -1}
}

// StateLeaf returns an Operand referencing a previous-state leaf at the
// given bit offset. Marks reaching a state leaf cross the step boundary:
// they become the result mark for the previous step of the culprit path.
func StateLeaf(slot int, value bv.TV) Operand {
	return Operand{Value: value, FromStep: -1, Slot: -1, StateSlot: slot}
}

// FromStep returns an Operand referencing the output of an earlier Step
// in the same Trace.
func FromStep(step int, value bv.TV) Operand {
	return Operand{Value: value, FromStep: step, Slot: -1, StateSlot: -1}
}

// Step is one elementary operation performed while computing a
// transition's resulting state, in the shape the bv package's backward
// operators expect. B, Hi, Lo and FromWidth are meaningful only for the
// op kinds that use them.
type Step struct {
	Kind      OpKind
	A, B      Operand
	Output    bv.TV
	Hi, Lo    uint
	FromWidth bv.Width
}

// Trace is a transition's recorded computation, in forward (topological)
// order: Trace[len(Trace)-1] is the step that produced the transition's
// final output. That final output must have the combined precision
// vector's width, so a state mark produced by one step can be fed
// directly into the previous step's replay.
type Trace []Step

// Transition pairs a system's computed next (or initial) state with the
// Trace of how it was derived, so the forward engine can grow the space
// while the refinement engine separately replays the same computation
// backward when a state becomes a culprit.
type Transition[State any] struct {
	State State
	Trace Trace
}

// Refine propagates outputMark backward through trace and returns two
// marks over the combined precision vector (width totalWidth): the bits
// of input leaves that influence the marked output, and the bits of
// previous-state leaves that do — the latter crossing the step boundary
// for the caller to recurse on. Slot layouts are whatever the System's
// trace recording and its Decay method agree on.
func Refine(trace Trace, outputMark bv.Mark, totalWidth bv.Width) (input, prevState bv.Mark) {
	input = bv.UnmarkedOf(totalWidth)
	prevState = bv.UnmarkedOf(totalWidth)
	if len(trace) == 0 || !outputMark.IsMarked() {
		return input, prevState
	}
	stepMarks := make(map[int]bv.Mark, len(trace))
	stepMarks[len(trace)-1] = outputMark
	for i := len(trace) - 1; i >= 0; i-- {
		m, ok := stepMarks[i]
		if !ok || !m.IsMarked() {
			continue
		}
		step := trace[i]
		aMark, bMark := dispatch(step, m)
		input, prevState = accumulate(step.A, aMark, stepMarks, input, prevState, totalWidth)
		input, prevState = accumulate(step.B, bMark, stepMarks, input, prevState, totalWidth)
	}
	return input, prevState
}

func accumulate(op Operand, mark bv.Mark, stepMarks map[int]bv.Mark, input, prevState bv.Mark, totalWidth bv.Width) (bv.Mark, bv.Mark) {
	if !mark.IsMarked() {
		return input, prevState
	}
	switch {
	case op.FromStep >= 0:
		stepMarks[op.FromStep] = stepMarks[op.FromStep].ApplyJoin(mark)
	case op.Slot >= 0:
		input = input.ApplyJoin(shiftToSlot(mark, op.Slot, totalWidth))
	case op.StateSlot >= 0:
		prevState = prevState.ApplyJoin(shiftToSlot(mark, op.StateSlot, totalWidth))
	}
	return input, prevState
}

func shiftToSlot(mark bv.Mark, slot int, totalWidth bv.Width) bv.Mark {
	return bv.NewMark(bv.New(totalWidth, mark.Mask().Uint64()<<uint(slot)), mark.Importance())
}

func dispatch(step Step, outputMark bv.Mark) (bv.Mark, bv.Mark) {
	switch step.Kind {
	case OpNot:
		return bv.BackwardNot(outputMark, step.A.Value), bv.Mark{}
	case OpBitwiseBinary:
		return bv.BackwardBitwiseBinary(outputMark, step.A.Value, step.B.Value)
	case OpAdd:
		return bv.BackwardAdd(outputMark, step.A.Value, step.B.Value)
	case OpSub:
		return bv.BackwardSub(outputMark, step.A.Value, step.B.Value)
	case OpMul:
		return bv.BackwardMul(outputMark, step.A.Value, step.B.Value)
	case OpDivRem:
		return bv.BackwardDivRem(outputMark, step.A.Value, step.B.Value)
	case OpShl:
		return bv.BackwardShl(outputMark, step.A.Value, step.B.Value)
	case OpLshr:
		return bv.BackwardLshr(outputMark, step.A.Value, step.B.Value)
	case OpAshr:
		return bv.BackwardAshr(outputMark, step.A.Value, step.B.Value)
	case OpCmp:
		return bv.BackwardCmp(outputMark, step.A.Value, step.B.Value)
	case OpUExt:
		return bv.BackwardUExt(outputMark, step.FromWidth), bv.Mark{}
	case OpSExt:
		return bv.BackwardSExt(outputMark, step.FromWidth), bv.Mark{}
	case OpSlice:
		return bv.BackwardSlice(outputMark, step.Hi, step.Lo, step.A.Value.Width()), bv.Mark{}
	default:
		panic("refine: dispatch: unhandled OpKind")
	}
}
