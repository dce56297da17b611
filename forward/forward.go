// Package forward implements the forward engine: growing the state
// space by repeatedly applying a system's init/next abstract transition
// functions to the current frontier under each node's effective
// input-precision mark, applying per-step state-decay coarsening, and
// deduplicating by meta-equality (handled by statespace.Space itself).
package forward

import (
	"github.com/onderjan/machine-check-sub004/bv"
	"github.com/onderjan/machine-check-sub004/precision"
	"github.com/onderjan/machine-check-sub004/refine"
	"github.com/onderjan/machine-check-sub004/statespace"
)

// ModelState is what a translated system's state type must support to
// take part in forward growth: meta-equality dedup (statespace), join-
// monotonic coverage (precision), and decay (coarsening unmarked bits
// to unknown). Self-referential so Decay can return the same
// concrete State type instead of an opaque interface value.
type ModelState[Self any] interface {
	statespace.MetaEqual
	precision.Coverer
	Decay(mark bv.Mark) Self
}

// System is a translated hardware/program description's abstract
// transition relation. Init and Next receive the effective
// input-precision mark of the node being expanded (START for Init) and
// must enumerate one transition per concretization of the marked input
// bits, leaving unmarked bits unknown — so a refinement round that
// marks a fresh bit makes the very next expansion finer. Each
// transition carries the refine.Trace of how its state was computed, so
// the refinement engine can later replay that computation backward from
// a culprit without the forward engine needing to understand it.
type System[State any] interface {
	Init(precision bv.Mark) []refine.Transition[State]
	Next(state State, precision bv.Mark) []refine.Transition[State]
}

// Engine grows a Space by repeated application of a System's Init/Next
// under the precision store's current marks, decaying each newly
// produced state by its source node's stored decay mark before
// insertion, and remembering each node's incoming refine.Trace for the
// refinement engine.
type Engine[State ModelState[State]] struct {
	Space      *statespace.Space[State]
	System     System[State]
	Precision  *precision.Store
	TotalWidth bv.Width

	initDone   bool
	expanded   map[statespace.NodeId]bool
	reopened   map[statespace.NodeId]bool
	edgeTraces map[statespace.NodeId]refine.Trace
}

// New returns an Engine over the given space, system and precision
// store. totalWidth is the combined precision vector's bit width, used
// as the default (unmarked) precision for nodes with no stored mark.
// The space, precision store and system are typically shared with the
// checker/refine/driver packages operating over the same run.
func New[State ModelState[State]](space *statespace.Space[State], sys System[State], prec *precision.Store, totalWidth bv.Width) *Engine[State] {
	return &Engine[State]{
		Space:      space,
		System:     sys,
		Precision:  prec,
		TotalWidth: totalWidth,
		expanded:   make(map[statespace.NodeId]bool),
		reopened:   make(map[statespace.NodeId]bool),
		edgeTraces: make(map[statespace.NodeId]refine.Trace),
	}
}

// Trace returns the recorded computation trace for how node's state was
// derived — from Init if node is a direct START successor, otherwise
// from whichever predecessor's Next call first produced it. Returns nil
// if node is unknown or no trace was recorded for it.
func (e *Engine[State]) Trace(node statespace.NodeId) refine.Trace {
	return e.edgeTraces[node]
}

// GrowResult summarizes one Grow call, for driver stats and for
// checker.Focus. Rewired lists re-expanded nodes whose successor set
// actually changed — the driver's signal that cached labels anywhere
// may be stale and the checker must relabel from scratch.
type GrowResult struct {
	NewNodes       []statespace.NodeId
	Rewired        []statespace.NodeId
	NewTransitions int
}

// Grow expands every frontier node (the initial START successors, plus
// any node inserted but not yet expanded) by one step, inserting newly
// discovered states and their decayed values, and recurses until the
// frontier is empty — i.e. it grows the space to full closure under
// the current precision, not just one BFS layer. A node re-admitted via
// Reopen has its outgoing edges reset first, so a finer enumeration
// replaces the coarser one instead of accumulating alongside it.
func (e *Engine[State]) Grow() GrowResult {
	result := GrowResult{}
	if !e.initDone {
		e.initDone = true
		rewiring := e.reopened[statespace.START]
		var old []statespace.NodeId
		if rewiring {
			old = e.Space.DirectSuccessors(statespace.START)
			e.Space.ResetEdges(statespace.START)
		}
		for _, t := range e.System.Init(e.effectivePrecision(statespace.START)) {
			id, inserted := e.Space.InsertState(t.State)
			e.Space.AddEdge(statespace.START, id)
			if inserted {
				result.NewNodes = append(result.NewNodes, id)
				e.edgeTraces[id] = t.Trace
			}
			result.NewTransitions++
		}
		if rewiring && !sameIDSet(old, e.Space.DirectSuccessors(statespace.START)) {
			result.Rewired = append(result.Rewired, statespace.START)
		}
	}
	queue := append([]statespace.NodeId(nil), e.Space.States()...)
	for i := 0; i < len(queue); i++ {
		id := queue[i]
		if e.expanded[id] {
			continue
		}
		e.expanded[id] = true
		rewiring := e.reopened[id]
		var old []statespace.NodeId
		if rewiring {
			old = e.Space.DirectSuccessors(id)
			e.Space.ResetEdges(id)
		}
		state := e.Space.State(id)
		for _, t := range e.System.Next(state, e.effectivePrecision(id)) {
			next := t.State
			if decay, ok := e.Precision.Decay(id); ok {
				next = next.Decay(decay)
			}
			succID, inserted := e.Space.InsertState(next)
			e.Space.AddEdge(id, succID)
			result.NewTransitions++
			if inserted {
				result.NewNodes = append(result.NewNodes, succID)
				e.edgeTraces[succID] = t.Trace
				queue = append(queue, succID)
			}
		}
		if rewiring && !sameIDSet(old, e.Space.DirectSuccessors(id)) {
			result.Rewired = append(result.Rewired, id)
		}
	}
	e.reopened = make(map[statespace.NodeId]bool)
	return result
}

// Reopen marks nodes as not-yet-expanded, so the next Grow call
// recomputes their successors — used after a refinement round changes a
// node's input-precision or decay mark. Passing START re-admits the
// Init enumeration itself.
func (e *Engine[State]) Reopen(nodes []statespace.NodeId) {
	for _, n := range nodes {
		if n == statespace.START {
			e.initDone = false
		}
		delete(e.expanded, n)
		e.reopened[n] = true
	}
}

// effectivePrecision reads the input-precision mark in force at id: the
// covers-joined mark for a state node, or START's raw stored mark.
func (e *Engine[State]) effectivePrecision(id statespace.NodeId) bv.Mark {
	def := bv.UnmarkedOf(e.TotalWidth)
	if id == statespace.START {
		if m, ok := e.Precision.InputMark(id); ok {
			return m
		}
		return def
	}
	return e.Precision.Get(id, def, e.coverLookup)
}

func (e *Engine[State]) coverLookup(id statespace.NodeId) precision.Coverer {
	if id == statespace.START || !e.Space.Has(id) {
		return nil
	}
	return e.Space.State(id)
}

func sameIDSet(a, b []statespace.NodeId) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[statespace.NodeId]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}
