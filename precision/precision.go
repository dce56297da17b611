// Package precision implements the precision store: two parallel maps
// keyed by statespace.NodeId, one holding input-precision refinement
// marks and one holding per-step state-decay marks, with the monotonicity
// guarantee that a node's effective precision is never coarser than that
// of any stored node whose abstract state it covers.
package precision

import (
	"github.com/onderjan/machine-check-sub004/bv"
	"github.com/onderjan/machine-check-sub004/statespace"
)

// Coverer is implemented by the abstract state type so the precision
// store can find every OTHER stored node whose state covers a given
// node's state, keeping precision monotone across covering states.
type Coverer interface {
	// Covers reports whether every concrete state other represents is
	// also represented by this value (i.e. this value is "coarser than or
	// equal to" other).
	Covers(other any) bool
}

// Store holds input-precision and state-decay marks per node.
type Store struct {
	input map[statespace.NodeId]bv.Mark
	decay map[statespace.NodeId]bv.Mark
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		input: make(map[statespace.NodeId]bv.Mark),
		decay: make(map[statespace.NodeId]bv.Mark),
	}
}

// stateLookup resolves a NodeId to the value used for coverage checks.
// Supplying it as a function (rather than baking a generic state type
// into Store) keeps the store itself state-type-agnostic, since it is
// shared between the forward engine and the refinement engine which see
// different concrete instantiations of the system's State type in tests.
// A lookup may return nil for a node that carries no state (START, or a
// node pruned since its mark was stored); such nodes are skipped by the
// covers-join.
type stateLookup func(statespace.NodeId) Coverer

// Get returns the effective input-precision mark at node: the stored
// mark (or def if none), joined with the mark of every OTHER stored node
// whose abstract state covers node's abstract state. This is what
// prevents unsound refinement regression: if m covers n, then
// precision(n) >= precision(m).
func (s *Store) Get(node statespace.NodeId, def bv.Mark, lookup stateLookup) bv.Mark {
	result := s.input[node]
	if !result.IsMarked() {
		result = def
	}
	nodeState := lookup(node)
	if nodeState == nil {
		return result
	}
	for other, mark := range s.input {
		if other == node || !mark.IsMarked() {
			continue
		}
		otherState := lookup(other)
		if otherState == nil {
			continue
		}
		if otherState.Covers(nodeState) {
			result = result.ApplyJoin(mark)
		}
	}
	return result
}

// InputMark returns node's stored input-precision mark without the
// covers-join, for callers holding a node that carries no abstract
// state to cover-compare (START).
func (s *Store) InputMark(node statespace.NodeId) (bv.Mark, bool) {
	m, ok := s.input[node]
	return m, ok
}

// Insert plainly stores mark as node's input-precision mark, replacing
// whatever was there. Monotonicity across covering nodes is recovered
// lazily by Get, not enforced here.
func (s *Store) Insert(node statespace.NodeId, mark bv.Mark) {
	s.input[node] = mark
}

// InsertDecay stores mark as node's per-step state-decay mark.
func (s *Store) InsertDecay(node statespace.NodeId, mark bv.Mark) {
	s.decay[node] = mark
}

// Decay returns node's state-decay mark and whether one is stored.
func (s *Store) Decay(node statespace.NodeId) (bv.Mark, bool) {
	m, ok := s.decay[node]
	return m, ok
}

// UsedNodes returns every node id that has a stored input-precision mark.
func (s *Store) UsedNodes() []statespace.NodeId {
	ids := make([]statespace.NodeId, 0, len(s.input))
	for id := range s.input {
		ids = append(ids, id)
	}
	return ids
}

// Forget drops every stored mark for node ids not in keep, except
// START's marks, which are always kept, mirroring a
// statespace.Space.Retain pass so the precision store never references a
// pruned node.
func (s *Store) Forget(keep map[statespace.NodeId]bool) {
	for id := range s.input {
		if id != statespace.START && !keep[id] {
			delete(s.input, id)
		}
	}
	for id := range s.decay {
		if id != statespace.START && !keep[id] {
			delete(s.decay, id)
		}
	}
}
