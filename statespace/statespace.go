// Package statespace implements the state space: a directed graph with
// a distinguished START node and typed state nodes, deduplicated by
// meta-equality, supporting predecessor/successor iteration, breadth-first
// search, and pruning of unreachable nodes.
//
// Node ids are dense integers so per-node maps stay cheap. The graph is
// not safe for concurrent use: the core is single-threaded by design,
// so there is no mutex here.
package statespace

import "fmt"

// NodeId identifies a node in the state space. The zero value is never a
// valid state-node id; see START for the distinguished start node.
type NodeId uint64

// START is the distinguished start node. It never carries a state value;
// its outgoing edges point at the system's initial states.
const START NodeId = 0

// firstStateID is the first id handed out to an actual state node.
const firstStateID NodeId = 1

// Space is an append-only directed graph of state nodes rooted at START.
// Node ids are dense, monotonically increasing, and never reused, even
// after Retain drops unreachable nodes — this keeps NodeId valid as a map
// key across pruning rounds for callers (precision, checker) who cache by
// id and must not silently alias a pruned id to a new node.
type Space[State MetaEqual] struct {
	nextID       NodeId
	states       map[NodeId]State
	dedup        map[metaKey]NodeId
	successors   map[NodeId][]NodeId
	predecessors map[NodeId][]NodeId
	order        []NodeId // state node ids in insertion order, excluding START
}

// metaKey is the dedup key derived from a state's meta-equality
// representation (see MetaEqual). It is a distinct type (not the bare
// string/State) precisely so structural (==) comparison of State values
// can never accidentally substitute for the meta-equality the dedup map
// requires.
type metaKey string

// MetaEqual values expose a canonical string encoding used for dedup,
// ignoring provenance fields that meta-equality treats as insignificant
// (e.g. a known-zero panic's irrelevant payload).
type MetaEqual interface {
	MetaEqualKey() string
}

// New returns an empty Space with only the START node.
func New[State MetaEqual]() *Space[State] {
	return &Space[State]{
		nextID:       firstStateID,
		states:       make(map[NodeId]State),
		dedup:        make(map[metaKey]NodeId),
		successors:   make(map[NodeId][]NodeId),
		predecessors: make(map[NodeId][]NodeId),
	}
}

// InsertState deduplicates state via its meta-equality key: if an
// equal-under-meta-equality state already exists, its id is returned
// unchanged (inserted=false); otherwise a fresh node is appended.
func (s *Space[State]) InsertState(state State) (id NodeId, inserted bool) {
	key := metaKey(state.MetaEqualKey())
	if existing, ok := s.dedup[key]; ok {
		return existing, false
	}
	id = s.nextID
	s.nextID++
	s.states[id] = state
	s.dedup[key] = id
	s.order = append(s.order, id)
	return id, true
}

// State returns the state stored at id. Calling with START panics: START
// never carries a state.
func (s *Space[State]) State(id NodeId) State {
	if id == START {
		panic("statespace: START has no state")
	}
	v, ok := s.states[id]
	if !ok {
		panic(fmt.Sprintf("statespace: unknown node %d", id))
	}
	return v
}

// Has reports whether id names an existing state node (not START).
func (s *Space[State]) Has(id NodeId) bool {
	_, ok := s.states[id]
	return ok
}

// AddEdge records an edge from -> to. Idempotent: adding the same edge
// twice has no further effect.
func (s *Space[State]) AddEdge(from, to NodeId) {
	for _, existing := range s.successors[from] {
		if existing == to {
			return
		}
	}
	s.successors[from] = append(s.successors[from], to)
	s.predecessors[to] = append(s.predecessors[to], from)
}

// ResetEdges removes every outgoing edge of from, so a re-expansion of
// from under tighter precision records a fresh successor set instead of
// accumulating stale edges from the coarser enumeration. Incoming edges
// of from are untouched.
func (s *Space[State]) ResetEdges(from NodeId) {
	for _, to := range s.successors[from] {
		preds := s.predecessors[to]
		filtered := preds[:0]
		for _, p := range preds {
			if p != from {
				filtered = append(filtered, p)
			}
		}
		s.predecessors[to] = filtered
	}
	delete(s.successors, from)
}

// DirectSuccessors returns id's successor node ids, in the order their
// edges were added.
func (s *Space[State]) DirectSuccessors(id NodeId) []NodeId {
	return append([]NodeId(nil), s.successors[id]...)
}

// DirectPredecessors returns id's predecessor node ids, in the order
// their edges were added.
func (s *Space[State]) DirectPredecessors(id NodeId) []NodeId {
	return append([]NodeId(nil), s.predecessors[id]...)
}

// States returns every state-node id, in insertion order (excluding START).
func (s *Space[State]) States() []NodeId {
	return append([]NodeId(nil), s.order...)
}

// Len returns the number of state nodes (excluding START).
func (s *Space[State]) Len() int { return len(s.order) }

// VisitResult is returned by a BreadthFirstSearch visitor to continue the
// traversal or stop it early with a value.
type VisitResult struct {
	stop  bool
	value NodeId
	found bool
}

// Continue tells BreadthFirstSearch to keep exploring.
func Continue() VisitResult { return VisitResult{} }

// Break tells BreadthFirstSearch to stop and return value.
func Break(value NodeId) VisitResult { return VisitResult{stop: true, value: value, found: true} }

// BreadthFirstSearch walks the graph from START in breadth-first order,
// calling visit on each reached state node id. It returns the value of
// the first Break the visitor produces, or (0, false) if the visitor
// never breaks. Used, e.g., to locate the first inherently-panicking
// state.
func (s *Space[State]) BreadthFirstSearch(visit func(NodeId) VisitResult) (NodeId, bool) {
	visited := make(map[NodeId]bool)
	queue := append([]NodeId(nil), s.successors[START]...)
	for _, id := range queue {
		visited[id] = true
	}
	for i := 0; i < len(queue); i++ {
		id := queue[i]
		result := visit(id)
		if result.stop {
			if result.found {
				return result.value, true
			}
			return 0, false
		}
		for _, next := range s.successors[id] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return 0, false
}

// Retain drops every node (and its edges) whose id is not in keep.
// START is always retained implicitly. Ids are never reused afterward.
func (s *Space[State]) Retain(keep map[NodeId]bool) {
	newOrder := s.order[:0]
	for _, id := range s.order {
		if keep[id] {
			newOrder = append(newOrder, id)
			continue
		}
		delete(s.states, id)
		delete(s.successors, id)
		delete(s.predecessors, id)
		for key, mapped := range s.dedup {
			if mapped == id {
				delete(s.dedup, key)
			}
		}
	}
	s.order = append([]NodeId(nil), newOrder...)
	s.pruneEdgeSet(s.successors, keep)
	s.pruneEdgeSet(s.predecessors, keep)
}

func (s *Space[State]) pruneEdgeSet(set map[NodeId][]NodeId, keep map[NodeId]bool) {
	for from, tos := range set {
		if from != START && !keep[from] {
			delete(set, from)
			continue
		}
		filtered := tos[:0]
		for _, to := range tos {
			if to == START || keep[to] {
				filtered = append(filtered, to)
			}
		}
		set[from] = append([]NodeId(nil), filtered...)
	}
}

// ReachableFromStart returns the set of state-node ids reachable from
// START, for use with Retain after precision tightening removes some
// transitions.
func (s *Space[State]) ReachableFromStart() map[NodeId]bool {
	reachable := make(map[NodeId]bool)
	s.BreadthFirstSearch(func(id NodeId) VisitResult {
		reachable[id] = true
		return Continue()
	})
	return reachable
}
