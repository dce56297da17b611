package checker

import "github.com/onderjan/machine-check-sub004/statespace"

// History archives, per fixed-point subformula, the value assigned to
// each node at each fixed-point iteration. Bound variables read their
// binder's previous-iteration value through AtOrBefore; after a sweep
// stabilizes, Squash drops everything but each node's latest entry so
// memory stays bounded by the live table instead of the whole run.
type History struct {
	entries map[int]map[statespace.NodeId][]historyEntry
}

// historyEntry pairs a recorded value with the archive time it was
// recorded at. The archive time is the evaluator's global counter at
// the moment of recording; the value's own Time stamp may be older when
// the value was frozen from an earlier decision.
type historyEntry struct {
	at    uint64
	value TimedCheckValue
}

// NewHistory returns an empty History.
func NewHistory() *History {
	return &History{entries: make(map[int]map[statespace.NodeId][]historyEntry)}
}

// Record archives value for (sub, node) at archive time at. Recording
// again at the same (or an earlier) archive time overwrites the latest
// entry: values at existing times may be rewritten while an iteration
// is still in flight, but are frozen once the fixed point stabilizes.
func (h *History) Record(sub int, node statespace.NodeId, at uint64, value TimedCheckValue) {
	byNode := h.entries[sub]
	if byNode == nil {
		byNode = make(map[statespace.NodeId][]historyEntry)
		h.entries[sub] = byNode
	}
	list := byNode[node]
	if n := len(list); n > 0 && at <= list[n-1].at {
		list[n-1] = historyEntry{at: at, value: value}
	} else {
		list = append(list, historyEntry{at: at, value: value})
	}
	byNode[node] = list
}

// AtOrBefore returns the latest value recorded for (sub, node) at an
// archive time <= t, which during a fixed-point iteration is the
// previous iteration's stabilized view of the binder.
func (h *History) AtOrBefore(sub int, node statespace.NodeId, t uint64) (TimedCheckValue, bool) {
	list := h.entries[sub][node]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].at <= t {
			return list[i].value, true
		}
	}
	return TimedCheckValue{}, false
}

// Squash drops every entry for nodes not in keep (a pruned node can
// never be consulted again) and truncates each surviving node's trail
// to its single latest entry — the no-change iterations in between can
// never be read once the fixed point has stabilized.
func (h *History) Squash(keep map[statespace.NodeId]bool) {
	for sub, byNode := range h.entries {
		for node, list := range byNode {
			if !keep[node] {
				delete(byNode, node)
				continue
			}
			if len(list) > 1 {
				byNode[node] = []historyEntry{list[len(list)-1]}
			}
		}
		if len(byNode) == 0 {
			delete(h.entries, sub)
		}
	}
}
