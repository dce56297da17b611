package checker

import "github.com/onderjan/machine-check-sub004/statespace"

// Focus tracks which nodes the next labeling pass must reconsider: the
// forward engine's newly grown nodes (ExtendDirty), or, when a
// precision change rewired some node's transitions and any cached label
// may be stale (MakeWholeDirty), the whole reachable set. Recompute
// consumes the dirty set — together with its forward cone, see
// AffectedSet — to decide which labels it may reuse from the previous
// sweep and which it must recompute.
type Focus struct {
	whole bool
	dirty map[statespace.NodeId]bool
}

// NewFocus returns a Focus with nothing dirty.
func NewFocus() *Focus {
	return &Focus{dirty: make(map[statespace.NodeId]bool)}
}

// ExtendDirty marks the given nodes dirty, without affecting any
// existing MakeWholeDirty state.
func (f *Focus) ExtendDirty(nodes []statespace.NodeId) {
	for _, n := range nodes {
		f.dirty[n] = true
	}
}

// MakeWholeDirty marks every node dirty, collapsing any finer-grained
// dirty set previously recorded.
func (f *Focus) MakeWholeDirty() {
	f.whole = true
	f.dirty = make(map[statespace.NodeId]bool)
}

// IsWhole reports whether the entire state space is considered dirty.
func (f *Focus) IsWhole() bool { return f.whole }

// DirtyNodes returns the nodes explicitly marked dirty. Meaningless
// (and empty) once IsWhole is true.
func (f *Focus) DirtyNodes() []statespace.NodeId {
	out := make([]statespace.NodeId, 0, len(f.dirty))
	for n := range f.dirty {
		out = append(out, n)
	}
	return out
}

// AffectedSet returns the dirty nodes together with their forward cone
// to the given depth — every node whose leaf labels the next sweep must
// recompute rather than reuse, depth being the checked formula's
// maximum transition depth.
func (f *Focus) AffectedSet(succ func(statespace.NodeId) []statespace.NodeId, depth int) map[statespace.NodeId]bool {
	affected := make(map[statespace.NodeId]bool, len(f.dirty))
	frontier := f.DirtyNodes()
	for _, n := range frontier {
		affected[n] = true
	}
	for d := 0; d < depth; d++ {
		var next []statespace.NodeId
		for _, n := range frontier {
			for _, s := range succ(n) {
				if !affected[s] {
					affected[s] = true
					next = append(next, s)
				}
			}
		}
		frontier = next
	}
	return affected
}

// Reset clears all dirty bookkeeping, as done after a Recompute pass
// has accounted for everything currently marked dirty.
func (f *Focus) Reset() {
	f.whole = false
	f.dirty = make(map[statespace.NodeId]bool)
}
