package checker

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/onderjan/machine-check-sub004/bv"
	"github.com/onderjan/machine-check-sub004/manip"
	"github.com/onderjan/machine-check-sub004/propprep"
	"github.com/onderjan/machine-check-sub004/statespace"
)

// Checker labels a state space against a prepared property and
// extracts conclusions for the driver. It keeps the latest label table,
// the decision-time counter and the fixed-point History across calls,
// so a Recompute after pure graph growth reuses prior work instead of
// starting over.
type Checker[State statespace.MetaEqual] struct {
	Space    *statespace.Space[State]
	Registry *manip.Registry[State]
	Property *propprep.Property
	Focus    *Focus
	History  *History

	labels Labels
	time   uint64

	// atomCache memoizes atomic-proposition truths across Recompute
	// rounds. A node's state never changes once inserted and node ids
	// are never reused (statespace invariants), so a cached truth stays
	// valid for the whole run; the LRU bound keeps memory in check on
	// long CEGAR runs where pruning retires most of the keyed nodes.
	atomCache *lru.Cache[atomCacheKey, bv.Truth]
}

type atomCacheKey struct {
	atom *propprep.Atom
	node statespace.NodeId
}

// atomCacheSize bounds the atom-truth cache: it comfortably holds every
// (atom, node) pair of a typical run while capping pathological ones.
const atomCacheSize = 1 << 16

// New returns a Checker for the given space, field registry and
// prepared property, with the whole space initially dirty.
func New[State statespace.MetaEqual](space *statespace.Space[State], registry *manip.Registry[State], property *propprep.Property) *Checker[State] {
	cache, err := lru.New[atomCacheKey, bv.Truth](atomCacheSize)
	if err != nil {
		// Only fails for a non-positive size, which atomCacheSize never is.
		panic(err)
	}
	c := &Checker[State]{
		Space:     space,
		Registry:  registry,
		Property:  property,
		Focus:     NewFocus(),
		History:   NewHistory(),
		atomCache: cache,
	}
	c.Focus.MakeWholeDirty()
	return c
}

// Recompute brings the label table up to date with the state space and
// returns it. Three regimes, driven by Focus:
//
//   - nothing dirty: the previous table is still exact — return it.
//   - some nodes dirty (graph grew, no edges rewired): incremental
//     sweep reusing previous atom labels outside the dirty nodes'
//     forward cone and warm-starting fixed points where sound.
//   - whole space dirty (first sweep, or a refinement rewired edges):
//     cold sweep from scratch.
//
// After the sweep the History is squashed to the surviving nodes.
func (c *Checker[State]) Recompute() (Labels, error) {
	if !c.Focus.IsWhole() && c.labels != nil && len(c.Focus.DirtyNodes()) == 0 {
		c.Focus.Reset()
		return c.labels, nil
	}
	nodes := c.Space.States()
	opts := EvalOptions{History: c.History, Time: c.time}
	if !c.Focus.IsWhole() && c.labels != nil {
		opts.Prev = c.labels
		opts.Focus = c.Focus.AffectedSet(c.Space.DirectSuccessors, c.rootDepth())
	}
	labels, now, err := Evaluate(c.Property.Flat, c.Property.Root, nodes, c.Space.DirectSuccessors, c.resolveAtom, opts)
	if err != nil {
		return nil, err
	}
	if doubleCheckOn() {
		full, _, err := Evaluate(c.Property.Flat, c.Property.Root, nodes, c.Space.DirectSuccessors, c.resolveAtom, EvalOptions{Time: c.time})
		if err == nil && !valuationsAgree(labels, full) {
			panic("checker: double-check: incremental and full sweeps disagree")
		}
	}
	c.time = now
	c.labels = labels
	keep := make(map[statespace.NodeId]bool, len(nodes))
	for _, n := range nodes {
		keep[n] = true
	}
	c.History.Squash(keep)
	c.Focus.Reset()
	return labels, nil
}

func (c *Checker[State]) rootDepth() int {
	return c.Property.Flat[c.Property.Root].Depth
}

func (c *Checker[State]) resolveAtom(atom *propprep.Atom, node statespace.NodeId) (bv.Truth, error) {
	key := atomCacheKey{atom: atom, node: node}
	if truth, ok := c.atomCache.Get(key); ok {
		return truth, nil
	}
	tv, err := c.Registry.Resolve(atom.Field, c.Space.State(node))
	if err != nil {
		return bv.Unknown3, err
	}
	truth, err := atomTruth(tv, atom)
	if err == nil {
		c.atomCache.Add(key, truth)
	}
	return truth, err
}

func atomTruth(value bv.TV, atom *propprep.Atom) (bv.Truth, error) {
	lit := bv.FromBV(bv.New(value.Width(), encodeLiteral(atom.Literal, value.Width())))
	var b bv.Bool
	switch atom.Cmp {
	case propprep.CmpEq:
		b = value.Eq(lit)
	case propprep.CmpNe:
		b = value.Ne(lit)
	case propprep.CmpLt:
		if atom.Signed {
			b = value.Slt(lit)
		} else {
			b = value.Ult(lit)
		}
	case propprep.CmpLe:
		if atom.Signed {
			b = value.Sle(lit)
		} else {
			b = value.Ule(lit)
		}
	case propprep.CmpGt:
		if atom.Signed {
			b = lit.Slt(value)
		} else {
			b = lit.Ult(value)
		}
	case propprep.CmpGe:
		if atom.Signed {
			b = lit.Sle(value)
		} else {
			b = lit.Ule(value)
		}
	default:
		panic("checker: atomTruth: unknown comparison")
	}
	return b.Truth(), nil
}

func encodeLiteral(v int64, w bv.Width) uint64 {
	return uint64(v) & maskFor(w)
}

func maskFor(w bv.Width) uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(w)) - 1
}

// Conclusion is the outcome of checking the property against the
// system: a definite verdict with a witness path, or Unknown with a
// culprit path for the refinement engine to act on.
type Conclusion struct {
	Verdict bv.Truth
	Witness []statespace.NodeId
	Culprit *Culprit
}

// Culprit is the path of state nodes from an initial state to the
// state whose atomic subformula (Flat[SubIndex]) is three-valued
// unknown and blocking a definite verdict.
type Culprit struct {
	Path     []statespace.NodeId
	SubIndex int
}

// Conclude inspects labels and decides the overall verdict: the model
// satisfies the property iff the root subformula holds at every direct
// successor of START (the system's initial states). A False verdict
// carries the counterexample built by following the violating state's
// witness successors; an Unknown verdict carries the culprit path ending
// at the unresolved atom.
func (c *Checker[State]) Conclude(labels Labels) Conclusion {
	root := c.Property.Root
	rootLabels := labels[root]
	initial := c.Space.DirectSuccessors(statespace.START)

	verdict := combineInitial(initial, rootLabels)
	switch verdict {
	case bv.True3:
		return Conclusion{Verdict: bv.True3}
	case bv.False3:
		violating := pickInitial(initial, rootLabels, bv.False3)
		return Conclusion{Verdict: bv.False3, Witness: c.witnessPath(labels, root, violating)}
	default:
		unknown := pickInitial(initial, rootLabels, bv.Unknown3)
		path, idx := c.culpritPath(labels, unknown)
		return Conclusion{Verdict: bv.Unknown3, Culprit: &Culprit{Path: path, SubIndex: idx}}
	}
}

// combineInitial folds the initial states' root truths with universal
// meaning: the property must hold from every initial state.
func combineInitial(initial []statespace.NodeId, rootLabels map[statespace.NodeId]TimedCheckValue) bv.Truth {
	sawUnknown := false
	for _, n := range initial {
		switch rootLabels[n].Value.Truth {
		case bv.False3:
			return bv.False3
		case bv.Unknown3:
			sawUnknown = true
		}
	}
	if sawUnknown {
		return bv.Unknown3
	}
	return bv.True3
}

func pickInitial(initial []statespace.NodeId, rootLabels map[statespace.NodeId]TimedCheckValue, want bv.Truth) statespace.NodeId {
	for _, n := range initial {
		if rootLabels[n].Value.Truth == want {
			return n
		}
	}
	panic("checker: Conclude: verdict has no matching initial state")
}

// witnessPath follows the root label's witness successors from start,
// producing the demonstration the verdict rests on. The walk stops at a
// state whose decision needed no successor (an atomic violation) or
// when it closes a cycle — a lasso witness, which the NodeId-indexed
// representation handles without ownership loops.
func (c *Checker[State]) witnessPath(labels Labels, root int, start statespace.NodeId) []statespace.NodeId {
	path := []statespace.NodeId{start}
	seen := map[statespace.NodeId]bool{start: true}
	cur := start
	for {
		w := labels[root][cur].Value.Witnesses
		if len(w) == 0 {
			return path
		}
		next := w[0]
		path = append(path, next)
		if seen[next] {
			return path
		}
		seen[next] = true
		cur = next
	}
}

// culpritPath follows witness successors from an Unknown initial state
// to the first state where some atomic subformula is itself Unknown —
// the culprit the refinement engine replays backward. If the witness
// chain stalls before reaching such a state (it decided through a
// subformula whose unknown lies off-chain), a breadth-first search over
// the space finds the nearest state with an unknown atom instead.
func (c *Checker[State]) culpritPath(labels Labels, start statespace.NodeId) ([]statespace.NodeId, int) {
	path := []statespace.NodeId{start}
	seen := map[statespace.NodeId]bool{start: true}
	cur := start
	for {
		if idx, ok := c.unknownAtomAt(labels, cur); ok {
			return path, idx
		}
		w := labels[c.Property.Root][cur].Value.Witnesses
		if len(w) == 0 || seen[w[0]] {
			break
		}
		cur = w[0]
		path = append(path, cur)
		seen[cur] = true
	}
	if path, idx, ok := c.searchUnknownAtom(labels); ok {
		return path, idx
	}
	return path, c.Property.Root
}

func (c *Checker[State]) unknownAtomAt(labels Labels, node statespace.NodeId) (int, bool) {
	for idx, sp := range c.Property.Flat {
		if sp.Kind != propprep.KindAtom {
			continue
		}
		if labels[idx][node].Value.Truth == bv.Unknown3 {
			return idx, true
		}
	}
	return 0, false
}

// searchUnknownAtom finds the BFS-nearest state with an Unknown atomic
// label and reconstructs the path to it from an initial state.
func (c *Checker[State]) searchUnknownAtom(labels Labels) ([]statespace.NodeId, int, bool) {
	parent := map[statespace.NodeId]statespace.NodeId{}
	visited := map[statespace.NodeId]bool{}
	queue := c.Space.DirectSuccessors(statespace.START)
	for _, n := range queue {
		visited[n] = true
	}
	for i := 0; i < len(queue); i++ {
		id := queue[i]
		if idx, ok := c.unknownAtomAt(labels, id); ok {
			var path []statespace.NodeId
			for cur := id; ; {
				path = append([]statespace.NodeId{cur}, path...)
				prev, ok := parent[cur]
				if !ok {
					break
				}
				cur = prev
			}
			return path, idx, true
		}
		for _, next := range c.Space.DirectSuccessors(id) {
			if !visited[next] {
				visited[next] = true
				parent[next] = id
				queue = append(queue, next)
			}
		}
	}
	return nil, 0, false
}
