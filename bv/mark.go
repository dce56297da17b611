package bv

// Mark is a refinement mark: an optional (mask, importance) pair over a
// bitvector's bits, used by the refinement engine to request which input
// bits should be made more precise. A Mark "is marked" iff its mask is
// non-zero; an unmarked Mark carries no information and importance is
// meaningless.
type Mark struct {
	mask       BV
	importance uint8
	marked     bool
}

// NewMark returns a Mark over the given mask with the given importance.
// A zero mask yields an unmarked Mark regardless of importance.
func NewMark(mask BV, importance uint8) Mark {
	if mask.IsZero() {
		return Mark{mask: New(mask.Width(), 0)}
	}
	return Mark{mask: mask, importance: importance, marked: true}
}

// UnmarkedOf returns the unmarked Mark of the given width.
func UnmarkedOf(w Width) Mark { return Mark{mask: New(w, 0)} }

// FullyMarked returns a Mark over every bit of the given width, at the
// given importance.
func FullyMarked(w Width, importance uint8) Mark {
	return NewMark(New(w, mask(w)), importance)
}

// Width returns the width the mark is defined over.
func (m Mark) Width() Width { return m.mask.Width() }

// IsMarked reports whether any bit is marked.
func (m Mark) IsMarked() bool { return m.marked }

// Mask returns the mark's bitmask (all-zero if unmarked).
func (m Mark) Mask() BV { return m.mask }

// Importance returns the mark's importance level (meaningless if unmarked).
func (m Mark) Importance() uint8 { return m.importance }

// Limit restricts the mark to bits that are still unknown in v, since
// marking a known bit for refinement would be wasted effort: refining a
// bit that is already resolved cannot shrink the abstraction further.
func (m Mark) Limit(v TV) Mark {
	if !m.marked {
		return m
	}
	restricted := m.mask.And(v.UnknownBits())
	return NewMark(restricted, m.importance)
}

// ApplyJoin ORs other's mask into m's (importance taking the maximum),
// used when combining refinement contributions from independent sources.
func (m Mark) ApplyJoin(other Mark) Mark {
	if !other.marked {
		return m
	}
	if !m.marked {
		return other
	}
	imp := m.importance
	if other.importance > imp {
		imp = other.importance
	}
	return NewMark(m.mask.Or(other.mask), imp)
}

// ApplyRefin adds exactly one fresh bit to m: the highest-position bit
// that is set in offer but not yet in m. It reports false (and leaves m
// unchanged) iff offer has no such bit, meaning the refinement attempt
// has converged and cannot make further progress. This one-bit-at-a-time
// discipline is what gives the CEGAR loop its termination bound:
// each successful refinement strictly grows the marked-bit count.
func (m *Mark) ApplyRefin(offer Mark) bool {
	if !offer.marked {
		return false
	}
	applicants := offer.mask.And(m.mask.Not())
	pos, ok := applicants.HighestSetBit()
	if !ok {
		return false
	}
	bit := New(m.Width(), uint64(1)<<pos)
	newMask := m.mask.Or(bit)
	imp := offer.importance
	if m.marked && m.importance > imp {
		imp = m.importance
	}
	*m = NewMark(newMask, imp)
	return true
}

// ForceDecay coarsens target: every bit not marked by m becomes unknown.
// Used by per-step state decay to trade precision for a smaller graph.
func (m Mark) ForceDecay(target TV) TV {
	forcedUnknown := m.mask.Not()
	return TV{zeros: target.zeros.Or(forcedUnknown), ones: target.ones.Or(forcedUnknown)}
}
