package bv

// TV is a three-valued bitvector: a pair of concrete bitvectors (zeros,
// ones) such that zeros|ones == all-ones for the width — every bit is
// possibly-0, possibly-1, or both (unknown), never neither.
type TV struct {
	zeros BV
	ones  BV
}

// FromZerosOnes builds a TV directly from its zeros/ones masks. Both must
// share a width and their bitwise OR must cover every bit (zeros|ones ==
// all-ones); callers constructing values from scratch should prefer
// Known/Unknown/FromBV.
func FromZerosOnes(zeros, ones BV) TV {
	requireSameWidth(zeros.width, ones.width)
	return TV{zeros: zeros, ones: ones}
}

// FromBV lifts a concrete bitvector to a fully-known three-valued one.
func FromBV(b BV) TV {
	return TV{zeros: New(b.width, ^b.value), ones: b}
}

// Unknown returns the fully-unknown three-valued bitvector of the given width.
func Unknown(w Width) TV {
	return TV{zeros: New(w, mask(w)), ones: New(w, mask(w))}
}

// Width returns the three-valued bitvector's width.
func (t TV) Width() Width { return t.zeros.width }

// Zeros returns the can-be-0 mask.
func (t TV) Zeros() BV { return t.zeros }

// Ones returns the can-be-1 mask.
func (t TV) Ones() BV { return t.ones }

// UnknownBits returns a mask with a 1 in every bit position that is
// possibly-0 AND possibly-1 (i.e. not known).
func (t TV) UnknownBits() BV { return t.zeros.And(t.ones) }

// KnownBits returns a mask with a 1 in every bit position whose value is
// determined (exactly one of zeros/ones set).
func (t TV) KnownBits() BV { return t.UnknownBits().Not() }

// ConcreteValue returns the bitvector's value and true if every bit is
// known; otherwise it returns the zero value and false.
func (t TV) ConcreteValue() (BV, bool) {
	if !t.UnknownBits().IsZero() {
		return BV{}, false
	}
	return t.ones, true
}

// Contains reports whether every concrete value represented by other is
// also represented by t: every bit other knows must agree with a bit t
// knows (or t leaves that bit unknown).
func (t TV) Contains(other TV) bool {
	requireSameWidth(t.Width(), other.Width())
	// other's zeros must be a subset of t's zeros (t allows 0 wherever other does)
	// other's ones must be a subset of t's ones (t allows 1 wherever other does)
	return other.zeros.And(t.zeros.Not()).IsZero() && other.ones.And(t.ones.Not()).IsZero()
}

// ContainsConcrete reports whether the concrete value b is one of the
// values t represents.
func (t TV) ContainsConcrete(b BV) bool {
	requireSameWidth(t.Width(), b.width)
	zeroBits := b.Not() // bits where b is 0
	oneBits := b        // bits where b is 1
	return zeroBits.And(t.zeros.Not()).IsZero() && oneBits.And(t.ones.Not()).IsZero()
}

// ConcreteJoin widens t to also cover the concrete value b (the smallest
// TV containing both t and b).
func (t TV) ConcreteJoin(b BV) TV {
	requireSameWidth(t.Width(), b.width)
	zeroBits := b.Not() // bits where b is 0: t must allow 0 there
	oneBits := b        // bits where b is 1: t must allow 1 there
	return TV{zeros: t.zeros.Or(zeroBits), ones: t.ones.Or(oneBits)}
}

// Umin returns the smallest unsigned value t can represent: every
// possibly-1-only bit is forced 1, every possibly-0 bit is forced 0,
// unknown bits take their lowest value (0).
func (t TV) Umin() BV {
	// bit must be 1 in result iff it cannot be 0 (ones-only, i.e. known 1).
	knownOne := t.zeros.Not().And(t.ones)
	return New(t.Width(), knownOne.value)
}

// Umax returns the largest unsigned value t can represent: unknown bits
// take their highest value (1).
func (t TV) Umax() BV {
	// bit is 1 in result unless it is known-0 (ones flag unset).
	return New(t.Width(), t.ones.value)
}

// Smin returns the smallest signed (two's-complement) value t can represent.
func (t TV) Smin() BV {
	w := t.Width()
	if w == 0 {
		return New(0, 0)
	}
	signBit := uint64(1) << uint(w-1)
	canBeNegative := t.ones.value&signBit != 0
	if canBeNegative {
		// most negative: sign bit 1, all other bits their lowest (0 where possible)
		low := t.Umin()
		return New(w, (low.value&^signBit)|signBit)
	}
	// sign bit forced 0: minimum is Umin restricted to non-negative
	return t.Umin()
}

// Smax returns the largest signed (two's-complement) value t can represent.
func (t TV) Smax() BV {
	w := t.Width()
	if w == 0 {
		return New(0, 0)
	}
	signBit := uint64(1) << uint(w-1)
	canBeNonNegative := t.zeros.value&signBit != 0
	if canBeNonNegative {
		high := t.Umax()
		return New(w, high.value&^signBit)
	}
	return t.Umax()
}
