package bv

// This file implements the forward (abstract-interpretation) operators of
// the three-valued bitvector domain. Every operation here must be
// bit-exact for soundness — every concrete value contained in the inputs
// must produce a concrete value contained in the result.

// Not returns the bitwise complement: swaps zero/one flags.
func (t TV) Not() TV { return TV{zeros: t.ones, ones: t.zeros} }

// And returns the bitwise AND: a bit can be 0 iff either input bit can be
// 0; can be 1 iff both input bits can be 1.
func (a TV) And(b TV) TV {
	requireSameWidth(a.Width(), b.Width())
	return TV{
		zeros: a.zeros.Or(b.zeros),
		ones:  a.ones.And(b.ones),
	}
}

// Or returns the bitwise OR: a bit can be 1 iff either input bit can be 1;
// can be 0 iff both input bits can be 0.
func (a TV) Or(b TV) TV {
	requireSameWidth(a.Width(), b.Width())
	return TV{
		zeros: a.zeros.And(b.zeros),
		ones:  a.ones.Or(b.ones),
	}
}

// Xor returns the bitwise XOR.
func (a TV) Xor(b TV) TV {
	requireSameWidth(a.Width(), b.Width())
	// A bit of the result can be 0 if (a can be 0 and b can be 0) or
	// (a can be 1 and b can be 1); can be 1 if (a can be 0 and b can be 1)
	// or (a can be 1 and b can be 0).
	canZero := a.zeros.And(b.zeros).Or(a.ones.And(b.ones))
	canOne := a.zeros.And(b.ones).Or(a.ones.And(b.zeros))
	return TV{zeros: canZero, ones: canOne}
}

// extremeJoin computes op at each of the four combinations of
// (umin,umax) for a and (umin,umax) for b, and returns the bitwise
// three-valued join of the four concrete results — the evaluate-at-
// extremes-then-join strategy used for +, -, *.
func extremeJoin(a, b TV, op func(x, y BV) BV) TV {
	aLo, aHi := a.Umin(), a.Umax()
	bLo, bHi := b.Umin(), b.Umax()
	r00 := op(aLo, bLo)
	result := FromBV(r00)
	result = result.ConcreteJoin(op(aLo, bHi))
	result = result.ConcreteJoin(op(aHi, bLo))
	result = result.ConcreteJoin(op(aHi, bHi))
	return result
}

// Add returns the three-valued sum.
func (a TV) Add(b TV) TV {
	requireSameWidth(a.Width(), b.Width())
	return extremeJoin(a, b, BV.Add)
}

// Sub returns the three-valued difference.
func (a TV) Sub(b TV) TV {
	requireSameWidth(a.Width(), b.Width())
	return extremeJoin(a, b, BV.Sub)
}

// Mul returns the three-valued product.
func (a TV) Mul(b TV) TV {
	requireSameWidth(a.Width(), b.Width())
	return extremeJoin(a, b, BV.Mul)
}

// Neg returns the three-valued negation (0 - a).
func (a TV) Neg() TV {
	zero := FromBV(New(a.Width(), 0))
	return zero.Sub(a)
}

// DivPanic classifies how certain a division-by-zero panic is.
type DivPanic int

const (
	// NoPanic means the divisor cannot be zero.
	NoPanic DivPanic = iota
	// MayPanic means the divisor might be zero but is not known to be.
	MayPanic
	// MustPanic means the divisor is known to be zero.
	MustPanic
)

func classifyDivisor(divisor TV) DivPanic {
	zero := New(divisor.Width(), 0)
	if v, ok := divisor.ConcreteValue(); ok {
		if v.IsZero() {
			return MustPanic
		}
		return NoPanic
	}
	if divisor.ContainsConcrete(zero) {
		return MayPanic
	}
	return NoPanic
}

// nonZeroValue maps a zero divisor concretization to one and leaves any
// other value unchanged, so joins over a divisor that is merely possibly
// zero stay defined; the result is only meaningful on the non-zero branch.
func nonZeroValue(v BV) BV {
	if v.IsZero() {
		return New(v.Width(), 1)
	}
	return v
}

// UDiv returns the three-valued unsigned quotient and the divisor's
// div-by-zero classification. When classification is MustPanic the
// returned quotient is meaningless and should not be consulted.
func (a TV) UDiv(b TV) (TV, DivPanic) {
	requireSameWidth(a.Width(), b.Width())
	panicKind := classifyDivisor(b)
	if panicKind == MustPanic {
		return Unknown(a.Width()), panicKind
	}
	guarded := func(x, y BV) BV { return x.UDiv(nonZeroValue(y)) }
	return extremeJoin(a, b, guarded), panicKind
}

// URem returns the three-valued unsigned remainder and div-by-zero class.
func (a TV) URem(b TV) (TV, DivPanic) {
	requireSameWidth(a.Width(), b.Width())
	panicKind := classifyDivisor(b)
	if panicKind == MustPanic {
		return Unknown(a.Width()), panicKind
	}
	guarded := func(x, y BV) BV { return x.URem(nonZeroValue(y)) }
	return extremeJoin(a, b, guarded), panicKind
}

// SDiv returns the three-valued signed quotient and div-by-zero class.
func (a TV) SDiv(b TV) (TV, DivPanic) {
	requireSameWidth(a.Width(), b.Width())
	panicKind := classifyDivisor(b)
	if panicKind == MustPanic {
		return Unknown(a.Width()), panicKind
	}
	guarded := func(x, y BV) BV { return x.SDiv(nonZeroValue(y)) }
	return signedExtremeJoin(a, b, guarded), panicKind
}

// SRem returns the three-valued signed remainder and div-by-zero class.
func (a TV) SRem(b TV) (TV, DivPanic) {
	requireSameWidth(a.Width(), b.Width())
	panicKind := classifyDivisor(b)
	if panicKind == MustPanic {
		return Unknown(a.Width()), panicKind
	}
	guarded := func(x, y BV) BV { return x.SRem(nonZeroValue(y)) }
	return signedExtremeJoin(a, b, guarded), panicKind
}

// signedExtremeJoin is extremeJoin using signed (Smin/Smax) extremes,
// needed for sdiv/srem whose monotonicity is with respect to signed order.
func signedExtremeJoin(a, b TV, op func(x, y BV) BV) TV {
	aLo, aHi := a.Smin(), a.Smax()
	bLo, bHi := b.Smin(), b.Smax()
	result := FromBV(op(aLo, bLo))
	result = result.ConcreteJoin(op(aLo, bHi))
	result = result.ConcreteJoin(op(aHi, bLo))
	result = result.ConcreteJoin(op(aHi, bHi))
	return result
}

// Shl returns value shifted left by the three-valued amount (zero-filled,
// wrapping modulo 2^width).
func (value TV) Shl(amount TV) TV {
	w := value.Width()
	return shiftJoinFull(value, amount, false, func(v BV, amt uint) BV { return v.Shl(amt) },
		func() BV { return New(w, 0) })
}

// Lshr returns value shifted right logically by the three-valued amount.
func (value TV) Lshr(amount TV) TV {
	w := value.Width()
	return shiftJoinFull(value, amount, false, func(v BV, amt uint) BV { return v.Lshr(amt) },
		func() BV { return New(w, 0) })
}

// Ashr returns value shifted right arithmetically by the three-valued
// amount; when the amount can exceed the width, the overflow fill
// sign-extends using the value's extreme sign possibilities (both an
// all-zero and an all-one fill are joined in, since either sign is
// possible unless the value's sign bit is known).
func (value TV) Ashr(amount TV) TV {
	w := value.Width()
	return shiftJoinFull(value, amount, true, func(v BV, amt uint) BV { return v.Ashr(amt) },
		func() BV { return value.Smax().Ashr(uint(w)) })
}

// shiftJoinFull enumerates the shift at the value's extremes (signed
// extremes for ashr, since it is monotonic in signed order; unsigned
// extremes for shl/lshr) for every concrete amount actually admitted by
// `amount` in [0,width), which is sound because all three shifts are
// monotonic in the value argument for a fixed amount.
func shiftJoinFull(value, amount TV, signedExtremes bool, op func(v BV, amt uint) BV, overflowFill func() BV) TV {
	w := uint(value.Width())
	var result TV
	first := true
	join := func(r BV) {
		if first {
			result = FromBV(r)
			first = false
		} else {
			result = result.ConcreteJoin(r)
		}
	}
	lo, hi := amount.Umin().Uint64(), amount.Umax().Uint64()
	overflow := hi >= uint64(w)
	if overflow {
		join(overflowFill())
		if signedExtremes {
			join(value.Smin().Ashr(w))
		}
		if w == 0 {
			hi = 0
		} else {
			hi = uint64(w) - 1
		}
	}
	var vLo, vHi BV
	if signedExtremes {
		vLo, vHi = value.Smin(), value.Smax()
	} else {
		vLo, vHi = value.Umin(), value.Umax()
	}
	for c := lo; w > 0 && c <= hi && c < uint64(w); c++ {
		cand := New(amount.Width(), c)
		if !amount.ContainsConcrete(cand) {
			continue
		}
		join(op(vLo, uint(c)))
		join(op(vHi, uint(c)))
	}
	if first {
		return Unknown(value.Width())
	}
	return result
}

// Ult returns the three-valued truth of a < b (unsigned).
func (a TV) Ult(b TV) Bool {
	requireSameWidth(a.Width(), b.Width())
	canTrue := a.Umin().Uint64() < b.Umax().Uint64()
	canFalse := a.Umax().Uint64() >= b.Umin().Uint64()
	return boolFrom(canTrue, canFalse)
}

// Ule returns the three-valued truth of a <= b (unsigned).
func (a TV) Ule(b TV) Bool {
	requireSameWidth(a.Width(), b.Width())
	canTrue := a.Umin().Uint64() <= b.Umax().Uint64()
	canFalse := a.Umax().Uint64() > b.Umin().Uint64()
	return boolFrom(canTrue, canFalse)
}

// Slt returns the three-valued truth of a < b (signed).
func (a TV) Slt(b TV) Bool {
	requireSameWidth(a.Width(), b.Width())
	canTrue := a.Smin().Int64() < b.Smax().Int64()
	canFalse := a.Smax().Int64() >= b.Smin().Int64()
	return boolFrom(canTrue, canFalse)
}

// Sle returns the three-valued truth of a <= b (signed).
func (a TV) Sle(b TV) Bool {
	requireSameWidth(a.Width(), b.Width())
	canTrue := a.Smin().Int64() <= b.Smax().Int64()
	canFalse := a.Smax().Int64() > b.Smin().Int64()
	return boolFrom(canTrue, canFalse)
}

// Eq returns the three-valued truth of a == b.
func (a TV) Eq(b TV) Bool {
	requireSameWidth(a.Width(), b.Width())
	if a.Width() == 0 {
		return KnownBool(true)
	}
	av, aOK := a.ConcreteValue()
	bv, bOK := b.ConcreteValue()
	if aOK && bOK {
		return KnownBool(av.Eq(bv))
	}
	commonBit := a.zeros.And(b.zeros).Or(a.ones.And(b.ones))
	canTrue := commonBit.Eq(New(a.Width(), mask(a.Width())))
	return boolFrom(canTrue, true)
}

// Ne returns the three-valued truth of a != b.
func (a TV) Ne(b TV) Bool { return a.Eq(b).Not() }

// UExt zero-extends (or truncates) t to the given width.
func (t TV) UExt(to Width) TV {
	return TV{zeros: t.zeros.UExt(to).Or(newHighOnes(t.Width(), to)), ones: t.ones.UExt(to)}
}

// newHighOnes returns a mask of width `to` with ones in every bit position
// at or above `from` (the new high bits introduced by zero-extension,
// which are known-zero, hence forced into the `zeros` mask).
func newHighOnes(from, to Width) BV {
	if to <= from {
		return New(to, 0)
	}
	low := mask(from)
	full := mask(to)
	return New(to, full&^low)
}

// SExt sign-extends (or truncates) t to the given width, replicating the
// (possibly unknown) sign bit into the new high bits.
func (t TV) SExt(to Width) TV {
	if to <= t.Width() || t.Width() == 0 {
		return TV{zeros: t.zeros.UExt(to), ones: t.ones.UExt(to)}
	}
	signPos := uint(t.Width() - 1)
	signCanBeZero := t.zeros.Uint64()>>signPos&1 != 0
	signCanBeOne := t.ones.Uint64()>>signPos&1 != 0
	highBits := newHighOnes(t.Width(), to)
	zeros := t.zeros.UExt(to)
	ones := t.ones.UExt(to)
	if signCanBeZero {
		zeros = zeros.Or(highBits)
	}
	if signCanBeOne {
		ones = ones.Or(highBits)
	}
	return TV{zeros: zeros, ones: ones}
}

// Slice extracts bits [hi:lo] (inclusive) as a three-valued bitvector of
// width hi-lo+1: shift right by lo, then truncate.
func (t TV) Slice(hi, lo uint) TV {
	return TV{zeros: t.zeros.Slice(hi, lo), ones: t.ones.Slice(hi, lo)}
}
