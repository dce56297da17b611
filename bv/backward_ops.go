package bv

// This file implements the backward (refinement) counterparts of the
// forward operators: given an operation's inputs and a Mark on its
// output, return Marks on each input. Soundness requirement: bits of
// the input NOT marked by the backward operator must not influence
// whether the output mark's bits are set.

// BackwardNot is the identity: ¬ doesn't mix bits, so the output mark
// passes straight through, limited to the input's unknown bits.
func BackwardNot(outputMark Mark, input TV) Mark {
	return outputMark.Limit(input)
}

// BackwardBitwiseBinary handles and/or/xor: each operand receives the
// output mark limited to its own unknown bits, since bitwise binaries
// never let one input bit influence a different output bit position.
func BackwardBitwiseBinary(outputMark Mark, a, b TV) (Mark, Mark) {
	return outputMark.Limit(a), outputMark.Limit(b)
}

// prefixMask returns a mask with ones in bit positions [0, highestBit]
// inclusive, used to approximate carry-chain influence in arithmetic ops.
func prefixMask(w Width, highestBit uint) BV {
	if highestBit >= uint(w)-1 && w > 0 {
		return New(w, mask(w))
	}
	return New(w, (uint64(1)<<(highestBit+1))-1)
}

// backwardArithLike marks every input bit that could influence a marked
// output bit: for a carry-propagating operation (+, -, *), a marked
// output bit at position i means any operand bit at position <= i can
// affect it, so both operands are marked with the prefix up to the
// highest marked output bit, limited to their own unknown bits.
func backwardArithLike(outputMark Mark, a, b TV) (Mark, Mark) {
	if !outputMark.IsMarked() {
		return UnmarkedOf(a.Width()), UnmarkedOf(b.Width())
	}
	highest, _ := outputMark.Mask().HighestSetBit()
	prefix := prefixMask(a.Width(), highest)
	m := NewMark(prefix, outputMark.Importance())
	return m.Limit(a), m.Limit(b)
}

// BackwardAdd is the backward counterpart of Add.
func BackwardAdd(outputMark Mark, a, b TV) (Mark, Mark) { return backwardArithLike(outputMark, a, b) }

// BackwardSub is the backward counterpart of Sub.
func BackwardSub(outputMark Mark, a, b TV) (Mark, Mark) { return backwardArithLike(outputMark, a, b) }

// BackwardMul is the backward counterpart of Mul.
func BackwardMul(outputMark Mark, a, b TV) (Mark, Mark) { return backwardArithLike(outputMark, a, b) }

// BackwardDivRem is the shared backward counterpart of udiv/urem/sdiv/srem:
// any marked output bit can depend on the entirety of both operands (a
// single divisor bit can change every quotient bit), so the full operand
// is marked, limited by its own unknown bits.
func BackwardDivRem(outputMark Mark, a, b TV) (Mark, Mark) {
	if !outputMark.IsMarked() {
		return UnmarkedOf(a.Width()), UnmarkedOf(b.Width())
	}
	full := FullyMarked(a.Width(), outputMark.Importance())
	fullB := FullyMarked(b.Width(), outputMark.Importance())
	return full.Limit(a), fullB.Limit(b)
}

// BackwardShl is the backward counterpart of Shl. The amount is marked
// whenever the output mark is non-empty; the value receives the
// output mark shifted right by each amount actually admitted, unioned,
// since value bit j influences output bit j+amt.
func BackwardShl(outputMark Mark, value, amount TV) (valueMark, amountMark Mark) {
	if !outputMark.IsMarked() {
		return UnmarkedOf(value.Width()), UnmarkedOf(amount.Width())
	}
	amountMark = FullyMarked(amount.Width(), outputMark.Importance())
	var acc BV
	first := true
	forEachFeasibleAmount(amount, value.Width(), func(amt uint) {
		shifted := outputMark.Mask().Lshr(amt)
		if first {
			acc = shifted
			first = false
		} else {
			acc = acc.Or(shifted)
		}
	})
	if first {
		acc = New(value.Width(), 0)
	}
	valueMark = NewMark(acc, outputMark.Importance()).Limit(value)
	return
}

// BackwardLshr is the backward counterpart of Lshr.
func BackwardLshr(outputMark Mark, value, amount TV) (valueMark, amountMark Mark) {
	if !outputMark.IsMarked() {
		return UnmarkedOf(value.Width()), UnmarkedOf(amount.Width())
	}
	amountMark = FullyMarked(amount.Width(), outputMark.Importance()).Limit(amount)
	var acc BV
	first := true
	forEachFeasibleAmount(amount, value.Width(), func(amt uint) {
		shifted := outputMark.Mask().Shl(amt)
		if first {
			acc = shifted
			first = false
		} else {
			acc = acc.Or(shifted)
		}
	})
	if first {
		acc = New(value.Width(), 0)
	}
	valueMark = NewMark(acc, outputMark.Importance()).Limit(value)
	return
}

// BackwardAshr is the backward counterpart of Ashr. In addition to Lshr's
// treatment, the sign bit is marked whenever any left-shifted-out (i.e.
// sign-filled) bit is in the output mark, since that bit's value then
// came from sign replication rather than from the shifted-in value bits.
func BackwardAshr(outputMark Mark, value, amount TV) (valueMark, amountMark Mark) {
	valueMark, amountMark = BackwardLshr(outputMark, value, amount)
	if !outputMark.IsMarked() || value.Width() == 0 {
		return
	}
	w := uint(value.Width())
	forEachFeasibleAmount(amount, value.Width(), func(amt uint) {
		if amt == 0 {
			return
		}
		fillMask := mask(value.Width()) &^ (mask(value.Width()) >> amt)
		if outputMark.Mask().Uint64()&fillMask != 0 {
			signBit := New(value.Width(), uint64(1)<<(w-1))
			combined := valueMark.Mask().Or(signBit)
			valueMark = NewMark(combined, valueMark.Importance()).Limit(value)
		}
	})
	return
}

// forEachFeasibleAmount calls fn(amt) for every amt in [0,width) actually
// admitted by the three-valued shift-amount operand.
func forEachFeasibleAmount(amount TV, valueWidth Width, fn func(amt uint)) {
	w := uint64(valueWidth)
	lo, hi := amount.Umin().Uint64(), amount.Umax().Uint64()
	if hi >= w {
		hi = w - 1
	}
	for c := lo; w > 0 && c <= hi; c++ {
		if amount.ContainsConcrete(New(amount.Width(), c)) {
			fn(uint(c))
		}
	}
}

// BackwardCmp is the shared backward counterpart of ult/ule/slt/sle/eq/ne:
// when the comparison's truth is marked for refinement, the highest-order
// unknown bit of each operand dominates the outcome, so that single bit
// is marked in each operand.
func BackwardCmp(outputMark Mark, a, b TV) (Mark, Mark) {
	if !outputMark.IsMarked() {
		return UnmarkedOf(a.Width()), UnmarkedOf(b.Width())
	}
	return highestUnknownBitMark(a, outputMark.Importance()), highestUnknownBitMark(b, outputMark.Importance())
}

func highestUnknownBitMark(v TV, importance uint8) Mark {
	pos, ok := v.UnknownBits().HighestSetBit()
	if !ok {
		return UnmarkedOf(v.Width())
	}
	return NewMark(New(v.Width(), uint64(1)<<pos), importance)
}

// BackwardUExt is the backward counterpart of UExt: the mark's low
// `from` bits map straight back; high bits introduced by the extension
// carry no information about the operand and are dropped.
func BackwardUExt(outputMark Mark, from Width) Mark {
	truncated := New(from, outputMark.Mask().Uint64())
	return NewMark(truncated, outputMark.Importance())
}

// BackwardSExt is the backward counterpart of SExt: like BackwardUExt,
// except if any of the introduced high bits are marked, the sign bit
// (the source of those bits' value) is marked too.
func BackwardSExt(outputMark Mark, from Width) Mark {
	truncated := New(from, outputMark.Mask().Uint64())
	highBits := newHighOnes(from, outputMark.Mask().Width())
	if outputMark.IsMarked() && outputMark.Mask().And(highBits).Uint64() != 0 && from > 0 {
		signBit := New(from, uint64(1)<<(uint(from)-1))
		truncated = truncated.Or(signBit)
	}
	return NewMark(truncated, outputMark.Importance())
}

// BackwardSlice is the backward counterpart of Slice: the mark maps back
// to the bits [hi:lo] of the original-width operand it was extracted from.
func BackwardSlice(outputMark Mark, hi, lo uint, originalWidth Width) Mark {
	shifted := New(originalWidth, outputMark.Mask().Uint64()<<lo)
	return NewMark(shifted, outputMark.Importance())
}
