// Package bv implements the concrete and three-valued bitvector domains
// that the model-checking core evaluates the transition function over.
//
// Widths are carried at runtime rather than as a compile-time generic
// parameter: every BV and TV value knows its own Width, and operations panic
// if asked to combine operands of mismatched width. This keeps the public
// API free of generic type parameters while still rejecting width errors
// early, at the site that created the mismatch rather than deep inside an
// operator.
//
// All widths from 0 to 64 bits are supported. A width-0 value is a legal
// singleton: it carries no information, and every bitwise/arithmetic
// operation on it returns another width-0 value.
package bv

import (
	"fmt"
	"math/bits"
)

// MaxWidth is the largest bitvector width this domain represents.
// 64 bits covers every hardware word size the btor2 and AVR front ends
// emit.
const MaxWidth = 64

// Width is the bit-width of a bitvector value, 0 <= Width <= MaxWidth.
type Width uint8

// BV is a concrete bitvector: a non-negative integer v < 2^Width.
// The zero value is the width-0, value-0 bitvector.
type BV struct {
	width Width
	value uint64 // only the low `width` bits are significant
}

// mask returns the bitmask covering the low w bits (all-ones for w==64).
func mask(w Width) uint64 {
	if w == 0 {
		return 0
	}
	if w >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(w)) - 1
}

// New returns the concrete bitvector of the given width holding value,
// wrapping value modulo 2^width.
func New(width Width, value uint64) BV {
	return BV{width: width, value: value & mask(width)}
}

// Width returns the bitvector's width.
func (b BV) Width() Width { return b.width }

// Uint64 returns the bitvector's unsigned value as a uint64.
func (b BV) Uint64() uint64 { return b.value }

// Int64 returns the bitvector's two's-complement signed interpretation.
func (b BV) Int64() int64 {
	if b.width == 0 || b.width >= 64 {
		return int64(b.value)
	}
	signBit := uint64(1) << uint(b.width-1)
	if b.value&signBit == 0 {
		return int64(b.value)
	}
	return int64(b.value) - int64(uint64(1)<<uint(b.width))
}

// requireSameWidth panics if a and b differ in width; forward operations
// never legitimately mix widths, so this is a programmer-error guard, not
// a user-facing validation. Local invariants are enforced by panics and
// never surfaced past Verify.
func requireSameWidth(a, b Width) {
	if a != b {
		panic(fmt.Sprintf("bv: mismatched widths %d and %d", a, b))
	}
}

// Not returns the bitwise complement.
func (b BV) Not() BV { return New(b.width, ^b.value) }

// And returns the bitwise AND of a and b.
func (a BV) And(b BV) BV { requireSameWidth(a.width, b.width); return New(a.width, a.value&b.value) }

// Or returns the bitwise OR of a and b.
func (a BV) Or(b BV) BV { requireSameWidth(a.width, b.width); return New(a.width, a.value|b.value) }

// Xor returns the bitwise XOR of a and b.
func (a BV) Xor(b BV) BV { requireSameWidth(a.width, b.width); return New(a.width, a.value^b.value) }

// Add returns a+b, wrapping modulo 2^width.
func (a BV) Add(b BV) BV { requireSameWidth(a.width, b.width); return New(a.width, a.value+b.value) }

// Sub returns a-b, wrapping modulo 2^width.
func (a BV) Sub(b BV) BV { requireSameWidth(a.width, b.width); return New(a.width, a.value-b.value) }

// Mul returns a*b, wrapping modulo 2^width.
func (a BV) Mul(b BV) BV { requireSameWidth(a.width, b.width); return New(a.width, a.value*b.value) }

// Neg returns the two's-complement negation of a.
func (a BV) Neg() BV { return New(a.width, ^a.value+1) }

// IsZero reports whether the bitvector's value is zero.
func (b BV) IsZero() bool { return b.value == 0 }

// UDiv returns the unsigned quotient of a/b. Callers must check b.IsZero()
// first; this is the raw wrapped operation the three-valued domain's
// zero-checked UDiv builds on.
func (a BV) UDiv(b BV) BV { requireSameWidth(a.width, b.width); return New(a.width, a.value/b.value) }

// URem returns the unsigned remainder of a/b.
func (a BV) URem(b BV) BV { requireSameWidth(a.width, b.width); return New(a.width, a.value%b.value) }

// SDiv returns the signed quotient of a/b (truncating toward zero).
func (a BV) SDiv(b BV) BV {
	requireSameWidth(a.width, b.width)
	return New(a.width, uint64(a.Int64()/b.Int64()))
}

// SRem returns the signed remainder of a/b (sign of the dividend).
func (a BV) SRem(b BV) BV {
	requireSameWidth(a.width, b.width)
	return New(a.width, uint64(a.Int64()%b.Int64()))
}

// Shl returns a shifted left by amount bits, zero-filled, wrapping modulo
// 2^width. Shifting by an amount >= width yields zero.
func (a BV) Shl(amount uint) BV {
	if amount >= uint(a.width) {
		return New(a.width, 0)
	}
	return New(a.width, a.value<<amount)
}

// Lshr returns a shifted right by amount bits, zero-filled (logical shift).
func (a BV) Lshr(amount uint) BV {
	if amount >= uint(a.width) {
		return New(a.width, 0)
	}
	return New(a.width, a.value>>amount)
}

// Ashr returns a shifted right by amount bits, sign-filled (arithmetic shift).
func (a BV) Ashr(amount uint) BV {
	if a.width == 0 {
		return a
	}
	signBit := uint64(1) << uint(a.width-1)
	negative := a.value&signBit != 0
	if amount >= uint(a.width) {
		if negative {
			return New(a.width, mask(a.width))
		}
		return New(a.width, 0)
	}
	result := a.value >> amount
	if negative {
		fillMask := mask(a.width) &^ (mask(a.width) >> amount)
		result |= fillMask
	}
	return New(a.width, result)
}

// Ult reports whether a < b, unsigned.
func (a BV) Ult(b BV) bool { requireSameWidth(a.width, b.width); return a.value < b.value }

// Ule reports whether a <= b, unsigned.
func (a BV) Ule(b BV) bool { requireSameWidth(a.width, b.width); return a.value <= b.value }

// Slt reports whether a < b, signed.
func (a BV) Slt(b BV) bool { requireSameWidth(a.width, b.width); return a.Int64() < b.Int64() }

// Sle reports whether a <= b, signed.
func (a BV) Sle(b BV) bool { requireSameWidth(a.width, b.width); return a.Int64() <= b.Int64() }

// Eq reports whether a == b.
func (a BV) Eq(b BV) bool { requireSameWidth(a.width, b.width); return a.value == b.value }

// UExt zero-extends (or truncates) a to the given width.
func (a BV) UExt(to Width) BV { return New(to, a.value) }

// SExt sign-extends (or truncates) a to the given width.
func (a BV) SExt(to Width) BV {
	if to <= a.width {
		return New(to, a.value)
	}
	v := a.Int64()
	return New(to, uint64(v)&mask(to))
}

// Slice extracts bits [hi:lo] (inclusive, lo <= hi < width) as a value of
// width hi-lo+1.
func (a BV) Slice(hi, lo uint) BV {
	shifted := a.Lshr(lo)
	return New(Width(hi-lo+1), shifted.value)
}

// HighestSetBit returns the position of the highest set bit (0-indexed)
// and true, or (0, false) if the value is zero.
func (b BV) HighestSetBit() (uint, bool) {
	if b.value == 0 {
		return 0, false
	}
	return uint(bits.Len64(b.value) - 1), true
}
