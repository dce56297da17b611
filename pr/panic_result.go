// Package pr implements the panic-carrying result wrapper: every
// forward operation that can fault (division, explicit panics from the
// translated system's own panic sites) yields a Result[T] pairing a
// three-valued panic code with the operation's ordinary result.
package pr

import "github.com/onderjan/machine-check-sub004/bv"

// NoPanicCode is the reserved panic code meaning "no panic occurred".
const NoPanicCode = 0

// PanicWidth is the width of the panic code bitvector.
const PanicWidth bv.Width = 32

// Result pairs a three-valued panic indicator with a value of type T.
// When Panic is known-nonzero, Value is irrelevant (the panic
// short-circuits) and must not be consulted by a caller that cares
// about soundness of the non-panicking path.
type Result[T any] struct {
	Panic bv.TV
	Value T
}

// NoPanic wraps value with the "never panics" panic code.
func NoPanic[T any](value T) Result[T] {
	return Result[T]{Panic: bv.FromBV(bv.New(PanicWidth, NoPanicCode)), Value: value}
}

// WithPanicCode wraps value with a concrete, known panic code (0 for no
// panic, or a source-assigned nonzero code for a specific panic site).
func WithPanicCode[T any](code uint32, value T) Result[T] {
	return Result[T]{Panic: bv.FromBV(bv.New(PanicWidth, uint64(code))), Value: value}
}

// MustPanic returns true if Panic is known to be non-zero.
func (r Result[T]) MustPanic() bool {
	v, ok := r.Panic.ConcreteValue()
	return ok && !v.IsZero()
}

// MayPanic returns true if Panic could be non-zero (including "must").
func (r Result[T]) MayPanic() bool {
	if v, ok := r.Panic.ConcreteValue(); ok {
		return !v.IsZero()
	}
	return true
}

// CombineOr three-valued-ORs two panic indicators — used when a
// composite operation (e.g. a struct's fields computed independently)
// must report a panic if any constituent sub-computation can panic.
func CombineOr(a, b bv.TV) bv.TV {
	nonZeroA := isNonZero(a)
	nonZeroB := isNonZero(b)
	return nonZeroA.Or(nonZeroB).TV()
}

// isNonZero projects a panic code's three-valued "is this code nonzero"
// truth as a width-1 Bool, so composite panic reporting can be expressed
// with ordinary three-valued boolean OR.
func isNonZero(code bv.TV) bv.Bool {
	if v, ok := code.ConcreteValue(); ok {
		return bv.KnownBool(!v.IsZero())
	}
	// code is not fully known, so it admits at least two distinct values;
	// at most one of them is zero, so a nonzero value is always possible.
	zero := bv.New(code.Width(), NoPanicCode)
	canBeZero := code.ContainsConcrete(zero)
	if canBeZero {
		return bv.UnknownBool()
	}
	return bv.KnownBool(true)
}
