package bv

// Truth is the three-valued logical truth value used for comparisons and
// property evaluation.
type Truth int

const (
	// Unknown3 means the comparison's truth cannot yet be determined.
	Unknown3 Truth = iota
	// True3 means the comparison is known to hold.
	True3
	// False3 means the comparison is known not to hold.
	False3
)

// Bool is a three-valued boolean: a TV of width 1 with can_be_true/
// can_be_false predicates.
type Bool struct {
	tv TV
}

// BoolOf wraps a width-1 TV as a Bool.
func BoolOf(tv TV) Bool {
	if tv.Width() != 1 {
		panic("bv: Bool requires a width-1 three-valued bitvector")
	}
	return Bool{tv: tv}
}

// KnownBool returns the fully-known Bool for the given concrete truth.
func KnownBool(v bool) Bool {
	if v {
		return Bool{tv: FromBV(New(1, 1))}
	}
	return Bool{tv: FromBV(New(1, 0))}
}

// UnknownBool returns the fully-unknown Bool.
func UnknownBool() Bool { return Bool{tv: Unknown(1)} }

// TV returns the underlying width-1 three-valued bitvector.
func (b Bool) TV() TV { return b.tv }

// CanBeTrue reports whether b can be true.
func (b Bool) CanBeTrue() bool { return b.tv.ones.value&1 != 0 }

// CanBeFalse reports whether b can be false.
func (b Bool) CanBeFalse() bool { return b.tv.zeros.value&1 != 0 }

// Truth projects the Bool to a three-valued Truth.
func (b Bool) Truth() Truth {
	switch {
	case b.CanBeTrue() && !b.CanBeFalse():
		return True3
	case b.CanBeFalse() && !b.CanBeTrue():
		return False3
	default:
		return Unknown3
	}
}

// Not returns the logical negation.
func (b Bool) Not() Bool {
	return Bool{tv: TV{zeros: b.tv.ones, ones: b.tv.zeros}}
}

// And returns the three-valued conjunction.
func (a Bool) And(b Bool) Bool {
	canTrue := a.CanBeTrue() && b.CanBeTrue()
	canFalse := a.CanBeFalse() || b.CanBeFalse()
	return boolFrom(canTrue, canFalse)
}

// Or returns the three-valued disjunction.
func (a Bool) Or(b Bool) Bool {
	canTrue := a.CanBeTrue() || b.CanBeTrue()
	canFalse := a.CanBeFalse() && b.CanBeFalse()
	return boolFrom(canTrue, canFalse)
}

func boolFrom(canTrue, canFalse bool) Bool {
	var ones, zeros uint64
	if canTrue {
		ones = 1
	}
	if canFalse {
		zeros = 1
	}
	return Bool{tv: TV{zeros: New(1, zeros), ones: New(1, ones)}}
}
