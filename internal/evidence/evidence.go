// Package evidence tracks which independent signal families backed a decision.
//
// Execution-class decisions require at least two families (MinExecutionFamilies).
// The set is a fixed-size indicator set with named operations — callers never
// touch raw bits, which keeps the sufficiency check in one place.
package evidence

import "strings"

// Family is one of the five independent signal categories.
type Family uint8

const (
	FamilyPriceVolume Family = iota
	FamilyLiquidity
	FamilyBehavior
	FamilyIncentive
	FamilyProtocol

	NumFamilies = 5
)

// MinExecutionFamilies is the minimum evidence cardinality for any
// execution-class decision. Non-negotiable.
const MinExecutionFamilies = 2

var familyNames = [NumFamilies]string{
	"price_volume",
	"liquidity",
	"behavior",
	"incentive",
	"protocol",
}

// String returns the wire name of the family.
func (f Family) String() string {
	if int(f) >= NumFamilies {
		return "unknown"
	}
	return familyNames[f]
}

// Valid reports whether f is one of the five defined families.
func (f Family) Valid() bool {
	return int(f) < NumFamilies
}

// Set is a fixed-size indicator set over the five evidence families.
// The zero value is the empty set.
type Set uint8

// NewSet builds a set from the given families.
func NewSet(families ...Family) Set {
	var s Set
	for _, f := range families {
		s = s.Add(f)
	}
	return s
}

// Add returns a copy of s with f present. Unknown families are ignored.
func (s Set) Add(f Family) Set {
	if !f.Valid() {
		return s
	}
	return s | Set(1<<f)
}

// Has reports whether f is present in the set.
func (s Set) Has(f Family) bool {
	return f.Valid() && s&Set(1<<f) != 0
}

// Count returns the number of families present.
func (s Set) Count() int {
	n := 0
	for f := Family(0); f < NumFamilies; f++ {
		if s.Has(f) {
			n++
		}
	}
	return n
}

// Sufficient reports whether the set meets the execution-class minimum.
func (s Set) Sufficient() bool {
	return s.Count() >= MinExecutionFamilies
}

// Families returns the present families in fixed declaration order.
func (s Set) Families() []Family {
	out := make([]Family, 0, NumFamilies)
	for f := Family(0); f < NumFamilies; f++ {
		if s.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Bitmap returns the persistence encoding of the set. Only stores and wire
// codecs should use it; in-process code works with named operations.
func (s Set) Bitmap() uint8 {
	return uint8(s) & 0x1f
}

// FromBitmap decodes a persisted bitmap, dropping any undefined bits.
func FromBitmap(b uint8) Set {
	return Set(b & 0x1f)
}

// String renders the set like "liquidity|protocol" for logs.
func (s Set) String() string {
	if s == 0 {
		return "none"
	}
	names := make([]string, 0, NumFamilies)
	for _, f := range s.Families() {
		names = append(names, f.String())
	}
	return strings.Join(names, "|")
}
