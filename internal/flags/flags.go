// Package flags provides a compact bitset keyed by a small enumeration.
package flags

import (
	"math/bits"
	"strings"
)

// Enum is implemented by enumerations whose values are bit indices.
// Cardinality reports the number of defined values and must not exceed 32.
type Enum interface {
	~uint8
	Cardinality() int
	String() string
}

// Set is a set of values of E stored as a 32-bit mask.
// The zero value is the empty set.
type Set[E Enum] uint32

// Of returns the set containing exactly the given values.
func Of[E Enum](values ...E) Set[E] {
	var s Set[E]
	for _, v := range values {
		s = s.With(v)
	}
	return s
}

// All returns the set of every defined value of E.
func All[E Enum]() Set[E] {
	return Set[E](mask[E]())
}

// FromUint32 builds a set from a raw mask, dropping bits beyond the cardinality of E.
func FromUint32[E Enum](raw uint32) Set[E] {
	return Set[E](raw & mask[E]())
}

func mask[E Enum]() uint32 {
	var zero E
	n := zero.Cardinality()
	if n >= 32 {
		return ^uint32(0)
	}
	return uint32(1)<<uint(n) - 1
}

func bit[E Enum](v E) Set[E] {
	return Set[E](uint32(1) << uint(v))
}

// Contains reports whether v is in the set.
func (s Set[E]) Contains(v E) bool { return s&bit(v) != 0 }

// ContainsAny reports whether the two sets share a value.
func (s Set[E]) ContainsAny(o Set[E]) bool { return s&o != 0 }

// ContainsAll reports whether o is a subset of s.
func (s Set[E]) ContainsAll(o Set[E]) bool { return s&o == o }

// With returns s with v inserted.
func (s Set[E]) With(v E) Set[E] { return s | bit(v) }

// Without returns s with v removed.
func (s Set[E]) Without(v E) Set[E] { return s &^ bit(v) }

// Union returns s ∪ o.
func (s Set[E]) Union(o Set[E]) Set[E] { return s | o }

// Intersect returns s ∩ o.
func (s Set[E]) Intersect(o Set[E]) Set[E] { return s & o }

// Xor returns the symmetric difference of s and o.
func (s Set[E]) Xor(o Set[E]) Set[E] { return s ^ o }

// Difference returns s \ o.
func (s Set[E]) Difference(o Set[E]) Set[E] { return s &^ o }

// IsEmpty reports whether the set has no members.
func (s Set[E]) IsEmpty() bool { return s == 0 }

// Len returns the number of members.
func (s Set[E]) Len() int { return bits.OnesCount32(uint32(s)) }

// Uint32 returns the raw mask.
func (s Set[E]) Uint32() uint32 { return uint32(s) }

// Members returns the members in ascending order.
func (s Set[E]) Members() []E {
	out := make([]E, 0, s.Len())
	for rest := uint32(s); rest != 0; rest &= rest - 1 {
		out = append(out, E(bits.TrailingZeros32(rest)))
	}
	return out
}

// String joins member names with "|".
func (s Set[E]) String() string {
	if s == 0 {
		return "none"
	}
	names := make([]string, 0, s.Len())
	for _, v := range s.Members() {
		names = append(names, v.String())
	}
	return strings.Join(names, "|")
}
