package ecs

import "github.com/TheBitDrifter/mask"

// ComponentType is the per-world numeric id of a registered component type.
type ComponentType uint8

// MaxComponentTypes is the width of a Signature.
const MaxComponentTypes = 32

// Signature records which component types an entity currently has.
type Signature struct {
	bits mask.Mask
}

// SignatureOf builds a signature with the given bits set.
func SignatureOf(types ...ComponentType) Signature {
	var s Signature
	for _, t := range types {
		s.Set(t)
	}
	return s
}

func (s *Signature) Set(t ComponentType)   { s.bits.Mark(uint32(t)) }
func (s *Signature) Clear(t ComponentType) { s.bits.Unmark(uint32(t)) }
func (s *Signature) Reset()                { s.bits = mask.Mask{} }

func (s Signature) Has(t ComponentType) bool {
	var bit mask.Mask
	bit.Mark(uint32(t))
	return s.bits.ContainsAll(bit)
}

func (s Signature) IsEmpty() bool { return s.bits == (mask.Mask{}) }

// ContainsAll reports whether every bit of other is set in s.
func (s Signature) ContainsAll(other Signature) bool { return s.bits.ContainsAll(other.bits) }

// Intersects reports whether s and other share at least one bit.
func (s Signature) Intersects(other Signature) bool { return s.bits.ContainsAny(other.bits) }

// Disjoint reports whether s and other share no bit.
func (s Signature) Disjoint(other Signature) bool { return s.bits.ContainsNone(other.bits) }

// With returns a copy of s with t set.
func (s Signature) With(t ComponentType) Signature {
	s.Set(t)
	return s
}

// Without returns a copy of s with t cleared.
func (s Signature) Without(t ComponentType) Signature {
	s.Clear(t)
	return s
}

// Union returns the bits set in either signature.
func (s Signature) Union(other Signature) Signature {
	for _, t := range other.Types() {
		s.Set(t)
	}
	return s
}

// Types lists the set bits in ascending order.
func (s Signature) Types() []ComponentType {
	var out []ComponentType
	for t := 0; t < MaxComponentTypes; t++ {
		if s.Has(ComponentType(t)) {
			out = append(out, ComponentType(t))
		}
	}
	return out
}

// Matches reports whether s satisfies a required/excluded filter pair.
func (s Signature) Matches(required, excluded Signature) bool {
	return s.ContainsAll(required) && s.Disjoint(excluded)
}
