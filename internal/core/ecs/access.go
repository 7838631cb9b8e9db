package ecs

import "reflect"

// AccessMode says how a system touches a type.
type AccessMode uint8

const (
	AccessRead AccessMode = iota
	AccessWrite
	AccessExclude
)

func (m AccessMode) String() string {
	switch m {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessExclude:
		return "exclude"
	default:
		return "unknown"
	}
}

// Ownership only matters to group systems: owned types are packed by the
// system's group, non-owned types are required but left in place.
type Ownership uint8

const (
	OwnershipNone Ownership = iota
	OwnershipOwned
	OwnershipNonOwned
)

// Access is one entry of a system's declared access list.
type Access struct {
	Type      reflect.Type
	Mode      AccessMode
	Singleton bool
	Ownership Ownership
}

func (a Access) String() string {
	s := a.Mode.String() + " " + a.Type.String()
	if a.Singleton {
		s += " (singleton)"
	}
	switch a.Ownership {
	case OwnershipOwned:
		s += " [owned]"
	case OwnershipNonOwned:
		s += " [non-owned]"
	}
	return s
}

func Read[T any]() Access  { return Access{Type: reflect.TypeFor[T](), Mode: AccessRead} }
func Write[T any]() Access { return Access{Type: reflect.TypeFor[T](), Mode: AccessWrite} }

// Exclude filters out entities that have T.
func Exclude[T any]() Access { return Access{Type: reflect.TypeFor[T](), Mode: AccessExclude} }

func ReadSingleton[T any]() Access {
	return Access{Type: reflect.TypeFor[T](), Mode: AccessRead, Singleton: true}
}

func WriteSingleton[T any]() Access {
	return Access{Type: reflect.TypeFor[T](), Mode: AccessWrite, Singleton: true}
}

// Owned marks component accesses as owned by the system's group.
func Owned(as ...Access) []Access { return withOwnership(OwnershipOwned, as) }

// NonOwned marks component accesses as required but not packed.
func NonOwned(as ...Access) []Access { return withOwnership(OwnershipNonOwned, as) }

func withOwnership(o Ownership, as []Access) []Access {
	out := make([]Access, len(as))
	for i, a := range as {
		if !a.Singleton && a.Mode != AccessExclude {
			a.Ownership = o
		}
		out[i] = a
	}
	return out
}

// Accesses flattens access lists, so a system can write
// Accesses(Owned(Write[A]()), NonOwned(Read[B]()), []Access{Exclude[C]()}).
func Accesses(lists ...[]Access) []Access {
	var out []Access
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
