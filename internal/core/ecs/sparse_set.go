package ecs

import (
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

// ComponentArray is the storage contract the ComponentManager and Groups rely
// on. SparseSet and TypeErasedSparseSet both satisfy it.
type ComponentArray interface {
	Len() int
	Capacity() int
	Has(e Entity) bool
	Slot(e Entity) (int, bool)
	Entities() []Entity
	EntityAt(i int) (Entity, error)
	Remove(e Entity) error

	GroupSize() int
	AddToGroup(e Entity) error
	RemoveFromGroup(e Entity) error
	Reorder(order []Entity)

	// GetAny returns a copy of e's value.
	GetAny(e Entity) (any, error)
	Duplicate(src, dst Entity) error

	Stride() int
	RawBytes(e Entity) ([]byte, error)
	InsertRaw(e Entity, data []byte) error

	MemoryUsage() uintptr
	reset()
}

// SparseSet stores one component type densely. Insertion appends; removal
// swaps the last slot into the hole, so slot order is not stable across
// removals.
type SparseSet[T any] struct {
	sparseIndex
	dense  []T
	stride uintptr
	plain  bool
}

func NewSparseSet[T any](capacity int) *SparseSet[T] {
	idx := newSparseIndex(capacity)
	typ := reflect.TypeFor[T]()
	return &SparseSet[T]{
		sparseIndex: idx,
		dense:       make([]T, 0, cap(idx.entities)),
		stride:      typ.Size(),
		plain:       isPlainData(typ),
	}
}

func (s *SparseSet[T]) Insert(e Entity, v T) error {
	if _, err := s.push(e); err != nil {
		return err
	}
	s.dense = append(s.dense, v)
	return nil
}

// Get returns a pointer into the dense array. It is invalidated by the next
// insert or removal on this set.
func (s *SparseSet[T]) Get(e Entity) (*T, error) {
	pos, ok := s.Slot(e)
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotFound, "%v has no %v", e, reflect.TypeFor[T]())
	}
	return &s.dense[pos], nil
}

func (s *SparseSet[T]) At(i int) (*T, error) {
	if i < 0 || i >= len(s.dense) {
		return nil, eris.Wrapf(ErrOutOfRange, "index %d, size %d", i, len(s.dense))
	}
	return &s.dense[i], nil
}

// Values returns the dense values aligned with Entities().
func (s *SparseSet[T]) Values() []T { return s.dense }

func (s *SparseSet[T]) Remove(e Entity) error {
	last, err := s.remove(e, s.swapSlots)
	if err != nil {
		return err
	}
	var zero T
	s.dense[last] = zero
	s.dense = s.dense[:last]
	return nil
}

func (s *SparseSet[T]) AddToGroup(e Entity) error      { return s.addToGroup(e, s.swapSlots) }
func (s *SparseSet[T]) RemoveFromGroup(e Entity) error { return s.removeFromGroup(e, s.swapSlots) }
func (s *SparseSet[T]) Reorder(order []Entity)         { s.reorder(order, s.swapSlots) }

func (s *SparseSet[T]) swapSlots(i, j int) {
	if i == j {
		return
	}
	s.dense[i], s.dense[j] = s.dense[j], s.dense[i]
	s.swapEntities(i, j)
}

func (s *SparseSet[T]) GetAny(e Entity) (any, error) {
	v, err := s.Get(e)
	if err != nil {
		return nil, err
	}
	return *v, nil
}

func (s *SparseSet[T]) Duplicate(src, dst Entity) error {
	v, err := s.Get(src)
	if err != nil {
		return err
	}
	return s.Insert(dst, *v)
}

func (s *SparseSet[T]) Stride() int { return int(s.stride) }

// RawBytes returns a live byte view of e's value. Only types without
// pointers (numbers, bools, arrays and structs of those) allow it.
func (s *SparseSet[T]) RawBytes(e Entity) ([]byte, error) {
	if !s.plain {
		return nil, eris.Wrapf(ErrRawAccessUnsupported, "%v", reflect.TypeFor[T]())
	}
	v, err := s.Get(e)
	if err != nil {
		return nil, err
	}
	return valueBytes(v, s.stride), nil
}

func (s *SparseSet[T]) InsertRaw(e Entity, data []byte) error {
	if !s.plain {
		return eris.Wrapf(ErrRawAccessUnsupported, "%v", reflect.TypeFor[T]())
	}
	if uintptr(len(data)) != s.stride {
		return eris.Wrapf(ErrRawSizeMismatch, "%v wants %d bytes, got %d", reflect.TypeFor[T](), s.stride, len(data))
	}
	var v T
	copy(valueBytes(&v, s.stride), data)
	return s.Insert(e, v)
}

func (s *SparseSet[T]) MemoryUsage() uintptr {
	return uintptr(cap(s.dense))*s.stride + s.indexMemory()
}

func (s *SparseSet[T]) reset() {
	clear(s.dense)
	s.dense = s.dense[:0]
	s.sparseIndex.reset()
}

func valueBytes[T any](v *T, size uintptr) []byte {
	if size == 0 {
		return []byte{}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), size)
}

// isPlainData reports whether t holds no pointers, so its bytes can be
// exposed and overwritten directly.
func isPlainData(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return isPlainData(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !isPlainData(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
