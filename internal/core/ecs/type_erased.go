package ecs

import "github.com/rotisserie/eris"

// TypeErasedSparseSet stores fixed-size raw values for component types that
// have no Go type, such as script-declared components. Values are laid out
// back to back with the given stride.
type TypeErasedSparseSet struct {
	sparseIndex
	data    []byte
	stride  int
	scratch []byte
}

func NewTypeErasedSparseSet(stride, capacity int) *TypeErasedSparseSet {
	idx := newSparseIndex(capacity)
	return &TypeErasedSparseSet{
		sparseIndex: idx,
		data:        make([]byte, 0, cap(idx.entities)*stride),
		stride:      stride,
		scratch:     make([]byte, stride),
	}
}

func (s *TypeErasedSparseSet) Stride() int { return s.stride }

func (s *TypeErasedSparseSet) InsertRaw(e Entity, data []byte) error {
	if len(data) != s.stride {
		return eris.Wrapf(ErrRawSizeMismatch, "want %d bytes, got %d", s.stride, len(data))
	}
	if _, err := s.push(e); err != nil {
		return err
	}
	s.data = append(s.data, data...)
	return nil
}

// RawBytes returns a live view of e's bytes, valid until the next insert or
// removal on this set.
func (s *TypeErasedSparseSet) RawBytes(e Entity) ([]byte, error) {
	pos, ok := s.Slot(e)
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotFound, "%v has no raw component", e)
	}
	return s.at(pos), nil
}

func (s *TypeErasedSparseSet) At(i int) ([]byte, error) {
	if i < 0 || i >= s.Len() {
		return nil, eris.Wrapf(ErrOutOfRange, "index %d, size %d", i, s.Len())
	}
	return s.at(i), nil
}

func (s *TypeErasedSparseSet) at(pos int) []byte {
	off := pos * s.stride
	return s.data[off : off+s.stride : off+s.stride]
}

func (s *TypeErasedSparseSet) Remove(e Entity) error {
	last, err := s.remove(e, s.swapSlots)
	if err != nil {
		return err
	}
	s.data = s.data[:last*s.stride]
	return nil
}

func (s *TypeErasedSparseSet) AddToGroup(e Entity) error      { return s.addToGroup(e, s.swapSlots) }
func (s *TypeErasedSparseSet) RemoveFromGroup(e Entity) error { return s.removeFromGroup(e, s.swapSlots) }
func (s *TypeErasedSparseSet) Reorder(order []Entity)         { s.reorder(order, s.swapSlots) }

func (s *TypeErasedSparseSet) swapSlots(i, j int) {
	if i == j {
		return
	}
	a, b := s.at(i), s.at(j)
	copy(s.scratch, a)
	copy(a, b)
	copy(b, s.scratch)
	s.swapEntities(i, j)
}

func (s *TypeErasedSparseSet) GetAny(e Entity) (any, error) {
	b, err := s.RawBytes(e)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (s *TypeErasedSparseSet) Duplicate(src, dst Entity) error {
	b, err := s.RawBytes(src)
	if err != nil {
		return err
	}
	// copy first: the append in InsertRaw may move the backing array
	return s.InsertRaw(dst, append([]byte(nil), b...))
}

func (s *TypeErasedSparseSet) MemoryUsage() uintptr {
	return uintptr(cap(s.data)) + s.indexMemory()
}

func (s *TypeErasedSparseSet) reset() {
	s.data = s.data[:0]
	s.sparseIndex.reset()
}
