package ecs

import (
	"math"

	"github.com/rotisserie/eris"
)

const absentSlot = math.MaxUint32

// sparseIndex is the bookkeeping shared by the typed and type-erased stores:
// dense entity handles, an entity-index to dense-slot map, and the packed
// group prefix [0, groupSize).
type sparseIndex struct {
	entities  []Entity
	sparse    []uint32
	groupSize int
	capacity  int
}

func newSparseIndex(capacity int) sparseIndex {
	if capacity <= 0 {
		capacity = DefaultMaxEntities
	}
	return sparseIndex{
		entities: make([]Entity, 0, min(capacity, 256)),
		sparse:   make([]uint32, 0, min(capacity, 256)),
		capacity: capacity,
	}
}

// Slot returns e's dense position. A slot held by another generation of the
// same index does not count.
func (x *sparseIndex) Slot(e Entity) (int, bool) {
	idx := e.Index()
	if int(idx) >= len(x.sparse) {
		return 0, false
	}
	pos := x.sparse[idx]
	if pos == absentSlot || x.entities[pos] != e {
		return 0, false
	}
	return int(pos), true
}

func (x *sparseIndex) Has(e Entity) bool {
	_, ok := x.Slot(e)
	return ok
}

func (x *sparseIndex) Len() int       { return len(x.entities) }
func (x *sparseIndex) Capacity() int  { return x.capacity }
func (x *sparseIndex) GroupSize() int { return x.groupSize }

// Entities returns the dense handles. The slice aliases internal storage.
func (x *sparseIndex) Entities() []Entity { return x.entities }

func (x *sparseIndex) EntityAt(i int) (Entity, error) {
	if i < 0 || i >= len(x.entities) {
		return NullEntity, eris.Wrapf(ErrOutOfRange, "index %d, size %d", i, len(x.entities))
	}
	return x.entities[i], nil
}

// push appends e as the last dense slot and returns that slot.
func (x *sparseIndex) push(e Entity) (int, error) {
	idx := e.Index()
	if int(idx) < len(x.sparse) && x.sparse[idx] != absentSlot {
		return 0, eris.Wrapf(ErrComponentAlreadyExists, "slot of %v held by %v", e, x.entities[x.sparse[idx]])
	}
	if len(x.entities) >= x.capacity {
		return 0, eris.Wrapf(ErrTooManyEntities, "component array capacity is %d", x.capacity)
	}
	for int(idx) >= len(x.sparse) {
		x.sparse = append(x.sparse, absentSlot)
	}
	pos := len(x.entities)
	x.entities = append(x.entities, e)
	x.sparse[idx] = uint32(pos)
	return pos, nil
}

func (x *sparseIndex) swapEntities(i, j int) {
	x.entities[i], x.entities[j] = x.entities[j], x.entities[i]
	x.sparse[x.entities[i].Index()] = uint32(i)
	x.sparse[x.entities[j].Index()] = uint32(j)
}

// remove takes e out of the group prefix if needed, swaps it into the last
// slot and drops that slot. It returns the vacated position so the caller
// can clear the value left behind.
func (x *sparseIndex) remove(e Entity, swap func(i, j int)) (int, error) {
	pos, ok := x.Slot(e)
	if !ok {
		return 0, eris.Wrapf(ErrComponentNotFound, "remove %v", e)
	}
	if pos < x.groupSize {
		x.groupSize--
		swap(pos, x.groupSize)
		pos = x.groupSize
	}
	last := len(x.entities) - 1
	swap(pos, last)
	x.sparse[e.Index()] = absentSlot
	x.entities = x.entities[:last]
	return last, nil
}

func (x *sparseIndex) addToGroup(e Entity, swap func(i, j int)) error {
	pos, ok := x.Slot(e)
	if !ok {
		return eris.Wrapf(ErrComponentNotFound, "group add %v", e)
	}
	if pos < x.groupSize {
		return nil
	}
	swap(pos, x.groupSize)
	x.groupSize++
	return nil
}

func (x *sparseIndex) removeFromGroup(e Entity, swap func(i, j int)) error {
	pos, ok := x.Slot(e)
	if !ok {
		return eris.Wrapf(ErrComponentNotFound, "group remove %v", e)
	}
	if pos >= x.groupSize {
		return nil
	}
	x.groupSize--
	swap(pos, x.groupSize)
	return nil
}

// reorder permutes the leading len(order) slots to match order. Every entity
// in order must currently sit in that leading range.
func (x *sparseIndex) reorder(order []Entity, swap func(i, j int)) {
	for i, e := range order {
		if j := int(x.sparse[e.Index()]); j != i {
			swap(i, j)
		}
	}
}

func (x *sparseIndex) indexMemory() uintptr {
	return uintptr(cap(x.entities))*8 + uintptr(cap(x.sparse))*4
}

func (x *sparseIndex) reset() {
	x.entities = x.entities[:0]
	x.sparse = x.sparse[:0]
	x.groupSize = 0
}
