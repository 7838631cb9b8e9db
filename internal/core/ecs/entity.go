package ecs

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Entity encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
// Generations start at 1, so the zero Entity is never issued.
type Entity uint64

// NullEntity is the zero handle. No live entity ever compares equal to it.
const NullEntity Entity = 0

// DefaultMaxEntities bounds the number of simultaneously live entities.
const DefaultMaxEntities = 500000

func NewEntity(index uint32, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

func (e Entity) Index() uint32      { return uint32(e) }
func (e Entity) Generation() uint32 { return uint32(e >> 32) }
func (e Entity) IsNull() bool       { return e == NullEntity }

func (e Entity) String() string {
	return fmt.Sprintf("%d#%d", e.Index(), e.Generation())
}

// EntityManager allocates entity handles with generational indices and a free
// list, and owns the component signature of every live entity.
type EntityManager struct {
	generations []uint32
	signatures  []Signature
	freeList    []uint32
	nextIndex   uint32

	// living is dense; livingPos maps an index to its slot in living.
	living    []Entity
	livingPos []int32

	maxEntities int
}

func NewEntityManager(maxEntities int) *EntityManager {
	if maxEntities <= 0 {
		maxEntities = DefaultMaxEntities
	}
	return &EntityManager{
		generations: make([]uint32, 0, 1024),
		signatures:  make([]Signature, 0, 1024),
		freeList:    make([]uint32, 0, 256),
		living:      make([]Entity, 0, 1024),
		livingPos:   make([]int32, 0, 1024),
		maxEntities: maxEntities,
	}
}

// CreateEntity returns a recycled or fresh handle with an empty signature.
func (m *EntityManager) CreateEntity() (Entity, error) {
	if len(m.living) >= m.maxEntities {
		return NullEntity, eris.Wrapf(ErrTooManyEntities, "max is %d", m.maxEntities)
	}
	var idx uint32
	if n := len(m.freeList); n > 0 {
		idx = m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
	} else {
		idx = m.nextIndex
		m.nextIndex++
		m.generations = append(m.generations, 1)
		m.signatures = append(m.signatures, Signature{})
		m.livingPos = append(m.livingPos, -1)
	}
	e := NewEntity(idx, m.generations[idx])
	m.signatures[idx].Reset()
	m.livingPos[idx] = int32(len(m.living))
	m.living = append(m.living, e)
	return e, nil
}

// DestroyEntity bumps the generation of e's index and clears its signature.
// Component storage and groups must already have released e.
func (m *EntityManager) DestroyEntity(e Entity) error {
	if !m.IsAlive(e) {
		return eris.Wrapf(ErrEntityNotAlive, "destroy %v", e)
	}
	idx := e.Index()
	m.signatures[idx].Reset()
	m.generations[idx]++
	if m.generations[idx] == 0 {
		// wrapped around; skip the value reserved for the null handle
		m.generations[idx] = 1
	}

	pos := m.livingPos[idx]
	last := len(m.living) - 1
	if int(pos) != last {
		moved := m.living[last]
		m.living[pos] = moved
		m.livingPos[moved.Index()] = pos
	}
	m.living = m.living[:last]
	m.livingPos[idx] = -1
	m.freeList = append(m.freeList, idx)
	return nil
}

// IsAlive reports whether e refers to the current generation of a live index.
func (m *EntityManager) IsAlive(e Entity) bool {
	idx := e.Index()
	if idx >= m.nextIndex {
		return false
	}
	return m.generations[idx] == e.Generation() && m.livingPos[idx] >= 0
}

func (m *EntityManager) Signature(e Entity) (Signature, error) {
	if !m.IsAlive(e) {
		return Signature{}, eris.Wrapf(ErrEntityNotAlive, "signature of %v", e)
	}
	return m.signatures[e.Index()], nil
}

func (m *EntityManager) SetSignature(e Entity, sig Signature) error {
	if !m.IsAlive(e) {
		return eris.Wrapf(ErrEntityNotAlive, "set signature of %v", e)
	}
	m.signatures[e.Index()] = sig
	return nil
}

func (m *EntityManager) LivingCount() int { return len(m.living) }

// LivingEntities returns the live handles. The slice is owned by the manager
// and is reordered by DestroyEntity.
func (m *EntityManager) LivingEntities() []Entity { return m.living }

func (m *EntityManager) MaxEntities() int { return m.maxEntities }

func (m *EntityManager) reset() {
	m.generations = m.generations[:0]
	m.signatures = m.signatures[:0]
	m.freeList = m.freeList[:0]
	m.living = m.living[:0]
	m.livingPos = m.livingPos[:0]
	m.nextIndex = 0
}
