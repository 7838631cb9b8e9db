package ecs

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSparseSetCapacityBoundary(t *testing.T) {
	const n = 4
	set := NewSparseSet[compA](n)
	for i := 0; i < n; i++ {
		require.NoError(t, set.Insert(NewEntity(uint32(i), 1), compA{V: i}))
	}
	err := set.Insert(NewEntity(n, 1), compA{})
	require.ErrorIs(t, err, ErrTooManyEntities)
	assert.Equal(t, n, set.Len())
}

func TestSparseSetSwapRemove(t *testing.T) {
	set := NewSparseSet[compA](8)
	es := []Entity{NewEntity(0, 1), NewEntity(1, 1), NewEntity(2, 1), NewEntity(3, 1)}
	for i, e := range es {
		require.NoError(t, set.Insert(e, compA{V: i * 10}))
	}

	require.NoError(t, set.Remove(es[1]))
	assert.Equal(t, 3, set.Len())
	assert.False(t, set.Has(es[1]))
	// the last element fills the hole
	assert.Equal(t, []Entity{es[0], es[3], es[2]}, set.Entities())
	for i, e := range es {
		if i == 1 {
			continue
		}
		v, err := set.Get(e)
		require.NoError(t, err)
		assert.Equal(t, i*10, v.V)
	}

	err := set.Remove(es[1])
	assert.ErrorIs(t, err, ErrComponentNotFound)
	assert.Equal(t, KindMissingState, KindOf(err))
}

func TestSparseSetStaleHandle(t *testing.T) {
	set := NewSparseSet[compA](4)
	e := NewEntity(2, 1)
	require.NoError(t, set.Insert(e, compA{V: 1}))

	stale := NewEntity(2, 2)
	assert.False(t, set.Has(stale))
	_, err := set.Get(stale)
	assert.ErrorIs(t, err, ErrComponentNotFound)

	err = set.Insert(e, compA{})
	assert.ErrorIs(t, err, ErrComponentAlreadyExists)
}

func TestSparseSetOutOfRange(t *testing.T) {
	set := NewSparseSet[compA](4)
	require.NoError(t, set.Insert(NewEntity(0, 1), compA{V: 5}))

	v, err := set.At(0)
	require.NoError(t, err)
	assert.Equal(t, 5, v.V)

	_, err = set.At(1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = set.EntityAt(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestSparseSetGroupPrefix(t *testing.T) {
	set := NewSparseSet[compA](8)
	es := make([]Entity, 5)
	for i := range es {
		es[i] = NewEntity(uint32(i), 1)
		require.NoError(t, set.Insert(es[i], compA{V: i}))
	}

	require.NoError(t, set.AddToGroup(es[3]))
	require.NoError(t, set.AddToGroup(es[1]))
	require.NoError(t, set.AddToGroup(es[1]), "adding twice is a no-op")
	assert.Equal(t, 2, set.GroupSize())
	assert.ElementsMatch(t, []Entity{es[3], es[1]}, set.Entities()[:2])

	// removing a grouped entity from storage keeps the prefix packed
	require.NoError(t, set.Remove(es[3]))
	assert.Equal(t, 1, set.GroupSize())
	assert.Equal(t, es[1], set.Entities()[0])

	require.NoError(t, set.RemoveFromGroup(es[1]))
	assert.Equal(t, 0, set.GroupSize())
	require.NoError(t, set.RemoveFromGroup(es[1]), "removing twice is a no-op")

	for i, e := range es {
		if i == 3 {
			continue
		}
		v, err := set.Get(e)
		require.NoError(t, err)
		assert.Equal(t, i, v.V)
	}
}

func TestSparseSetRawBytes(t *testing.T) {
	set := NewSparseSet[position](4)
	e := NewEntity(0, 1)

	raw := make([]byte, 8)
	binary.LittleEndian.PutUint32(raw[0:], math.Float32bits(1.5))
	binary.LittleEndian.PutUint32(raw[4:], math.Float32bits(-2))
	require.NoError(t, set.InsertRaw(e, raw))

	p, err := set.Get(e)
	require.NoError(t, err)
	assert.Equal(t, position{X: 1.5, Y: -2}, *p)

	view, err := set.RawBytes(e)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(view[0:], math.Float32bits(9))
	assert.Equal(t, float32(9), p.X, "raw view should alias the stored value")

	err = set.InsertRaw(NewEntity(1, 1), []byte{1, 2})
	assert.ErrorIs(t, err, ErrRawSizeMismatch)

	strings := NewSparseSet[named](4)
	require.NoError(t, strings.Insert(e, named{Name: "x"}))
	_, err = strings.RawBytes(e)
	assert.ErrorIs(t, err, ErrRawAccessUnsupported)
}

func TestTypeErasedSparseSet(t *testing.T) {
	set := NewTypeErasedSparseSet(4, 3)
	es := []Entity{NewEntity(0, 1), NewEntity(1, 1), NewEntity(2, 1)}
	for i, e := range es {
		require.NoError(t, set.InsertRaw(e, []byte{byte(i), byte(i), byte(i), byte(i)}))
	}
	err := set.InsertRaw(NewEntity(3, 1), make([]byte, 4))
	require.ErrorIs(t, err, ErrTooManyEntities)

	require.NoError(t, set.AddToGroup(es[2]))
	require.NoError(t, set.Remove(es[0]))
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, 1, set.GroupSize())
	assert.Equal(t, es[2], set.Entities()[0])

	b, err := set.RawBytes(es[1])
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 1, 1}, b)
	b, err = set.At(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 2, 2, 2}, b)

	_, err = set.At(2)
	assert.ErrorIs(t, err, ErrOutOfRange)

	require.NoError(t, set.Duplicate(es[1], NewEntity(5, 1)))
	dup, err := set.GetAny(NewEntity(5, 1))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 1, 1}, dup)
}

func TestSparseSetReorder(t *testing.T) {
	set := NewSparseSet[compA](8)
	es := make([]Entity, 4)
	for i := range es {
		es[i] = NewEntity(uint32(i), 1)
		require.NoError(t, set.Insert(es[i], compA{V: i}))
	}
	set.Reorder([]Entity{es[2], es[0], es[3], es[1]})
	assert.Equal(t, []Entity{es[2], es[0], es[3], es[1]}, set.Entities())
	assert.Equal(t, []compA{{2}, {0}, {3}, {1}}, set.Values())
}
