package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// Memento is an opaque snapshot of one component value.
type Memento any

// Snapshotter is implemented (on the pointer receiver) by component types
// that can be captured and rolled back by an undo/redo layer.
type Snapshotter interface {
	Snapshot() Memento
	Restore(m Memento) error
}

// SupportsMemento reports whether *T implements Snapshotter.
func SupportsMemento[T any]() bool {
	_, ok := any((*T)(nil)).(Snapshotter)
	return ok
}

// snapshot and restore let the coordinator reach a typed set's mementos by
// type id alone.
func (s *SparseSet[T]) snapshot(e Entity) (Memento, error) {
	v, err := s.Get(e)
	if err != nil {
		return nil, err
	}
	sn, ok := any(v).(Snapshotter)
	if !ok {
		return nil, eris.Wrapf(ErrMementoUnsupported, "%v", reflect.TypeFor[T]())
	}
	return sn.Snapshot(), nil
}

func (s *SparseSet[T]) restore(e Entity, m Memento) error {
	v, err := s.Get(e)
	if err != nil {
		return err
	}
	sn, ok := any(v).(Snapshotter)
	if !ok {
		return eris.Wrapf(ErrMementoUnsupported, "%v", reflect.TypeFor[T]())
	}
	return sn.Restore(m)
}

type mementoArray interface {
	snapshot(e Entity) (Memento, error)
	restore(e Entity, m Memento) error
}

// SupportsMemento reports whether component type t can be snapshotted.
func (c *Coordinator) SupportsMemento(t ComponentType) bool {
	info, err := c.components.Info(t)
	return err == nil && info.Memento
}

// SaveComponent captures e's component of type t.
func (c *Coordinator) SaveComponent(e Entity, t ComponentType) (Memento, error) {
	arr, err := c.mementoArray(t)
	if err != nil {
		return nil, err
	}
	return arr.snapshot(e)
}

// RestoreComponent rolls e's component of type t back to m. Restoring the
// same memento twice leaves the same state.
func (c *Coordinator) RestoreComponent(e Entity, t ComponentType, m Memento) error {
	arr, err := c.mementoArray(t)
	if err != nil {
		return err
	}
	return arr.restore(e, m)
}

func (c *Coordinator) mementoArray(t ComponentType) (mementoArray, error) {
	if !c.SupportsMemento(t) {
		return nil, eris.Wrapf(ErrMementoUnsupported, "type id %d", t)
	}
	arr, err := c.components.Array(t)
	if err != nil {
		return nil, err
	}
	return arr.(mementoArray), nil
}
