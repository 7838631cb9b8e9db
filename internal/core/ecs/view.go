package ecs

import (
	"iter"
	"reflect"

	"github.com/rotisserie/eris"
)

// systemScope is what a running system may touch: its declared component
// modes and its singleton pointers, cached at registration.
type systemScope struct {
	c          *Coordinator
	components map[reflect.Type]AccessMode
	singletons map[reflect.Type]cachedSingleton
}

type cachedSingleton struct {
	ptr  any
	mode AccessMode
}

// SystemContext is implemented by *Query and *GroupView.
type SystemContext interface {
	Commands() *CommandBuffer
	scopeOf() *systemScope
}

// Query is handed to a QuerySystem on each update.
type Query struct {
	scope *systemScope
	entry *systemEntry
}

func (q *Query) scopeOf() *systemScope     { return q.scope }
func (q *Query) Commands() *CommandBuffer { return q.scope.c.commands }
func (q *Query) Len() int                 { return q.entry.members.Len() }

// Entities returns the matching entities. The slice aliases internal state.
func (q *Query) Entities() []Entity { return q.entry.members.Entities() }

// Iterate yields every matching entity, walking backward so the current
// entity may leave the query during the loop without another being skipped.
func (q *Query) Iterate() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for i := q.entry.members.Len() - 1; i >= 0; i-- {
			if i >= q.entry.members.Len() {
				continue
			}
			if !yield(q.entry.members.entities[i]) {
				return
			}
		}
	}
}

// GroupView is handed to a GroupSystem on each update.
type GroupView struct {
	scope *systemScope
	group *Group
}

func (v *GroupView) scopeOf() *systemScope     { return v.scope }
func (v *GroupView) Commands() *CommandBuffer { return v.scope.c.commands }
func (v *GroupView) Len() int                 { return v.group.Size() }
func (v *GroupView) Name() string             { return v.group.Name() }

// Entities returns the packed prefix, aligned with the columns.
func (v *GroupView) Entities() []Entity { return v.group.Entities() }

func (v *GroupView) All() iter.Seq2[int, Entity] { return v.group.All() }

// ColumnView reads one component across a group, slot by slot.
type ColumnView[T any] struct {
	entities []Entity
	dense    []T
	set      *SparseSet[T]
}

func (c ColumnView[T]) Len() int { return len(c.entities) }

// At returns slot i's value. Owned columns index the packed array directly;
// non-owned columns look the entity up.
func (c ColumnView[T]) At(i int) T {
	if c.dense != nil {
		return c.dense[i]
	}
	p, err := c.set.Get(c.entities[i])
	if err != nil {
		var zero T
		return zero
	}
	return *p
}

// Column returns a read view of T. T must be declared Read or Write.
func Column[T any](v *GroupView) (ColumnView[T], error) {
	set, err := scopedSet[T](v.scope, AccessRead)
	if err != nil {
		return ColumnView[T]{}, err
	}
	col := ColumnView[T]{entities: v.group.Entities(), set: set}
	id, _ := ComponentTypeOf[T](v.scope.c.components)
	if v.group.Owns(id) {
		col.dense = set.Values()[:v.group.Size()]
	}
	return col, nil
}

// MutColumn returns the packed values of an owned, writable T, aligned with
// Entities().
func MutColumn[T any](v *GroupView) ([]T, error) {
	set, err := scopedSet[T](v.scope, AccessWrite)
	if err != nil {
		return nil, err
	}
	id, _ := ComponentTypeOf[T](v.scope.c.components)
	if !v.group.Owns(id) {
		return nil, eris.Wrapf(ErrAccessDenied, "%v is not owned by group %s", reflect.TypeFor[T](), v.group.Name())
	}
	return set.Values()[:v.group.Size()], nil
}

// SortBy stably reorders the group by T. T must be declared.
func SortBy[T any](v *GroupView, cmp func(a, b *T) int) error {
	set, err := scopedSet[T](v.scope, AccessRead)
	if err != nil {
		return err
	}
	return SortGroup(v.group, set, cmp)
}

// Partition splits the group by a key computed per slot.
func Partition[K comparable](v *GroupView, key func(slot int, e Entity) K) PartitionView[K] {
	return PartitionBy(v.group, key)
}

// Get returns a copy of e's T. T must be declared Read or Write.
func Get[T any](ctx SystemContext, e Entity) (T, error) {
	var zero T
	set, err := scopedSet[T](ctx.scopeOf(), AccessRead)
	if err != nil {
		return zero, err
	}
	p, err := set.Get(e)
	if err != nil {
		return zero, err
	}
	return *p, nil
}

// GetMut returns a pointer to e's T. T must be declared Write.
func GetMut[T any](ctx SystemContext, e Entity) (*T, error) {
	set, err := scopedSet[T](ctx.scopeOf(), AccessWrite)
	if err != nil {
		return nil, err
	}
	return set.Get(e)
}

// Has reports whether e has T. T must be declared with any mode,
// Exclude included.
func Has[T any](ctx SystemContext, e Entity) (bool, error) {
	sc := ctx.scopeOf()
	if _, ok := sc.components[reflect.TypeFor[T]()]; !ok {
		return false, eris.Wrapf(ErrAccessDenied, "%v not declared", reflect.TypeFor[T]())
	}
	return hasComponent[T](sc.c.components, e), nil
}

// Singleton returns a copy of the T singleton declared by the system.
func Singleton[T any](ctx SystemContext) (T, error) {
	var zero T
	p, err := scopedSingleton[T](ctx.scopeOf(), AccessRead)
	if err != nil {
		return zero, err
	}
	return *p, nil
}

// SingletonMut returns the T singleton, which must be declared WriteSingleton.
func SingletonMut[T any](ctx SystemContext) (*T, error) {
	return scopedSingleton[T](ctx.scopeOf(), AccessWrite)
}

func scopedSet[T any](sc *systemScope, need AccessMode) (*SparseSet[T], error) {
	typ := reflect.TypeFor[T]()
	mode, ok := sc.components[typ]
	if !ok || mode == AccessExclude || (need == AccessWrite && mode != AccessWrite) {
		return nil, eris.Wrapf(ErrAccessDenied, "%s %v not declared", need, typ)
	}
	return setOf[T](sc.c.components)
}

func scopedSingleton[T any](sc *systemScope, need AccessMode) (*T, error) {
	typ := reflect.TypeFor[T]()
	cached, ok := sc.singletons[typ]
	if !ok || (need == AccessWrite && cached.mode != AccessWrite) {
		return nil, eris.Wrapf(ErrAccessDenied, "%s singleton %v not declared", need, typ)
	}
	return cached.ptr.(*T), nil
}
