package ecs

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// GroupSpec declares a group. Owned arrays are packed by the group; NonOwned
// types are required but their arrays are left alone; Exclude types must be
// absent.
type GroupSpec struct {
	Name     string
	Owned    []ComponentType
	NonOwned []ComponentType
	Exclude  []ComponentType
}

// key identifies a spec by its filter, independent of declaration order.
func (s GroupSpec) key() string {
	part := func(ts []ComponentType) string {
		sorted := slices.Clone(ts)
		slices.Sort(sorted)
		strs := make([]string, len(sorted))
		for i, t := range sorted {
			strs[i] = fmt.Sprint(t)
		}
		return strings.Join(strs, ",")
	}
	return "owned(" + part(s.Owned) + ")nonowned(" + part(s.NonOwned) + ")exclude(" + part(s.Exclude) + ")"
}

// Group keeps every matching entity in the leading [0, Size()) slots of each
// owned array. The owned arrays share one order across that prefix, so slot
// i of any owned array belongs to the same entity.
type Group struct {
	name     string
	key      string
	owned    Signature
	required Signature
	exclude  Signature

	ownedArrays []ComponentArray
}

func (g *Group) Name() string { return g.name }

// Size is the number of matching entities.
func (g *Group) Size() int { return g.ownedArrays[0].GroupSize() }

// Matches reports whether an entity with sig belongs in the group.
func (g *Group) Matches(sig Signature) bool { return sig.Matches(g.required, g.exclude) }

// Owns reports whether the group packs array t.
func (g *Group) Owns(t ComponentType) bool { return g.owned.Has(t) }

// Entities returns the packed prefix. The slice aliases storage and is
// reordered by any later add, remove, sort or partition.
func (g *Group) Entities() []Entity { return g.ownedArrays[0].Entities()[:g.Size()] }

func (g *Group) Contains(e Entity) bool {
	pos, ok := g.ownedArrays[0].Slot(e)
	return ok && pos < g.Size()
}

// All yields (slot, entity) pairs over the packed prefix.
func (g *Group) All() iter.Seq2[int, Entity] {
	return func(yield func(int, Entity) bool) {
		for i, e := range g.Entities() {
			if !yield(i, e) {
				return
			}
		}
	}
}

func (g *Group) add(e Entity) error {
	for _, arr := range g.ownedArrays {
		if err := arr.AddToGroup(e); err != nil {
			return eris.Wrapf(err, "group %s", g.name)
		}
	}
	return nil
}

func (g *Group) remove(e Entity) error {
	for _, arr := range g.ownedArrays {
		if err := arr.RemoveFromGroup(e); err != nil {
			return eris.Wrapf(err, "group %s", g.name)
		}
	}
	return nil
}

// reorder applies one permutation of the prefix to every owned array.
func (g *Group) reorder(order []Entity) {
	for _, arr := range g.ownedArrays {
		arr.Reorder(order)
	}
}

// SortGroup stably sorts the packed prefix by the values of component T,
// which may be owned or non-owned.
func SortGroup[T any](g *Group, set *SparseSet[T], cmp func(a, b *T) int) error {
	order := slices.Clone(g.Entities())
	var missing error
	slices.SortStableFunc(order, func(a, b Entity) int {
		va, errA := set.Get(a)
		vb, errB := set.Get(b)
		if errA != nil || errB != nil {
			missing = eris.Wrapf(ErrComponentNotFound, "sort group %s", g.name)
			return 0
		}
		return cmp(va, vb)
	})
	if missing != nil {
		return missing
	}
	g.reorder(order)
	return nil
}

// PartitionView is a keyed split of a group's packed prefix. It is valid
// until the next mutation of the group.
type PartitionView[K comparable] struct {
	keys     []K
	ranges   map[K][2]int
	entities []Entity
}

// PartitionBy reorders the packed prefix so entities with equal keys are
// contiguous. Keys appear in order of first appearance and entities keep their
// relative order inside each partition.
func PartitionBy[K comparable](g *Group, key func(slot int, e Entity) K) PartitionView[K] {
	prefix := g.Entities()
	buckets := make(map[K][]Entity)
	var keys []K
	for i, e := range prefix {
		k := key(i, e)
		if _, seen := buckets[k]; !seen {
			keys = append(keys, k)
		}
		buckets[k] = append(buckets[k], e)
	}

	order := make([]Entity, 0, len(prefix))
	ranges := make(map[K][2]int, len(keys))
	for _, k := range keys {
		start := len(order)
		order = append(order, buckets[k]...)
		ranges[k] = [2]int{start, len(order)}
	}
	g.reorder(order)
	return PartitionView[K]{keys: keys, ranges: ranges, entities: g.Entities()}
}

func (p PartitionView[K]) Keys() []K { return p.keys }
func (p PartitionView[K]) Len() int  { return len(p.keys) }

// Range returns the [start, end) slots of partition k within the group.
func (p PartitionView[K]) Range(k K) (start, end int, ok bool) {
	r, ok := p.ranges[k]
	return r[0], r[1], ok
}

func (p PartitionView[K]) Partition(k K) []Entity {
	r, ok := p.ranges[k]
	if !ok {
		return nil
	}
	return p.entities[r[0]:r[1]]
}

// All yields each key with its entities, in key order.
func (p PartitionView[K]) All() iter.Seq2[K, []Entity] {
	return func(yield func(K, []Entity) bool) {
		for _, k := range p.keys {
			if !yield(k, p.Partition(k)) {
				return
			}
		}
	}
}

// groupSet owns every group of a world and routes signature transitions to
// them.
type groupSet struct {
	groups  []*Group
	byName  map[string]*Group
	byKey   map[string]*Group
	ownedBy map[ComponentType]*Group
}

func newGroupSet() *groupSet {
	return &groupSet{
		byName:  make(map[string]*Group),
		byKey:   make(map[string]*Group),
		ownedBy: make(map[ComponentType]*Group),
	}
}

// register creates a group from spec, or returns the existing group with the
// same filter. The bool reports whether the group is new.
func (gs *groupSet) register(spec GroupSpec, cm *ComponentManager) (*Group, bool, error) {
	key := spec.key()
	if g, ok := gs.byKey[key]; ok {
		if spec.Name != "" && spec.Name != g.name {
			if _, taken := gs.byName[spec.Name]; taken {
				return nil, false, eris.Wrapf(ErrOverlappingGroups, "group name %q already in use", spec.Name)
			}
			gs.byName[spec.Name] = g
		}
		return g, false, nil
	}
	if len(spec.Owned) == 0 {
		return nil, false, eris.Wrap(ErrInvalidGroupComponent, "group owns no component")
	}

	g := &Group{name: spec.Name, key: key}
	if g.name == "" {
		g.name = key
	}
	if _, taken := gs.byName[g.name]; taken {
		return nil, false, eris.Wrapf(ErrOverlappingGroups, "group name %q already in use", g.name)
	}

	for _, t := range spec.Owned {
		arr, err := cm.Array(t)
		if err != nil {
			return nil, false, eris.Wrapf(ErrInvalidGroupComponent, "owned type id %d is not registered", t)
		}
		if other, ok := gs.ownedBy[t]; ok {
			return nil, false, eris.Wrapf(ErrOverlappingGroups, "%s already owned by group %s", cm.infos[t].Name, other.name)
		}
		if g.owned.Has(t) {
			continue
		}
		g.owned.Set(t)
		g.ownedArrays = append(g.ownedArrays, arr)
	}
	for _, t := range spec.NonOwned {
		if _, err := cm.Array(t); err != nil {
			return nil, false, eris.Wrapf(ErrInvalidGroupComponent, "non-owned type id %d is not registered", t)
		}
		g.required.Set(t)
	}
	for _, t := range spec.Exclude {
		if _, err := cm.Array(t); err != nil {
			return nil, false, eris.Wrapf(ErrInvalidGroupComponent, "excluded type id %d is not registered", t)
		}
		g.exclude.Set(t)
	}
	g.required = g.required.Union(g.owned)
	if g.required.Intersects(g.exclude) {
		return nil, false, eris.Wrapf(ErrInvalidGroupComponent, "group %s both requires and excludes a type", g.name)
	}
	for _, arr := range g.ownedArrays {
		if arr.GroupSize() != 0 {
			return nil, false, eris.Wrap(ErrOverlappingGroups, "array already packed")
		}
	}

	gs.groups = append(gs.groups, g)
	gs.byName[g.name] = g
	gs.byKey[key] = g
	for _, t := range g.owned.Types() {
		gs.ownedBy[t] = g
	}
	return g, true, nil
}

func (gs *groupSet) get(name string) (*Group, error) {
	g, ok := gs.byName[name]
	if !ok {
		return nil, eris.Wrapf(ErrGroupNotFound, "%q", name)
	}
	return g, nil
}

// transition moves e out of groups it stops matching and into groups it
// starts matching. Groups only touch their owned arrays, so this is safe to
// call before the storage removal of a type that is leaving the signature.
func (gs *groupSet) transition(e Entity, was, is Signature) error {
	for _, g := range gs.groups {
		if g.Matches(was) && !g.Matches(is) {
			if err := g.remove(e); err != nil {
				return err
			}
		}
	}
	for _, g := range gs.groups {
		if !g.Matches(was) && g.Matches(is) {
			if err := g.add(e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (gs *groupSet) entityDestroyed(e Entity, sig Signature) error {
	for _, g := range gs.groups {
		if g.Matches(sig) {
			if err := g.remove(e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (gs *groupSet) reset() {
	gs.groups = nil
	clear(gs.byName)
	clear(gs.byKey)
	clear(gs.ownedBy)
}
