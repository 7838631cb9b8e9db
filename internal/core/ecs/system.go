package ecs

import (
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsworld/internal/core/system"
)

// SystemID identifies a registered system within one world.
type SystemID int

// QuerySystem re-filters the live entity set by signature. Use it where
// membership changes too often or too rarely to justify a group.
type QuerySystem interface {
	Access() []Access
	Update(q *Query, dt time.Duration) error
}

// GroupSystem is bound to one group built from its Owned/NonOwned/Exclude
// accesses and iterates that group's packed prefix.
type GroupSystem interface {
	Access() []Access
	Update(v *GroupView, dt time.Duration) error
}

// NamedGroupSystem binds to an existing group by name instead of deriving
// one from its accesses.
type NamedGroupSystem interface {
	GroupSystem
	GroupName() string
}

// Untracked query systems keep no membership, so their Query is always
// empty. Systems that only touch singletons, or reach the world through the
// coordinator, skip the per-entity bookkeeping this way.
type Untracked interface {
	Untracked() bool
}

// Phased systems run in phase order. Systems without a phase run in
// system.PhaseUpdate. Ties keep registration order.
type Phased interface {
	Phase() system.Phase
}

// SystemInfo describes a registered system.
type SystemInfo struct {
	ID      SystemID
	Name    string
	Phase   system.Phase
	Group   string
	Enabled bool
	Access  []Access
}

// WriteConflict lists systems that declare Write on the same type. Nothing
// prevents such systems from running back to back; ordering between them is
// the registering code's responsibility.
type WriteConflict struct {
	Type    reflect.Type
	Systems []string
}

type systemEntry struct {
	id      SystemID
	name    string
	phase   system.Phase
	enabled bool
	access  []Access

	query QuerySystem
	gsys  GroupSystem

	required  Signature
	exclude   Signature
	members   sparseIndex
	untracked bool
	group     *Group

	scope *systemScope
}

// SystemManager registers systems, keeps query memberships current and
// dispatches updates.
type SystemManager struct {
	entries []*systemEntry
	ordered []*systemEntry
	seen    map[any]SystemID
	log     *zap.Logger
}

func NewSystemManager(log *zap.Logger) *SystemManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &SystemManager{seen: make(map[any]SystemID), log: log}
}

func (sm *SystemManager) entry(id SystemID) (*systemEntry, error) {
	if id < 0 || int(id) >= len(sm.entries) {
		return nil, eris.Wrapf(ErrSystemNotRegistered, "system id %d", id)
	}
	return sm.entries[id], nil
}

// Only pointer systems are deduplicated: a comparable struct may still hold
// an unhashable value in an interface field.
func dedupable(impl any) bool {
	return reflect.TypeOf(impl).Kind() == reflect.Pointer
}

func (sm *SystemManager) checkDuplicate(impl any) error {
	if !dedupable(impl) {
		return nil
	}
	if id, ok := sm.seen[impl]; ok {
		return eris.Wrapf(ErrSystemAlreadyRegistered, "%T registered as system %d", impl, id)
	}
	return nil
}

func (sm *SystemManager) add(e *systemEntry, impl any) SystemID {
	e.id = SystemID(len(sm.entries))
	e.enabled = true
	e.name = fmt.Sprintf("%T", impl)
	e.phase = system.PhaseUpdate
	if p, ok := impl.(Phased); ok {
		e.phase = p.Phase()
	}
	sm.entries = append(sm.entries, e)
	if dedupable(impl) {
		sm.seen[impl] = e.id
	}
	sm.ordered = append(sm.ordered, e)
	slices.SortStableFunc(sm.ordered, func(a, b *systemEntry) int {
		if a.phase != b.phase {
			return int(a.phase) - int(b.phase)
		}
		return int(a.id) - int(b.id)
	})
	for _, c := range sm.WriteConflicts() {
		if slices.Contains(c.Systems, e.name) {
			sm.log.Warn("systems share write access",
				zap.String("type", c.Type.String()),
				zap.Strings("systems", c.Systems))
		}
	}
	sm.log.Debug("system registered",
		zap.Int("id", int(e.id)),
		zap.String("name", e.name),
		zap.Int("phase", int(e.phase)))
	return e.id
}

// entitySignatureChanged updates every query system's membership for e.
func (sm *SystemManager) entitySignatureChanged(e Entity, sig Signature) {
	for _, s := range sm.entries {
		if s.query == nil || s.untracked {
			continue
		}
		member := s.members.Has(e)
		match := sig.Matches(s.required, s.exclude)
		switch {
		case match && !member:
			_, _ = s.members.push(e)
		case !match && member:
			_, _ = s.members.remove(e, s.members.swapEntities)
		}
	}
}

func (sm *SystemManager) entityDestroyed(e Entity) {
	for _, s := range sm.entries {
		if s.query != nil && s.members.Has(e) {
			_, _ = s.members.remove(e, s.members.swapEntities)
		}
	}
}

// update runs every enabled system once. The first error aborts the rest of
// the step.
func (sm *SystemManager) update(dt time.Duration) error {
	for _, s := range sm.ordered {
		if !s.enabled {
			continue
		}
		var err error
		if s.query != nil {
			err = s.query.Update(&Query{scope: s.scope, entry: s}, dt)
		} else {
			err = s.gsys.Update(&GroupView{scope: s.scope, group: s.group}, dt)
		}
		if err != nil {
			return eris.Wrapf(err, "system %s", s.name)
		}
	}
	return nil
}

func (sm *SystemManager) SetSystemEnabled(id SystemID, enabled bool) error {
	s, err := sm.entry(id)
	if err != nil {
		return err
	}
	s.enabled = enabled
	return nil
}

// SystemEntities returns the entities a system currently iterates.
func (sm *SystemManager) SystemEntities(id SystemID) ([]Entity, error) {
	s, err := sm.entry(id)
	if err != nil {
		return nil, err
	}
	if s.group != nil {
		return slices.Clone(s.group.Entities()), nil
	}
	return slices.Clone(s.members.Entities()), nil
}

func (sm *SystemManager) Info(id SystemID) (SystemInfo, error) {
	s, err := sm.entry(id)
	if err != nil {
		return SystemInfo{}, err
	}
	info := SystemInfo{ID: s.id, Name: s.name, Phase: s.phase, Enabled: s.enabled, Access: s.access}
	if s.group != nil {
		info.Group = s.group.Name()
	}
	return info, nil
}

// Systems lists registered systems in dispatch order.
func (sm *SystemManager) Systems() []SystemInfo {
	out := make([]SystemInfo, 0, len(sm.ordered))
	for _, s := range sm.ordered {
		info, _ := sm.Info(s.id)
		out = append(out, info)
	}
	return out
}

// WriteConflicts reports component and singleton types written by more than
// one system. It is diagnostic only.
func (sm *SystemManager) WriteConflicts() []WriteConflict {
	writers := make(map[reflect.Type][]string)
	var order []reflect.Type
	for _, s := range sm.entries {
		written := make(map[reflect.Type]bool)
		for _, a := range s.access {
			if a.Mode != AccessWrite || written[a.Type] {
				continue
			}
			written[a.Type] = true
			if _, ok := writers[a.Type]; !ok {
				order = append(order, a.Type)
			}
			writers[a.Type] = append(writers[a.Type], s.name)
		}
	}
	var out []WriteConflict
	for _, t := range order {
		if len(writers[t]) > 1 {
			out = append(out, WriteConflict{Type: t, Systems: writers[t]})
		}
	}
	return out
}

func (sm *SystemManager) reset() {
	sm.entries = nil
	sm.ordered = nil
	clear(sm.seen)
}
