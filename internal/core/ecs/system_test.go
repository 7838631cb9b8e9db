package ecs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/ecsworld/internal/core/system"
)

func TestQueryExcludeScenario(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := RegisterComponent[compA](c)
	require.NoError(t, err)
	_, err = RegisterComponent[compB](c)
	require.NoError(t, err)

	es := mustCreate(t, c, 3)
	require.NoError(t, AddComponent(c, es[0], compA{}))
	require.NoError(t, AddComponent(c, es[1], compA{}))
	require.NoError(t, AddComponent(c, es[1], compB{}))

	rec := &queryRecorder{access: []Access{Read[compA](), Exclude[compB]()}}
	id, err := c.RegisterQuerySystem(rec)
	require.NoError(t, err)

	require.NoError(t, c.UpdateSystems(0))
	assert.Equal(t, []Entity{es[0]}, rec.seen)

	members, err := c.SystemEntities(id)
	require.NoError(t, err)
	assert.Equal(t, []Entity{es[0]}, members)
}

func TestQueryExcludeNeverYieldsExcluded(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := RegisterComponent[compA](c)
	require.NoError(t, err)
	_, err = RegisterComponent[compB](c)
	require.NoError(t, err)

	rec := &queryRecorder{access: []Access{Read[compA](), Exclude[compB]()}}
	_, err = c.RegisterQuerySystem(rec)
	require.NoError(t, err)

	es := mustCreate(t, c, 16)
	for i, e := range es {
		if i&1 != 0 {
			require.NoError(t, AddComponent(c, e, compA{}))
		}
		if i&2 != 0 {
			require.NoError(t, AddComponent(c, e, compB{}))
		}
	}
	require.NoError(t, c.UpdateSystems(0))
	require.Len(t, rec.seen, 4)
	for _, e := range rec.seen {
		assert.True(t, HasComponent[compA](c, e))
		assert.False(t, HasComponent[compB](c, e))
	}

	for _, e := range es {
		_ = TryRemoveComponent[compB](c, e)
	}
	require.NoError(t, c.UpdateSystems(0))
	assert.Len(t, rec.seen, 8)
}

func TestQueryWithoutRequirementsSeesEveryEntity(t *testing.T) {
	c := newTestCoordinator(t)
	rec := &queryRecorder{}
	_, err := c.RegisterQuerySystem(rec)
	require.NoError(t, err)

	es := mustCreate(t, c, 3)
	require.NoError(t, c.DestroyEntity(es[1]))
	require.NoError(t, c.UpdateSystems(0))
	assert.ElementsMatch(t, []Entity{es[0], es[2]}, rec.seen)
}

func TestGroupSystemOverlapRejected(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := RegisterComponent[compA](c)
	require.NoError(t, err)
	_, err = RegisterComponent[compB](c)
	require.NoError(t, err)

	first := &groupRecorder{access: Owned(Write[compA](), Read[compB]())}
	_, err = c.RegisterGroupSystem(first)
	require.NoError(t, err)

	second := &groupRecorder{access: Owned(Write[compB]())}
	_, err = c.RegisterGroupSystem(second)
	require.ErrorIs(t, err, ErrOverlappingGroups)
	assert.Equal(t, 0, c.LivingCount(), "rejected before any entity exists")
}

func TestGroupSystemIteratesPackedPrefix(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := RegisterComponent[position](c)
	require.NoError(t, err)
	_, err = RegisterComponent[velocity](c)
	require.NoError(t, err)
	_, err = RegisterComponent[compD](c)
	require.NoError(t, err)

	mover := &groupRecorder{
		access: Accesses(
			Owned(Write[position]()),
			NonOwned(Read[velocity]()),
			[]Access{Exclude[compD]()},
		),
	}
	mover.run = func(v *GroupView) error {
		pos, err := MutColumn[position](v)
		if err != nil {
			return err
		}
		vel, err := Column[velocity](v)
		if err != nil {
			return err
		}
		for i := range pos {
			d := vel.At(i)
			pos[i].X += d.DX
			pos[i].Y += d.DY
		}
		return nil
	}
	_, err = c.RegisterGroupSystem(mover)
	require.NoError(t, err)

	es := mustCreate(t, c, 3)
	for _, e := range es {
		require.NoError(t, AddComponent(c, e, position{}))
		require.NoError(t, AddComponent(c, e, velocity{DX: 1, DY: 2}))
	}
	require.NoError(t, AddComponent(c, es[2], compD{}))

	require.NoError(t, c.UpdateSystems(0))
	assert.Equal(t, 2, mover.size)
	for i, e := range es {
		p, err := GetComponent[position](c, e)
		require.NoError(t, err)
		if i == 2 {
			assert.Equal(t, position{}, *p, "excluded entity must not move")
		} else {
			assert.Equal(t, position{X: 1, Y: 2}, *p)
		}
	}
}

func TestNamedGroupSystem(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := RegisterComponent[compA](c)
	require.NoError(t, err)

	_, err = c.RegisterGroupSystem(&namedProbe{groupRecorder: groupRecorder{access: []Access{Read[compA]()}}, name: "missing"})
	require.ErrorIs(t, err, ErrGroupNotFound)

	_, err = c.RegisterGroup(GroupSpec{Name: "as", Owned: []ComponentType{0}})
	require.NoError(t, err)
	id, err := c.RegisterGroupSystem(&namedProbe{groupRecorder: groupRecorder{access: []Access{Read[compA]()}}, name: "as"})
	require.NoError(t, err)
	info, err := c.systems.Info(id)
	require.NoError(t, err)
	assert.Equal(t, "as", info.Group)
}

type namedProbe struct {
	groupRecorder
	name string
}

func (p *namedProbe) GroupName() string { return p.name }

func TestAccessChecks(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := RegisterComponent[compA](c)
	require.NoError(t, err)
	_, err = RegisterComponent[compB](c)
	require.NoError(t, err)
	require.NoError(t, RegisterSingleton(c, gameClock{}))

	e := mustCreate(t, c, 1)[0]
	require.NoError(t, AddComponent(c, e, compA{V: 1}))
	require.NoError(t, AddComponent(c, e, compB{V: 2}))

	tests := []struct {
		name   string
		access []Access
		run    func(q *Query) error
		want   error
	}{
		{
			name:   "read declared",
			access: []Access{Read[compA]()},
			run: func(q *Query) error {
				_, err := Get[compA](q, e)
				return err
			},
		},
		{
			name:   "write through read",
			access: []Access{Read[compA]()},
			run: func(q *Query) error {
				_, err := GetMut[compA](q, e)
				return err
			},
			want: ErrAccessDenied,
		},
		{
			name:   "undeclared component",
			access: []Access{Read[compA]()},
			run: func(q *Query) error {
				_, err := Get[compB](q, e)
				return err
			},
			want: ErrAccessDenied,
		},
		{
			name:   "singleton write",
			access: []Access{WriteSingleton[gameClock]()},
			run: func(q *Query) error {
				clock, err := SingletonMut[gameClock](q)
				if err != nil {
					return err
				}
				clock.Frame++
				return nil
			},
		},
		{
			name:   "singleton write through read",
			access: []Access{ReadSingleton[gameClock]()},
			run: func(q *Query) error {
				_, err := SingletonMut[gameClock](q)
				return err
			},
			want: ErrAccessDenied,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &queryRecorder{access: tt.access, run: tt.run}
			id, err := c.RegisterQuerySystem(rec)
			require.NoError(t, err)
			defer func() { require.NoError(t, c.SetSystemEnabled(id, false)) }()

			err = c.UpdateSystems(0)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}

	clock, err := GetSingleton[gameClock](c)
	require.NoError(t, err)
	assert.Equal(t, 1, clock.Frame)
}

func TestRegisterSystemErrors(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := RegisterComponent[compA](c)
	require.NoError(t, err)

	_, err = c.RegisterQuerySystem(&queryRecorder{access: []Access{Read[compB]()}})
	assert.ErrorIs(t, err, ErrComponentNotRegistered)

	_, err = c.RegisterQuerySystem(&queryRecorder{access: []Access{ReadSingleton[gameClock]()}})
	assert.ErrorIs(t, err, ErrSingletonComponentNotRegistered)

	_, err = c.RegisterGroupSystem(&groupRecorder{access: Owned(Write[compA](), Write[compB]())})
	assert.ErrorIs(t, err, ErrInvalidGroupComponent)
	_, err = c.RegisterGroupSystem(&groupRecorder{access: Accesses(Owned(Write[compA]()), []Access{Exclude[compB]()})})
	assert.ErrorIs(t, err, ErrInvalidGroupComponent)
	assert.Equal(t, KindMisconfiguration, KindOf(err))

	rec := &queryRecorder{access: []Access{Read[compA]()}}
	_, err = c.RegisterQuerySystem(rec)
	require.NoError(t, err)
	_, err = c.RegisterQuerySystem(rec)
	assert.ErrorIs(t, err, ErrSystemAlreadyRegistered)

	err = c.SetSystemEnabled(SystemID(42), false)
	assert.ErrorIs(t, err, ErrSystemNotRegistered)
	_, err = c.SystemEntities(SystemID(-1))
	assert.ErrorIs(t, err, ErrSystemNotRegistered)
}

type phasedRecorder struct {
	queryRecorder
	p system.Phase
}

func (p *phasedRecorder) Phase() system.Phase { return p.p }

func TestDispatchOrder(t *testing.T) {
	c := newTestCoordinator(t)
	var calls []string

	register := func(s QuerySystem) SystemID {
		id, err := c.RegisterQuerySystem(s)
		require.NoError(t, err)
		return id
	}
	register(&queryRecorder{label: "update-1", calls: &calls})
	register(&phasedRecorder{queryRecorder: queryRecorder{label: "cleanup", calls: &calls}, p: system.PhaseCleanup})
	register(&phasedRecorder{queryRecorder: queryRecorder{label: "input", calls: &calls}, p: system.PhaseInput})
	disabled := register(&queryRecorder{label: "disabled", calls: &calls})
	register(&queryRecorder{label: "update-2", calls: &calls})

	require.NoError(t, c.SetSystemEnabled(disabled, false))
	require.NoError(t, c.UpdateSystems(0))
	assert.Equal(t, []string{"input", "update-1", "update-2", "cleanup"}, calls)

	infos := c.Systems()
	require.Len(t, infos, 5)
	assert.Equal(t, system.PhaseInput, infos[0].Phase)
}

func TestSystemErrorAbortsStep(t *testing.T) {
	c := newTestCoordinator(t)
	var calls []string
	boom := errors.New("boom")

	_, err := c.RegisterQuerySystem(&queryRecorder{label: "first", calls: &calls, run: func(*Query) error { return boom }})
	require.NoError(t, err)
	_, err = c.RegisterQuerySystem(&queryRecorder{label: "second", calls: &calls})
	require.NoError(t, err)

	err = c.UpdateSystems(0)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first"}, calls)
}

func TestWriteConflicts(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := RegisterComponent[compA](c)
	require.NoError(t, err)

	_, err = c.RegisterQuerySystem(&queryRecorder{access: []Access{Write[compA](), Write[compA]()}})
	require.NoError(t, err)
	assert.Empty(t, c.WriteConflicts(), "a system does not conflict with itself")

	_, err = c.RegisterQuerySystem(&queryRecorder{access: []Access{Write[compA]()}})
	require.NoError(t, err, "overlapping writes are allowed")

	conflicts := c.WriteConflicts()
	require.Len(t, conflicts, 1)
	assert.Len(t, conflicts[0].Systems, 2)
}

func TestCommandBuffer(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := RegisterComponent[compA](c)
	require.NoError(t, err)
	_, err = RegisterComponent[compB](c)
	require.NoError(t, err)

	es := mustCreate(t, c, 4)
	for _, e := range es {
		require.NoError(t, AddComponent(c, e, compA{V: int(e.Index())}))
	}

	reaper := &queryRecorder{access: []Access{Read[compA]()}}
	reaper.run = func(q *Query) error {
		for e := range q.Iterate() {
			v, err := Get[compA](q, e)
			if err != nil {
				return err
			}
			switch {
			case v.V%2 == 0:
				q.Commands().DestroyEntity(e)
				q.Commands().DestroyEntity(e)
				EnqueueAdd(q.Commands(), e, compB{})
			default:
				EnqueueRemove[compA](q.Commands(), e)
				EnqueueAdd(q.Commands(), e, compB{V: 1})
			}
		}
		assert.Equal(t, 4, q.Len(), "structure is unchanged while iterating")
		return nil
	}
	_, err = c.RegisterQuerySystem(reaper)
	require.NoError(t, err)

	require.NoError(t, c.UpdateSystems(0))
	assert.Equal(t, 0, c.Commands().Len())
	for _, e := range es {
		if e.Index()%2 == 0 {
			assert.False(t, c.IsAlive(e))
			continue
		}
		assert.False(t, HasComponent[compA](c, e))
		b, err := GetComponent[compB](c, e)
		require.NoError(t, err)
		assert.Equal(t, 1, b.V)
	}

	// commands against dead entities are dropped
	EnqueueAdd(c.Commands(), es[0], compA{})
	require.NoError(t, c.Commands().Flush())
}

func TestQueryIterateAllowsRemovingCurrent(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := RegisterComponent[compA](c)
	require.NoError(t, err)
	es := mustCreate(t, c, 5)
	for _, e := range es {
		require.NoError(t, AddComponent(c, e, compA{}))
	}

	rec := &queryRecorder{access: []Access{Read[compA]()}}
	id, err := c.RegisterQuerySystem(rec)
	require.NoError(t, err)

	var visited []Entity
	q := &Query{scope: c.systems.entries[id].scope, entry: c.systems.entries[id]}
	for e := range q.Iterate() {
		visited = append(visited, e)
		require.NoError(t, RemoveComponent[compA](c, e))
	}
	assert.ElementsMatch(t, es, visited)
	assert.Equal(t, 0, q.Len())
}

// valueSystem is registered by value; its interface field may hold an
// unhashable value.
type valueSystem struct{ data any }

func (valueSystem) Access() []Access                   { return nil }
func (valueSystem) Update(*Query, time.Duration) error { return nil }

func TestValueSystemsAreNotDeduplicated(t *testing.T) {
	c := newTestCoordinator(t)
	s := valueSystem{data: []int{1, 2}}

	var first, second SystemID
	require.NotPanics(t, func() {
		var err error
		first, err = c.RegisterQuerySystem(s)
		require.NoError(t, err)
		second, err = c.RegisterQuerySystem(s)
		require.NoError(t, err)
	})
	assert.NotEqual(t, first, second)
	assert.NoError(t, c.UpdateSystems(0))
}

type untrackedRecorder struct{ queryRecorder }

func (*untrackedRecorder) Untracked() bool { return true }

func TestUntrackedQuerySystem(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := RegisterComponent[compA](c)
	require.NoError(t, err)
	require.NoError(t, RegisterSingleton(c, gameClock{}))

	mustCreate(t, c, 2)
	var calls []string
	rec := &untrackedRecorder{queryRecorder{
		access: []Access{WriteSingleton[gameClock]()},
		calls:  &calls,
		label:  "clock",
		run: func(q *Query) error {
			clock, err := SingletonMut[gameClock](q)
			if err != nil {
				return err
			}
			clock.Frame++
			return nil
		},
	}}
	id, err := c.RegisterQuerySystem(rec)
	require.NoError(t, err)

	for _, e := range mustCreate(t, c, 3) {
		require.NoError(t, AddComponent(c, e, compA{V: 1}))
	}
	require.NoError(t, c.UpdateSystems(0))

	assert.Equal(t, []string{"clock"}, calls)
	assert.Empty(t, rec.seen)
	members, err := c.SystemEntities(id)
	require.NoError(t, err)
	assert.Empty(t, members)
	clock, err := GetSingleton[gameClock](c)
	require.NoError(t, err)
	assert.Equal(t, 1, clock.Frame)
}
