package system

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/ecsworld/internal/component"
	"github.com/l1jgo/ecsworld/internal/core/ecs"
)

func newWorld(t *testing.T) (*ecs.Coordinator, *Systems) {
	t.Helper()
	c := ecs.NewCoordinator(ecs.WithMaxEntities(256))
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, component.Register(c))
	s, err := Register(c)
	require.NoError(t, err)
	return c, s
}

func spawn(t *testing.T, c *ecs.Coordinator, comps ...func(ecs.Entity) error) ecs.Entity {
	t.Helper()
	e, err := c.CreateEntity()
	require.NoError(t, err)
	for _, add := range comps {
		require.NoError(t, add(e))
	}
	return e
}

func with[T any](c *ecs.Coordinator, v T) func(ecs.Entity) error {
	return func(e ecs.Entity) error { return ecs.AddComponent(c, e, v) }
}

func TestClockSystem(t *testing.T) {
	c, _ := newWorld(t)
	for range 3 {
		require.NoError(t, c.UpdateSystems(100*time.Millisecond))
	}
	clock, err := ecs.GetSingleton[component.Clock](c)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), clock.Tick)
	assert.Equal(t, 100*time.Millisecond, clock.Delta)
	assert.Equal(t, 300*time.Millisecond, clock.Elapsed)
}

func TestMovementSystem(t *testing.T) {
	c, _ := newWorld(t)

	moving := spawn(t, c,
		with(c, component.NewTransform([3]float32{0, 0, 0})),
		with(c, component.Velocity{Linear: [3]float32{2, 0, -4}}))
	static := spawn(t, c,
		with(c, component.NewTransform([3]float32{5, 5, 5})),
		with(c, component.Velocity{Linear: [3]float32{1, 1, 1}}),
		with(c, component.Static{}))
	noVelocity := spawn(t, c, with(c, component.NewTransform([3]float32{1, 1, 1})))

	g, err := c.GetGroup(groupName(t, c))
	require.NoError(t, err)
	assert.Equal(t, 1, g.Size())

	require.NoError(t, c.UpdateSystems(500*time.Millisecond))

	tr, err := ecs.GetComponent[component.Transform](c, moving)
	require.NoError(t, err)
	assert.Equal(t, [3]float32{1, 0, -2}, tr.Position)

	tr, err = ecs.GetComponent[component.Transform](c, static)
	require.NoError(t, err)
	assert.Equal(t, [3]float32{5, 5, 5}, tr.Position)

	tr, err = ecs.GetComponent[component.Transform](c, noVelocity)
	require.NoError(t, err)
	assert.Equal(t, [3]float32{1, 1, 1}, tr.Position)

	// unpinning the static entity brings it into the group
	require.NoError(t, ecs.RemoveComponent[component.Static](c, static))
	assert.Equal(t, 2, g.Size())
	require.NoError(t, c.UpdateSystems(time.Second))
	tr, err = ecs.GetComponent[component.Transform](c, static)
	require.NoError(t, err)
	assert.Equal(t, [3]float32{6, 6, 6}, tr.Position)
}

func groupName(t *testing.T, c *ecs.Coordinator) string {
	t.Helper()
	for _, info := range c.Systems() {
		if info.Name == "*system.MovementSystem" {
			return info.Group
		}
	}
	t.Fatal("movement system not registered")
	return ""
}

func TestIntegrateRotation(t *testing.T) {
	identity := [4]float32{0, 0, 0, 1}
	assert.Equal(t, identity, integrate(identity, [3]float32{}, 1))

	// many small steps of pi rad/s around z for one second give a half turn
	q := identity
	for range 1000 {
		q = integrate(q, [3]float32{0, 0, math.Pi}, 0.001)
	}
	assert.InDelta(t, 1, math.Abs(float64(q[2])), 1e-3)
	assert.InDelta(t, 0, q[3], 1e-2)

	n := q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3]
	assert.InDelta(t, 1, n, 1e-5)
}

func TestLifetimeSystem(t *testing.T) {
	c, s := newWorld(t)

	short := spawn(t, c, with(c, component.NewLifetime(0.25)))
	long := spawn(t, c, with(c, component.NewLifetime(10)))

	require.NoError(t, c.UpdateSystems(200*time.Millisecond))
	assert.True(t, c.IsAlive(short))

	require.NoError(t, c.UpdateSystems(200*time.Millisecond))
	assert.False(t, c.IsAlive(short))
	assert.True(t, c.IsAlive(long))
	assert.Equal(t, 1, s.Lifetime.Expired())
	assert.Zero(t, c.Commands().Len())

	lt, err := ecs.GetComponent[component.Lifetime](c, long)
	require.NoError(t, err)
	assert.InDelta(t, 9.6, lt.Remaining, 1e-5)
}

func TestRenderBatchSystem(t *testing.T) {
	c, _ := newWorld(t)

	ids := []uint32{3, 1, 3, 2, 1, 3}
	for i, id := range ids {
		spawn(t, c,
			with(c, component.NewTransform([3]float32{float32(i), 0, 0})),
			with(c, component.Material{ID: id}))
	}
	// material only: not drawable
	spawn(t, c, with(c, component.Material{ID: 7}))

	require.NoError(t, c.UpdateSystems(time.Millisecond))

	stats, err := ecs.GetSingleton[component.RenderStats](c)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Batches)
	assert.Equal(t, 6, stats.Drawn)
	assert.Equal(t, map[uint32]int{1: 2, 2: 1, 3: 3}, stats.PerMaterial)
}

func TestWorldTick(t *testing.T) {
	c, _ := newWorld(t)

	for i := range 10 {
		spawn(t, c,
			with(c, component.NewTransform([3]float32{})),
			with(c, component.Velocity{Linear: [3]float32{1, 0, 0}}),
			with(c, component.Material{ID: uint32(i % 2)}),
			with(c, component.NewLifetime(float32(i)*0.1+0.15)))
	}
	for range 5 {
		require.NoError(t, c.UpdateSystems(100*time.Millisecond))
	}

	// four lifetimes ran out; the last of them only after this tick's render
	assert.Equal(t, 6, c.LivingCount())
	stats, err := ecs.GetSingleton[component.RenderStats](c)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Drawn)
	assert.Empty(t, c.WriteConflicts())
}

func TestVisibilitySystem(t *testing.T) {
	c, _ := newWorld(t)

	near := spawn(t, c, with(c, component.NewTransform([3]float32{3, 4, 0})))
	spawn(t, c, with(c, component.NewTransform([3]float32{-19, 0, 0})))
	spawn(t, c, with(c, component.NewTransform([3]float32{15, 15, 0}))) // same area, out of range
	spawn(t, c, with(c, component.NewTransform([3]float32{500, 500, 0})))
	spawn(t, c, with(c, component.Material{ID: 1}))

	require.NoError(t, c.UpdateSystems(time.Millisecond))
	vis, err := ecs.GetSingleton[component.Visibility](c)
	require.NoError(t, err)
	assert.Equal(t, 2, vis.Visible)
	assert.Equal(t, 4, vis.Tracked)

	cam, err := ecs.GetSingletonMutable[component.Camera](c)
	require.NoError(t, err)
	cam.Position = [3]float32{500, 490, 0}

	require.NoError(t, c.DestroyEntity(near))
	require.NoError(t, c.UpdateSystems(time.Millisecond))
	vis, err = ecs.GetSingleton[component.Visibility](c)
	require.NoError(t, err)
	assert.Equal(t, 1, vis.Visible)
	assert.Equal(t, 3, vis.Tracked)
}
