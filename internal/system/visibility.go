package system

import (
	"time"

	"github.com/l1jgo/ecsworld/internal/component"
	"github.com/l1jgo/ecsworld/internal/core/ecs"
	coresys "github.com/l1jgo/ecsworld/internal/core/system"
	"github.com/l1jgo/ecsworld/internal/world"
)

// VisibilitySystem keeps an AOI grid of every Transform and counts the
// entities within Camera.Range of the camera.
// Phase 3 (PostUpdate), every interval ticks.
type VisibilitySystem struct {
	grid     *world.AOIGrid
	interval int
	ticks    int
	buf      []ecs.Entity
}

// NewVisibilitySystem sizes grid cells to cellSize, which should be at least
// the camera range. interval <= 1 runs every tick.
func NewVisibilitySystem(cellSize float32, interval int) *VisibilitySystem {
	return &VisibilitySystem{grid: world.NewAOIGrid(cellSize), interval: max(interval, 1)}
}

func (s *VisibilitySystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *VisibilitySystem) Access() []ecs.Access {
	return []ecs.Access{
		ecs.Read[component.Transform](),
		ecs.ReadSingleton[component.Camera](),
		ecs.WriteSingleton[component.Visibility](),
	}
}

func (s *VisibilitySystem) Update(q *ecs.Query, _ time.Duration) error {
	s.ticks++
	if s.ticks < s.interval {
		return nil
	}
	s.ticks = 0

	for e := range q.Iterate() {
		t, err := ecs.Get[component.Transform](q, e)
		if err != nil {
			return err
		}
		s.grid.Move(e, t.Position[0], t.Position[1])
	}
	// drop entities that were destroyed or lost Transform since the last scan
	var stale []ecs.Entity
	s.grid.Tracked(func(e ecs.Entity) {
		if ok, _ := ecs.Has[component.Transform](q, e); !ok {
			stale = append(stale, e)
		}
	})
	for _, e := range stale {
		s.grid.Remove(e)
	}

	cam, err := ecs.Singleton[component.Camera](q)
	if err != nil {
		return err
	}
	r2 := cam.Range * cam.Range
	visible := 0
	s.buf = s.grid.GetNearby(s.buf[:0], cam.Position[0], cam.Position[1])
	for _, e := range s.buf {
		t, err := ecs.Get[component.Transform](q, e)
		if err != nil {
			return err
		}
		dx, dy := t.Position[0]-cam.Position[0], t.Position[1]-cam.Position[1]
		if dx*dx+dy*dy <= r2 {
			visible++
		}
	}

	vis, err := ecs.SingletonMut[component.Visibility](q)
	if err != nil {
		return err
	}
	vis.Visible = visible
	vis.Tracked = s.grid.Len()
	vis.Cells = s.grid.Cells()
	return nil
}
