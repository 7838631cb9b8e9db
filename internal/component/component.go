package component

import (
	"time"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
)

// Velocity is applied to Transform by the movement system, in units and
// radians per second.
type Velocity struct {
	Linear  [3]float32
	Angular [3]float32
}

// Material selects the render batch an entity is drawn in.
type Material struct {
	ID   uint32
	Tint [4]float32
}

// Lifetime counts down in seconds; the entity is destroyed at zero.
type Lifetime struct {
	Remaining float32
	Total     float32
}

func NewLifetime(seconds float32) Lifetime {
	return Lifetime{Remaining: seconds, Total: seconds}
}

// DefaultCameraRange is the view radius of the registered Camera.
const DefaultCameraRange = 20

// Static tags entities the movement system must leave alone.
type Static struct{}

// Clock is the world time singleton.
type Clock struct {
	Tick    uint64
	Delta   time.Duration
	Elapsed time.Duration
}

// RenderStats is written by the render batch system each tick.
type RenderStats struct {
	Batches     int
	Drawn       int
	PerMaterial map[uint32]int
}

// Camera is the point visibility is measured from.
type Camera struct {
	Position [3]float32
	Range    float32
}

// Visibility is written by the visibility system. Visible counts entities
// within Camera.Range on the XY plane.
type Visibility struct {
	Visible int
	Tracked int
	Cells   int
}

// Register adds every component and singleton type of this package to c.
// Registration order fixes the type ids.
func Register(c *ecs.Coordinator) error {
	regs := []func(*ecs.Coordinator) (ecs.ComponentType, error){
		ecs.RegisterComponent[Transform],
		ecs.RegisterComponent[Velocity],
		ecs.RegisterComponent[Material],
		ecs.RegisterComponent[Lifetime],
		ecs.RegisterComponent[Static],
	}
	for _, reg := range regs {
		if _, err := reg(c); err != nil {
			return err
		}
	}
	if err := ecs.RegisterSingleton(c, Clock{}); err != nil {
		return err
	}
	if err := ecs.RegisterSingleton(c, RenderStats{PerMaterial: make(map[uint32]int)}); err != nil {
		return err
	}
	if err := ecs.RegisterSingleton(c, Camera{Range: DefaultCameraRange}); err != nil {
		return err
	}
	return ecs.RegisterSingleton(c, Visibility{})
}
