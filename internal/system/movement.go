package system

import (
	"math"
	"time"

	"github.com/l1jgo/ecsworld/internal/component"
	"github.com/l1jgo/ecsworld/internal/core/ecs"
	coresys "github.com/l1jgo/ecsworld/internal/core/system"
)

// MovementSystem integrates Velocity into Transform for every non-static
// entity. It owns Transform, so the moving set is a packed prefix of the
// Transform array and the inner loop walks it linearly.
// Phase 2 (Update).
type MovementSystem struct{}

func NewMovementSystem() *MovementSystem { return &MovementSystem{} }

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MovementSystem) Access() []ecs.Access {
	return ecs.Accesses(
		ecs.Owned(ecs.Write[component.Transform]()),
		ecs.NonOwned(ecs.Read[component.Velocity]()),
		[]ecs.Access{ecs.Exclude[component.Static]()},
	)
}

func (s *MovementSystem) Update(v *ecs.GroupView, dt time.Duration) error {
	transforms, err := ecs.MutColumn[component.Transform](v)
	if err != nil {
		return err
	}
	velocities, err := ecs.Column[component.Velocity](v)
	if err != nil {
		return err
	}
	sec := float32(dt.Seconds())
	for i := range transforms {
		vel := velocities.At(i)
		t := &transforms[i]
		t.Translate([3]float32{vel.Linear[0] * sec, vel.Linear[1] * sec, vel.Linear[2] * sec})
		if vel.Angular != [3]float32{} {
			t.Rotation = integrate(t.Rotation, vel.Angular, sec)
		}
	}
	return nil
}

// integrate applies angular velocity w to quaternion q over dt seconds:
// q' = normalize(q + 0.5 * dt * (w, 0) * q).
func integrate(q [4]float32, w [3]float32, dt float32) [4]float32 {
	h := 0.5 * dt
	x, y, z, qw := q[0], q[1], q[2], q[3]
	out := [4]float32{
		x + h*(w[0]*qw+w[1]*z-w[2]*y),
		y + h*(w[1]*qw+w[2]*x-w[0]*z),
		z + h*(w[2]*qw+w[0]*y-w[1]*x),
		qw - h*(w[0]*x+w[1]*y+w[2]*z),
	}
	n := float32(math.Sqrt(float64(out[0]*out[0] + out[1]*out[1] + out[2]*out[2] + out[3]*out[3])))
	if n == 0 {
		return q
	}
	for i := range out {
		out[i] /= n
	}
	return out
}
