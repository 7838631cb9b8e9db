package system

import (
	"time"

	"github.com/l1jgo/ecsworld/internal/component"
	"github.com/l1jgo/ecsworld/internal/core/ecs"
	coresys "github.com/l1jgo/ecsworld/internal/core/system"
)

// ClockSystem advances the Clock singleton.
// Phase 1 (PreUpdate) so every later system sees this tick's time.
type ClockSystem struct{}

func NewClockSystem() *ClockSystem { return &ClockSystem{} }

func (s *ClockSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *ClockSystem) Access() []ecs.Access {
	return []ecs.Access{ecs.WriteSingleton[component.Clock]()}
}

func (s *ClockSystem) Untracked() bool { return true }

func (s *ClockSystem) Update(q *ecs.Query, dt time.Duration) error {
	clock, err := ecs.SingletonMut[component.Clock](q)
	if err != nil {
		return err
	}
	clock.Tick++
	clock.Delta = dt
	clock.Elapsed += dt
	return nil
}
