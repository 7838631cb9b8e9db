package system

import (
	"time"

	"github.com/l1jgo/ecsworld/internal/component"
	"github.com/l1jgo/ecsworld/internal/core/ecs"
	coresys "github.com/l1jgo/ecsworld/internal/core/system"
)

// LifetimeSystem counts Lifetime down and queues expired entities for
// destruction. The command buffer applies the destroys after the tick's
// systems have run, so no system sees a half-destroyed entity.
// Phase 3 (PostUpdate).
type LifetimeSystem struct {
	expired int
}

func NewLifetimeSystem() *LifetimeSystem { return &LifetimeSystem{} }

func (s *LifetimeSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *LifetimeSystem) Access() []ecs.Access {
	return []ecs.Access{ecs.Write[component.Lifetime]()}
}

func (s *LifetimeSystem) Update(q *ecs.Query, dt time.Duration) error {
	sec := float32(dt.Seconds())
	for e := range q.Iterate() {
		lt, err := ecs.GetMut[component.Lifetime](q, e)
		if err != nil {
			return err
		}
		lt.Remaining -= sec
		if lt.Remaining <= 0 {
			q.Commands().DestroyEntity(e)
			s.expired++
		}
	}
	return nil
}

// Expired is the number of entities queued for destruction so far.
func (s *LifetimeSystem) Expired() int { return s.expired }
