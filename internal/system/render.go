package system

import (
	"cmp"
	"time"

	"github.com/l1jgo/ecsworld/internal/component"
	"github.com/l1jgo/ecsworld/internal/core/ecs"
	coresys "github.com/l1jgo/ecsworld/internal/core/system"
)

// RenderBatchSystem groups drawable entities (Material + Transform) into one
// batch per material and publishes the counts in RenderStats. Sorting the
// owned Material array keeps each batch contiguous.
// Phase 4 (Output).
type RenderBatchSystem struct{}

func NewRenderBatchSystem() *RenderBatchSystem { return &RenderBatchSystem{} }

func (s *RenderBatchSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *RenderBatchSystem) Access() []ecs.Access {
	return ecs.Accesses(
		ecs.Owned(ecs.Read[component.Material]()),
		ecs.NonOwned(ecs.Read[component.Transform]()),
		[]ecs.Access{ecs.WriteSingleton[component.RenderStats]()},
	)
}

func (s *RenderBatchSystem) Update(v *ecs.GroupView, _ time.Duration) error {
	if err := ecs.SortBy(v, func(a, b *component.Material) int {
		return cmp.Compare(a.ID, b.ID)
	}); err != nil {
		return err
	}
	materials, err := ecs.Column[component.Material](v)
	if err != nil {
		return err
	}
	batches := ecs.Partition(v, func(slot int, _ ecs.Entity) uint32 {
		return materials.At(slot).ID
	})

	stats, err := ecs.SingletonMut[component.RenderStats](v)
	if err != nil {
		return err
	}
	clear(stats.PerMaterial)
	for id, entities := range batches.All() {
		stats.PerMaterial[id] = len(entities)
	}
	stats.Batches = batches.Len()
	stats.Drawn = v.Len()
	return nil
}
