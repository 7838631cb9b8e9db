// Profiling:
// go build ./cmd/ecsprofile
// ./ecsprofile -mode cpu
// go tool pprof -http=":8000" -nodefraction=0.001 ./ecsprofile cpu.pprof

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkg/profile"

	"github.com/l1jgo/ecsworld/internal/component"
	"github.com/l1jgo/ecsworld/internal/core/ecs"
	"github.com/l1jgo/ecsworld/internal/system"
)

func main() {
	mode := flag.String("mode", "cpu", "cpu or mem")
	entities := flag.Int("entities", 100000, "entities per round")
	ticks := flag.Int("ticks", 200, "ticks per round")
	rounds := flag.Int("rounds", 5, "worlds to build")
	flag.Parse()

	var opt func(*profile.Profile)
	switch *mode {
	case "cpu":
		opt = profile.CPUProfile
	case "mem":
		opt = profile.MemProfileAllocs
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}

	p := profile.Start(opt, profile.ProfilePath("."), profile.NoShutdownHook)
	err := run(*rounds, *ticks, *entities)
	p.Stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run builds a world per round, churns a tenth of it every tick and steps
// the built-in systems, which exercises group packing, partitions and the
// command buffer together.
func run(rounds, ticks, numEntities int) error {
	for range rounds {
		w := ecs.NewCoordinator(ecs.WithMaxEntities(numEntities * 2))
		if err := component.Register(w); err != nil {
			return err
		}
		if _, err := system.Register(w); err != nil {
			return err
		}

		for i := range numEntities {
			if err := spawn(w, i); err != nil {
				return err
			}
		}
		for t := range ticks {
			living := w.LivingEntities()
			for i := t % 10; i < len(living); i += 10 {
				e := living[i]
				if ecs.HasComponent[component.Static](w, e) {
					if err := ecs.RemoveComponent[component.Static](w, e); err != nil {
						return err
					}
				} else if err := ecs.AddComponent(w, e, component.Static{}); err != nil {
					return err
				}
			}
			if err := w.UpdateSystems(16 * time.Millisecond); err != nil {
				return err
			}
		}
		_ = w.Close()
	}
	return nil
}

func spawn(w *ecs.Coordinator, i int) error {
	e, err := w.CreateEntity()
	if err != nil {
		return err
	}
	if err := ecs.AddComponent(w, e, component.NewTransform([3]float32{float32(i), 0, 0})); err != nil {
		return err
	}
	if err := ecs.AddComponent(w, e, component.Velocity{Linear: [3]float32{1, 0, 0}}); err != nil {
		return err
	}
	return ecs.AddComponent(w, e, component.Material{ID: uint32(i % 8)})
}
