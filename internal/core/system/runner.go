package system

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/ecsworld/internal/core/event"
)

// Runner drives a world at a fixed tick rate.
type Runner struct {
	world    Stepper
	bus      *event.Bus
	interval time.Duration
	maxTicks int
	log      *zap.Logger

	ticks int
}

// NewRunner ticks world every interval. bus may be nil. maxTicks <= 0 runs
// until the context ends.
func NewRunner(world Stepper, bus *event.Bus, interval time.Duration, maxTicks int, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		world:    world,
		bus:      bus,
		interval: interval,
		maxTicks: maxTicks,
		log:      log,
	}
}

// Tick delivers last tick's events, then steps the world once.
func (r *Runner) Tick(dt time.Duration) error {
	if r.bus != nil {
		r.bus.SwapBuffers()
		r.bus.DispatchAll()
	}
	r.ticks++
	if err := r.world.UpdateSystems(dt); err != nil {
		return fmt.Errorf("tick %d: %w", r.ticks, err)
	}
	return nil
}

// Ticks is the number of ticks run so far.
func (r *Runner) Ticks() int { return r.ticks }

// Run ticks until ctx is done, maxTicks is reached, or a tick fails.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		if r.maxTicks > 0 && r.ticks >= r.maxTicks {
			r.log.Info("tick limit reached", zap.Int("ticks", r.ticks))
			return nil
		}
		select {
		case <-ctx.Done():
			r.log.Info("runner stopped", zap.Int("ticks", r.ticks))
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if err := r.Tick(dt); err != nil {
				r.log.Error("tick failed", zap.Error(err))
				return err
			}
		}
	}
}
