package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: external input, script commands
	PhasePreUpdate               // 1: clocks, last tick's events
	PhaseUpdate                  // 2: simulation
	PhasePostUpdate              // 3: lifetimes, derived state
	PhaseOutput                  // 4: render batching, stats
	PhasePersist                 // 5: snapshots
	PhaseCleanup                 // 6: deferred destruction
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// Stepper advances a world by one tick.
type Stepper interface {
	UpdateSystems(dt time.Duration) error
}
