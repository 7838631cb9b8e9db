package scripting

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
	"github.com/l1jgo/ecsworld/internal/core/system"
)

// System calls the script function on_update(dt) once per tick, dt in
// seconds. Scripts reach the world through the ecs module, so the system
// declares no component access of its own and keeps no membership.
type System struct {
	bridge *Bridge
	fn     string
}

func NewSystem(b *Bridge) *System {
	return &System{bridge: b, fn: "on_update"}
}

func (s *System) Phase() system.Phase { return system.PhaseInput }

func (s *System) Access() []ecs.Access {
	return nil
}

func (s *System) Untracked() bool { return true }

func (s *System) Update(_ *ecs.Query, dt time.Duration) error {
	_, err := s.bridge.Call(s.fn, lua.LNumber(dt.Seconds()))
	return err
}
