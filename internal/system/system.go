// Package system holds the world's built-in systems. Each declares its
// component access; the coordinator binds group systems to their groups at
// registration.
package system

import (
	"github.com/l1jgo/ecsworld/internal/component"
	"github.com/l1jgo/ecsworld/internal/core/ecs"
)

// Systems is the set registered by Register.
type Systems struct {
	Clock      *ClockSystem
	Movement   *MovementSystem
	Lifetime   *LifetimeSystem
	Visibility *VisibilitySystem
	Render     *RenderBatchSystem
}

// Register adds the built-in systems to c. The components package must be
// registered first.
func Register(c *ecs.Coordinator) (*Systems, error) {
	s := &Systems{
		Clock:      NewClockSystem(),
		Movement:   NewMovementSystem(),
		Lifetime:   NewLifetimeSystem(),
		Visibility: NewVisibilitySystem(component.DefaultCameraRange, 1),
		Render:     NewRenderBatchSystem(),
	}
	if _, err := c.RegisterQuerySystem(s.Clock); err != nil {
		return nil, err
	}
	if _, err := c.RegisterGroupSystem(s.Movement); err != nil {
		return nil, err
	}
	if _, err := c.RegisterQuerySystem(s.Lifetime); err != nil {
		return nil, err
	}
	if _, err := c.RegisterQuerySystem(s.Visibility); err != nil {
		return nil, err
	}
	if _, err := c.RegisterGroupSystem(s.Render); err != nil {
		return nil, err
	}
	return s, nil
}
