package ecs_test

import (
	"fmt"
	"time"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
)

type Position struct{ X, Y float32 }
type Velocity struct{ DX, DY float32 }
type Frozen struct{}

type moveSystem struct{}

func (moveSystem) Access() []ecs.Access {
	return ecs.Accesses(
		ecs.Owned(ecs.Write[Position](), ecs.Read[Velocity]()),
		[]ecs.Access{ecs.Exclude[Frozen]()},
	)
}

func (moveSystem) Update(v *ecs.GroupView, dt time.Duration) error {
	pos, err := ecs.MutColumn[Position](v)
	if err != nil {
		return err
	}
	vel, err := ecs.Column[Velocity](v)
	if err != nil {
		return err
	}
	for i := range pos {
		pos[i].X += vel.At(i).DX * float32(dt.Seconds())
		pos[i].Y += vel.At(i).DY * float32(dt.Seconds())
	}
	return nil
}

func Example() {
	world := ecs.NewCoordinator(ecs.WithMaxEntities(1024))
	defer world.Close()

	ecs.RegisterComponent[Position](world)
	ecs.RegisterComponent[Velocity](world)
	ecs.RegisterComponent[Frozen](world)
	if _, err := world.RegisterGroupSystem(moveSystem{}); err != nil {
		fmt.Println(err)
		return
	}

	runner, _ := world.CreateEntity()
	ecs.AddComponent(world, runner, Position{})
	ecs.AddComponent(world, runner, Velocity{DX: 2, DY: 1})

	statue, _ := world.CreateEntity()
	ecs.AddComponent(world, statue, Position{X: 5})
	ecs.AddComponent(world, statue, Velocity{DX: 2})
	ecs.AddComponent(world, statue, Frozen{})

	for i := 0; i < 3; i++ {
		world.UpdateSystems(time.Second)
	}

	p, _ := ecs.GetComponent[Position](world, runner)
	s, _ := ecs.GetComponent[Position](world, statue)
	fmt.Println(*p, *s)
	// Output: {6 3} {5 0}
}
