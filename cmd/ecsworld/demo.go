package main

import (
	"math/rand"

	"github.com/l1jgo/ecsworld/internal/component"
	"github.com/l1jgo/ecsworld/internal/config"
	"github.com/l1jgo/ecsworld/internal/core/ecs"
)

// spawnDemo fills the world with moving, drawable entities. Every
// StaticEvery-th entity is pinned and every other one gets a lifetime.
func spawnDemo(world *ecs.Coordinator, cfg config.DemoConfig) (int, error) {
	rng := rand.New(rand.NewSource(1))
	materials := max(cfg.Materials, 1)

	for i := 0; i < cfg.EntityCount; i++ {
		e, err := world.CreateEntity()
		if err != nil {
			return i, err
		}
		pos := [3]float32{rng.Float32() * 100, rng.Float32() * 100, rng.Float32() * 100}
		if err := ecs.AddComponent(world, e, component.NewTransform(pos)); err != nil {
			return i, err
		}
		vel := component.Velocity{
			Linear:  [3]float32{rng.Float32()*2 - 1, rng.Float32()*2 - 1, 0},
			Angular: [3]float32{0, 0, rng.Float32()},
		}
		if err := ecs.AddComponent(world, e, vel); err != nil {
			return i, err
		}
		mat := component.Material{
			ID:   uint32(rng.Intn(materials)),
			Tint: [4]float32{1, 1, 1, 1},
		}
		if err := ecs.AddComponent(world, e, mat); err != nil {
			return i, err
		}
		if cfg.StaticEvery > 0 && i%cfg.StaticEvery == 0 {
			if err := ecs.AddComponent(world, e, component.Static{}); err != nil {
				return i, err
			}
		}
		if cfg.Lifetime > 0 && i%2 == 1 {
			lt := component.NewLifetime(float32(cfg.Lifetime) * (0.5 + rng.Float32()))
			if err := ecs.AddComponent(world, e, lt); err != nil {
				return i, err
			}
		}
	}
	return cfg.EntityCount, nil
}
