package ecs

import (
	"go.uber.org/multierr"
)

type command struct {
	e     Entity
	apply func(c *Coordinator) error
}

// CommandBuffer collects structural changes made while systems iterate and
// applies them after the step. Component commands run in the order they were
// queued; destroys run last, once per entity. Commands against entities that
// are no longer alive are dropped.
type CommandBuffer struct {
	c        *Coordinator
	ops      []command
	destroys []Entity
	marked   map[Entity]struct{}
}

func newCommandBuffer(c *Coordinator) *CommandBuffer {
	return &CommandBuffer{c: c, marked: make(map[Entity]struct{})}
}

func (b *CommandBuffer) DestroyEntity(e Entity) {
	if _, ok := b.marked[e]; ok {
		return
	}
	b.marked[e] = struct{}{}
	b.destroys = append(b.destroys, e)
}

func EnqueueAdd[T any](b *CommandBuffer, e Entity, v T) {
	b.ops = append(b.ops, command{e: e, apply: func(c *Coordinator) error {
		return AddComponent(c, e, v)
	}})
}

func EnqueueRemove[T any](b *CommandBuffer, e Entity) {
	b.ops = append(b.ops, command{e: e, apply: func(c *Coordinator) error {
		return RemoveComponent[T](c, e)
	}})
}

// Len is the number of queued commands.
func (b *CommandBuffer) Len() int { return len(b.ops) + len(b.destroys) }

// Flush applies every queued command. All commands are attempted; the
// returned error combines the failures.
func (b *CommandBuffer) Flush() error {
	var errs error
	ops, destroys := b.ops, b.destroys
	b.ops, b.destroys = nil, nil
	clear(b.marked)

	for _, op := range ops {
		if !b.c.IsAlive(op.e) {
			continue
		}
		errs = multierr.Append(errs, op.apply(b.c))
	}
	for _, e := range destroys {
		if !b.c.IsAlive(e) {
			continue
		}
		errs = multierr.Append(errs, b.c.DestroyEntity(e))
	}
	return errs
}

func (b *CommandBuffer) reset() {
	b.ops = nil
	b.destroys = nil
	clear(b.marked)
}
