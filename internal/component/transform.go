package component

import (
	"github.com/rotisserie/eris"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
)

// Transform places an entity in the world. Rotation is a quaternion (x, y,
// z, w).
type Transform struct {
	Position [3]float32
	Rotation [4]float32
	Scale    [3]float32
}

// NewTransform returns an identity transform at pos.
func NewTransform(pos [3]float32) Transform {
	return Transform{
		Position: pos,
		Rotation: [4]float32{0, 0, 0, 1},
		Scale:    [3]float32{1, 1, 1},
	}
}

// TransformMemento is the undo snapshot of a Transform.
type TransformMemento struct {
	position [3]float32
	rotation [4]float32
	scale    [3]float32
}

func (t *Transform) Snapshot() ecs.Memento {
	return TransformMemento{position: t.Position, rotation: t.Rotation, scale: t.Scale}
}

func (t *Transform) Restore(m ecs.Memento) error {
	tm, ok := m.(TransformMemento)
	if !ok {
		return eris.Wrapf(ecs.ErrMementoUnsupported, "transform cannot restore %T", m)
	}
	t.Position, t.Rotation, t.Scale = tm.position, tm.rotation, tm.scale
	return nil
}

// Translate moves the transform by d.
func (t *Transform) Translate(d [3]float32) {
	for i := range t.Position {
		t.Position[i] += d[i]
	}
}
