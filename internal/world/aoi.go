package world

import (
	"math"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
)

// AOIGrid is a cell-based area of interest index over the XY plane.
// A 3x3 neighbourhood of cells covers any circle whose radius is at most the
// cell size, so the cell size should be at least the largest query radius.
// Accessed only from the game loop goroutine, no locks.
type AOIGrid struct {
	cellSize float32
	cells    map[cellKey]map[ecs.Entity]struct{}
	where    map[ecs.Entity]cellKey
}

type cellKey struct {
	cx int32
	cy int32
}

func NewAOIGrid(cellSize float32) *AOIGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &AOIGrid{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[ecs.Entity]struct{}),
		where:    make(map[ecs.Entity]cellKey),
	}
}

func (g *AOIGrid) toCell(v float32) int32 {
	return int32(math.Floor(float64(v / g.cellSize)))
}

func (g *AOIGrid) key(x, y float32) cellKey {
	return cellKey{cx: g.toCell(x), cy: g.toCell(y)}
}

// Move places e at (x, y), adding it if it is not tracked yet.
func (g *AOIGrid) Move(e ecs.Entity, x, y float32) {
	k := g.key(x, y)
	if old, ok := g.where[e]; ok {
		if old == k {
			return
		}
		g.removeFrom(e, old)
	}
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.Entity]struct{})
		g.cells[k] = cell
	}
	cell[e] = struct{}{}
	g.where[e] = k
}

// Remove takes e out of the grid. Unknown entities are ignored.
func (g *AOIGrid) Remove(e ecs.Entity) {
	if k, ok := g.where[e]; ok {
		g.removeFrom(e, k)
	}
}

func (g *AOIGrid) removeFrom(e ecs.Entity, k cellKey) {
	delete(g.where, e)
	if cell := g.cells[k]; cell != nil {
		delete(cell, e)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Contains reports whether e is tracked.
func (g *AOIGrid) Contains(e ecs.Entity) bool {
	_, ok := g.where[e]
	return ok
}

// Len is the number of tracked entities.
func (g *AOIGrid) Len() int { return len(g.where) }

// Cells is the number of occupied cells.
func (g *AOIGrid) Cells() int { return len(g.cells) }

// Tracked calls fn for every tracked entity. fn may call Remove.
func (g *AOIGrid) Tracked(fn func(e ecs.Entity)) {
	for e := range g.where {
		fn(e)
	}
}

// GetNearby appends every entity in the 3x3 neighbourhood of cells around
// (x, y) to buf. Caller does fine-grained distance filtering.
func (g *AOIGrid) GetNearby(buf []ecs.Entity, x, y float32) []ecs.Entity {
	c := g.key(x, y)
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for e := range g.cells[cellKey{cx: c.cx + dx, cy: c.cy + dy}] {
				buf = append(buf, e)
			}
		}
	}
	return buf
}
