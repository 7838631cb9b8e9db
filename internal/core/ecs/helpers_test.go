package ecs

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/require"
)

type position struct{ X, Y float32 }
type velocity struct{ DX, DY float32 }
type compA struct{ V int }
type compB struct{ V int }
type compC struct{ V int }
type compD struct{}
type named struct{ Name string }

type health struct{ HP int }

type healthMemento struct{ hp int }

func (h *health) Snapshot() Memento { return healthMemento{hp: h.HP} }

func (h *health) Restore(m Memento) error {
	hm, ok := m.(healthMemento)
	if !ok {
		return eris.Errorf("unexpected memento %T", m)
	}
	h.HP = hm.hp
	return nil
}

type gameClock struct{ Frame int }

func newTestCoordinator(t *testing.T, opts ...Option) *Coordinator {
	t.Helper()
	c := NewCoordinator(opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func mustCreate(t *testing.T, c *Coordinator, n int) []Entity {
	t.Helper()
	out := make([]Entity, n)
	for i := range out {
		e, err := c.CreateEntity()
		require.NoError(t, err)
		out[i] = e
	}
	return out
}

// queryRecorder records what its query yielded on the last update.
type queryRecorder struct {
	access []Access
	phase  int
	seen   []Entity
	run    func(q *Query) error
	calls  *[]string
	label  string
}

func (p *queryRecorder) Access() []Access { return p.access }

func (p *queryRecorder) Update(q *Query, _ time.Duration) error {
	if p.calls != nil {
		*p.calls = append(*p.calls, p.label)
	}
	p.seen = p.seen[:0]
	for e := range q.Iterate() {
		p.seen = append(p.seen, e)
	}
	if p.run != nil {
		return p.run(q)
	}
	return nil
}

type groupRecorder struct {
	access []Access
	size   int
	run    func(v *GroupView) error
}

func (p *groupRecorder) Access() []Access { return p.access }

func (p *groupRecorder) Update(v *GroupView, _ time.Duration) error {
	p.size = v.Len()
	if p.run != nil {
		return p.run(v)
	}
	return nil
}
