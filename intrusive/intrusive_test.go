package intrusive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	RefCounted
	destroyed *int
	name      string
}

func (n *node) Destroy() {
	*n.destroyed++
}

type plain struct {
	RefCounted
}

func TestPtr_Lifecycle(t *testing.T) {
	destroyed := 0
	n := &node{name: "root", destroyed: &destroyed}

	p := New(n)
	require.Equal(t, 1, p.UseCount())

	q := p.Clone()
	assert.Equal(t, 2, n.RefCount())

	p.Reset()
	assert.Equal(t, 1, q.UseCount())
	assert.Equal(t, 0, destroyed)

	q.Reset()
	assert.Equal(t, 1, destroyed)
	assert.Equal(t, 0, n.RefCount())
}

func TestPtr_RawPointerRoundTrip(t *testing.T) {
	destroyed := 0
	p := New(&node{destroyed: &destroyed})

	// The count lives in the object, so a raw pointer can be re-owned.
	raw := p.Get()
	q := New(raw)
	assert.Equal(t, 2, p.UseCount())

	p.Reset()
	q.Reset()
	assert.Equal(t, 1, destroyed)
}

func TestPtr_Empty(t *testing.T) {
	var p Ptr[*node]
	assert.False(t, p.Valid())
	assert.Equal(t, 0, p.UseCount())
	assert.Nil(t, p.Get())
	assert.NotPanics(t, func() { p.Reset() })
	assert.Panics(t, func() { p.MustGet() })

	q := New[*node](nil)
	assert.False(t, q.Valid())
}

func TestPtr_MoveAssignSwap(t *testing.T) {
	da, db := 0, 0
	a := New(&node{name: "a", destroyed: &da})
	b := New(&node{name: "b", destroyed: &db})

	m := a.Move()
	assert.False(t, a.Valid())
	assert.Equal(t, 1, m.UseCount())

	m.Assign(b)
	assert.Equal(t, 1, da)
	assert.Equal(t, 2, b.UseCount())

	m.Assign(m)
	assert.Equal(t, 2, b.UseCount())

	a.AssignMove(&m)
	assert.False(t, m.Valid())
	assert.Equal(t, "b", a.MustGet().name)
	a.AssignMove(&a)
	assert.Equal(t, 2, a.UseCount())

	c := New(&node{name: "c", destroyed: new(int)})
	a.Swap(&c)
	assert.Equal(t, "c", a.Get().name)
	assert.Equal(t, "b", c.Get().name)

	a.Reset()
	b.Reset()
	c.Reset()
	assert.Equal(t, 1, db)
}

func TestPtr_ResetTo(t *testing.T) {
	d1, d2 := 0, 0
	p := New(&node{destroyed: &d1})
	n2 := &node{destroyed: &d2}
	p.ResetTo(n2)
	assert.Equal(t, 1, d1)
	assert.Same(t, n2, p.Get())
	assert.Equal(t, 1, n2.RefCount())

	// Resetting to the object already held keeps it alive.
	p.ResetTo(n2)
	assert.Equal(t, 0, d2)
	assert.Equal(t, 1, n2.RefCount())
	p.Reset()
	assert.Equal(t, 1, d2)
}

func TestMakeFunc(t *testing.T) {
	p := MakeFunc(func(n *node) {
		n.name = "made"
		n.destroyed = new(int)
	})
	assert.Equal(t, "made", p.Get().name)
	assert.Equal(t, 1, p.UseCount())
	p.Reset()
}

func TestMake(t *testing.T) {
	destroyed := 0
	p := Make(node{name: "copy", destroyed: &destroyed})
	require.Equal(t, 1, p.UseCount())
	assert.Equal(t, "copy", p.Get().name)

	p.Reset()
	assert.Equal(t, 1, destroyed)
}

func TestMake_ResetsCopiedCount(t *testing.T) {
	destroyed := 0
	src := &node{name: "src", destroyed: &destroyed}
	p := New(src)
	q := p.Clone()
	require.Equal(t, 2, src.RefCount())

	c := Make(*src)
	assert.Equal(t, 1, c.UseCount())
	assert.Equal(t, 2, src.RefCount())

	c.Reset()
	assert.Equal(t, 1, destroyed)
	assert.Equal(t, 2, src.RefCount())

	q.Reset()
	p.Reset()
	assert.Equal(t, 2, destroyed)
}

// capped is a counter that records every update and refuses to grow past
// its limit.
type capped struct {
	n   int
	ops []string
}

const cappedLimit = 3

func (c *capped) Inc() int {
	c.ops = append(c.ops, "inc")
	if c.n < cappedLimit {
		c.n++
	}
	return c.n
}

func (c *capped) Dec() int {
	c.ops = append(c.ops, "dec")
	if c.n > 0 {
		c.n--
	}
	return c.n
}

func (c *capped) Load() int { return c.n }

type cappedNode struct {
	RefCountedWith[capped, *capped]
	destroyed int
}

func (n *cappedNode) Destroy() { n.destroyed++ }

func TestRefCountedWith_CustomCounter(t *testing.T) {
	p := Make(cappedNode{})
	n := p.Get()

	owners := []Ptr[*cappedNode]{p}
	for i := 0; i < 4; i++ {
		owners = append(owners, p.Clone())
	}
	assert.Equal(t, cappedLimit, n.RefCount())
	assert.Equal(t, []string{"inc", "inc", "inc", "inc", "inc"}, n.count.ops)

	// The count saturated, so the third release already destroys.
	owners[0].Reset()
	owners[1].Reset()
	assert.Equal(t, 0, n.destroyed)
	owners[2].Reset()
	assert.Equal(t, 1, n.destroyed)
	assert.Equal(t, 0, n.RefCount())
}

func TestMake_ResetsCustomCounter(t *testing.T) {
	src := cappedNode{}
	src.IncRef()
	src.IncRef()

	p := Make(src)
	n := p.Get()
	assert.Equal(t, 1, p.UseCount())
	assert.Equal(t, []string{"inc"}, n.count.ops)
	p.Reset()
	assert.Equal(t, 1, n.destroyed)
	assert.Equal(t, 2, src.RefCount())
}

func TestPtr_WithoutDestroyer(t *testing.T) {
	p := New(&plain{})
	q := p.Clone()
	q.Reset()
	assert.NotPanics(t, func() { p.Reset() })
}

func TestPtr_OverReleasePanics(t *testing.T) {
	n := &plain{}
	p := New(n)
	p.Reset()
	assert.Panics(t, func() { n.DecRef() })
}
