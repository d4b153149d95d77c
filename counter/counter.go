// Package counter provides the plain counter cell shared by every counted
// handle in refptr.
//
// Counters are ordinary integers. They are not safe for concurrent use; a
// counter must only be mutated by the goroutine that currently owns the
// object graph it belongs to.
package counter

// Counter is the policy an intrusively counted object uses for its
// reference count. Inc and Dec return the value after the update.
type Counter interface {
	Inc() int
	Dec() int
	Load() int
}

// Cell is the simple Counter. The zero value is a counter at 0.
type Cell struct {
	n int
}

// NewCell returns a cell starting at n.
func NewCell(n int) Cell {
	return Cell{n: n}
}

// Inc increments the cell and returns the new value.
func (c *Cell) Inc() int {
	c.n++
	return c.n
}

// Dec decrements the cell and returns the new value.
// Decrementing a cell at 0 means some owner was released twice; it panics.
func (c *Cell) Dec() int {
	if c.n == 0 {
		panic("counter: released too often")
	}
	c.n--
	return c.n
}

// Load returns the current value.
func (c *Cell) Load() int {
	return c.n
}

// Zero reports whether the cell is at 0.
func (c *Cell) Zero() bool {
	return c.n == 0
}

var _ Counter = (*Cell)(nil)
