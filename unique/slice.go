package unique

import (
	"fmt"

	"github.com/wippyai/refptr/errors"
)

// Slice exclusively owns a run of elements, the array form of Ptr.
type Slice[T any, D SliceDeleter[T]] struct {
	del D
	s   []T
}

// NewSlice takes ownership of s with the default deleter.
func NewSlice[T any](s []T) Slice[T, DefaultSliceDeleter[T]] {
	return Slice[T, DefaultSliceDeleter[T]]{s: s}
}

// MakeSlice allocates n zeroed elements owned by the returned handle.
func MakeSlice[T any](n int) Slice[T, DefaultSliceDeleter[T]] {
	return NewSlice(make([]T, n))
}

// NewSliceWithDeleter takes ownership of s, destroying it with d.
func NewSliceWithDeleter[T any, D SliceDeleter[T]](s []T, d D) Slice[T, D] {
	return Slice[T, D]{del: d, s: s}
}

// Move transfers ownership to the returned handle.
func (p *Slice[T, D]) Move() Slice[T, D] {
	m := *p
	*p = Slice[T, D]{}
	return m
}

// Assign moves o into p, destroying the elements p owned before.
func (p *Slice[T, D]) Assign(o *Slice[T, D]) {
	if p == o || sameBacking(p.s, o.s) {
		return
	}
	old, oldDel := p.s, p.del
	p.s, p.del = o.Release(), o.del
	oldDel.DeleteSlice(old)
}

// Release gives up ownership without destroying the elements.
func (p *Slice[T, D]) Release() []T {
	s := p.s
	p.s = nil
	return s
}

// Reset destroys the elements and leaves p empty.
func (p *Slice[T, D]) Reset() {
	p.ResetTo(nil)
}

// ResetTo takes ownership of s and then destroys the previous elements.
func (p *Slice[T, D]) ResetTo(s []T) {
	prev := p.s
	p.s = s
	p.del.DeleteSlice(prev)
}

// Swap exchanges the contents of p and o.
func (p *Slice[T, D]) Swap(o *Slice[T, D]) {
	*p, *o = *o, *p
}

// At returns a pointer to element i. It panics when i is out of range.
func (p *Slice[T, D]) At(i int) *T {
	if i < 0 || i >= len(p.s) {
		panic(errors.OutOfBounds(errors.PhaseAccess, []string{fmt.Sprintf("%T", p.s)}, i, len(p.s)))
	}
	return &p.s[i]
}

// Get returns the owned elements.
func (p *Slice[T, D]) Get() []T {
	return p.s
}

// Len returns the number of owned elements.
func (p *Slice[T, D]) Len() int {
	return len(p.s)
}

// Valid reports whether p owns elements.
func (p *Slice[T, D]) Valid() bool {
	return p.s != nil
}

// Deleter returns the deleter.
func (p *Slice[T, D]) Deleter() *D {
	return &p.del
}

func sameBacking[T any](a, b []T) bool {
	if len(a) == 0 || len(b) == 0 {
		return a == nil && b == nil
	}
	return &a[0] == &b[0]
}
