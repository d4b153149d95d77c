// Package unique provides exclusive-ownership handles with pluggable deleters.
//
// A Ptr owns one object and destroys it through its deleter when it is
// reset. Ownership moves with Move or Assign; there is no way to copy a Ptr
// and keep both copies owning.
//
// The deleter is the first field of the handle, so a deleter with no state
// (DefaultDeleter, or any empty struct) adds nothing to the handle's size:
// a Ptr[T, DefaultDeleter[T]] is exactly one pointer wide.
package unique

import (
	"fmt"

	"github.com/wippyai/refptr/errors"
)

// Ptr exclusively owns the object it points to. The zero value is empty.
type Ptr[T any, D Deleter[T]] struct {
	del D
	ptr *T
}

// New takes ownership of ptr with the default deleter.
func New[T any](ptr *T) Ptr[T, DefaultDeleter[T]] {
	return Ptr[T, DefaultDeleter[T]]{ptr: ptr}
}

// NewWithDeleter takes ownership of ptr, destroying it with d.
func NewWithDeleter[T any, D Deleter[T]](ptr *T, d D) Ptr[T, D] {
	return Ptr[T, D]{del: d, ptr: ptr}
}

// Move transfers ownership and the deleter to the returned handle.
func (p *Ptr[T, D]) Move() Ptr[T, D] {
	m := *p
	*p = Ptr[T, D]{}
	return m
}

// Assign moves o into p, destroying the object p owned before.
// Assigning a handle that already holds p's object does nothing.
func (p *Ptr[T, D]) Assign(o *Ptr[T, D]) {
	if p == o || p.ptr == o.ptr {
		return
	}
	old, oldDel := p.ptr, p.del
	p.ptr, p.del = o.Release(), o.del
	oldDel.Delete(old)
}

// Release gives up ownership without destroying the object.
func (p *Ptr[T, D]) Release() *T {
	ptr := p.ptr
	p.ptr = nil
	return ptr
}

// Reset destroys the owned object and leaves p empty.
func (p *Ptr[T, D]) Reset() {
	p.ResetTo(nil)
}

// ResetTo takes ownership of ptr and then destroys the previous object.
func (p *Ptr[T, D]) ResetTo(ptr *T) {
	prev := p.ptr
	p.ptr = ptr
	p.del.Delete(prev)
}

// Swap exchanges the objects and deleters of p and o.
func (p *Ptr[T, D]) Swap(o *Ptr[T, D]) {
	*p, *o = *o, *p
}

// Get returns the owned pointer, nil when empty.
func (p *Ptr[T, D]) Get() *T {
	return p.ptr
}

// Value returns the owned object and panics when p is empty.
func (p *Ptr[T, D]) Value() T {
	if p.ptr == nil {
		panic(errors.NilHandle(errors.PhaseAccess, fmt.Sprintf("%T", p.ptr)))
	}
	return *p.ptr
}

// Valid reports whether p owns an object.
func (p *Ptr[T, D]) Valid() bool {
	return p.ptr != nil
}

// Deleter returns the deleter so callers can inspect or reconfigure it.
func (p *Ptr[T, D]) Deleter() *D {
	return &p.del
}
