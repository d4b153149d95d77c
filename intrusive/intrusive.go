// Package intrusive provides handles for objects that carry their own
// reference count.
//
// An intrusively counted object needs no control block: the count lives in
// the object, usually through an embedded RefCounted:
//
//	type Texture struct {
//	    intrusive.RefCounted
//	    id uint32
//	}
//
//	func (t *Texture) Destroy() { releaseGPU(t.id) }
//
//	p := intrusive.New(&Texture{id: 7}) // count 1
//	q := p.Clone()                       // count 2
//	q.Reset()
//	p.Reset()                            // count 0, Destroy runs
//
// Because the count is part of the object, a raw pointer can be turned
// back into an owning handle with New at any time while the object is alive.
// Counts are plain integers; see package counter.
package intrusive

import (
	"fmt"

	"github.com/wippyai/refptr/counter"
	"github.com/wippyai/refptr/errors"
)

// Object is implemented by pointer types that carry their own count.
// IncRef and DecRef return the count after the update.
type Object interface {
	comparable
	IncRef() int
	DecRef() int
	RefCount() int
}

// Destroyer is implemented by objects that need cleanup when their count
// reaches zero.
type Destroyer interface {
	Destroy()
}

// RefCountedWith is an embeddable reference count kept in a C. PC is C's
// pointer type, through which the count is updated.
type RefCountedWith[C any, PC interface {
	*C
	counter.Counter
}] struct {
	count C
}

func (r *RefCountedWith[C, PC]) IncRef() int   { return PC(&r.count).Inc() }
func (r *RefCountedWith[C, PC]) DecRef() int   { return PC(&r.count).Dec() }
func (r *RefCountedWith[C, PC]) RefCount() int { return PC(&r.count).Load() }

func (r *RefCountedWith[C, PC]) resetRefCount() {
	var zero C
	r.count = zero
}

// RefCounted is the embeddable counter backed by counter.Cell. Copying an
// object that embeds it copies the count; Make resets it.
type RefCounted = RefCountedWith[counter.Cell, *counter.Cell]

// countResetter is implemented by objects embedding a RefCountedWith.
type countResetter interface {
	resetRefCount()
}

// Ptr is an owning handle to an intrusively counted object. T is the
// object's pointer type. The zero value is empty.
type Ptr[T Object] struct {
	obj T
}

// New registers a new owner of obj. A nil obj gives an empty handle.
func New[T Object](obj T) Ptr[T] {
	p := Ptr[T]{obj: obj}
	p.incRef()
	return p
}

// Make copies v into a new object and returns its first owner. A count
// embedded through RefCountedWith starts from zero whatever v carried.
// Objects keeping their count elsewhere must hand in v with a zero count.
func Make[E any, T interface {
	*E
	Object
}](v E) Ptr[T] {
	obj := T(new(E))
	*obj = v
	if r, ok := any(obj).(countResetter); ok {
		r.resetRefCount()
	}
	return New(obj)
}

// MakeFunc allocates a new object, lets init fill it in, and returns its
// first owner.
func MakeFunc[E any, T interface {
	*E
	Object
}](init func(T)) Ptr[T] {
	obj := T(new(E))
	if init != nil {
		init(obj)
	}
	return New(obj)
}

// Clone returns another owner of the same object.
func (p Ptr[T]) Clone() Ptr[T] {
	p.incRef()
	return p
}

// Move transfers ownership to the returned handle and empties p.
func (p *Ptr[T]) Move() Ptr[T] {
	m := *p
	*p = Ptr[T]{}
	return m
}

// Assign makes p another owner of o's object.
func (p *Ptr[T]) Assign(o Ptr[T]) {
	if p.obj == o.obj {
		return
	}
	o.incRef()
	old := *p
	*p = o
	old.Reset()
}

// AssignMove moves o into p. o is left empty.
func (p *Ptr[T]) AssignMove(o *Ptr[T]) {
	if p == o {
		return
	}
	old := *p
	*p = *o
	*o = Ptr[T]{}
	old.Reset()
}

// Reset releases ownership, destroying the object when it was the last owner.
func (p *Ptr[T]) Reset() {
	obj := p.obj
	*p = Ptr[T]{}
	var zero T
	if obj == zero {
		return
	}
	if obj.DecRef() == 0 {
		if d, ok := any(obj).(Destroyer); ok {
			d.Destroy()
		}
	}
}

// ResetTo releases ownership and becomes an owner of obj.
func (p *Ptr[T]) ResetTo(obj T) {
	next := New(obj)
	old := *p
	*p = next
	old.Reset()
}

// Swap exchanges the contents of p and o.
func (p *Ptr[T]) Swap(o *Ptr[T]) {
	*p, *o = *o, *p
}

// Get returns the object, or the zero T when empty.
func (p Ptr[T]) Get() T {
	return p.obj
}

// MustGet returns the object and panics when p is empty.
func (p Ptr[T]) MustGet() T {
	if !p.Valid() {
		panic(errors.NilHandle(errors.PhaseAccess, fmt.Sprintf("%T", p.obj)))
	}
	return p.obj
}

// UseCount returns the object's count, 0 when empty.
func (p Ptr[T]) UseCount() int {
	if !p.Valid() {
		return 0
	}
	return p.obj.RefCount()
}

// Valid reports whether p holds an object.
func (p Ptr[T]) Valid() bool {
	var zero T
	return p.obj != zero
}

func (p Ptr[T]) incRef() {
	if p.Valid() {
		p.obj.IncRef()
	}
}
