package shared

import (
	"fmt"

	"github.com/wippyai/refptr/errors"
)

// Shared is an owning handle. The zero value is an empty handle.
//
// The handle pairs a control block with an observed pointer. The two
// normally describe the same object; Alias makes them differ.
type Shared[T any] struct {
	cb  ControlBlock
	ptr *T
}

// New takes ownership of ptr with a pointer-backed control block.
// The payload is finalized with its Drop method, if it has one.
// A nil ptr still creates a block: the handle counts as an owner
// but is not Valid.
func New[T any](ptr *T) Shared[T] {
	return NewWithDeleter(ptr, nil)
}

// NewWithDeleter takes ownership of ptr and finalizes it by calling del.
// A nil del falls back to Drop.
func NewWithDeleter[T any](ptr *T, del func(*T)) Shared[T] {
	s := Shared[T]{cb: newPointerBlock(ptr, del), ptr: ptr}
	bindWeakThis(s)
	return s
}

// Make constructs the payload inside its control block from v, using a
// single allocation for both.
func Make[T any](v T) Shared[T] {
	b := newInlineBlock[T]()
	b.obj = v
	forgetWeakThis(&b.obj)
	s := Shared[T]{cb: b, ptr: &b.obj}
	bindWeakThis(s)
	return s
}

// MakeFunc constructs the payload in place: init receives a pointer to the
// zeroed storage inside the control block.
func MakeFunc[T any](init func(*T)) Shared[T] {
	b := newInlineBlock[T]()
	if init != nil {
		init(&b.obj)
	}
	s := Shared[T]{cb: b, ptr: &b.obj}
	bindWeakThis(s)
	return s
}

// Alias returns a handle that shares owner's control block but observes ptr.
// The object owner manages stays alive for as long as the alias does.
func Alias[T, U any](owner Shared[U], ptr *T) Shared[T] {
	if owner.cb != nil {
		owner.cb.IncStrong()
	}
	return Shared[T]{cb: owner.cb, ptr: ptr}
}

// FromWeak promotes w to an owning handle. It fails with an error matching
// errors.ErrExpired when the observed object has no owners left; no handle
// is created in that case.
func FromWeak[T any](w Weak[T]) (Shared[T], error) {
	if w.Expired() {
		return Shared[T]{}, errors.Expired(errors.PhasePromote, typeName[T]())
	}
	w.cb.IncStrong()
	return Shared[T]{cb: w.cb, ptr: w.ptr}, nil
}

// Clone returns a new owner of the same object.
func (s Shared[T]) Clone() Shared[T] {
	if s.cb != nil {
		s.cb.IncStrong()
	}
	return s
}

// Move transfers ownership to the returned handle and empties s.
func (s *Shared[T]) Move() Shared[T] {
	m := *s
	*s = Shared[T]{}
	return m
}

// Assign makes s another owner of o's object, releasing what s held before.
func (s *Shared[T]) Assign(o Shared[T]) {
	if s.cb == o.cb && s.ptr == o.ptr {
		return
	}
	if o.cb != nil {
		o.cb.IncStrong()
	}
	old := *s
	*s = o
	old.Reset()
}

// AssignMove moves o into s, releasing what s held before. o is left empty.
func (s *Shared[T]) AssignMove(o *Shared[T]) {
	if s == o {
		return
	}
	old := *s
	*s = *o
	*o = Shared[T]{}
	old.Reset()
}

// Reset releases ownership and leaves s empty. Resetting an empty handle
// does nothing, so Reset is safe to defer.
func (s *Shared[T]) Reset() {
	cb := s.cb
	*s = Shared[T]{}
	if cb != nil {
		cb.DecStrong()
	}
}

// ResetTo releases ownership and takes ownership of ptr with a fresh
// pointer-backed block. An inline handle becomes pointer-backed.
func (s *Shared[T]) ResetTo(ptr *T) {
	s.ResetWithDeleter(ptr, nil)
}

// ResetWithDeleter is ResetTo with a custom deleter for ptr.
func (s *Shared[T]) ResetWithDeleter(ptr *T, del func(*T)) {
	old := *s
	*s = NewWithDeleter(ptr, del)
	old.Reset()
}

// Swap exchanges the contents of s and o.
func (s *Shared[T]) Swap(o *Shared[T]) {
	*s, *o = *o, *s
}

// Get returns the observed pointer, nil for an empty handle.
func (s Shared[T]) Get() *T {
	return s.ptr
}

// Value returns the observed object. It panics on an empty handle; check
// Valid first.
func (s Shared[T]) Value() T {
	if s.ptr == nil {
		panic(errors.NilHandle(errors.PhaseAccess, typeName[T]()))
	}
	return *s.ptr
}

// UseCount returns the number of owners, 0 for an empty handle.
func (s Shared[T]) UseCount() int {
	if s.cb == nil {
		return 0
	}
	return s.cb.StrongCount()
}

// Valid reports whether the handle observes an object.
func (s Shared[T]) Valid() bool {
	return s.ptr != nil
}

// Equal reports whether both handles observe the same address.
func (s Shared[T]) Equal(o Shared[T]) bool {
	return s.ptr == o.ptr
}

// Block returns the control block, nil for an empty handle.
func (s Shared[T]) Block() ControlBlock {
	return s.cb
}

// Weak returns a non-owning observer of the same object.
func (s Shared[T]) Weak() Weak[T] {
	return NewWeak(s)
}

func (s Shared[T]) String() string {
	if s.cb == nil {
		return fmt.Sprintf("Shared[%s](empty)", typeName[T]())
	}
	return fmt.Sprintf("Shared[%s](%p, use_count=%d, %s)", typeName[T](), s.ptr, s.cb.StrongCount(), s.cb.Kind())
}

// Owned is implemented by every handle type in this package.
type Owned interface {
	Block() ControlBlock
}

// SameOwner reports whether a and b belong to the same non-empty
// ownership group, whatever addresses they observe.
func SameOwner(a, b Owned) bool {
	ab := a.Block()
	return ab != nil && ab == b.Block()
}

func typeName[T any]() string {
	return fmt.Sprintf("%T", (*T)(nil))
}
