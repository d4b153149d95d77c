package shared

import "fmt"

// Weak observes an object owned by Shared handles without keeping it alive.
// The zero value is an empty, expired handle.
type Weak[T any] struct {
	cb  ControlBlock
	ptr *T
}

// NewWeak returns an observer of the object s owns.
func NewWeak[T any](s Shared[T]) Weak[T] {
	if s.cb != nil {
		s.cb.IncWeak()
	}
	return Weak[T]{cb: s.cb, ptr: s.ptr}
}

// Clone returns another observer of the same object.
func (w Weak[T]) Clone() Weak[T] {
	if w.cb != nil {
		w.cb.IncWeak()
	}
	return w
}

// Move transfers the observation to the returned handle and empties w.
func (w *Weak[T]) Move() Weak[T] {
	m := *w
	*w = Weak[T]{}
	return m
}

// Assign makes w observe what o observes.
func (w *Weak[T]) Assign(o Weak[T]) {
	if w.cb == o.cb && w.ptr == o.ptr {
		return
	}
	if o.cb != nil {
		o.cb.IncWeak()
	}
	old := *w
	*w = o
	old.Reset()
}

// AssignShared makes w observe the object s owns.
func (w *Weak[T]) AssignShared(s Shared[T]) {
	w.Assign(Weak[T]{cb: s.cb, ptr: s.ptr})
}

// AssignMove moves o into w. o is left empty.
func (w *Weak[T]) AssignMove(o *Weak[T]) {
	if w == o {
		return
	}
	old := *w
	*w = *o
	*o = Weak[T]{}
	old.Reset()
}

// Reset stops observing and leaves w empty.
func (w *Weak[T]) Reset() {
	cb := w.cb
	*w = Weak[T]{}
	if cb != nil {
		cb.DecWeak()
	}
}

// Swap exchanges the contents of w and o.
func (w *Weak[T]) Swap(o *Weak[T]) {
	*w, *o = *o, *w
}

// UseCount returns the number of owners of the observed object.
func (w Weak[T]) UseCount() int {
	if w.cb == nil {
		return 0
	}
	return w.cb.StrongCount()
}

// Expired reports whether the observed object has no owners left.
func (w Weak[T]) Expired() bool {
	return w.UseCount() == 0
}

// Lock returns a new owner of the observed object, or an empty handle when
// it has expired. The expiry check and the increment form one step under
// the single-goroutine discipline.
func (w Weak[T]) Lock() Shared[T] {
	if w.Expired() {
		return Shared[T]{}
	}
	w.cb.IncStrong()
	return Shared[T]{cb: w.cb, ptr: w.ptr}
}

// Block returns the control block, nil for an empty handle.
func (w Weak[T]) Block() ControlBlock {
	return w.cb
}

func (w Weak[T]) String() string {
	if w.cb == nil {
		return fmt.Sprintf("Weak[%s](empty)", typeName[T]())
	}
	return fmt.Sprintf("Weak[%s](%p, use_count=%d, %s)", typeName[T](), w.ptr, w.cb.StrongCount(), w.cb.State())
}
