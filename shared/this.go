package shared

// EnableSharedFromThis lets an object hand out owning handles to itself.
// Embed it in the payload type; New, NewWithDeleter, Make and MakeFunc bind
// it to the control block they create:
//
//	type Session struct {
//	    shared.EnableSharedFromThis[Session]
//	    ID string
//	}
//
//	s := shared.Make(Session{ID: "a"})
//	self, err := s.Get().SharedFromThis()
//
// The embedded observer is released when the payload is finalized.
type EnableSharedFromThis[T any] struct {
	weakThis Weak[T]
}

// SharedFromThis returns a new owner of the enclosing object. It fails with
// an error matching errors.ErrExpired when no Shared handle owns the object.
func (e *EnableSharedFromThis[T]) SharedFromThis() (Shared[T], error) {
	return FromWeak(e.weakThis)
}

// WeakFromThis returns an observer of the enclosing object. The result is
// empty when the object was never owned by a Shared handle.
func (e *EnableSharedFromThis[T]) WeakFromThis() Weak[T] {
	return e.weakThis.Clone()
}

func (e *EnableSharedFromThis[T]) bindWeakThis(w Weak[T]) {
	if !e.weakThis.Expired() {
		w.Reset()
		return
	}
	e.weakThis.AssignMove(&w)
}

func (e *EnableSharedFromThis[T]) detachWeakThis(cb ControlBlock) Weak[T] {
	if e.weakThis.cb != cb {
		return Weak[T]{}
	}
	return e.weakThis.Move()
}

func (e *EnableSharedFromThis[T]) forgetWeakThis() {
	e.weakThis = Weak[T]{}
}

type weakThisBinder[T any] interface {
	bindWeakThis(Weak[T])
	detachWeakThis(ControlBlock) Weak[T]
	forgetWeakThis()
}

func bindWeakThis[T any](s Shared[T]) {
	if s.ptr == nil {
		return
	}
	if b, ok := any(s.ptr).(weakThisBinder[T]); ok {
		b.bindWeakThis(NewWeak(s))
	}
}

func detachWeakThis[T any](p *T, cb ControlBlock) Weak[T] {
	if b, ok := any(p).(weakThisBinder[T]); ok {
		return b.detachWeakThis(cb)
	}
	return Weak[T]{}
}

// forgetWeakThis clears an observer copied in by value; the copy was never
// counted, so it must not be released.
func forgetWeakThis[T any](p *T) {
	if b, ok := any(p).(weakThisBinder[T]); ok {
		b.forgetWeakThis()
	}
}
