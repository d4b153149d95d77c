package unique

// Dropper is implemented by objects that need cleanup when they are deleted.
type Dropper interface {
	Drop()
}

// Deleter destroys the object a Ptr owns.
type Deleter[T any] interface {
	Delete(*T)
}

// DefaultDeleter calls Drop on objects that implement Dropper and does
// nothing for other objects. It has no state and takes no space in a Ptr.
type DefaultDeleter[T any] struct{}

func (DefaultDeleter[T]) Delete(p *T) {
	if p == nil {
		return
	}
	if d, ok := any(p).(Dropper); ok {
		d.Drop()
	}
}

// FuncDeleter adapts a function to Deleter.
type FuncDeleter[T any] func(*T)

func (f FuncDeleter[T]) Delete(p *T) {
	if f != nil && p != nil {
		f(p)
	}
}

// SliceDeleter destroys the elements a Slice owns.
type SliceDeleter[T any] interface {
	DeleteSlice([]T)
}

// DefaultSliceDeleter drops every element that implements Dropper.
type DefaultSliceDeleter[T any] struct{}

func (DefaultSliceDeleter[T]) DeleteSlice(s []T) {
	var d DefaultDeleter[T]
	for i := range s {
		d.Delete(&s[i])
	}
}

// FuncSliceDeleter adapts a function to SliceDeleter.
type FuncSliceDeleter[T any] func([]T)

func (f FuncSliceDeleter[T]) DeleteSlice(s []T) {
	if f != nil && s != nil {
		f(s)
	}
}
