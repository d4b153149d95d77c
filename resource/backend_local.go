package resource

import (
	"sync"

	"github.com/wippyai/refptr/shared"
)

// LocalBackend is the in-memory entry store behind a Table, with borrow
// tracking and handle reuse. It never finalizes objects itself: entries
// leave the backend and are released by the caller outside the lock.
type LocalBackend[T any] struct {
	entries  []entry[T]
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry[T any] struct {
	own         shared.Shared[T]
	weak        shared.Weak[T]
	borrowCount uint32
	kind        EntryKind
	valid       bool
}

// release drops whatever reference the entry held.
func (e *entry[T]) release() {
	e.own.Reset()
	e.weak.Reset()
}

func (e *entry[T]) block() shared.ControlBlock {
	if e.kind == EntryObserver {
		return e.weak.Block()
	}
	return e.own.Block()
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend[T any](capacity int) *LocalBackend[T] {
	if capacity <= 0 {
		capacity = 64
	}
	return &LocalBackend[T]{
		entries:  make([]entry[T], 0, capacity),
		freeList: make([]Handle, 0, 16),
	}
}

// create stores e and returns its handle. The caller's lock must be held.
func (b *LocalBackend[T]) create(e entry[T]) Handle {
	e.valid = true
	if len(b.freeList) > 0 {
		handle := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = e
		return handle
	}

	b.entries = append(b.entries, e)
	return Handle(len(b.entries))
}

// lookup returns the live entry for handle. The caller's lock must be held.
func (b *LocalBackend[T]) lookup(handle Handle) *entry[T] {
	if handle == 0 {
		return nil
	}
	idx := handle - 1
	if int(idx) >= len(b.entries) {
		return nil
	}
	e := &b.entries[idx]
	if !e.valid {
		return nil
	}
	return e
}

// Own moves s into a new owner entry.
func (b *LocalBackend[T]) Own(s *shared.Shared[T]) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	return b.create(entry[T]{own: s.Move(), kind: EntryOwner}), nil
}

// Observe adds an observer entry for the object behind handle.
func (b *LocalBackend[T]) Observe(handle Handle) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	e := b.lookup(handle)
	if e == nil {
		return 0, notFound(handle)
	}

	var w shared.Weak[T]
	if e.kind == EntryObserver {
		w = e.weak.Clone()
	} else {
		w = e.own.Weak()
	}
	return b.create(entry[T]{weak: w, kind: EntryObserver}), nil
}

// Lock returns a new owner of the object behind handle. The second result
// is false when the handle is unknown; an expired observer yields an empty
// handle and true.
func (b *LocalBackend[T]) Lock(handle Handle) (shared.Shared[T], EntryKind, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return shared.Shared[T]{}, 0, false
	}
	if e.kind == EntryObserver {
		return e.weak.Lock(), e.kind, true
	}
	return e.own.Clone(), e.kind, true
}

// Get returns the observed pointer of a live entry.
func (b *LocalBackend[T]) Get(handle Handle) (*T, bool) {
	// Observer lookups touch the counters, so readers are exclusive here.
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, false
	}
	if e.kind == EntryObserver {
		if e.weak.Expired() {
			return nil, false
		}
		s := e.weak.Lock()
		p := s.Get()
		s.Reset()
		return p, p != nil
	}
	p := e.own.Get()
	return p, p != nil
}

// Drop removes an entry and returns it for release.
// Entries with outstanding borrows are kept.
func (b *LocalBackend[T]) Drop(handle Handle) (entry[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return entry[T]{}, notFound(handle)
	}
	if e.borrowCount > 0 {
		return entry[T]{}, outstandingBorrow(handle, e.borrowCount)
	}

	out := *e
	*e = entry[T]{}
	b.freeList = append(b.freeList, handle)
	return out, nil
}

// Close marks the backend closed and returns every live entry for release.
func (b *LocalBackend[T]) Close() []entry[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var out []entry[T]
	for i := range b.entries {
		if b.entries[i].valid {
			out = append(out, b.entries[i])
		}
	}
	b.entries = nil
	b.freeList = nil
	return out
}

// Borrow increments the borrow count of an owner entry.
func (b *LocalBackend[T]) Borrow(handle Handle) (*T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, notFound(handle)
	}
	if e.kind != EntryOwner {
		return nil, notOwner(handle)
	}

	e.borrowCount++
	return e.own.Get(), nil
}

// ReturnBorrow decrements the borrow count of an owner entry.
func (b *LocalBackend[T]) ReturnBorrow(handle Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return notFound(handle)
	}
	if e.borrowCount == 0 {
		return notBorrowed(handle)
	}

	e.borrowCount--
	return nil
}

// Info returns a snapshot of one entry.
func (b *LocalBackend[T]) Info(handle Handle) (Info, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return Info{}, false
	}
	return e.info(handle), true
}

// Len returns the number of live entries.
func (b *LocalBackend[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over all live entries in handle order.
func (b *LocalBackend[T]) Each(fn func(Info) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i := range b.entries {
		e := &b.entries[i]
		if e.valid {
			if !fn(e.info(Handle(i + 1))) {
				break
			}
		}
	}
}

func (e *entry[T]) info(handle Handle) Info {
	in := Info{
		Handle:  handle,
		Entry:   e.kind,
		Borrows: e.borrowCount,
	}
	cb := e.block()
	if cb == nil {
		return in
	}
	in.Strong = cb.StrongCount()
	in.Weak = cb.WeakCount()
	in.State = cb.State()
	in.Kind = cb.Kind()
	if e.kind == EntryObserver {
		in.Valid = !e.weak.Expired()
	} else {
		in.Valid = e.own.Valid()
	}
	return in
}

// Clear removes every entry without outstanding borrows and returns the
// removed entries with their handles for release.
func (b *LocalBackend[T]) Clear() ([]Handle, []entry[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var handles []Handle
	var out []entry[T]
	for i := range b.entries {
		e := &b.entries[i]
		if !e.valid || e.borrowCount > 0 {
			continue
		}
		h := Handle(i + 1)
		handles = append(handles, h)
		out = append(out, *e)
		*e = entry[T]{}
		b.freeList = append(b.freeList, h)
	}
	return handles, out
}
