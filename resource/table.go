package resource

import (
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/refptr/errors"
	"github.com/wippyai/refptr/shared"
)

var (
	// ErrClosed is returned by operations on a closed table.
	ErrClosed error = errors.Closed(errors.PhaseTable, "table")
	// ErrOutstandingBorrow is returned when dropping a borrowed entry.
	ErrOutstandingBorrow error = errors.New(errors.PhaseTable, errors.KindOutstandingBorrow).Build()
)

// Option configures a Table.
type Option func(*tableConfig)

type tableConfig struct {
	observers []Observer
	capacity  int
}

// WithObserver subscribes o before the first entry is created.
func WithObserver(o Observer) Option {
	return func(c *tableConfig) {
		c.observers = append(c.observers, o)
	}
}

// WithCapacity presizes the entry store.
func WithCapacity(n int) Option {
	return func(c *tableConfig) {
		c.capacity = n
	}
}

// Table maps integer handles to owners and observers of T.
//
// Two locks guard a table. The backend lock guards the handle map. The
// count lock serializes every path that reads or updates the counters of
// the objects the table holds, including the releases done by Drop, Clear,
// Close and Release.
type Table[T any] struct {
	backend   *LocalBackend[T]
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex

	// countMu is held by the goroutine draining pending and by every
	// counter read. Lock order: countMu before backend.mu.
	countMu  sync.Mutex
	queueMu  sync.Mutex
	pending  []pendingRelease[T]
	draining bool
}

// pendingRelease is an entry already removed from the handle map whose
// reference is still to be dropped.
type pendingRelease[T any] struct {
	e      entry[T]
	handle Handle
	notify bool
}

// NewTable creates a new table backed by a LocalBackend.
func NewTable[T any](opts ...Option) *Table[T] {
	var cfg tableConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Table[T]{
		backend:   NewLocalBackend[T](cfg.capacity),
		observers: cfg.observers,
	}
}

// Own moves s into the table. s is empty afterwards.
func (t *Table[T]) Own(s *shared.Shared[T]) (Handle, error) {
	if !s.Valid() && s.Block() == nil {
		return 0, errors.InvalidInput(errors.PhaseTable, "cannot own an empty handle")
	}
	if t.isClosed() {
		return 0, ErrClosed
	}

	cb := s.Block()
	handle, err := t.backend.Own(s)
	if err != nil {
		return 0, err
	}

	t.notify(Event{Type: EventCreated, Handle: handle, Entry: EntryOwner, Block: cb})
	return handle, nil
}

// Observe adds a weak entry for the object behind handle. Observing an
// observer is allowed and yields a second observer of the same object.
func (t *Table[T]) Observe(handle Handle) (Handle, error) {
	if t.isClosed() {
		return 0, ErrClosed
	}

	t.countMu.Lock()
	h, err := t.backend.Observe(handle)
	var cb shared.ControlBlock
	if err == nil {
		cb = t.blockOf(h)
	}
	t.countMu.Unlock()
	if err != nil {
		return 0, err
	}

	t.notify(Event{Type: EventCreated, Handle: h, Entry: EntryObserver, Block: cb})
	return h, nil
}

// Lock returns a new owner of the object behind handle. It fails with an
// expired error when the entry is an observer whose object is gone.
// Pass the result to Release when other goroutines use the same table.
func (t *Table[T]) Lock(handle Handle) (shared.Shared[T], error) {
	t.countMu.Lock()
	s, kind, ok := t.backend.Lock(handle)
	expired := ok && kind == EntryObserver && s.Block() == nil
	var cb shared.ControlBlock
	if expired {
		cb = t.blockOf(handle)
	}
	t.countMu.Unlock()

	if !ok {
		return shared.Shared[T]{}, notFound(handle)
	}
	if expired {
		t.notify(Event{Type: EventExpired, Handle: handle, Entry: kind, Block: cb})
		return shared.Shared[T]{}, errors.Expired(errors.PhaseTable, "handle "+handleName(handle))
	}
	return s, nil
}

// Release resets s under the table's count lock. Use it for handles taken
// out with Lock or Share whose objects the table still holds.
func (t *Table[T]) Release(s *shared.Shared[T]) {
	if s.Block() == nil {
		*s = shared.Shared[T]{}
		return
	}
	t.release(pendingRelease[T]{e: entry[T]{own: s.Move(), kind: EntryOwner}})
}

// Share is Lock without the error detail.
func (t *Table[T]) Share(handle Handle) (shared.Shared[T], bool) {
	s, err := t.Lock(handle)
	return s, err == nil
}

// Get returns the object behind handle without taking ownership.
// The pointer is only valid while some owner keeps the object alive.
func (t *Table[T]) Get(handle Handle) (*T, bool) {
	t.countMu.Lock()
	defer t.countMu.Unlock()
	return t.backend.Get(handle)
}

// Borrow lends the object behind an owner entry. The entry cannot be
// dropped until every borrow is returned.
func (t *Table[T]) Borrow(handle Handle) (*T, error) {
	p, err := t.backend.Borrow(handle)
	if err != nil {
		return nil, err
	}
	t.notify(Event{Type: EventBorrowed, Handle: handle, Entry: EntryOwner, Block: t.blockOf(handle)})
	return p, nil
}

// ReturnBorrow ends one borrow of handle.
func (t *Table[T]) ReturnBorrow(handle Handle) error {
	if err := t.backend.ReturnBorrow(handle); err != nil {
		return err
	}
	t.notify(Event{Type: EventBorrowReturned, Handle: handle, Entry: EntryOwner, Block: t.blockOf(handle)})
	return nil
}

// Drop removes handle and releases the reference it held.
//
// Finalizers run outside the backend lock and may call Drop, Clear, Close
// and Release on the same table; those releases are queued and done before
// the outermost release returns. A finalizer must not call the methods
// that read counters (Observe, Lock, Share, Get, Info, Each).
func (t *Table[T]) Drop(handle Handle) error {
	e, err := t.backend.Drop(handle)
	if err != nil {
		return err
	}
	t.release(pendingRelease[T]{e: e, handle: handle, notify: true})
	return nil
}

// Info returns a snapshot of one entry.
func (t *Table[T]) Info(handle Handle) (Info, bool) {
	t.countMu.Lock()
	defer t.countMu.Unlock()
	return t.backend.Info(handle)
}

// Len returns the number of entries.
func (t *Table[T]) Len() int {
	return t.backend.Len()
}

// Each calls fn for every entry in handle order until fn returns false.
// fn must not call back into the table.
func (t *Table[T]) Each(fn func(Info) bool) {
	t.countMu.Lock()
	defer t.countMu.Unlock()
	t.backend.Each(fn)
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table[T]) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Clear drops every entry that has no outstanding borrows.
func (t *Table[T]) Clear() {
	handles, entries := t.backend.Clear()
	items := make([]pendingRelease[T], len(entries))
	for i := range entries {
		items[i] = pendingRelease[T]{e: entries[i], handle: handles[i], notify: true}
	}
	t.release(items...)
}

// Close releases every entry and stops accepting new ones.
// Closing twice is a no-op.
func (t *Table[T]) Close() error {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return nil
	}
	t.closed = true
	t.closeMu.Unlock()

	entries := t.backend.Close()
	items := make([]pendingRelease[T], len(entries))
	for i := range entries {
		items[i] = pendingRelease[T]{e: entries[i]}
	}
	t.release(items...)

	Logger().Debug("table closed", zap.Int("released", len(entries)))
	return nil
}

// Backend returns the underlying entry store.
func (t *Table[T]) Backend() *LocalBackend[T] {
	return t.backend
}

// release queues items and, unless another call is already draining the
// queue, drains it under countMu. Events are delivered after countMu is
// released so observers may read the table.
func (t *Table[T]) release(items ...pendingRelease[T]) {
	t.queueMu.Lock()
	t.pending = append(t.pending, items...)
	if t.draining {
		t.queueMu.Unlock()
		return
	}
	t.draining = true
	t.queueMu.Unlock()

	var events []Event
	t.countMu.Lock()
	for {
		t.queueMu.Lock()
		if len(t.pending) == 0 {
			t.pending = nil
			t.draining = false
			t.queueMu.Unlock()
			break
		}
		item := t.pending[0]
		t.pending = t.pending[1:]
		t.queueMu.Unlock()

		cb := item.e.block()
		item.e.release()

		if !item.notify {
			continue
		}
		if ce := Logger().Check(zap.DebugLevel, "entry dropped"); ce != nil {
			ce.Write(zap.Uint32("handle", uint32(item.handle)), zap.Stringer("entry", item.e.kind))
		}
		events = append(events, Event{Type: EventDropped, Handle: item.handle, Entry: item.e.kind, Block: cb})
	}
	t.countMu.Unlock()

	for _, e := range events {
		t.notify(e)
	}
}

func (t *Table[T]) isClosed() bool {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	return t.closed
}

func (t *Table[T]) blockOf(handle Handle) shared.ControlBlock {
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()
	if e := t.backend.lookup(handle); e != nil {
		return e.block()
	}
	return nil
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	observers := t.observers
	t.obsMu.RUnlock()

	for _, o := range observers {
		o.OnResourceEvent(e)
	}
}

func handleName(h Handle) string {
	return strconv.FormatUint(uint64(h), 10)
}

func notFound(h Handle) error {
	return errors.NotFound(errors.PhaseTable, "handle", handleName(h))
}

func notOwner(h Handle) error {
	return errors.InvalidInput(errors.PhaseTable, "handle "+handleName(h)+" is an observer and cannot be borrowed")
}

func notBorrowed(h Handle) error {
	return errors.InvalidInput(errors.PhaseTable, "handle "+handleName(h)+" has no outstanding borrow")
}

func outstandingBorrow(h Handle, n uint32) error {
	return errors.OutstandingBorrow(errors.PhaseTable, uint32(h), n)
}
