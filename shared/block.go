package shared

import (
	"go.uber.org/zap"

	"github.com/wippyai/refptr/counter"
)

// State is the lifecycle position of a control block.
type State uint8

const (
	StateLive      State = iota // strong > 0
	StateFinalized              // strong == 0, weak > 0
	StateFreed                  // strong == 0, weak == 0; terminal
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateFinalized:
		return "finalized"
	case StateFreed:
		return "freed"
	default:
		return "unknown"
	}
}

// Kind identifies how a control block stores its payload.
type Kind uint8

const (
	KindPointer Kind = iota // payload allocated elsewhere, held by pointer
	KindInline              // payload embedded in the block
)

func (k Kind) String() string {
	switch k {
	case KindPointer:
		return "pointer"
	case KindInline:
		return "inline"
	default:
		return "unknown"
	}
}

// ControlBlock is the bookkeeping record shared by every handle of one
// ownership group.
//
// IncStrong must not be called once the strong count has reached 0;
// promotion paths check StrongCount first. Decrementing a count that is
// already 0 panics.
type ControlBlock interface {
	IncStrong()
	DecStrong()
	IncWeak()
	DecWeak()

	// Payload returns the managed object's pointer as stored in the block.
	// It stays valid after finalization until the block is freed.
	Payload() any

	StrongCount() int
	WeakCount() int
	State() State
	Kind() Kind
}

// Dropper is implemented by payloads that need cleanup when their last
// owner goes away.
type Dropper interface {
	Drop()
}

// lifecycle is the variant-specific half of a control block.
type lifecycle interface {
	ControlBlock
	finalize()
	free()
}

// blockCore carries the counters and the protocol common to both variants.
type blockCore struct {
	strong counter.Cell
	weak   counter.Cell
	state  State
}

func newBlockCore() blockCore {
	return blockCore{strong: counter.NewCell(1), state: StateLive}
}

func (c *blockCore) IncStrong() {
	if c.state != StateLive {
		panic("shared: strong reference taken on a " + c.state.String() + " control block")
	}
	c.strong.Inc()
}

func (c *blockCore) IncWeak() {
	if c.state == StateFreed {
		panic("shared: weak reference taken on a freed control block")
	}
	c.weak.Inc()
}

func (c *blockCore) StrongCount() int { return c.strong.Load() }
func (c *blockCore) WeakCount() int   { return c.weak.Load() }
func (c *blockCore) State() State     { return c.state }

func (c *blockCore) decStrong(l lifecycle) {
	if c.strong.Dec() > 0 {
		return
	}
	c.state = StateFinalized

	// The block is pinned with an extra weak reference while the payload
	// finalizes, so weak handles released by the finalizer cannot free it.
	c.weak.Inc()
	l.finalize()
	if ce := Logger().Check(zap.DebugLevel, "payload finalized"); ce != nil {
		ce.Write(zap.Stringer("kind", l.Kind()), zap.Int("weak", c.weak.Load()-1))
	}
	if c.weak.Dec() == 0 {
		c.release(l)
	}
}

func (c *blockCore) decWeak(l lifecycle) {
	if c.weak.Dec() == 0 && c.strong.Zero() {
		c.release(l)
	}
}

func (c *blockCore) release(l lifecycle) {
	if c.state == StateFreed {
		panic("shared: control block freed twice")
	}
	c.state = StateFreed
	l.free()
	if ce := Logger().Check(zap.DebugLevel, "control block freed"); ce != nil {
		ce.Write(zap.Stringer("kind", l.Kind()))
	}
}

// pointerBlock wraps an externally allocated payload.
type pointerBlock[T any] struct {
	ptr     *T
	deleter func(*T)
	blockCore
}

func newPointerBlock[T any](ptr *T, deleter func(*T)) *pointerBlock[T] {
	return &pointerBlock[T]{
		blockCore: newBlockCore(),
		ptr:       ptr,
		deleter:   deleter,
	}
}

func (b *pointerBlock[T]) DecStrong() { b.decStrong(b) }
func (b *pointerBlock[T]) DecWeak()   { b.decWeak(b) }
func (b *pointerBlock[T]) Payload() any {
	return b.ptr
}
func (b *pointerBlock[T]) Kind() Kind { return KindPointer }

func (b *pointerBlock[T]) finalize() {
	if b.ptr == nil {
		return
	}
	self := detachWeakThis(b.ptr, b)
	if b.deleter != nil {
		b.deleter(b.ptr)
	} else {
		dropPayload(b.ptr)
	}
	self.Reset()
}

func (b *pointerBlock[T]) free() {
	b.ptr = nil
	b.deleter = nil
}

// inlineBlock stores the payload by value next to the counters.
type inlineBlock[T any] struct {
	blockCore
	obj T
}

func newInlineBlock[T any]() *inlineBlock[T] {
	return &inlineBlock[T]{blockCore: newBlockCore()}
}

func (b *inlineBlock[T]) DecStrong() { b.decStrong(b) }
func (b *inlineBlock[T]) DecWeak()   { b.decWeak(b) }
func (b *inlineBlock[T]) Payload() any {
	return &b.obj
}
func (b *inlineBlock[T]) Kind() Kind { return KindInline }

func (b *inlineBlock[T]) finalize() {
	self := detachWeakThis(&b.obj, b)
	dropPayload(&b.obj)
	var zero T
	b.obj = zero
	self.Reset()
}

// free has nothing to return: the block and its payload are one Go
// allocation, reclaimed once the last handle stops referencing it.
func (b *inlineBlock[T]) free() {}

func dropPayload[T any](p *T) {
	if d, ok := any(p).(Dropper); ok {
		d.Drop()
	}
}
