// Package shared provides shared-ownership handles with a non-owning observer
// form, built on a control block that tracks two independent counts.
//
// # Control Blocks
//
// Every ownership group has one ControlBlock holding a strong count (live
// Shared handles) and a weak count (live Weak handles). The payload is
// finalized exactly once, when the strong count drops from 1 to 0. The block
// itself is freed once both counts are 0, so Weak handles can still ask
// whether the payload is gone after it has been finalized.
//
// Two block variants exist:
//
//	New(ptr)   pointer-backed: wraps an object allocated elsewhere and
//	           finalizes it with a deleter (Drop by default)
//	Make(v)    inline: the payload lives inside the block, one allocation;
//	           finalized in place by Drop followed by zeroing
//
// The per-block state machine is
//
//	Live --strong reaches 0--> Finalized --weak reaches 0--> Freed
//	Live --strong reaches 0 with no weak handles--> Freed
//
// # Handles
//
// Shared and Weak are small values. Copying one with = does not register an
// owner; use Clone to copy, Move to transfer, and Reset to release:
//
//	p := shared.Make(Config{Name: "primary"})
//	defer p.Reset()
//
//	w := p.Weak()
//	defer w.Reset()
//
//	if s := w.Lock(); s.Valid() {
//	    use(s.Get())
//	    s.Reset()
//	}
//
// FromWeak promotes with an explicit failure: it returns an error matching
// errors.ErrExpired when the payload is gone. Lock never fails and returns an
// empty handle instead.
//
// # Aliasing
//
// Alias builds a handle that keeps one block alive while observing a
// different address, usually a field of the owned object:
//
//	owner := shared.Make(Server{})
//	addr := shared.Alias(owner, &owner.Get().Addr)
//	owner.Reset() // Server stays alive through addr
//
// # Concurrency
//
// Counters are plain integers. All handles of one ownership group must be
// used from one goroutine at a time; concurrent Clone or Reset on the same
// group corrupts the counts.
//
// # Cycles
//
// Shared handles that form a cycle keep each other alive forever. Model back
// edges as Weak handles.
package shared
