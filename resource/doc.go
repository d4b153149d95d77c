// Package resource maps integer handles to shared and weak references.
//
// A Table is the boundary between code that speaks in opaque integers (a
// wasm guest, a command line, a wire protocol) and the ownership handles of
// package shared. Each table entry is one of two kinds:
//
//	owner    - holds a shared.Shared, keeping the object alive
//	observer - holds a shared.Weak, tracking the object without owning it
//
// # Handle Table
//
//	table := resource.NewTable[Conn]()
//
//	// Move an owning handle into the table
//	p := shared.Make(Conn{Addr: "10.0.0.1"})
//	h, err := table.Own(&p) // p is now empty
//
//	// Add an observer entry for the same object
//	wh, err := table.Observe(h)
//
//	// Take an owning handle back out; observers fail once expired
//	s, err := table.Lock(wh)
//	defer s.Reset()
//
//	// Release the entry
//	err = table.Drop(h)
//
// Handle 0 is reserved and always invalid. Freed handles are reused.
//
// # Borrows
//
// Borrow lends the object behind an owner entry for the duration of a call.
// An entry with outstanding borrows cannot be dropped.
//
// # Observers
//
// Register observers to track entry lifecycle events:
//
//	type expiryLog struct{}
//
//	func (expiryLog) OnResourceEvent(e resource.Event) {
//	    if e.Type == resource.EventExpired {
//	        log.Printf("handle %d outlived its object", e.Handle)
//	    }
//	}
//
//	table.Subscribe(expiryLog{})
//
// # Synchronization
//
// Shared handles count with plain integers. The table keeps a count lock
// that every counter read and every release takes, which makes it the
// external lock for the object graphs it holds. Handles taken out with Lock
// or Share go back through Release when other goroutines use the table.
//
// Dropping an entry may finalize its object. Finalizers may call Drop,
// Clear, Close and Release on the same table: those releases are queued and
// run by the goroutine already releasing. A Drop that lands while another
// goroutine is draining the queue may return before its finalizer has run.
// Finalizers must not call Observe, Lock, Share, Get, Info or Each.
package resource
