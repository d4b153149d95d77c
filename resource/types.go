package resource

import "github.com/wippyai/refptr/shared"

// Handle is an opaque reference to a table entry.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EntryKind distinguishes owning entries from observing ones.
type EntryKind uint8

const (
	EntryOwner EntryKind = iota
	EntryObserver
)

func (k EntryKind) String() string {
	if k == EntryObserver {
		return "observer"
	}
	return "owner"
}

// Event types for entry lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventBorrowed
	EventBorrowReturned
	EventExpired
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventBorrowed:
		return "borrowed"
	case EventBorrowReturned:
		return "borrow_returned"
	case EventExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Event represents an entry lifecycle event.
type Event struct {
	Block  shared.ControlBlock
	Handle Handle
	Entry  EntryKind
	Type   EventType
}

// Observer receives notifications about entry lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Info is a snapshot of one entry and the control block behind it.
type Info struct {
	Handle  Handle
	Entry   EntryKind
	Strong  int
	Weak    int
	Borrows uint32
	State   shared.State
	Kind    shared.Kind
	Valid   bool
}
