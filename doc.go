// Package refptr provides reference-counted ownership handles for Go values
// and for memory the Go garbage collector does not manage.
//
// Go already frees unreachable memory, but many resources are not memory the
// collector understands: regions of a wasm linear memory, blocks obtained from
// C malloc, pooled buffers, file-like objects with a Drop method. For these the
// owner must decide exactly when the resource goes away, and when ownership is
// shared that decision is a reference count.
//
// # Architecture Overview
//
//	refptr/        Root package with the Memory and Allocator interfaces
//	├── counter/   Plain counter cell used by every counted handle
//	├── shared/    Shared and Weak handles over a two-counter control block
//	├── unique/    Exclusive-ownership handles with pluggable deleters
//	├── intrusive/ Handles for objects that carry their own counter
//	├── resource/  Integer handle table holding shared and weak entries
//	├── linmem/    wazero-backed linear memory, heap and refcounted buffers
//	├── cmem/      libc malloc/free blocks bound through purego
//	├── errors/    Structured error types
//	└── cmd/rcplay Interactive playground for handle lifecycles
//
// # Quick Start
//
// Construct a value inside its control block with one allocation:
//
//	p := shared.Make(Point{X: 1, Y: 2})
//	defer p.Reset()
//
//	q := p.Clone()       // use count 2
//	w := q.Weak()        // does not keep the value alive
//	defer w.Reset()
//
//	q.Reset()            // use count 1
//	if s := w.Lock(); s.Valid() {
//	    fmt.Println(s.Value().X)
//	    s.Reset()
//	}
//
// Wrap an object allocated elsewhere, releasing it with a custom deleter:
//
//	buf, err := cmem.Alloc(4096)
//	if err != nil {
//	    return err
//	}
//	defer buf.Reset() // calls free(3) when the last owner is gone
//
// # Ownership Discipline
//
// Handles are values, but copying a handle with the assignment operator does
// not register a new owner. Use Clone to copy, Move to transfer and Reset to
// release. Every handle that was constructed, cloned or locked must be reset
// exactly once.
//
// Counters are plain integers. A graph of handles must be mutated from one
// goroutine at a time; callers that share an object graph between goroutines
// supply their own locking (resource.Table does this for the handles it holds).
//
// Cycles of Shared handles leak. Express back edges with Weak handles.
package refptr
