// Package cmem hands out C heap blocks behind shared handles.
//
// Blocks come from libc malloc, bound at runtime through purego without
// cgo, and go back to free when the last owner is released:
//
//	blk, err := cmem.Alloc(4096)
//	if err != nil {
//	    return err // errors.KindUnsupported on platforms without libc binding
//	}
//	defer blk.Reset()
//	copy(blk.Get().Bytes(), payload)
//
// The memory is outside the Go heap: Bytes views must not outlive the
// handle that produced them.
package cmem
