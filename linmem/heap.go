package linmem

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/refptr"
	"github.com/wippyai/refptr/errors"
)

// heapBase keeps offset 0 out of the heap so it can stand for "no region".
const heapBase = 8

type span struct {
	off, size uint32
}

func (s span) end() uint64 { return uint64(s.off) + uint64(s.size) }

// Heap is a first-fit allocator over a Memory. Free regions are kept sorted
// by offset and merged with their neighbors on release.
type Heap struct {
	mem  *Memory
	free []span
	live map[uint32]uint32
	used uint64
	mu   sync.Mutex
}

// NewHeap manages all of mem above a small reserved prefix.
func NewHeap(mem *Memory) *Heap {
	h := &Heap{
		mem:  mem,
		live: make(map[uint32]uint32),
	}
	if size := mem.Size(); size > heapBase {
		h.free = append(h.free, span{off: heapBase, size: size - heapBase})
	}
	return h
}

// Memory returns the memory the heap allocates from.
func (h *Heap) Memory() *Memory {
	return h.mem
}

// Alloc reserves size bytes aligned to align, growing the memory when no
// free region fits. align must be a power of two; 0 means 1.
func (h *Heap) Alloc(size, align uint32) (uint32, error) {
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return 0, errors.InvalidInput(errors.PhaseAlloc, "alignment must be a power of two")
	}
	if size == 0 {
		size = 1
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if off, ok := h.take(size, align); ok {
		return off, nil
	}
	if err := h.grow(size, align); err != nil {
		return 0, errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Detail("cannot allocate %d bytes (align %d)", size, align).
			Value(size).
			Cause(err).
			Build()
	}
	if off, ok := h.take(size, align); ok {
		return off, nil
	}
	return 0, errors.AllocationFailed(errors.PhaseAlloc, size, align)
}

// Free returns a region obtained from Alloc. Freeing a region twice panics.
func (h *Heap) Free(ptr, size, align uint32) {
	if size == 0 {
		size = 1
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if got, ok := h.live[ptr]; !ok || got != size {
		panic("linmem: free of unallocated region")
	}
	delete(h.live, ptr)
	h.used -= uint64(size)
	h.insert(span{off: ptr, size: size})
}

// InUse returns the number of allocated bytes.
func (h *Heap) InUse() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.used
}

// Allocations returns the number of live regions.
func (h *Heap) Allocations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

// take carves the first fitting free span. The caller holds h.mu.
func (h *Heap) take(size, align uint32) (uint32, bool) {
	for i, s := range h.free {
		aligned := alignUp(uint64(s.off), align)
		if aligned+uint64(size) > s.end() {
			continue
		}

		var rest []span
		if aligned > uint64(s.off) {
			rest = append(rest, span{off: s.off, size: uint32(aligned - uint64(s.off))})
		}
		if tail := s.end() - aligned - uint64(size); tail > 0 {
			rest = append(rest, span{off: uint32(aligned) + size, size: uint32(tail)})
		}
		h.free = append(h.free[:i], append(rest, h.free[i+1:]...)...)

		off := uint32(aligned)
		h.live[off] = size
		h.used += uint64(size)
		return off, true
	}
	return 0, false
}

// grow adds enough pages for one more region of size bytes at the top of
// memory. The caller holds h.mu.
func (h *Heap) grow(size, align uint32) error {
	top := uint64(h.mem.Size())
	start := top
	if n := len(h.free); n > 0 && h.free[n-1].end() == top {
		start = uint64(h.free[n-1].off)
	}
	if start < heapBase {
		start = heapBase
	}

	need := alignUp(start, align) + uint64(size)
	if need <= top {
		return nil
	}
	pages := (need - top + PageSize - 1) / PageSize
	if uint64(h.mem.Pages())+pages > uint64(h.mem.MaxPages()) {
		return errors.New(errors.PhaseMemory, errors.KindAllocation).
			Detail("need %d more pages, limit is %d", pages, h.mem.MaxPages()).
			Build()
	}

	if _, err := h.mem.Grow(uint32(pages)); err != nil {
		return err
	}

	added := span{off: uint32(top), size: uint32(pages * PageSize)}
	if top < heapBase {
		added = span{off: heapBase, size: uint32(top + pages*PageSize - heapBase)}
	}
	h.insert(added)

	Logger().Debug("heap grown",
		zap.Uint64("pages", pages),
		zap.Uint32("size", h.mem.Size()))
	return nil
}

// insert adds s to the free list, merging it with adjacent spans.
func (h *Heap) insert(s span) {
	i := sort.Search(len(h.free), func(i int) bool { return h.free[i].off >= s.off })
	h.free = append(h.free, span{})
	copy(h.free[i+1:], h.free[i:])
	h.free[i] = s

	if i+1 < len(h.free) && h.free[i].end() == uint64(h.free[i+1].off) {
		h.free[i].size += h.free[i+1].size
		h.free = append(h.free[:i+1], h.free[i+2:]...)
	}
	if i > 0 && h.free[i-1].end() == uint64(h.free[i].off) {
		h.free[i-1].size += h.free[i].size
		h.free = append(h.free[:i], h.free[i+1:]...)
	}
}

func alignUp(v uint64, align uint32) uint64 {
	a := uint64(align)
	return (v + a - 1) &^ (a - 1)
}

var _ refptr.Allocator = (*Heap)(nil)
