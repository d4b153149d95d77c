package linmem

import (
	"github.com/wippyai/refptr/errors"
	"github.com/wippyai/refptr/shared"
)

const bufferAlign = 8

// Buffer is a region of linear memory. Buffers are created through
// NewBuffer and Sub and are only meaningful behind a shared handle.
type Buffer struct {
	heap   *Heap
	Offset uint32
	Size   uint32
}

// NewBuffer allocates size bytes from h. The region returns to h when the
// last owner, including any view from Sub, is released.
func NewBuffer(h *Heap, size uint32) (shared.Shared[Buffer], error) {
	off, err := h.Alloc(size, bufferAlign)
	if err != nil {
		return shared.Shared[Buffer]{}, err
	}
	buf := &Buffer{heap: h, Offset: off, Size: size}
	return shared.NewWithDeleter(buf, func(b *Buffer) {
		b.heap.Free(b.Offset, b.Size, bufferAlign)
	}), nil
}

// Sub returns a view of n bytes at off within b. The view shares b's
// control block.
func Sub(b shared.Shared[Buffer], off, n uint32) (shared.Shared[Buffer], error) {
	parent := b.Get()
	if parent == nil {
		return shared.Shared[Buffer]{}, errors.NilHandle(errors.PhaseMemory, "*linmem.Buffer")
	}
	if uint64(off)+uint64(n) > uint64(parent.Size) {
		return shared.Shared[Buffer]{}, errors.OutOfBounds(errors.PhaseMemory,
			[]string{"buffer"}, int(uint64(off)+uint64(n)), int(parent.Size))
	}
	view := &Buffer{heap: parent.heap, Offset: parent.Offset + off, Size: n}
	return shared.Alias(b, view), nil
}

// Bytes returns a view of the region. The slice aliases linear memory and
// is invalidated when the memory grows.
func (b *Buffer) Bytes() ([]byte, error) {
	return b.heap.mem.Read(b.Offset, b.Size)
}

// Fill sets every byte of the region to v.
func (b *Buffer) Fill(v byte) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	for i := range data {
		data[i] = v
	}
	return nil
}

// WriteAt copies data into the region starting at off.
func (b *Buffer) WriteAt(off uint32, data []byte) error {
	if uint64(off)+uint64(len(data)) > uint64(b.Size) {
		return errors.OutOfBounds(errors.PhaseMemory, []string{"buffer"}, int(off)+len(data), int(b.Size))
	}
	return b.heap.mem.Write(b.Offset+off, data)
}
