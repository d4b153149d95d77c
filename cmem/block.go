package cmem

import (
	"sync/atomic"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/refptr/errors"
	"github.com/wippyai/refptr/shared"
)

// cAlign is the alignment malloc guarantees on supported platforms.
const cAlign = 16

var live atomic.Int64

// Block is a malloc'd region.
type Block struct {
	addr uintptr
	size int
}

// Alloc mallocs n bytes. The block is freed when the last owner of the
// returned handle is released.
func Alloc(n int) (shared.Shared[Block], error) {
	if err := Load(); err != nil {
		return shared.Shared[Block]{}, err
	}
	if n <= 0 {
		return shared.Shared[Block]{}, errors.InvalidInput(errors.PhaseAlloc, "block size must be positive")
	}

	addr := cMalloc(uintptr(n))
	if addr == 0 {
		return shared.Shared[Block]{}, errors.AllocationFailed(errors.PhaseAlloc, uint32(n), cAlign)
	}
	live.Add(1)

	return shared.NewWithDeleter(&Block{addr: addr, size: n}, freeBlock), nil
}

func freeBlock(b *Block) {
	if b.addr == 0 {
		return
	}
	cFree(b.addr)
	if ce := Logger().Check(zap.DebugLevel, "block freed"); ce != nil {
		ce.Write(zap.Uintptr("addr", b.addr), zap.Int("size", b.size))
	}
	b.addr = 0
	b.size = 0
	live.Add(-1)
}

// Bytes returns the block contents. The slice is only valid while the
// block is owned.
func (b *Block) Bytes() []byte {
	if b.addr == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(b.addr)), b.size)
}

// Size returns the block length in bytes.
func (b *Block) Size() int {
	return b.size
}

// Addr returns the C address of the block, 0 once freed.
func (b *Block) Addr() uintptr {
	return b.addr
}

// Live returns the number of blocks not yet freed.
func Live() int64 {
	return live.Load()
}
