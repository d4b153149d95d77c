// Package linmem places reference-counted buffers in a wasm linear memory.
//
// New instantiates a memory-only module in a wazero runtime and wraps its
// exported memory. A Heap carves that memory into aligned regions and grows
// it page by page on demand:
//
//	mem, err := linmem.New(ctx, &linmem.Config{MaxPages: 16})
//	if err != nil {
//	    return err
//	}
//	defer mem.Close(ctx)
//
//	heap := linmem.NewHeap(mem)
//	buf, err := linmem.NewBuffer(heap, 256)
//	if err != nil {
//	    return err
//	}
//	defer buf.Reset()
//
// NewBuffer returns a shared.Shared[Buffer] whose deleter hands the region
// back to the heap once the last owner is released. Sub derives views that
// alias the parent's control block, so a view keeps the whole region
// allocated:
//
//	header, _ := linmem.Sub(buf, 0, 16)
//	buf.Reset()       // region still allocated
//	header.Reset()    // region freed
//
// Memory and Heap are safe for concurrent use. Handles follow the usual
// shared package discipline.
package linmem
