package linmem

import (
	"context"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/refptr"
	"github.com/wippyai/refptr/errors"
)

// PageSize is the wasm page size in bytes.
const PageSize = 65536

// maxPages is the largest page count a 32-bit linear memory can address.
const maxPages = 65536

// Config controls the size of a linear memory.
type Config struct {
	// InitialPages is the page count at instantiation. Default 1.
	InitialPages uint32
	// MaxPages caps growth. Default 256.
	MaxPages uint32
}

// DefaultConfig returns the default memory configuration.
func DefaultConfig() *Config {
	return &Config{
		InitialPages: 1,
		MaxPages:     256,
	}
}

func (c *Config) normalize() (*Config, error) {
	out := DefaultConfig()
	if c != nil {
		if c.InitialPages != 0 {
			out.InitialPages = c.InitialPages
		}
		if c.MaxPages != 0 {
			out.MaxPages = c.MaxPages
		}
	}
	if out.MaxPages > maxPages {
		return nil, errors.InvalidInput(errors.PhaseMemory, "max pages exceeds 65536")
	}
	if out.InitialPages > out.MaxPages {
		return nil, errors.InvalidInput(errors.PhaseMemory, "initial pages exceed max pages")
	}
	return out, nil
}

// Memory is a wasm linear memory owned by its own wazero runtime.
type Memory struct {
	runtime wazero.Runtime
	mem     api.Memory
	cfg     *Config
	closed  atomic.Bool
}

// New instantiates a linear memory sized by cfg. A nil cfg uses defaults.
func New(ctx context.Context, cfg *Config) (*Memory, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	rtCfg := wazero.NewRuntimeConfig().WithMemoryLimitPages(cfg.MaxPages)
	r := wazero.NewRuntimeWithConfig(ctx, rtCfg)

	mod, err := r.Instantiate(ctx, memoryModule(cfg.InitialPages, cfg.MaxPages))
	if err != nil {
		_ = r.Close(ctx)
		return nil, errors.Wrap(errors.PhaseMemory, errors.KindUnsupported, err, "instantiate memory module")
	}

	mem := mod.ExportedMemory(memoryExport)
	if mem == nil {
		_ = r.Close(ctx)
		return nil, errors.NotFound(errors.PhaseMemory, "memory export", memoryExport)
	}

	Logger().Debug("linear memory created",
		zap.Uint32("initial_pages", cfg.InitialPages),
		zap.Uint32("max_pages", cfg.MaxPages))

	return &Memory{runtime: r, mem: mem, cfg: cfg}, nil
}

// Close releases the runtime. Further access fails with a closed error.
func (m *Memory) Close(ctx context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	return m.runtime.Close(ctx)
}

// Size returns the current size in bytes.
func (m *Memory) Size() uint32 {
	if m.closed.Load() {
		return 0
	}
	return m.mem.Size()
}

// Pages returns the current size in pages.
func (m *Memory) Pages() uint32 {
	return m.Size() / PageSize
}

// MaxPages returns the configured growth limit.
func (m *Memory) MaxPages() uint32 {
	return m.cfg.MaxPages
}

// Grow adds delta pages and returns the previous page count.
func (m *Memory) Grow(delta uint32) (uint32, error) {
	if m.closed.Load() {
		return 0, errors.Closed(errors.PhaseMemory, "memory")
	}
	prev, ok := m.mem.Grow(delta)
	if !ok {
		return 0, errors.New(errors.PhaseMemory, errors.KindAllocation).
			Detail("cannot grow by %d pages (max %d)", delta, m.cfg.MaxPages).
			Build()
	}
	Logger().Debug("linear memory grown",
		zap.Uint32("previous_pages", prev),
		zap.Uint32("delta", delta))
	return prev, nil
}

func (m *Memory) check() error {
	if m.closed.Load() {
		return errors.Closed(errors.PhaseMemory, "memory")
	}
	return nil
}

func outOfBounds(offset uint32, length int, size uint32) error {
	return errors.New(errors.PhaseMemory, errors.KindOutOfBounds).
		Detail("access out of bounds: offset=%d, length=%d, size=%d", offset, length, size).
		Value(offset).
		Build()
}

// Read returns a view of length bytes at offset. The view aliases the
// memory and is invalidated by Grow.
func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, outOfBounds(offset, int(length), m.mem.Size())
	}
	return data, nil
}

// Write copies data to offset.
func (m *Memory) Write(offset uint32, data []byte) error {
	if err := m.check(); err != nil {
		return err
	}
	if !m.mem.Write(offset, data) {
		return outOfBounds(offset, len(data), m.mem.Size())
	}
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *Memory) ReadU8(offset uint32) (uint8, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	v, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, outOfBounds(offset, 1, m.mem.Size())
	}
	return v, nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, outOfBounds(offset, 4, m.mem.Size())
	}
	return v, nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Memory) ReadU64(offset uint32) (uint64, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	v, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, outOfBounds(offset, 8, m.mem.Size())
	}
	return v, nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *Memory) WriteU8(offset uint32, value uint8) error {
	if err := m.check(); err != nil {
		return err
	}
	if !m.mem.WriteByte(offset, value) {
		return outOfBounds(offset, 1, m.mem.Size())
	}
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Memory) WriteU32(offset uint32, value uint32) error {
	if err := m.check(); err != nil {
		return err
	}
	if !m.mem.WriteUint32Le(offset, value) {
		return outOfBounds(offset, 4, m.mem.Size())
	}
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Memory) WriteU64(offset uint32, value uint64) error {
	if err := m.check(); err != nil {
		return err
	}
	if !m.mem.WriteUint64Le(offset, value) {
		return outOfBounds(offset, 8, m.mem.Size())
	}
	return nil
}

var _ refptr.Memory = (*Memory)(nil)
var _ refptr.MemorySizer = (*Memory)(nil)
