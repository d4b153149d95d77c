package linmem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/refptr/errors"
)

func newMemory(t *testing.T, cfg *Config) *Memory {
	t.Helper()
	ctx := context.Background()
	mem, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close(ctx) })
	return mem
}

func TestNew_Defaults(t *testing.T) {
	mem := newMemory(t, nil)
	assert.Equal(t, uint32(PageSize), mem.Size())
	assert.Equal(t, uint32(1), mem.Pages())
	assert.Equal(t, uint32(256), mem.MaxPages())
}

func TestNew_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, &Config{InitialPages: 4, MaxPages: 2})
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))

	_, err = New(ctx, &Config{MaxPages: maxPages + 1})
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
}

func TestMemory_ReadWrite(t *testing.T) {
	mem := newMemory(t, &Config{InitialPages: 1, MaxPages: 2})

	require.NoError(t, mem.WriteU8(0, 0xab))
	require.NoError(t, mem.WriteU32(4, 0xdeadbeef))
	require.NoError(t, mem.WriteU64(8, 0x0102030405060708))
	require.NoError(t, mem.Write(16, []byte("hello")))

	u8, err := mem.ReadU8(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xab), u8)

	u32, err := mem.ReadU32(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), u32)

	u64, err := mem.ReadU64(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)

	data, err := mem.Read(16, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// little-endian layout
	b, err := mem.Read(4, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xef, 0xbe, 0xad, 0xde}, b)
}

func TestMemory_OutOfBounds(t *testing.T) {
	mem := newMemory(t, &Config{InitialPages: 1, MaxPages: 1})

	_, err := mem.Read(PageSize-2, 4)
	assert.True(t, errors.IsKind(err, errors.KindOutOfBounds))

	err = mem.WriteU32(PageSize-2, 1)
	assert.True(t, errors.IsKind(err, errors.KindOutOfBounds))

	_, err = mem.ReadU64(PageSize)
	assert.True(t, errors.IsKind(err, errors.KindOutOfBounds))
}

func TestMemory_Grow(t *testing.T) {
	mem := newMemory(t, &Config{InitialPages: 1, MaxPages: 3})

	prev, err := mem.Grow(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), prev)
	assert.Equal(t, uint32(3), mem.Pages())

	_, err = mem.Grow(1)
	assert.True(t, errors.IsKind(err, errors.KindAllocation))
}

func TestMemory_Close(t *testing.T) {
	ctx := context.Background()
	mem, err := New(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, mem.Close(ctx))
	require.NoError(t, mem.Close(ctx))

	_, err = mem.Read(0, 1)
	assert.True(t, errors.IsKind(err, errors.KindClosed))
	assert.Equal(t, uint32(0), mem.Size())
}

func TestMemoryModule_Encoding(t *testing.T) {
	bin := memoryModule(1, 256)
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, bin[:8])
	// memory section: id, size, count, flags, min, max (256 = 0x80 0x02)
	assert.Equal(t, []byte{0x05, 0x05, 0x01, 0x01, 0x01, 0x80, 0x02}, bin[8:15])
}

func TestAppendULEB(t *testing.T) {
	tests := []struct {
		in   uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{65536, []byte{0x80, 0x80, 0x04}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, appendULEB(nil, tt.in), "value %d", tt.in)
	}
}
