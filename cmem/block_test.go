package cmem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/refptr/errors"
)

func requireLibc(t *testing.T) {
	t.Helper()
	if err := Load(); err != nil {
		t.Skipf("libc not available: %v", err)
	}
}

func TestAlloc_FreedOnLastRelease(t *testing.T) {
	requireLibc(t)
	before := Live()

	blk, err := Alloc(64)
	require.NoError(t, err)
	assert.Equal(t, 64, blk.Get().Size())
	assert.NotZero(t, blk.Get().Addr())
	assert.Equal(t, before+1, Live())

	other := blk.Clone()
	blk.Reset()
	assert.Equal(t, before+1, Live())

	p := other.Get()
	other.Reset()
	assert.Equal(t, before, Live())
	assert.Zero(t, p.Addr())
	assert.Nil(t, p.Bytes())
}

func TestBlock_Bytes(t *testing.T) {
	requireLibc(t)

	blk, err := Alloc(8)
	require.NoError(t, err)
	defer blk.Reset()

	data := blk.Get().Bytes()
	require.Len(t, data, 8)
	copy(data, "refcount")
	assert.Equal(t, "refcount", string(blk.Get().Bytes()))
}

func TestAlloc_InvalidSize(t *testing.T) {
	requireLibc(t)

	_, err := Alloc(0)
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
}

func TestAlloc_WeakExpiresAfterFree(t *testing.T) {
	requireLibc(t)

	blk, err := Alloc(16)
	require.NoError(t, err)
	w := blk.Weak()
	defer w.Reset()

	assert.False(t, w.Expired())
	blk.Reset()
	assert.True(t, w.Expired())
	assert.False(t, w.Lock().Valid())
}
