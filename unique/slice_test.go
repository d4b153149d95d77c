package unique

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlice_DropsEveryElement(t *testing.T) {
	drops := 0
	s := NewSlice([]resource{{drops: &drops}, {drops: &drops}, {drops: &drops}})
	require.Equal(t, 3, s.Len())

	s.At(1).name = "mid"
	assert.Equal(t, "mid", s.Get()[1].name)

	s.Reset()
	assert.Equal(t, 3, drops)
	assert.False(t, s.Valid())
}

func TestSlice_MakeSlice(t *testing.T) {
	s := MakeSlice[int](4)
	assert.Equal(t, 4, s.Len())
	*s.At(3) = 7
	assert.Equal(t, []int{0, 0, 0, 7}, s.Get())
}

func TestSlice_AtOutOfRangePanics(t *testing.T) {
	s := MakeSlice[int](2)
	assert.Panics(t, func() { s.At(2) })
	assert.Panics(t, func() { s.At(-1) })
}

func TestSlice_CustomDeleter(t *testing.T) {
	var deleted [][]byte
	del := FuncSliceDeleter[byte](func(b []byte) { deleted = append(deleted, b) })
	s := NewSliceWithDeleter([]byte("abc"), del)

	other := NewSliceWithDeleter([]byte("xyz"), del)
	s.Assign(&other)
	require.Len(t, deleted, 1)
	assert.Equal(t, "abc", string(deleted[0]))
	assert.False(t, other.Valid())

	s.Assign(&s)
	assert.Len(t, deleted, 1)

	released := s.Release()
	assert.Equal(t, "xyz", string(released))
	s.Reset()
	assert.Len(t, deleted, 1)
}

func TestSlice_MoveSwap(t *testing.T) {
	a := NewSlice([]int{1})
	b := NewSlice([]int{2, 3})
	a.Swap(&b)
	assert.Equal(t, 2, a.Len())

	m := a.Move()
	assert.False(t, a.Valid())
	assert.Equal(t, []int{2, 3}, m.Get())
	m.ResetTo([]int{9})
	assert.Equal(t, 1, m.Len())
	assert.NotNil(t, m.Deleter())
}

func TestSlice_StatelessDeleterTakesNoSpace(t *testing.T) {
	var s Slice[int, DefaultSliceDeleter[int]]
	assert.Equal(t, unsafe.Sizeof([]int(nil)), unsafe.Sizeof(s))
}
