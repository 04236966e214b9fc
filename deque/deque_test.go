package deque

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Deque[int] = (*ArrDeque[int])(nil)

func TestArrDeque_Capacity(t *testing.T) {
	assert.Equal(t, 8, NewArrDeque[int](1).Capacity())
	assert.Equal(t, 8, NewArrDeque[int](8).Capacity())
	assert.Equal(t, 16, NewArrDeque[int](9).Capacity())
	assert.Equal(t, 8, NewArrDeque[int](0).Capacity())
}

func TestArrDeque_AddRemove(t *testing.T) {
	d := NewArrDeque[int](8)
	assert.True(t, d.IsEmpty())

	for i := 0; i < 4; i++ {
		require.True(t, d.AddLast(i))
	}
	for i := 1; i <= 4; i++ {
		require.True(t, d.AddFirst(-i))
	}
	assert.True(t, d.IsFull())
	assert.False(t, d.AddLast(100))
	assert.False(t, d.AddFirst(100))
	assert.Equal(t, []int{-4, -3, -2, -1, 0, 1, 2, 3}, d.Slice())

	v, ok := d.RemoveFirst()
	assert.True(t, ok)
	assert.Equal(t, -4, v)
	v, ok = d.RemoveLast()
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 6, d.Size())
	assert.Equal(t, -3, d.Get(0))
	assert.Equal(t, 2, d.Get(5))

	d.Set(0, 42)
	assert.Equal(t, 42, d.Get(0))
}

func TestArrDeque_Empty(t *testing.T) {
	d := NewArrDeque[string](8)
	_, ok := d.RemoveFirst()
	assert.False(t, ok)
	_, ok = d.RemoveLast()
	assert.False(t, ok)
	assert.Panics(t, func() { d.Get(0) })
}

func TestArrDeque_PushBounded(t *testing.T) {
	d := NewArrDeque[int](8)
	for i := 0; i < 20; i++ {
		d.PushBounded(i)
	}
	assert.Equal(t, 8, d.Size())
	assert.Equal(t, []int{12, 13, 14, 15, 16, 17, 18, 19}, d.Slice())
}

func TestArrDeque_Traverse(t *testing.T) {
	d := NewArrDeque[int](8)
	for i := 0; i < 6; i++ {
		d.AddLast(i)
	}
	// 头尾交替，下标跨过数组边界
	for i := 0; i < 5; i++ {
		d.RemoveFirst()
		d.AddLast(10 + i)
	}
	sum := 0
	d.Traverse(func(i int, item int) {
		assert.Equal(t, d.Get(i), item)
		sum += item
	})
	assert.Equal(t, 5+10+11+12+13+14, sum)
}

func BenchmarkArrDeque_PushBounded(b *testing.B) {
	d := NewArrDeque[int](64)
	for i := 0; i < b.N; i++ {
		d.PushBounded(i)
	}
}
