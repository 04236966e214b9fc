package deque

// 数组大小基数
const base = 8

// ArrDeque 环形数组实现，容量向上取整到 base 的倍数
type ArrDeque[T any] struct {
	arr []T

	// 头部元素下标
	start int
	// 元素个数
	size int
	// 容量
	capacity int
}

// 工厂方法
func NewArrDeque[T any](capacity int) *ArrDeque[T] {
	if capacity < 1 {
		capacity = 1
	}
	remainder := capacity % base
	if remainder != 0 {
		capacity = capacity - remainder + base
	}
	return &ArrDeque[T]{
		arr:      make([]T, capacity),
		capacity: capacity,
	}
}

func (ad *ArrDeque[T]) index(i int) int {
	return (ad.start + i) % ad.capacity
}

func (ad *ArrDeque[T]) Size() int {
	return ad.size
}

func (ad *ArrDeque[T]) Capacity() int {
	return ad.capacity
}

func (ad *ArrDeque[T]) Get(i int) T {
	if i < 0 || i >= ad.size {
		panic("index out of length")
	}
	return ad.arr[ad.index(i)]
}

func (ad *ArrDeque[T]) Set(i int, v T) {
	if i < 0 || i >= ad.size {
		panic("index out of length")
	}
	ad.arr[ad.index(i)] = v
}

func (ad *ArrDeque[T]) Traverse(f func(i int, item T)) {
	for i := 0; i < ad.size; i++ {
		f(i, ad.arr[ad.index(i)])
	}
}

func (ad *ArrDeque[T]) AddLast(v T) bool {
	if ad.IsFull() {
		return false
	}
	ad.arr[ad.index(ad.size)] = v
	ad.size++
	return true
}

func (ad *ArrDeque[T]) RemoveLast() (T, bool) {
	var zero T
	if ad.IsEmpty() {
		return zero, false
	}
	ad.size--
	i := ad.index(ad.size)
	v := ad.arr[i]
	ad.arr[i] = zero
	return v, true
}

func (ad *ArrDeque[T]) AddFirst(v T) bool {
	if ad.IsFull() {
		return false
	}
	ad.start = (ad.start - 1 + ad.capacity) % ad.capacity
	ad.arr[ad.start] = v
	ad.size++
	return true
}

func (ad *ArrDeque[T]) RemoveFirst() (T, bool) {
	var zero T
	if ad.IsEmpty() {
		return zero, false
	}
	v := ad.arr[ad.start]
	ad.arr[ad.start] = zero
	ad.start = (ad.start + 1) % ad.capacity
	ad.size--
	return v, true
}

// 满了先丢弃头部，保留最近的 capacity 个元素
func (ad *ArrDeque[T]) PushBounded(v T) {
	if ad.IsFull() {
		ad.RemoveFirst()
	}
	ad.AddLast(v)
}

func (ad *ArrDeque[T]) Slice() []T {
	out := make([]T, 0, ad.size)
	ad.Traverse(func(_ int, item T) {
		out = append(out, item)
	})
	return out
}

func (ad *ArrDeque[T]) IsFull() bool {
	return ad.size == ad.capacity
}

func (ad *ArrDeque[T]) IsEmpty() bool {
	return ad.size == 0
}
