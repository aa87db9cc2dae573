package core

import "iter"

// RingBuffer 固定容量环形缓冲区，写满后覆盖最旧的元素
type RingBuffer[T any] struct {
	data []T
	size int
	next int // 下一次写入位置
}

// NewRingBuffer 创建容量为 size 的缓冲区，size 为 0 时丢弃所有写入
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size < 0 {
		size = 0
	}
	return &RingBuffer[T]{
		data: make([]T, 0, size),
		size: size,
	}
}

// Push 写入元素
func (r *RingBuffer[T]) Push(value T) {
	if r.size == 0 {
		return
	}

	if r.next >= len(r.data) {
		r.data = append(r.data, value)
	} else {
		r.data[r.next] = value
	}

	r.next = (r.next + 1) % r.size
}

// Len 当前元素数量
func (r *RingBuffer[T]) Len() int {
	return len(r.data)
}

// Cap 容量
func (r *RingBuffer[T]) Cap() int {
	return r.size
}

// All 按写入顺序（从旧到新）遍历
func (r *RingBuffer[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		n := len(r.data)
		start := 0
		if n == r.size {
			start = r.next
		}
		for i := 0; i < n; i++ {
			if !yield(r.data[(start+i)%n]) {
				return
			}
		}
	}
}

// Update 原地改写每个元素
func (r *RingBuffer[T]) Update(fn func(T) T) {
	for i := range r.data {
		r.data[i] = fn(r.data[i])
	}
}

// Clear 清空缓冲区，保留容量
func (r *RingBuffer[T]) Clear() {
	clear(r.data)
	r.data = r.data[:0]
	r.next = 0
}
