package cache

import (
	"container/list"
	"sync"
)

// SizedLRU is a thread-safe LRU bounded by entry count and by the summed
// size of its values.
type SizedLRU[K comparable, V any] struct {
	capacity int
	size     int64
	maxSize  int64
	sizeOf   func(V) int64
	items    map[K]*list.Element
	order    *list.List
	mu       sync.Mutex
}

type entry[K comparable, V any] struct {
	key   K
	value V
	size  int64
}

func NewSizedLRU[K comparable, V any](capacity int, maxSizeBytes int64, sizeOf func(V) int64) *SizedLRU[K, V] {
	return &SizedLRU[K, V]{
		capacity: capacity,
		maxSize:  maxSizeBytes,
		sizeOf:   sizeOf,
		items:    make(map[K]*list.Element),
		order:    list.New(),
	}
}

func (c *SizedLRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Set adds or replaces key. Values larger than the whole budget are not kept.
func (c *SizedLRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := c.sizeOf(value)
	if size > c.maxSize {
		return
	}

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[K, V])
		c.size += size - e.size
		e.value = value
		e.size = size
		c.order.MoveToFront(elem)
		for c.size > c.maxSize && c.order.Len() > 1 {
			c.evictOldest()
		}
		return
	}

	for c.order.Len() > 0 && (c.order.Len() >= c.capacity || c.size+size > c.maxSize) {
		c.evictOldest()
	}

	elem := c.order.PushFront(&entry[K, V]{key: key, value: value, size: size})
	c.items[key] = elem
	c.size += size
}

func (c *SizedLRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*list.Element)
	c.order.Init()
	c.size = 0
}

func (c *SizedLRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Size returns the summed size of all values.
func (c *SizedLRU[K, V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *SizedLRU[K, V]) evictOldest() {
	if elem := c.order.Back(); elem != nil {
		c.removeElement(elem)
	}
}

func (c *SizedLRU[K, V]) removeElement(elem *list.Element) {
	e := elem.Value.(*entry[K, V])
	c.order.Remove(elem)
	delete(c.items, e.key)
	c.size -= e.size
}
