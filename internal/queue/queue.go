// Package queue provides the value-based binary heaps used by graph search.
package queue

import "github.com/DrJDen31/tierann/model"

// Item is a (node, distance) pair held in a PriorityQueue.
type Item struct {
	Node     model.VectorID
	Distance float32
}

// PriorityQueue is a binary heap of Items ordered by Distance.
// Value-based storage avoids pointer indirection and per-push allocations.
type PriorityQueue struct {
	isMaxHeap bool
	items     []Item
}

// NewMin initializes a min-heap (closest item on top).
func NewMin(capacity int) *PriorityQueue {
	return &PriorityQueue{isMaxHeap: false, items: make([]Item, 0, capacity)}
}

// NewMax initializes a max-heap (farthest item on top).
func NewMax(capacity int) *PriorityQueue {
	return &PriorityQueue{isMaxHeap: true, items: make([]Item, 0, capacity)}
}

// Len returns the number of elements in the queue.
func (pq *PriorityQueue) Len() int { return len(pq.items) }

// Top returns the root element without removing it.
func (pq *PriorityQueue) Top() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}
	return pq.items[0], true
}

// Push inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) Push(item Item) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// Pop removes and returns the root element.
func (pq *PriorityQueue) Pop() (Item, bool) {
	n := len(pq.items)
	if n == 0 {
		return Item{}, false
	}
	root := pq.items[0]
	last := pq.items[n-1]
	pq.items = pq.items[:n-1]
	if n-1 > 0 {
		pq.items[0] = last
		pq.siftDown(0)
	}
	return root, true
}

// PushBounded pushes item and pops the root if the queue would exceed bound.
// Useful for maintaining a result set of at most bound candidates.
func (pq *PriorityQueue) PushBounded(item Item, bound int) {
	pq.Push(item)
	if pq.Len() > bound {
		pq.Pop()
	}
}

// Reset clears the queue for reuse, keeping the backing array.
func (pq *PriorityQueue) Reset() {
	pq.items = pq.items[:0]
}

// Drain pops every element into dst ordered nearest-first and returns dst.
// For a max-heap this reverses the pop order.
func (pq *PriorityQueue) Drain(dst []Item) []Item {
	start := len(dst)
	for {
		item, ok := pq.Pop()
		if !ok {
			break
		}
		dst = append(dst, item)
	}
	if pq.isMaxHeap {
		for i, j := start, len(dst)-1; i < j; i, j = i+1, j-1 {
			dst[i], dst[j] = dst[j], dst[i]
		}
	}
	return dst
}

func (pq *PriorityQueue) less(i, j int) bool {
	if pq.isMaxHeap {
		return pq.items[i].Distance > pq.items[j].Distance
	}
	return pq.items[i].Distance < pq.items[j].Distance
}

func (pq *PriorityQueue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !pq.less(i, p) {
			return
		}
		pq.items[i], pq.items[p] = pq.items[p], pq.items[i]
		i = p
	}
}

func (pq *PriorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && pq.less(r, l) {
			best = r
		}
		if !pq.less(best, i) {
			return
		}
		pq.items[i], pq.items[best] = pq.items[best], pq.items[i]
		i = best
	}
}
