package cache

import (
	"container/list"

	"github.com/DrJDen31/tierann/model"
)

// LRU evicts the least recently used key. Recency is tracked by list position
// with O(1) move-to-front on access.
type LRU struct {
	capacity int
	order    *list.List // front = most recently used
	items    map[model.VectorID]*list.Element
}

// NewLRU creates an LRU policy with the given capacity in entries.
func NewLRU(capacity int) *LRU {
	return &LRU{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[model.VectorID]*list.Element, capacity),
	}
}

// RecordAccess moves the key to the front of the recency list.
func (p *LRU) RecordAccess(id model.VectorID) {
	if el, ok := p.items[id]; ok {
		p.order.MoveToFront(el)
	}
}

// OnInsert admits id, evicting the least recently used key if at capacity.
// A repeated insert of a resident key is an access, not a capacity event.
func (p *LRU) OnInsert(id model.VectorID) (model.VectorID, bool) {
	if p.capacity == 0 {
		return 0, false
	}

	if _, ok := p.items[id]; ok {
		p.RecordAccess(id)
		return 0, false
	}

	var victim model.VectorID
	evicted := false
	if len(p.items) >= p.capacity {
		back := p.order.Back()
		victim = back.Value.(model.VectorID)
		p.order.Remove(back)
		delete(p.items, victim)
		evicted = true
	}

	p.items[id] = p.order.PushFront(id)
	return victim, evicted
}

// Erase removes id from the policy state.
func (p *LRU) Erase(id model.VectorID) {
	if el, ok := p.items[id]; ok {
		p.order.Remove(el)
		delete(p.items, id)
	}
}

// Clear removes all state.
func (p *LRU) Clear() {
	p.order.Init()
	clear(p.items)
}

func (p *LRU) Size() int     { return len(p.items) }
func (p *LRU) Capacity() int { return p.capacity }
