package cache

import (
	"container/list"

	"github.com/DrJDen31/tierann/model"
)

// LFU evicts the key with the smallest access count. Ties within the lowest
// count bucket are broken by insertion order into that bucket (oldest first).
type LFU struct {
	capacity int
	minFreq  uint64
	buckets  map[uint64]*list.List // freq -> ids, front = oldest in bucket
	entries  map[model.VectorID]*lfuEntry
}

type lfuEntry struct {
	freq uint64
	el   *list.Element
}

// NewLFU creates an LFU policy with the given capacity in entries.
func NewLFU(capacity int) *LFU {
	return &LFU{
		capacity: capacity,
		buckets:  make(map[uint64]*list.List),
		entries:  make(map[model.VectorID]*lfuEntry, capacity),
	}
}

// RecordAccess increments the key's access count.
func (p *LFU) RecordAccess(id model.VectorID) {
	ent, ok := p.entries[id]
	if !ok {
		return
	}
	p.moveToBucket(id, ent, ent.freq+1)
}

// OnInsert admits id with count 1, evicting the least frequently used key if
// at capacity. A repeated insert of a resident key is an access.
func (p *LFU) OnInsert(id model.VectorID) (model.VectorID, bool) {
	if p.capacity == 0 {
		return 0, false
	}

	if _, ok := p.entries[id]; ok {
		p.RecordAccess(id)
		return 0, false
	}

	var victim model.VectorID
	evicted := false
	if len(p.entries) >= p.capacity {
		bucket := p.buckets[p.minFreq]
		front := bucket.Front()
		victim = front.Value.(model.VectorID)
		bucket.Remove(front)
		if bucket.Len() == 0 {
			delete(p.buckets, p.minFreq)
		}
		delete(p.entries, victim)
		evicted = true
	}

	bucket := p.buckets[1]
	if bucket == nil {
		bucket = list.New()
		p.buckets[1] = bucket
	}
	p.entries[id] = &lfuEntry{freq: 1, el: bucket.PushBack(id)}
	p.minFreq = 1
	return victim, evicted
}

// Erase removes id from the policy state.
func (p *LFU) Erase(id model.VectorID) {
	ent, ok := p.entries[id]
	if !ok {
		return
	}
	p.removeFromBucket(ent)
	delete(p.entries, id)
	p.fixMinFreq()
}

// Clear removes all state.
func (p *LFU) Clear() {
	clear(p.buckets)
	clear(p.entries)
	p.minFreq = 0
}

func (p *LFU) Size() int     { return len(p.entries) }
func (p *LFU) Capacity() int { return p.capacity }

func (p *LFU) moveToBucket(id model.VectorID, ent *lfuEntry, freq uint64) {
	p.removeFromBucket(ent)

	bucket := p.buckets[freq]
	if bucket == nil {
		bucket = list.New()
		p.buckets[freq] = bucket
	}
	ent.freq = freq
	ent.el = bucket.PushBack(id)
	p.fixMinFreq()
}

func (p *LFU) removeFromBucket(ent *lfuEntry) {
	bucket := p.buckets[ent.freq]
	bucket.Remove(ent.el)
	if bucket.Len() == 0 {
		delete(p.buckets, ent.freq)
	}
}

// fixMinFreq rescans for the smallest occupied bucket when the previous
// minimum emptied out. Counts only move up by one on access, so the bucket
// count stays small.
func (p *LFU) fixMinFreq() {
	if p.buckets[p.minFreq] != nil {
		return
	}
	p.minFreq = 0
	for f := range p.buckets {
		if p.minFreq == 0 || f < p.minFreq {
			p.minFreq = f
		}
	}
}
