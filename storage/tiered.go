package storage

import (
	"sync"

	"github.com/DrJDen31/tierann/cache"
	"github.com/DrJDen31/tierann/model"
)

// TieredBackend fronts a backing store with a bounded DRAM cache governed by
// an eviction policy. Cache hits cost nothing; misses read through to the
// backing store, count toward IOStats, and, when a device model is attached,
// accumulate modeled SSD service time.
type TieredBackend struct {
	backing Backend

	mu       sync.Mutex
	capacity int
	data     map[model.VectorID][]float32
	policy   cache.Policy
	hits     uint64
	misses   uint64
	device   DeviceModel

	counters
}

// NewTiered creates a tiered backend with a cache of capacity vectors and
// the given eviction policy kind. A capacity of zero disables caching so
// every read is a miss.
func NewTiered(backing Backend, capacity int, kind cache.Kind) (*TieredBackend, error) {
	var policy cache.Policy
	if capacity > 0 {
		var err error
		policy, err = cache.New(kind, capacity)
		if err != nil {
			return nil, err
		}
	}
	return &TieredBackend{
		backing:  backing,
		capacity: capacity,
		data:     make(map[model.VectorID][]float32, capacity),
		policy:   policy,
	}, nil
}

// EnableDeviceModel attaches an SSD timing model. Subsequent backing-store
// reads are also recorded into it.
func (b *TieredBackend) EnableDeviceModel(dm DeviceModel) {
	b.mu.Lock()
	b.device = dm
	b.mu.Unlock()
}

// DeviceTimeUs returns the accumulated modeled device service time in
// microseconds since the last ResetStats, or 0 if no device model is set.
func (b *TieredBackend) DeviceTimeUs() float64 {
	b.mu.Lock()
	dm := b.device
	b.mu.Unlock()
	if dm == nil {
		return 0
	}
	return dm.TotalTimeUs()
}

// ReadNode returns the vector under id, serving from cache when resident.
func (b *TieredBackend) ReadNode(id model.VectorID) ([]float32, bool) {
	b.mu.Lock()
	if vec, ok := b.data[id]; ok {
		if b.policy != nil {
			b.policy.RecordAccess(id)
		}
		b.hits++
		b.mu.Unlock()
		return vec, true
	}
	b.mu.Unlock()

	if b.backing == nil {
		return nil, false
	}
	vec, ok := b.backing.ReadNode(id)
	if !ok {
		return nil, false
	}
	bytes := vectorBytes(vec)
	b.countRead(bytes)

	b.mu.Lock()
	b.misses++
	if b.device != nil {
		b.device.RecordRead(bytes)
	}
	b.admit(id, vec)
	b.mu.Unlock()
	return vec, true
}

// WriteNode writes through to the backing store and admits the vector into
// the cache.
func (b *TieredBackend) WriteNode(id model.VectorID, vec []float32) bool {
	if b.backing == nil {
		return false
	}
	if !b.backing.WriteNode(id, vec) {
		return false
	}
	b.countWrite(vectorBytes(vec))

	b.mu.Lock()
	b.admit(id, vec)
	b.mu.Unlock()
	return true
}

// BatchReadNodes reads several nodes through the cache, preserving order.
func (b *TieredBackend) BatchReadNodes(ids []model.VectorID) ([][]float32, bool) {
	out := make([][]float32, 0, len(ids))
	allOK := true
	for _, id := range ids {
		vec, ok := b.ReadNode(id)
		if !ok {
			allOK = false
		}
		out = append(out, vec)
	}
	return out, allOK
}

// RecordLogicalReadBytes accounts a read of the given size without touching
// the backing store or the cache. Used by analytic cost modes that operate
// out of DRAM but still want I/O accounting.
func (b *TieredBackend) RecordLogicalReadBytes(bytes uint64) {
	b.countRead(bytes)
	b.mu.Lock()
	if b.device != nil {
		b.device.RecordRead(bytes)
	}
	b.mu.Unlock()
}

// RecordLogicalWriteBytes accounts a write of the given size without
// touching the backing store or the cache.
func (b *TieredBackend) RecordLogicalWriteBytes(bytes uint64) {
	b.countWrite(bytes)
}

// CacheSize returns the number of resident cache entries.
func (b *TieredBackend) CacheSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// CacheCapacity returns the configured cache capacity in vectors.
func (b *TieredBackend) CacheCapacity() int { return b.capacity }

// CacheHits returns the number of reads served from cache.
func (b *TieredBackend) CacheHits() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits
}

// CacheMisses returns the number of reads that went to the backing store.
func (b *TieredBackend) CacheMisses() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.misses
}

// Stats returns a snapshot of the tier's own I/O counters. Backing-store
// counters are tracked separately by the backing backend.
func (b *TieredBackend) Stats() IOStats { return b.snapshot() }

// ResetStats zeroes the counters, the hit/miss totals, the backing store's
// counters, and the device model's accumulated time.
func (b *TieredBackend) ResetStats() {
	b.reset()
	b.mu.Lock()
	b.hits = 0
	b.misses = 0
	dm := b.device
	b.mu.Unlock()
	if b.backing != nil {
		b.backing.ResetStats()
	}
	if dm != nil {
		dm.ResetStats()
	}
}

// admit inserts a vector into the cache, evicting per policy when full.
// Callers hold b.mu. A re-insert of a resident key refreshes its data and
// counts as an access, never as a capacity event.
func (b *TieredBackend) admit(id model.VectorID, vec []float32) {
	if b.capacity == 0 || b.policy == nil {
		return
	}
	if _, ok := b.data[id]; ok {
		b.data[id] = vec
		b.policy.RecordAccess(id)
		return
	}
	if victim, evicted := b.policy.OnInsert(id); evicted {
		delete(b.data, victim)
	}
	b.data[id] = vec
}
