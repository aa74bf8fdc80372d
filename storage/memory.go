package storage

import (
	"sync"

	"github.com/DrJDen31/tierann/model"
)

// MemoryBackend is a memory-resident store over a dense, zero-based ID
// space. It grows on write and never evicts; it typically plays the role of
// the "disk" behind a TieredBackend.
type MemoryBackend struct {
	mu      sync.RWMutex
	data    [][]float32
	present []bool
	counters
}

// NewMemory creates an empty memory backend.
func NewMemory() *MemoryBackend {
	return &MemoryBackend{}
}

// NewMemoryFromVectors creates a memory backend pre-populated with the given
// vectors under IDs 0..len-1. Preloading does not count toward IOStats.
func NewMemoryFromVectors(vectors [][]float32) *MemoryBackend {
	b := &MemoryBackend{
		data:    make([][]float32, len(vectors)),
		present: make([]bool, len(vectors)),
	}
	copy(b.data, vectors)
	for i := range b.present {
		b.present[i] = true
	}
	return b
}

// ReadNode returns the vector stored under id, or false if absent.
func (b *MemoryBackend) ReadNode(id model.VectorID) ([]float32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i := int(id)
	if i >= len(b.data) || !b.present[i] {
		return nil, false
	}
	vec := b.data[i]
	b.countRead(vectorBytes(vec))
	return vec, true
}

// WriteNode stores a vector under id, growing the backing arrays as needed.
func (b *MemoryBackend) WriteNode(id model.VectorID, vec []float32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := int(id)
	if i >= len(b.data) {
		grown := make([][]float32, i+1)
		copy(grown, b.data)
		b.data = grown

		grownPresent := make([]bool, i+1)
		copy(grownPresent, b.present)
		b.present = grownPresent
	}
	b.data[i] = vec
	b.present[i] = true
	b.countWrite(vectorBytes(vec))
	return true
}

// BatchReadNodes reads several nodes, preserving order.
func (b *MemoryBackend) BatchReadNodes(ids []model.VectorID) ([][]float32, bool) {
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

// Size returns the number of addressable slots.
func (b *MemoryBackend) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Stats returns a snapshot of the I/O counters.
func (b *MemoryBackend) Stats() IOStats { return b.snapshot() }

// ResetStats zeroes the I/O counters.
func (b *MemoryBackend) ResetStats() { b.reset() }
