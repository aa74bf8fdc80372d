// Package visited provides a reusable visited-node set for graph traversal.
package visited

import "github.com/DrJDen31/tierann/model"

// Set tracks visited nodes using a bitset plus a dirty list for O(visited) reset.
// One Set per concurrent searcher; a Set is not safe for concurrent use.
type Set struct {
	bits  []uint64
	dirty []model.VectorID
}

// New creates a visited set sized for capacity nodes. The set grows on demand.
func New(capacity int) *Set {
	return &Set{
		bits:  make([]uint64, (capacity+63)/64),
		dirty: make([]model.VectorID, 0, 128),
	}
}

// Visit marks a node as visited.
func (v *Set) Visit(id model.VectorID) {
	word := int(id >> 6)
	mask := uint64(1) << (id & 63)

	if word >= len(v.bits) {
		v.grow(word + 1)
	}

	if v.bits[word]&mask == 0 {
		v.bits[word] |= mask
		v.dirty = append(v.dirty, id)
	}
}

// Visited returns true if the node has been visited since the last Reset.
func (v *Set) Visited(id model.VectorID) bool {
	word := int(id >> 6)
	if word >= len(v.bits) {
		return false
	}
	return v.bits[word]&(uint64(1)<<(id&63)) != 0
}

// Reset clears only the bits touched since the previous Reset.
func (v *Set) Reset() {
	for _, id := range v.dirty {
		v.bits[id>>6] &^= uint64(1) << (id & 63)
	}
	v.dirty = v.dirty[:0]
}

func (v *Set) grow(newLen int) {
	newCap := len(v.bits) * 2
	if newCap < newLen {
		newCap = newLen
	}
	bits := make([]uint64, newCap)
	copy(bits, v.bits)
	v.bits = bits
}
