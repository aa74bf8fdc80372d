// Package cache provides the eviction policies used by the tiered storage
// backend. A Policy tracks key metadata only; the owning backend stores the
// cached values themselves.
package cache

import (
	"fmt"

	"github.com/DrJDen31/tierann/model"
)

// Policy decides which key to evict when the cache is full.
//
// Policies never evict on lookups of resident keys; only OnInsert of a new key
// at capacity triggers eviction. Implementations are not safe for concurrent
// use; the owning backend serializes access.
type Policy interface {
	// RecordAccess marks an access to a resident key (e.g. on cache hit).
	// Unknown keys are ignored.
	RecordAccess(id model.VectorID)

	// OnInsert admits a key. If the key is already resident it is treated as
	// an access and no eviction occurs. Returns the evicted victim, if any.
	OnInsert(id model.VectorID) (victim model.VectorID, evicted bool)

	// Erase removes a key from the policy state.
	Erase(id model.VectorID)

	// Clear removes all state.
	Clear()

	Size() int
	Capacity() int
}

// Kind selects a cache policy implementation.
type Kind string

const (
	KindLRU Kind = "lru"
	KindLFU Kind = "lfu"
)

// New creates a policy of the given kind with the given capacity in entries.
func New(kind Kind, capacity int) (Policy, error) {
	switch kind {
	case KindLRU, "":
		return NewLRU(capacity), nil
	case KindLFU:
		return NewLFU(capacity), nil
	default:
		return nil, fmt.Errorf("cache: unknown policy kind %q", kind)
	}
}
