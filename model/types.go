package model

import "fmt"

// VectorID is a dense, zero-based identifier for a vector.
// IDs index directly into the backing vector array; there is no sparse ID space.
type VectorID uint32

// InvalidVectorID marks "no vector", e.g. the entry point of an empty graph.
const InvalidVectorID = VectorID(^uint32(0))

// SearchResult is a single nearest-neighbor match.
type SearchResult struct {
	ID       VectorID
	Distance float32
}

// Query couples a query vector with optional ground-truth neighbor IDs.
// TrueNeighbors may be nil; queries without ground truth contribute nothing to
// recall accounting.
type Query struct {
	ID            VectorID
	Values        []float32
	TrueNeighbors []VectorID
}

func (q Query) String() string {
	return fmt.Sprintf("Query(%d, dim=%d, truth=%d)", q.ID, len(q.Values), len(q.TrueNeighbors))
}
