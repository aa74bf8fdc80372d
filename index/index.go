// Package index defines the interface the ANN index variants implement and
// the error types they share.
package index

import (
	"errors"
	"fmt"

	"github.com/DrJDen31/tierann/model"
)

// ErrInvalidK is returned when k is not positive.
var ErrInvalidK = errors.New("k must be positive")

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidDimension indicates an invalid configured dimension.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidDimension struct {
	Dimension int
	cause     error
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

func (e *ErrInvalidDimension) Unwrap() error { return e.cause }

// Index is the contract shared by the ANN index variants. Build methods
// construct the graph from an immutable vector set; Search returns up to k
// results ordered by ascending distance, silently capped when fewer
// candidates exist, and an empty result on an empty index.
type Index interface {
	Build(vectors [][]float32) error
	BuildParallel(vectors [][]float32, workers int) error
	Search(query []float32, k, efSearch int) ([]model.SearchResult, error)
	Size() int
	Dimension() int
}

// Graph is a topology snapshot exported by an index: per-node neighbor
// lists indexed by layer, plus the entry point and the highest populated
// layer.
type Graph struct {
	EntryPoint model.VectorID
	MaxLayer   int
	Neighbors  [][][]model.VectorID
}
