package tierann

import (
	"github.com/DrJDen31/tierann/blobstore"
	"github.com/DrJDen31/tierann/index"
)

// Errors defined by subpackages, re-exported so callers of the root package
// can match them without extra imports.
var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = index.ErrInvalidK
	// ErrNotFound is returned when a snapshot blob does not exist.
	ErrNotFound = blobstore.ErrNotFound
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
type ErrDimensionMismatch = index.ErrDimensionMismatch

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension = index.ErrInvalidDimension
