// Package blobstore provides pluggable homes for index snapshots: in-memory,
// local disk, MinIO, and S3. A Store holds whole immutable blobs addressed by
// name; snapshot encoding stays in the index packages.
package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for storing immutable named blobs.
type Store interface {
	// Put writes a blob atomically, replacing any existing blob of that name.
	Put(ctx context.Context, name string, data []byte) error
	// Get returns the full contents of a blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns all blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Save buffers the output of write and puts it under name.
func Save(ctx context.Context, s Store, name string, write func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	return s.Put(ctx, name, buf.Bytes())
}

// Load fetches the blob under name and hands it to read.
func Load(ctx context.Context, s Store, name string, read func(r io.Reader) error) error {
	data, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	return read(bytes.NewReader(data))
}
