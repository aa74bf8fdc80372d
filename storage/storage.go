// Package storage provides the vector storage backends the tiered index
// variants read through: a memory-resident store and a cached tier that
// models DRAM-over-SSD access costs.
package storage

import (
	"sync/atomic"

	"github.com/DrJDen31/tierann/model"
)

// IOStats is a snapshot of a backend's I/O counters. Counters increase
// monotonically and reset only on an explicit ResetStats call.
type IOStats struct {
	NumReads     uint64 `json:"num_reads"`
	NumWrites    uint64 `json:"num_writes"`
	BytesRead    uint64 `json:"bytes_read"`
	BytesWritten uint64 `json:"bytes_written"`
}

// Add returns the element-wise sum of two snapshots.
func (s IOStats) Add(o IOStats) IOStats {
	return IOStats{
		NumReads:     s.NumReads + o.NumReads,
		NumWrites:    s.NumWrites + o.NumWrites,
		BytesRead:    s.BytesRead + o.BytesRead,
		BytesWritten: s.BytesWritten + o.BytesWritten,
	}
}

// Backend is the storage abstraction vector lookups are routed through.
// Implementations must be safe for concurrent use.
//
// Returned vectors alias backend-owned memory and must not be modified by
// the caller.
type Backend interface {
	// ReadNode returns the vector stored under id, or false if no vector
	// has been written there.
	ReadNode(id model.VectorID) ([]float32, bool)

	// WriteNode stores a vector under id, reporting whether the write was
	// accepted.
	WriteNode(id model.VectorID, vec []float32) bool

	// BatchReadNodes reads several nodes, preserving order. Missing nodes
	// yield nil entries and a false overall result.
	BatchReadNodes(ids []model.VectorID) ([][]float32, bool)

	// Stats returns a snapshot of the I/O counters.
	Stats() IOStats

	// ResetStats zeroes the I/O counters.
	ResetStats()
}

// DeviceModel accounts modeled device service time for reads that reach a
// backing store. simulator.Simulator is the standard implementation.
type DeviceModel interface {
	RecordRead(bytes uint64)
	TotalTimeUs() float64
	ResetStats()
}

// counters holds live I/O counters updated on the read/write paths.
type counters struct {
	numReads     atomic.Uint64
	numWrites    atomic.Uint64
	bytesRead    atomic.Uint64
	bytesWritten atomic.Uint64
}

func (c *counters) countRead(bytes uint64) {
	c.numReads.Add(1)
	c.bytesRead.Add(bytes)
}

func (c *counters) countWrite(bytes uint64) {
	c.numWrites.Add(1)
	c.bytesWritten.Add(bytes)
}

func (c *counters) snapshot() IOStats {
	return IOStats{
		NumReads:     c.numReads.Load(),
		NumWrites:    c.numWrites.Load(),
		BytesRead:    c.bytesRead.Load(),
		BytesWritten: c.bytesWritten.Load(),
	}
}

func (c *counters) reset() {
	c.numReads.Store(0)
	c.numWrites.Store(0)
	c.bytesRead.Store(0)
	c.bytesWritten.Store(0)
}

func vectorBytes(vec []float32) uint64 {
	return uint64(len(vec)) * 4
}
