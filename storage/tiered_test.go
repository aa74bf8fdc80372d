package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrJDen31/tierann/cache"
)

// fakeDevice charges a fixed time per recorded read.
type fakeDevice struct {
	reads  int
	bytes  uint64
	timeUs float64
}

func (d *fakeDevice) RecordRead(bytes uint64) {
	d.reads++
	d.bytes += bytes
	d.timeUs += 10
}

func (d *fakeDevice) TotalTimeUs() float64 { return d.timeUs }

func (d *fakeDevice) ResetStats() {
	d.reads = 0
	d.bytes = 0
	d.timeUs = 0
}

func newTestTiered(t *testing.T, capacity int, kind cache.Kind) (*TieredBackend, *MemoryBackend) {
	t.Helper()
	backing := NewMemoryFromVectors([][]float32{{0, 0}, {1, 1}, {2, 2}, {3, 3}})
	tiered, err := NewTiered(backing, capacity, kind)
	require.NoError(t, err)
	return tiered, backing
}

func TestTieredBackend_HitMissCounting(t *testing.T) {
	tiered, _ := newTestTiered(t, 2, cache.KindLRU)

	vec, ok := tiered.ReadNode(0)
	require.True(t, ok)
	assert.Equal(t, []float32{0, 0}, vec)
	assert.Equal(t, uint64(0), tiered.CacheHits())
	assert.Equal(t, uint64(1), tiered.CacheMisses())

	_, ok = tiered.ReadNode(0)
	require.True(t, ok)
	assert.Equal(t, uint64(1), tiered.CacheHits())
	assert.Equal(t, uint64(1), tiered.CacheMisses())

	// Hits are free: only the miss counted toward IOStats.
	stats := tiered.Stats()
	assert.Equal(t, uint64(1), stats.NumReads)
	assert.Equal(t, uint64(8), stats.BytesRead)
}

func TestTieredBackend_EvictionFollowsPolicy(t *testing.T) {
	tiered, _ := newTestTiered(t, 2, cache.KindLRU)

	tiered.ReadNode(0)
	tiered.ReadNode(1)
	tiered.ReadNode(0) // refresh 0, making 1 the LRU victim
	tiered.ReadNode(2) // evicts 1

	assert.Equal(t, 2, tiered.CacheSize())

	tiered.ReadNode(1)
	assert.Equal(t, uint64(1), tiered.CacheHits())
	assert.Equal(t, uint64(4), tiered.CacheMisses())
}

func TestTieredBackend_MissingNodeFails(t *testing.T) {
	tiered, _ := newTestTiered(t, 2, cache.KindLRU)

	_, ok := tiered.ReadNode(99)
	assert.False(t, ok)

	// Failed reads count neither as hit nor miss, and nothing is cached.
	assert.Equal(t, uint64(0), tiered.CacheHits())
	assert.Equal(t, uint64(0), tiered.CacheMisses())
	assert.Equal(t, 0, tiered.CacheSize())
}

func TestTieredBackend_ZeroCapacityAlwaysMisses(t *testing.T) {
	tiered, _ := newTestTiered(t, 0, cache.KindLRU)

	for i := 0; i < 3; i++ {
		_, ok := tiered.ReadNode(1)
		require.True(t, ok)
	}
	assert.Equal(t, uint64(0), tiered.CacheHits())
	assert.Equal(t, uint64(3), tiered.CacheMisses())
	assert.Equal(t, 0, tiered.CacheSize())
}

func TestTieredBackend_DeviceModelChargedOnMissOnly(t *testing.T) {
	tiered, _ := newTestTiered(t, 2, cache.KindLFU)
	dev := &fakeDevice{}
	tiered.EnableDeviceModel(dev)

	tiered.ReadNode(0) // miss
	tiered.ReadNode(0) // hit
	tiered.ReadNode(1) // miss

	assert.Equal(t, 2, dev.reads)
	assert.Equal(t, uint64(16), dev.bytes)
	assert.Equal(t, 20.0, tiered.DeviceTimeUs())
}

func TestTieredBackend_WriteThrough(t *testing.T) {
	tiered, backing := newTestTiered(t, 2, cache.KindLRU)

	require.True(t, tiered.WriteNode(7, []float32{7, 7}))

	vec, ok := backing.ReadNode(7)
	require.True(t, ok)
	assert.Equal(t, []float32{7, 7}, vec)

	// The written vector is resident, so the next read is a hit.
	tiered.ReadNode(7)
	assert.Equal(t, uint64(1), tiered.CacheHits())

	stats := tiered.Stats()
	assert.Equal(t, uint64(1), stats.NumWrites)
	assert.Equal(t, uint64(8), stats.BytesWritten)
}

func TestTieredBackend_LogicalAccounting(t *testing.T) {
	tiered, backing := newTestTiered(t, 2, cache.KindLRU)
	dev := &fakeDevice{}
	tiered.EnableDeviceModel(dev)

	tiered.RecordLogicalReadBytes(4096)
	tiered.RecordLogicalWriteBytes(512)

	stats := tiered.Stats()
	assert.Equal(t, uint64(1), stats.NumReads)
	assert.Equal(t, uint64(4096), stats.BytesRead)
	assert.Equal(t, uint64(1), stats.NumWrites)
	assert.Equal(t, uint64(512), stats.BytesWritten)
	assert.Equal(t, 1, dev.reads)

	// Logical accounting bypasses the backing store entirely.
	assert.Equal(t, uint64(0), backing.Stats().NumReads)
	assert.Equal(t, 0, tiered.CacheSize())
}

func TestTieredBackend_ResetCascades(t *testing.T) {
	tiered, backing := newTestTiered(t, 2, cache.KindLRU)
	dev := &fakeDevice{}
	tiered.EnableDeviceModel(dev)

	tiered.ReadNode(0)
	tiered.ReadNode(0)
	require.NotEqual(t, IOStats{}, tiered.Stats())

	tiered.ResetStats()
	assert.Equal(t, IOStats{}, tiered.Stats())
	assert.Equal(t, IOStats{}, backing.Stats())
	assert.Equal(t, uint64(0), tiered.CacheHits())
	assert.Equal(t, uint64(0), tiered.CacheMisses())
	assert.Equal(t, 0.0, tiered.DeviceTimeUs())

	// The cache itself survives a stats reset.
	assert.Equal(t, 1, tiered.CacheSize())
}
