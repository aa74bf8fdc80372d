package simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceConfigForLevel(t *testing.T) {
	l0 := DeviceConfigForLevel(LevelL0)
	assert.Equal(t, 4, l0.NumChannels)
	assert.Equal(t, 64, l0.QueueDepthPerChannel)
	assert.Equal(t, 80.0, l0.BaseReadLatencyUs)
	assert.Equal(t, 3.0, l0.InternalReadBandwidthGBs)

	l3 := DeviceConfigForLevel(LevelL3)
	assert.Equal(t, 16, l3.NumChannels)
	assert.Equal(t, 128, l3.QueueDepthPerChannel)
	assert.Equal(t, 20.0, l3.BaseReadLatencyUs)
	assert.Equal(t, 20.0, l3.InternalReadBandwidthGBs)

	// Unknown levels use the L0 profile.
	assert.Equal(t, l0, DeviceConfigForLevel(Level(42)))
}

func TestDeviceConfig_Merge(t *testing.T) {
	base := DeviceConfigForLevel(LevelL0)
	merged := base.Merge(DeviceConfig{BaseReadLatencyUs: 100, NumChannels: 2})

	assert.Equal(t, 2, merged.NumChannels)
	assert.Equal(t, 100.0, merged.BaseReadLatencyUs)
	assert.Equal(t, base.QueueDepthPerChannel, merged.QueueDepthPerChannel)
	assert.Equal(t, base.InternalReadBandwidthGBs, merged.InternalReadBandwidthGBs)
}

func TestSimulator_RecordRead(t *testing.T) {
	// 1 GB/s = 1000 bytes/us, one parallel server: time is exactly
	// latency + bytes/bandwidth.
	s := New(DeviceConfig{
		NumChannels:              1,
		QueueDepthPerChannel:     1,
		BaseReadLatencyUs:        50,
		InternalReadBandwidthGBs: 1,
	})

	s.RecordRead(2000)
	assert.InDelta(t, 52.0, s.TotalTimeUs(), 1e-9)

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.NumReads)
	assert.Equal(t, uint64(2000), stats.BytesRead)
}

func TestSimulator_ParallelismAmortizesTime(t *testing.T) {
	serial := New(DeviceConfig{NumChannels: 1, QueueDepthPerChannel: 1, BaseReadLatencyUs: 80, InternalReadBandwidthGBs: 3})
	parallel := New(DeviceConfig{NumChannels: 4, QueueDepthPerChannel: 64, BaseReadLatencyUs: 80, InternalReadBandwidthGBs: 3})

	for i := 0; i < 100; i++ {
		serial.RecordRead(512)
		parallel.RecordRead(512)
	}

	assert.InDelta(t, serial.TotalTimeUs()/256, parallel.TotalTimeUs(), 1e-6)
}

func TestSimulator_ZeroConfigStillAccounts(t *testing.T) {
	s := New(DeviceConfig{})
	s.RecordRead(1024)

	// No bandwidth and no parallelism degrade to latency-only accounting.
	assert.Equal(t, 0.0, s.TotalTimeUs())
	assert.Equal(t, uint64(1), s.Stats().NumReads)
}

func TestSimulator_ResetStats(t *testing.T) {
	s := New(DeviceConfigForLevel(LevelL0))
	s.RecordRead(4096)
	assert.Greater(t, s.TotalTimeUs(), 0.0)

	s.ResetStats()
	assert.Equal(t, 0.0, s.TotalTimeUs())
	assert.Equal(t, uint64(0), s.Stats().NumReads)
}
