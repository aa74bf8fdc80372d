// Package simulator models SSD device service time for reads issued by the
// tiered storage backend and the graph-in-flash search model. It is a pure
// accounting structure: no real I/O happens and channels/queue depth only
// scale a latency formula.
package simulator

import (
	"fmt"
	"sync"

	"github.com/DrJDen31/tierann/storage"
)

// Level selects a hardware profile. Levels parameterize device timing and
// compute-rate constants only; search algorithms are level-invariant.
type Level int

const (
	// LevelL0 is an NVMe-Gen3-like baseline device.
	LevelL0 Level = iota
	LevelL1
	LevelL2
	LevelL3
)

func (l Level) String() string {
	switch l {
	case LevelL0:
		return "L0"
	case LevelL1:
		return "L1"
	case LevelL2:
		return "L2"
	case LevelL3:
		return "L3"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// DeviceConfig describes the timing characteristics of a simulated SSD.
type DeviceConfig struct {
	NumChannels              int
	QueueDepthPerChannel     int
	BaseReadLatencyUs        float64
	InternalReadBandwidthGBs float64
}

// DeviceConfigForLevel returns the default device profile for a hardware
// level. Unknown levels fall back to the L0 profile.
func DeviceConfigForLevel(level Level) DeviceConfig {
	switch level {
	case LevelL1:
		return DeviceConfig{
			NumChannels:              4,
			QueueDepthPerChannel:     64,
			BaseReadLatencyUs:        60.0,
			InternalReadBandwidthGBs: 6.0,
		}
	case LevelL2:
		return DeviceConfig{
			NumChannels:              8,
			QueueDepthPerChannel:     64,
			BaseReadLatencyUs:        40.0,
			InternalReadBandwidthGBs: 10.0,
		}
	case LevelL3:
		return DeviceConfig{
			NumChannels:              16,
			QueueDepthPerChannel:     128,
			BaseReadLatencyUs:        20.0,
			InternalReadBandwidthGBs: 20.0,
		}
	default:
		return DeviceConfig{
			NumChannels:              4,
			QueueDepthPerChannel:     64,
			BaseReadLatencyUs:        80.0,
			InternalReadBandwidthGBs: 3.0,
		}
	}
}

// Merge overlays the non-zero fields of o onto a copy of c.
func (c DeviceConfig) Merge(o DeviceConfig) DeviceConfig {
	if o.NumChannels > 0 {
		c.NumChannels = o.NumChannels
	}
	if o.QueueDepthPerChannel > 0 {
		c.QueueDepthPerChannel = o.QueueDepthPerChannel
	}
	if o.BaseReadLatencyUs > 0 {
		c.BaseReadLatencyUs = o.BaseReadLatencyUs
	}
	if o.InternalReadBandwidthGBs > 0 {
		c.InternalReadBandwidthGBs = o.InternalReadBandwidthGBs
	}
	return c
}

// Simulator accumulates modeled device service time across recorded reads.
type Simulator struct {
	config DeviceConfig

	mu          sync.Mutex
	stats       storage.IOStats
	totalTimeUs float64
}

// New creates a simulator for the given device configuration.
func New(config DeviceConfig) *Simulator {
	return &Simulator{config: config}
}

// Config returns the device configuration the simulator was created with.
func (s *Simulator) Config() DeviceConfig { return s.config }

// RecordRead accounts a logical read of the given number of bytes. Service
// time is base latency plus transfer time at internal bandwidth, amortized
// across channels times queue depth parallel servers.
func (s *Simulator) RecordRead(bytes uint64) {
	tUs := s.config.BaseReadLatencyUs
	if s.config.InternalReadBandwidthGBs > 0 {
		bwBytesPerUs := s.config.InternalReadBandwidthGBs * 1e9 / 1e6
		tUs += float64(bytes) / bwBytesPerUs
	}

	parallel := s.config.NumChannels * s.config.QueueDepthPerChannel
	if parallel == 0 {
		parallel = 1
	}

	s.mu.Lock()
	s.stats.NumReads++
	s.stats.BytesRead += bytes
	s.totalTimeUs += tUs / float64(parallel)
	s.mu.Unlock()
}

// Stats returns a snapshot of the read counters.
func (s *Simulator) Stats() storage.IOStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// TotalTimeUs returns the accumulated modeled service time in microseconds
// since the last reset.
func (s *Simulator) TotalTimeUs() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalTimeUs
}

// ResetStats clears the counters and the accumulated service time.
func (s *Simulator) ResetStats() {
	s.mu.Lock()
	s.stats = storage.IOStats{}
	s.totalTimeUs = 0
	s.mu.Unlock()
}
