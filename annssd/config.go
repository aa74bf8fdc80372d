// Package annssd models a graph-in-flash ANN search where the index lives
// inside the SSD: vectors are grouped into flash blocks linked by a
// centroid-kNN block graph, and queries navigate blocks instead of nodes.
// The package is an analysis tool; all device behavior is accounted, not
// performed.
package annssd

import (
	"strings"

	"github.com/DrJDen31/tierann/simulator"
)

const (
	// DefaultVectorsPerBlock is the block capacity used when unset.
	DefaultVectorsPerBlock = 128

	// PlacementHashHome assigns vectors to blocks contiguously by ID.
	PlacementHashHome = "hash_home"
	// PlacementLocalityAware assigns vectors to the nearest of a set of
	// seed centroids in a single pass.
	PlacementLocalityAware = "locality_aware"

	// EntryStrategyCentroidKNN selects entry blocks by centroid distance.
	EntryStrategyCentroidKNN = "centroid_knn"

	// CodeTypeMicroIndex enables the per-block filter cost model: all
	// members are scanned for candidate correctness but only a fixed small
	// number of distance evaluations is charged.
	CodeTypeMicroIndex = "micro_index"

	// SimulationFaithful charges every block visit through the device
	// simulator. Any other mode derives analytic figures instead.
	SimulationFaithful = "faithful"
)

// Config parameterizes one simulation run.
type Config struct {
	// Dataset
	DatasetName string
	DatasetPath string
	Dimension   int
	NumVectors  int

	// Graph layout
	PlacementMode   string
	VectorsPerBlock int
	PortalDegree    int
	NeighborDegree  int
	PageSizeBytes   int
	CodeType        string

	// Device / hardware. Explicit values override the level defaults.
	HardwareLevel            string
	NumChannels              int
	QueueDepthPerChannel     int
	BaseReadLatencyUs        float64
	InternalReadBandwidthGBs float64
	ControllerGFLOPS         float64
	PerBlockUnitGFLOPS       float64

	// Search / workload
	K                    int
	BeamWidth            int
	MaxSteps             int
	EntryBlockStrategy   string
	NumQueries           int
	Concurrency          int
	WorkloadDistribution string
	Seed                 uint64

	// Logging
	OutputPath     string
	RecordPerQuery bool
	RecordPerBlock bool
	SimulationMode string
}

// level parses the hardware level, defaulting to L0 on anything unknown.
func (c Config) level() simulator.Level {
	switch strings.ToUpper(c.HardwareLevel) {
	case "L1":
		return simulator.LevelL1
	case "L2":
		return simulator.LevelL2
	case "L3":
		return simulator.LevelL3
	default:
		return simulator.LevelL0
	}
}

// deviceConfig resolves the device profile for the run: level defaults
// overlaid with any explicit timing fields.
func (c Config) deviceConfig() simulator.DeviceConfig {
	return simulator.DeviceConfigForLevel(c.level()).Merge(simulator.DeviceConfig{
		NumChannels:              c.NumChannels,
		QueueDepthPerChannel:     c.QueueDepthPerChannel,
		BaseReadLatencyUs:        c.BaseReadLatencyUs,
		InternalReadBandwidthGBs: c.InternalReadBandwidthGBs,
	})
}

// computeGFLOPS resolves the controller and near-data compute budgets for
// the analytic cost model. L2/L3 model multiple parallel near-data units.
func (c Config) computeGFLOPS() (controller, nearData float64) {
	if c.ControllerGFLOPS > 0 || c.PerBlockUnitGFLOPS > 0 {
		return c.ControllerGFLOPS, c.PerBlockUnitGFLOPS
	}
	switch c.level() {
	case simulator.LevelL1:
		return 1.0, 0.0
	case simulator.LevelL2:
		return 1.0, 14.0 * 4.0
	case simulator.LevelL3:
		return 1.0, 19.0 * 8.0
	default:
		return 0.25, 0.0
	}
}

// entryCandidates is how many entry blocks the level probes in parallel.
func (c Config) entryCandidates() int {
	switch c.level() {
	case simulator.LevelL2:
		return 4
	case simulator.LevelL3:
		return 8
	default:
		return 1
	}
}

func (c Config) vectorsPerBlock() int {
	if c.VectorsPerBlock > 0 {
		return c.VectorsPerBlock
	}
	return DefaultVectorsPerBlock
}

func (c Config) faithful() bool {
	return c.SimulationMode == "" || c.SimulationMode == SimulationFaithful
}
