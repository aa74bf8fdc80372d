package annssd

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/DrJDen31/tierann/metrics"
	"github.com/DrJDen31/tierann/persistence"
	"github.com/DrJDen31/tierann/storage"
)

// ErrNoOutputPath is returned by WriteJSONLog when no path was given.
var ErrNoOutputPath = errors.New("annssd: no output path configured")

// Summary aggregates one batch of simulated queries.
type Summary struct {
	Config Config

	K          int
	NumQueries int

	RecallAtK float64
	QPS       float64
	Latency   metrics.LatencySummary

	AvgBlocksVisited     float64
	AvgPortalSteps       float64
	AvgInternalReads     float64
	AvgDistancesComputed float64

	IOStats      storage.IOStats
	DeviceTimeUs float64
}

type configLog struct {
	DatasetName        string  `json:"dataset_name"`
	Mode               string  `json:"mode"`
	Dimension          int     `json:"dimension"`
	NumVectors         int     `json:"num_vectors"`
	K                  int     `json:"k"`
	VectorsPerBlock    int     `json:"vectors_per_block"`
	PageSizeBytes      int     `json:"page_size_bytes"`
	HardwareLevel      string  `json:"hardware_level"`
	MaxSteps           int     `json:"max_steps"`
	PortalDegree       int     `json:"portal_degree"`
	SimulationMode     string  `json:"simulation_mode"`
	ControllerGFLOPS   float64 `json:"controller_flops_GF"`
	PerBlockUnitGFLOPS float64 `json:"per_block_unit_flops_GF"`
}

type ioLog struct {
	NumReads  uint64 `json:"num_reads"`
	BytesRead uint64 `json:"bytes_read"`
}

type aggregateLog struct {
	K                    int     `json:"k"`
	NumQueries           int     `json:"num_queries"`
	RecallAtK            float64 `json:"recall_at_k"`
	QPS                  float64 `json:"qps"`
	QPSSearch            float64 `json:"qps_search"`
	QPSTotal             float64 `json:"qps_total"`
	LatencyUsP50         float64 `json:"latency_us_p50"`
	LatencyUsP95         float64 `json:"latency_us_p95"`
	LatencyUsP99         float64 `json:"latency_us_p99"`
	EffectiveSearchTimeS float64 `json:"effective_search_time_s"`
	EffectiveQPS         float64 `json:"effective_qps"`
	HostSearchTimeS      float64 `json:"host_search_time_s"`
	ComputeTimeS         float64 `json:"compute_time_s"`
	AnalyticSearchTimeS  float64 `json:"analytic_search_time_s"`
	AvgBlocksVisited     float64 `json:"avg_blocks_visited"`
	AvgInternalReads     float64 `json:"avg_internal_reads"`
	AvgDistancesComputed float64 `json:"avg_distances_computed"`
	IO                   ioLog   `json:"io"`
	DeviceTimeUs         float64 `json:"device_time_us"`
}

type runLog struct {
	Config    configLog    `json:"config"`
	Aggregate aggregateLog `json:"aggregate"`
}

// estimateComputeTimeS is the analytic compute cost for the batch: one
// squared-L2 distance is 2*dim FLOPs, divided across the level's combined
// controller and near-data budget.
func estimateComputeTimeS(cfg Config, s Summary) float64 {
	if s.NumQueries == 0 || s.AvgDistancesComputed <= 0 {
		return 0
	}
	dim := cfg.Dimension
	if dim == 0 {
		dim = s.Config.Dimension
	}
	if dim == 0 {
		return 0
	}

	totalFLOPs := s.AvgDistancesComputed * float64(s.NumQueries) * 2 * float64(dim)

	controller, nearData := cfg.computeGFLOPS()
	totalGFLOPS := controller + nearData
	if totalGFLOPS <= 0 {
		return 0
	}
	return totalFLOPs * 1e-9 / totalGFLOPS
}

// WriteJSONLog writes the run summary to the configured output path. The
// file is written atomically.
func (m *Model) WriteJSONLog(path string) error {
	if path == "" {
		path = m.config.OutputPath
	}
	if path == "" {
		return ErrNoOutputPath
	}

	s := m.summary
	cfg := s.Config

	hostSearchTimeS := 0.0
	if s.QPS > 0 && s.NumQueries > 0 {
		hostSearchTimeS = float64(s.NumQueries) / s.QPS
	}
	deviceTimeS := s.DeviceTimeUs * 1e-6

	computeTimeS := estimateComputeTimeS(cfg, s)
	analyticSearchTimeS := 0.0
	if computeTimeS > 0 {
		analyticSearchTimeS = computeTimeS + deviceTimeS
	}

	effectiveSearchTimeS := hostSearchTimeS + deviceTimeS
	if !cfg.faithful() && analyticSearchTimeS > 0 {
		effectiveSearchTimeS = analyticSearchTimeS
	}
	effectiveQPS := 0.0
	if effectiveSearchTimeS > 0 && s.NumQueries > 0 {
		effectiveQPS = float64(s.NumQueries) / effectiveSearchTimeS
	}

	entry := runLog{
		Config: configLog{
			DatasetName:        cfg.DatasetName,
			Mode:               "ann_ssd",
			Dimension:          cfg.Dimension,
			NumVectors:         cfg.NumVectors,
			K:                  cfg.K,
			VectorsPerBlock:    cfg.vectorsPerBlock(),
			PageSizeBytes:      cfg.PageSizeBytes,
			HardwareLevel:      cfg.HardwareLevel,
			MaxSteps:           cfg.MaxSteps,
			PortalDegree:       cfg.PortalDegree,
			SimulationMode:     cfg.SimulationMode,
			ControllerGFLOPS:   cfg.ControllerGFLOPS,
			PerBlockUnitGFLOPS: cfg.PerBlockUnitGFLOPS,
		},
		Aggregate: aggregateLog{
			K:                    s.K,
			NumQueries:           s.NumQueries,
			RecallAtK:            s.RecallAtK,
			QPS:                  s.QPS,
			QPSSearch:            s.QPS,
			QPSTotal:             s.QPS,
			LatencyUsP50:         s.Latency.P50,
			LatencyUsP95:         s.Latency.P95,
			LatencyUsP99:         s.Latency.P99,
			EffectiveSearchTimeS: effectiveSearchTimeS,
			EffectiveQPS:         effectiveQPS,
			HostSearchTimeS:      hostSearchTimeS,
			ComputeTimeS:         computeTimeS,
			AnalyticSearchTimeS:  analyticSearchTimeS,
			AvgBlocksVisited:     s.AvgBlocksVisited,
			AvgInternalReads:     s.AvgInternalReads,
			AvgDistancesComputed: s.AvgDistancesComputed,
			IO: ioLog{
				NumReads:  s.IOStats.NumReads,
				BytesRead: s.IOStats.BytesRead,
			},
			DeviceTimeUs: s.DeviceTimeUs,
		},
	}

	return persistence.SaveToFile(path, func(w io.Writer) error {
		data, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	})
}
