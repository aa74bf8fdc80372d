// Package tierann is a research toolkit for approximate nearest neighbor
// search across a simulated storage hierarchy.
//
// It provides three index variants over one HNSW core:
//
//   - index/hnsw: an in-memory HNSW graph with sequential and parallel batch
//     build, snapshot save/load, and search instrumentation.
//   - index/tieredhnsw: the same graph with every vector access routed
//     through a storage backend, so cache policies and device costs shape
//     the measured behavior without changing the topology.
//   - annssd: a graph-in-flash model where vectors are grouped into flash
//     blocks linked by a centroid graph, for studying in-SSD ANN designs.
//
// # Quick Start
//
//	idx, _ := hnsw.New(func(o *hnsw.Options) {
//	    o.Dimension = 128
//	})
//	_ = idx.Build(vectors)
//	results, _ := idx.Search(query, 10, 128)
//
// A tiered index adds a cache and a device model:
//
//	backend, _ := storage.NewTiered(storage.NewMemory(), 10_000, cache.KindLRU)
//	backend.EnableDeviceModel(simulator.New(simulator.DeviceConfigForLevel(simulator.LevelL1)))
//	tidx, _ := tieredhnsw.New(backend, func(o *tieredhnsw.Options) {
//	    o.Dimension = 128
//	})
//
// # Accounting model
//
// All device behavior is accounted, not performed: the simulator turns read
// sizes into microseconds using per-level latency, bandwidth, and queue
// parallelism, and the indexes report I/O counters alongside recall and
// latency percentiles. Experiment drivers live in bench; run summaries are
// written as JSON.
package tierann
