// Package tieredhnsw runs HNSW search on top of a simulated storage
// hierarchy. The graph is built in DRAM by the plain HNSW index, so topology
// is identical to the baseline; afterwards every vector lookup during search
// is routed through a storage backend, charging cache and device costs to
// each distance evaluation.
package tieredhnsw

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DrJDen31/tierann/distance"
	"github.com/DrJDen31/tierann/index"
	"github.com/DrJDen31/tierann/index/hnsw"
	"github.com/DrJDen31/tierann/internal/queue"
	"github.com/DrJDen31/tierann/internal/visited"
	"github.com/DrJDen31/tierann/model"
	"github.com/DrJDen31/tierann/storage"
)

// Options represents the options for configuring the index. Graph parameters
// mirror the plain HNSW index.
type Options struct {
	Dimension      int
	M              int
	EFConstruction int
	Metric         distance.Metric
	RandomSeed     int64
	Logger         *slog.Logger
}

// DefaultOptions contains the default options.
var DefaultOptions = Options{
	M:              hnsw.DefaultM,
	EFConstruction: hnsw.DefaultEFConstruction,
	Metric:         distance.MetricL2,
	RandomSeed:     42,
}

// Index is the storage-routed HNSW variant.
type Index struct {
	opts     Options
	distFunc distance.Func
	logger   *slog.Logger
	storage  storage.Backend

	// resident holds the build-time vector set as a fallback for reads the
	// backend cannot satisfy.
	resident   [][]float32
	nodes      [][][]model.VectorID
	entryPoint model.VectorID
	maxLayer   int

	visitedPool sync.Pool

	statsEnabled atomic.Bool
	distanceComp atomic.Uint64
}

// New creates a tiered index over the given storage backend.
func New(backend storage.Backend, optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, &index.ErrInvalidDimension{Dimension: opts.Dimension}
	}

	distFunc, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	return &Index{
		opts:       opts,
		distFunc:   distFunc,
		logger:     opts.Logger,
		storage:    backend,
		entryPoint: model.InvalidVectorID,
	}, nil
}

// Size returns the number of indexed vectors.
func (t *Index) Size() int { return len(t.nodes) }

// Dimension returns the configured vector dimension.
func (t *Index) Dimension() int { return t.opts.Dimension }

// EnableSearchStats turns the distance computation counter on or off.
func (t *Index) EnableSearchStats(enable bool) { t.statsEnabled.Store(enable) }

// ResetSearchStats zeroes the distance computation counter.
func (t *Index) ResetSearchStats() { t.distanceComp.Store(0) }

// SearchDistanceComputations returns the number of distance evaluations
// counted since the last reset.
func (t *Index) SearchDistanceComputations() uint64 { return t.distanceComp.Load() }

// Build constructs the graph with a DRAM-resident HNSW build, adopts its
// topology, and writes the vector set through the storage backend.
func (t *Index) Build(vectors [][]float32) error {
	return t.build(vectors, 1)
}

// BuildParallel is Build with a parallel inner graph construction.
func (t *Index) BuildParallel(vectors [][]float32, workers int) error {
	return t.build(vectors, workers)
}

func (t *Index) build(vectors [][]float32, workers int) error {
	start := time.Now()
	if t.storage != nil {
		t.storage.ResetStats()
	}

	inner, err := hnsw.New(func(o *hnsw.Options) {
		o.Dimension = t.opts.Dimension
		o.M = t.opts.M
		o.EFConstruction = t.opts.EFConstruction
		o.Metric = t.opts.Metric
		o.RandomSeed = t.opts.RandomSeed
		o.Logger = t.logger
	})
	if err != nil {
		return err
	}
	if workers > 1 {
		err = inner.BuildParallel(vectors, workers)
	} else {
		err = inner.Build(vectors)
	}
	if err != nil {
		return err
	}

	g := inner.ExportGraph()
	t.nodes = g.Neighbors
	t.entryPoint = g.EntryPoint
	t.maxLayer = g.MaxLayer

	// Cosine builds index normalized copies; adopt those so storage reads
	// agree with the graph's distances.
	t.resident = inner.Vectors()

	if t.storage != nil {
		for id, vec := range t.resident {
			t.storage.WriteNode(model.VectorID(id), vec)
		}
	}

	t.visitedPool = sync.Pool{New: func() any {
		return visited.New(len(t.resident))
	}}

	if t.logger != nil {
		t.logger.Info("tiered build completed", "vectors", len(vectors), "elapsed", time.Since(start))
	}
	return nil
}

// loadVector resolves a vector through the storage backend, falling back to
// the resident build-time array.
func (t *Index) loadVector(id model.VectorID) ([]float32, bool) {
	if t.storage != nil {
		if vec, ok := t.storage.ReadNode(id); ok {
			return vec, true
		}
	}
	if idx := int(id); idx < len(t.resident) {
		return t.resident[idx], true
	}
	return nil, false
}

func (t *Index) distToNode(query []float32, id model.VectorID) float32 {
	if t.statsEnabled.Load() {
		t.distanceComp.Add(1)
	}
	vec, ok := t.loadVector(id)
	if !ok {
		// Degenerate fallback: score against the origin rather than failing
		// the whole search.
		vec = make([]float32, t.opts.Dimension)
	}
	return t.distFunc(query, vec)
}

// Search returns up to k results ordered by ascending distance, charging
// every vector lookup to the storage backend.
func (t *Index) Search(query []float32, k, efSearch int) ([]model.SearchResult, error) {
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	if len(query) != t.opts.Dimension {
		return nil, &index.ErrDimensionMismatch{Expected: t.opts.Dimension, Actual: len(query)}
	}
	if len(t.nodes) == 0 || t.entryPoint == model.InvalidVectorID {
		return nil, nil
	}
	if efSearch < k {
		efSearch = k
	}
	if t.opts.Metric == distance.MetricCosine {
		if nq, ok := distance.NormalizeL2Copy(query); ok {
			query = nq
		}
	}

	vis := t.visitedPool.Get().(*visited.Set)
	defer t.visitedPool.Put(vis)

	ep := t.entryPoint
	for l := t.maxLayer; l > 0; l-- {
		if res := t.searchLayer(query, ep, 1, l, vis); len(res) > 0 {
			ep = res[0].Node
		}
	}

	found := t.searchLayer(query, ep, efSearch, 0, vis)
	if len(found) > k {
		found = found[:k]
	}

	out := make([]model.SearchResult, len(found))
	for i, item := range found {
		out[i] = model.SearchResult{ID: item.Node, Distance: item.Distance}
	}
	return out, nil
}

func (t *Index) searchLayer(query []float32, ep model.VectorID, ef, layer int, vis *visited.Set) []queue.Item {
	if len(t.nodes) == 0 || ep == model.InvalidVectorID {
		return nil
	}

	vis.Reset()
	candidates := queue.NewMin(ef)
	results := queue.NewMax(ef + 1)

	d := t.distToNode(query, ep)
	candidates.Push(queue.Item{Node: ep, Distance: d})
	results.Push(queue.Item{Node: ep, Distance: d})
	vis.Visit(ep)

	for candidates.Len() > 0 {
		curr, _ := candidates.Top()
		bound, _ := results.Top()
		if curr.Distance > bound.Distance {
			break
		}
		candidates.Pop()

		layers := t.nodes[curr.Node]
		if layer >= len(layers) {
			continue
		}
		for _, nb := range layers[layer] {
			if vis.Visited(nb) {
				continue
			}
			vis.Visit(nb)
			d := t.distToNode(query, nb)
			if worst, _ := results.Top(); results.Len() < ef || d < worst.Distance {
				candidates.Push(queue.Item{Node: nb, Distance: d})
				results.PushBounded(queue.Item{Node: nb, Distance: d}, ef)
			}
		}
	}

	return results.Drain(nil)
}

// ExportGraph returns a deep copy of the adopted graph topology.
func (t *Index) ExportGraph() index.Graph {
	g := index.Graph{
		EntryPoint: t.entryPoint,
		MaxLayer:   t.maxLayer,
		Neighbors:  make([][][]model.VectorID, len(t.nodes)),
	}
	for i, layers := range t.nodes {
		out := make([][]model.VectorID, len(layers))
		for l, nbrs := range layers {
			out[l] = append([]model.VectorID(nil), nbrs...)
		}
		g.Neighbors[i] = out
	}
	return g
}

var _ index.Index = (*Index)(nil)
