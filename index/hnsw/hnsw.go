// Package hnsw implements a Hierarchical Navigable Small World graph index,
// the DRAM-resident ANN baseline the tiered variants are measured against.
package hnsw

import (
	"log/slog"
	"math/bits"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DrJDen31/tierann/distance"
	"github.com/DrJDen31/tierann/index"
	"github.com/DrJDen31/tierann/internal/queue"
	"github.com/DrJDen31/tierann/internal/visited"
	"github.com/DrJDen31/tierann/model"
)

const (
	// minimumM is the minimum valid value for M.
	minimumM = 2

	// layer0Multiplier is the degree-cap multiplier at layer 0.
	layer0Multiplier = 2

	// DefaultM is the default number of bidirectional links per layer.
	DefaultM = 16

	// DefaultEFConstruction is the default candidate list size during build.
	DefaultEFConstruction = 200

	// buildProgressStep is how many inserts pass between progress log lines.
	buildProgressStep = 100_000
)

// Options represents the options for configuring the index.
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
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	Metric:         distance.MetricL2,
	RandomSeed:     42,
}

// node holds one vertex's adjacency, one neighbor list per layer. A node's
// layer count is assigned at insertion and never shrinks.
type node struct {
	neighbors [][]model.VectorID
}

func (n *node) ensureLayers(count int) {
	for len(n.neighbors) < count {
		n.neighbors = append(n.neighbors, nil)
	}
}

// Index is an HNSW graph over an immutable vector set. Build once, search
// concurrently afterwards.
type Index struct {
	opts     Options
	distFunc distance.Func
	logger   *slog.Logger

	vectors [][]float32
	nodes   []node
	locks   []sync.Mutex

	globalMu   sync.Mutex
	entryPoint model.VectorID
	maxLayer   int

	visitedPool sync.Pool

	statsEnabled atomic.Bool
	distanceComp atomic.Uint64
}

// New creates an index. The dimension must be set via the option function.
func New(optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, &index.ErrInvalidDimension{Dimension: opts.Dimension}
	}
	if opts.M < minimumM {
		opts.M = minimumM
	}
	if opts.EFConstruction <= 0 {
		opts.EFConstruction = DefaultEFConstruction
	}

	distFunc, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	return &Index{
		opts:       opts,
		distFunc:   distFunc,
		logger:     opts.Logger,
		entryPoint: model.InvalidVectorID,
	}, nil
}

// Size returns the number of indexed vectors.
func (h *Index) Size() int { return len(h.vectors) }

// Dimension returns the configured vector dimension.
func (h *Index) Dimension() int { return h.opts.Dimension }

// Vectors returns the indexed vector set. Callers must not modify it.
func (h *Index) Vectors() [][]float32 { return h.vectors }

// EnableSearchStats turns the distance computation counter on or off.
func (h *Index) EnableSearchStats(enable bool) { h.statsEnabled.Store(enable) }

// ResetSearchStats zeroes the distance computation counter.
func (h *Index) ResetSearchStats() { h.distanceComp.Store(0) }

// SearchDistanceComputations returns the number of distance evaluations
// counted since the last reset, across all searches.
func (h *Index) SearchDistanceComputations() uint64 { return h.distanceComp.Load() }

// Build constructs the graph from the given vectors, one insert at a time.
// Vector IDs are the positions in the input slice.
func (h *Index) Build(vectors [][]float32) error {
	if err := h.resetForBuild(vectors); err != nil {
		return err
	}

	start := time.Now()
	rng := newRandSource(uint64(h.opts.RandomSeed))
	vis := visited.New(len(vectors))
	for id := range vectors {
		h.insert(model.VectorID(id), false, vis, rng)
		if h.logger != nil && (id+1)%buildProgressStep == 0 {
			h.logger.Info("build progress", "inserted", id+1, "total", len(vectors), "elapsed", time.Since(start))
		}
	}
	if h.logger != nil {
		h.logger.Info("build completed", "vectors", len(vectors), "elapsed", time.Since(start))
	}
	return nil
}

// BuildParallel constructs the same graph with the given number of worker
// goroutines claiming vector IDs from a shared counter. The first node is
// inserted serially to establish the entry point.
func (h *Index) BuildParallel(vectors [][]float32, workers int) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 {
		return h.Build(vectors)
	}
	if err := h.resetForBuild(vectors); err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil
	}

	start := time.Now()
	seed := newRandSource(uint64(h.opts.RandomSeed))
	h.insert(0, false, visited.New(len(vectors)), seed)

	var nextID atomic.Uint32
	nextID.Store(1)
	total := uint32(len(vectors))

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		rng := newRandSource(seed.next())
		g.Go(func() error {
			vis := visited.New(len(vectors))
			for {
				id := nextID.Add(1) - 1
				if id >= total {
					return nil
				}
				h.insert(model.VectorID(id), true, vis, rng)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if h.logger != nil {
		h.logger.Info("parallel build completed", "vectors", len(vectors), "workers", workers, "elapsed", time.Since(start))
	}
	return nil
}

func (h *Index) resetForBuild(vectors [][]float32) error {
	for _, vec := range vectors {
		if len(vec) != h.opts.Dimension {
			return &index.ErrDimensionMismatch{Expected: h.opts.Dimension, Actual: len(vec)}
		}
	}

	h.vectors = make([][]float32, len(vectors))
	if h.opts.Metric == distance.MetricCosine {
		for i, vec := range vectors {
			if nv, ok := distance.NormalizeL2Copy(vec); ok {
				h.vectors[i] = nv
			} else {
				h.vectors[i] = vec
			}
		}
	} else {
		copy(h.vectors, vectors)
	}

	h.nodes = make([]node, len(vectors))
	h.locks = make([]sync.Mutex, len(vectors))
	h.entryPoint = model.InvalidVectorID
	h.maxLayer = 0
	h.visitedPool = sync.Pool{New: func() any {
		return visited.New(len(vectors))
	}}
	return nil
}

// insert adds one node to the graph. When concurrent is true, node lists are
// touched only under their per-node mutex, at most one held at a time, and
// entry point state only under the global mutex.
func (h *Index) insert(id model.VectorID, concurrent bool, vis *visited.Set, rng *randSource) {
	level := assignLayer(rng)

	if concurrent {
		h.locks[id].Lock()
	}
	h.nodes[id].ensureLayers(level + 1)
	if concurrent {
		h.locks[id].Unlock()
	}

	h.globalMu.Lock()
	ep := h.entryPoint
	curMaxLayer := h.maxLayer
	if ep == model.InvalidVectorID {
		h.entryPoint = id
		h.maxLayer = level
		h.globalMu.Unlock()
		return
	}
	h.globalMu.Unlock()

	query := h.vectors[id]

	// Greedy descent to the node's own layer, ef=1.
	for l := curMaxLayer; l > level; l-- {
		if res := h.searchLayer(query, ep, 1, l, vis, concurrent); len(res) > 0 {
			ep = res[0].Node
		}
	}

	topLayer := min(curMaxLayer, level)
	for l := topLayer; l >= 0; l-- {
		candidates := h.searchLayer(query, ep, h.opts.EFConstruction, l, vis, concurrent)

		// A concurrent insert may have already published a reverse edge to
		// this node, making it reachable as its own candidate.
		candidates = dropID(candidates, id)

		layerM := h.maxConnections(l)
		neighbors := h.selectNeighborsHeuristic(candidates, layerM, query)

		if concurrent {
			h.locks[id].Lock()
		}
		self := &h.nodes[id]
		self.ensureLayers(l + 1)
		self.neighbors[l] = append(self.neighbors[l], neighbors...)
		if concurrent {
			h.locks[id].Unlock()
		}

		for _, nb := range neighbors {
			h.connectReverse(nb, id, l, concurrent)
		}
	}

	if level > curMaxLayer {
		h.globalMu.Lock()
		if level > h.maxLayer {
			h.maxLayer = level
			h.entryPoint = id
		}
		h.globalMu.Unlock()
	}
}

// connectReverse adds the symmetric edge nb -> id at layer l, re-pruning the
// neighbor's list when it exceeds its degree cap.
func (h *Index) connectReverse(nb, id model.VectorID, l int, concurrent bool) {
	if concurrent {
		h.locks[nb].Lock()
		defer h.locks[nb].Unlock()
	}

	nbNode := &h.nodes[nb]
	nbNode.ensureLayers(l + 1)
	list := append(nbNode.neighbors[l], id)

	layerM := h.maxConnections(l)
	if len(list) > layerM {
		ref := h.vectors[nb]
		cands := make([]queue.Item, 0, len(list))
		for _, nid := range list {
			cands = append(cands, queue.Item{Node: nid, Distance: h.distFunc(ref, h.vectors[nid])})
		}
		sort.Slice(cands, func(i, j int) bool { return cands[i].Distance < cands[j].Distance })
		list = h.selectNeighborsHeuristic(cands, layerM, ref)
	}
	nbNode.neighbors[l] = list
}

func (h *Index) maxConnections(layer int) int {
	if layer == 0 {
		return layer0Multiplier * h.opts.M
	}
	return h.opts.M
}

// searchLayer runs a bounded best-first search over one layer starting from
// ep, keeping up to ef results. Returned items are ordered by ascending
// distance. candidates are expanded while closer than the current worst
// result.
func (h *Index) searchLayer(query []float32, ep model.VectorID, ef, layer int, vis *visited.Set, locked bool) []queue.Item {
	if len(h.vectors) == 0 || ep == model.InvalidVectorID {
		return nil
	}

	vis.Reset()
	candidates := queue.NewMin(ef)
	results := queue.NewMax(ef + 1)

	d := h.distWithStats(query, h.vectors[ep])
	candidates.Push(queue.Item{Node: ep, Distance: d})
	results.Push(queue.Item{Node: ep, Distance: d})
	vis.Visit(ep)

	var scratch []model.VectorID
	for candidates.Len() > 0 {
		curr, _ := candidates.Top()
		bound, _ := results.Top()
		if curr.Distance > bound.Distance {
			break
		}
		candidates.Pop()

		scratch = scratch[:0]
		if locked {
			h.locks[curr.Node].Lock()
		}
		if nbrs := h.nodes[curr.Node].neighbors; layer < len(nbrs) {
			scratch = append(scratch, nbrs[layer]...)
		}
		if locked {
			h.locks[curr.Node].Unlock()
		}

		for _, nb := range scratch {
			if vis.Visited(nb) {
				continue
			}
			vis.Visit(nb)
			d := h.distWithStats(query, h.vectors[nb])
			if worst, _ := results.Top(); results.Len() < ef || d < worst.Distance {
				candidates.Push(queue.Item{Node: nb, Distance: d})
				results.PushBounded(queue.Item{Node: nb, Distance: d}, ef)
			}
		}
	}

	return results.Drain(nil)
}

// selectNeighborsHeuristic picks up to m diverse neighbors from candidates
// ordered by ascending distance: a candidate is accepted only if no accepted
// neighbor is closer to it than the query is. If the heuristic under-selects,
// the remainder is filled in distance order.
func (h *Index) selectNeighborsHeuristic(candidates []queue.Item, m int, query []float32) []model.VectorID {
	_ = query
	if len(candidates) == 0 || m == 0 {
		return nil
	}

	maxKeep := min(m, len(candidates))
	result := make([]model.VectorID, 0, maxKeep)

	for _, cand := range candidates {
		good := true
		for _, sid := range result {
			if h.distFunc(h.vectors[sid], h.vectors[cand.Node]) < cand.Distance {
				good = false
				break
			}
		}
		if good {
			result = append(result, cand.Node)
			if len(result) >= maxKeep {
				break
			}
		}
	}

	if len(result) < maxKeep {
		for _, cand := range candidates {
			if len(result) >= maxKeep {
				break
			}
			if !containsID(result, cand.Node) {
				result = append(result, cand.Node)
			}
		}
	}
	return result
}

func dropID(items []queue.Item, id model.VectorID) []queue.Item {
	for i, it := range items {
		if it.Node == id {
			return append(items[:i], items[i+1:]...)
		}
	}
	return items
}

func containsID(ids []model.VectorID, id model.VectorID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Search returns up to k results ordered by ascending distance. An empty
// index yields an empty result; k larger than the candidate pool is silently
// capped.
func (h *Index) Search(query []float32, k, efSearch int) ([]model.SearchResult, error) {
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	if len(query) != h.opts.Dimension {
		return nil, &index.ErrDimensionMismatch{Expected: h.opts.Dimension, Actual: len(query)}
	}
	if len(h.vectors) == 0 || h.entryPoint == model.InvalidVectorID {
		return nil, nil
	}
	if efSearch < k {
		efSearch = k
	}
	if h.opts.Metric == distance.MetricCosine {
		if nq, ok := distance.NormalizeL2Copy(query); ok {
			query = nq
		}
	}

	vis := h.visitedPool.Get().(*visited.Set)
	defer h.visitedPool.Put(vis)

	ep := h.entryPoint
	for l := h.maxLayer; l > 0; l-- {
		if res := h.searchLayer(query, ep, 1, l, vis, false); len(res) > 0 {
			ep = res[0].Node
		}
	}

	found := h.searchLayer(query, ep, efSearch, 0, vis, false)
	if len(found) > k {
		found = found[:k]
	}

	out := make([]model.SearchResult, len(found))
	for i, item := range found {
		out[i] = model.SearchResult{ID: item.Node, Distance: item.Distance}
	}
	return out, nil
}

// ExportGraph returns a deep copy of the graph topology.
func (h *Index) ExportGraph() index.Graph {
	g := index.Graph{
		EntryPoint: h.entryPoint,
		MaxLayer:   h.maxLayer,
		Neighbors:  make([][][]model.VectorID, len(h.nodes)),
	}
	for i := range h.nodes {
		layers := make([][]model.VectorID, len(h.nodes[i].neighbors))
		for l, nbrs := range h.nodes[i].neighbors {
			layers[l] = append([]model.VectorID(nil), nbrs...)
		}
		g.Neighbors[i] = layers
	}
	return g
}

func (h *Index) distWithStats(a, b []float32) float32 {
	if h.statsEnabled.Load() {
		h.distanceComp.Add(1)
	}
	return h.distFunc(a, b)
}

// assignLayer draws a layer from a geometric distribution with p=1/2: the
// number of trailing one-bits in a uniform draw.
func assignLayer(rng *randSource) int {
	return bits.TrailingZeros64(^rng.next())
}

// randSource is an xorshift64* generator. Each build worker owns one, seeded
// independently, so layer draws never contend.
type randSource struct {
	state uint64
}

func newRandSource(seed uint64) *randSource {
	if seed == 0 {
		seed = 0x9e3779b97f4a7c15
	}
	return &randSource{state: seed}
}

func (r *randSource) next() uint64 {
	x := r.state
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	r.state = x
	return x * 0x2545f4914f6cdd1d
}

var _ index.Index = (*Index)(nil)
