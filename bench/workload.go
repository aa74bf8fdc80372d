// Package bench runs repeatable search experiments against an index:
// deterministic query workloads, optional QPS pacing, and a JSON-friendly
// report of quality and latency figures.
package bench

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/DrJDen31/tierann/dataset"
	"github.com/DrJDen31/tierann/distance"
	"github.com/DrJDen31/tierann/model"
)

// Query sampling distributions.
const (
	DistributionUniform = "uniform"
	DistributionZipfian = "zipfian"
)

// zipfS and zipfV shape the zipfian sampler; s just above 1 gives the
// heavy head typical of reuse-skewed query logs.
const (
	zipfS = 1.07
	zipfV = 1
)

// Workload describes how queries are drawn from a base dataset.
type Workload struct {
	Distribution string
	NumQueries   int
	Seed         int64
}

// SampleIndices draws NumQueries indices in [0, n). The same workload always
// yields the same sequence.
func (w Workload) SampleIndices(n int) ([]int, error) {
	if n <= 0 || w.NumQueries <= 0 {
		return nil, nil
	}

	rng := rand.New(rand.NewSource(w.Seed))
	out := make([]int, w.NumQueries)

	switch w.Distribution {
	case DistributionUniform, "":
		for i := range out {
			out[i] = rng.Intn(n)
		}
	case DistributionZipfian:
		zipf := rand.NewZipf(rng, zipfS, zipfV, uint64(n-1))
		for i := range out {
			out[i] = int(zipf.Uint64())
		}
	default:
		return nil, fmt.Errorf("bench: unknown distribution %q", w.Distribution)
	}
	return out, nil
}

// Queries materializes the workload against base vectors, attaching
// brute-force ground truth for recall@k accounting.
func (w Workload) Queries(ctx context.Context, base [][]float32, k int, df distance.Func) ([]model.Query, error) {
	indices, err := w.SampleIndices(len(base))
	if err != nil {
		return nil, err
	}

	qvecs := make([][]float32, len(indices))
	for i, idx := range indices {
		qvecs[i] = base[idx]
	}

	truth, err := dataset.GroundTruth(ctx, base, qvecs, k, df)
	if err != nil {
		return nil, err
	}

	queries := make([]model.Query, len(indices))
	for i := range indices {
		queries[i] = model.Query{
			ID:            model.VectorID(i),
			Values:        qvecs[i],
			TrueNeighbors: truth[i],
		}
	}
	return queries, nil
}
