// Package dataset loads and generates the vector sets the evaluation
// drivers run against, and computes brute-force ground truth for recall
// measurement.
package dataset

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/DrJDen31/tierann/distance"
	"github.com/DrJDen31/tierann/internal/queue"
	"github.com/DrJDen31/tierann/model"
)

// GenerateGaussian returns n dim-dimensional vectors with standard normal
// components. The same seed reproduces the same dataset.
func GenerateGaussian(n, dim int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, n)
	for i := range vectors {
		vec := make([]float32, dim)
		for d := range vec {
			vec[d] = float32(rng.NormFloat64())
		}
		vectors[i] = vec
	}
	return vectors
}

// GenerateUniform returns n dim-dimensional vectors with components drawn
// uniformly from [0, 1).
func GenerateUniform(n, dim int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, n)
	for i := range vectors {
		vec := make([]float32, dim)
		for d := range vec {
			vec[d] = rng.Float32()
		}
		vectors[i] = vec
	}
	return vectors
}

// GroundTruth computes the exact k nearest base vectors for every query by
// exhaustive scan, parallelized across queries. Results per query are
// ordered by ascending distance.
func GroundTruth(ctx context.Context, base, queries [][]float32, k int, df distance.Func) ([][]model.VectorID, error) {
	if k <= 0 {
		return nil, fmt.Errorf("dataset: ground truth k must be positive, got %d", k)
	}
	if len(base) == 0 {
		return nil, fmt.Errorf("dataset: ground truth requires a non-empty base set")
	}

	truth := make([][]model.VectorID, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for qi := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			truth[qi] = nearestByScan(base, queries[qi], k, df)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return truth, nil
}

// nearestByScan keeps the k closest base vectors in a bounded max-heap.
func nearestByScan(base [][]float32, query []float32, k int, df distance.Func) []model.VectorID {
	results := queue.NewMax(k)
	for id, vec := range base {
		d := df(query, vec)
		results.PushBounded(queue.Item{Node: model.VectorID(id), Distance: d}, k)
	}

	items := results.Drain(nil)
	out := make([]model.VectorID, len(items))
	for i, it := range items {
		out[i] = it.Node
	}
	return out
}
