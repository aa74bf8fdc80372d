package bench

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrJDen31/tierann/dataset"
	"github.com/DrJDen31/tierann/distance"
	"github.com/DrJDen31/tierann/index/hnsw"
)

func TestWorkloadUniformDeterministic(t *testing.T) {
	w := Workload{Distribution: DistributionUniform, NumQueries: 100, Seed: 7}

	first, err := w.SampleIndices(50)
	require.NoError(t, err)
	second, err := w.SampleIndices(50)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 100)
	for _, idx := range first {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 50)
	}
}

func TestWorkloadZipfianSkew(t *testing.T) {
	w := Workload{Distribution: DistributionZipfian, NumQueries: 5000, Seed: 11}

	indices, err := w.SampleIndices(1000)
	require.NoError(t, err)

	counts := make(map[int]int)
	for _, idx := range indices {
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 1000)
		counts[idx]++
	}
	// A zipfian head concentrates mass on low indices.
	assert.Greater(t, counts[0], len(indices)/20)
	assert.Less(t, len(counts), 1000)
}

func TestWorkloadUnknownDistribution(t *testing.T) {
	w := Workload{Distribution: "bursty", NumQueries: 10}
	_, err := w.SampleIndices(100)
	assert.Error(t, err)
}

func TestWorkloadEmpty(t *testing.T) {
	w := Workload{Distribution: DistributionUniform, NumQueries: 0}
	indices, err := w.SampleIndices(100)
	require.NoError(t, err)
	assert.Empty(t, indices)
}

func buildTestIndex(t *testing.T, vectors [][]float32) *hnsw.Index {
	t.Helper()
	idx, err := hnsw.New(func(o *hnsw.Options) {
		o.Dimension = len(vectors[0])
		o.M = 8
		o.EFConstruction = 64
	})
	require.NoError(t, err)
	require.NoError(t, idx.Build(vectors))
	return idx
}

func TestRunnerReportsPerfectRecallOnBaseQueries(t *testing.T) {
	ctx := context.Background()
	vectors := dataset.GenerateGaussian(500, 8, 3)
	idx := buildTestIndex(t, vectors)

	w := Workload{Distribution: DistributionUniform, NumQueries: 50, Seed: 4}
	queries, err := w.Queries(ctx, vectors, 10, distance.SquaredL2)
	require.NoError(t, err)

	runner := NewRunner(func(o *Options) { o.Concurrency = 4 })
	report, err := runner.Run(ctx, "hnsw-base", idx, queries, 10, 128)
	require.NoError(t, err)

	assert.Equal(t, "hnsw-base", report.Name)
	assert.Equal(t, 50, report.NumQueries)
	assert.Equal(t, 4, report.Concurrency)
	assert.Greater(t, report.QPS, 0.0)
	assert.GreaterOrEqual(t, report.Latency.P99, report.Latency.P50)
	// Base vectors queried at high ef come back as their own nearest
	// neighbor, so recall stays high.
	assert.Greater(t, report.RecallAtK, 0.9)
}

func TestRunnerPacedRun(t *testing.T) {
	ctx := context.Background()
	vectors := dataset.GenerateGaussian(100, 4, 5)
	idx := buildTestIndex(t, vectors)

	w := Workload{Distribution: DistributionUniform, NumQueries: 5, Seed: 6}
	queries, err := w.Queries(ctx, vectors, 5, distance.SquaredL2)
	require.NoError(t, err)

	runner := NewRunner(func(o *Options) { o.TargetQPS = 1000 })
	report, err := runner.Run(ctx, "paced", idx, queries, 5, 32)
	require.NoError(t, err)

	assert.Equal(t, 5, report.NumQueries)
	assert.InDelta(t, 1000, report.TargetQPS, 0)
	// 5 queries at 1000 QPS admit one per millisecond after the first.
	assert.GreaterOrEqual(t, report.WallTimeS, 0.004)
}

func TestRunnerEmptyQueries(t *testing.T) {
	vectors := dataset.GenerateGaussian(50, 4, 8)
	idx := buildTestIndex(t, vectors)

	report, err := NewRunner().Run(context.Background(), "empty", idx, nil, 5, 32)
	require.NoError(t, err)
	assert.Zero(t, report.QPS)
	assert.Zero(t, report.RecallAtK)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.json")
	reports := []Report{
		{Name: "a", NumQueries: 10, K: 5, RecallAtK: 0.97},
		{Name: "b", NumQueries: 10, K: 5, RecallAtK: 0.93},
	}
	require.NoError(t, WriteJSON(path, reports))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, reports, decoded)
}
