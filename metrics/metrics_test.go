package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DrJDen31/tierann/model"
)

func ids(vs ...uint32) []model.VectorID {
	out := make([]model.VectorID, len(vs))
	for i, v := range vs {
		out[i] = model.VectorID(v)
	}
	return out
}

func TestRecallAtK(t *testing.T) {
	truth := ids(1, 2, 3, 4, 5)

	assert.Equal(t, 1.0, RecallAtK(truth, ids(5, 4, 3, 2, 1), 5))
	assert.Equal(t, 0.6, RecallAtK(truth, ids(1, 2, 3, 9, 8), 5))
	assert.Equal(t, 0.0, RecallAtK(truth, ids(6, 7, 8, 9, 10), 5))

	// Only the first k of the ground truth define the target set.
	assert.Equal(t, 0.5, RecallAtK(truth, ids(1, 5), 2))

	// Short retrieved lists are penalized against k.
	assert.Equal(t, 0.2, RecallAtK(truth, ids(1), 5))

	assert.Equal(t, 0.0, RecallAtK(truth, nil, 5))
	assert.Equal(t, 0.0, RecallAtK(truth, ids(1), 0))
}

func TestPrecisionAtK(t *testing.T) {
	truth := ids(1, 2, 3, 4, 5)

	assert.Equal(t, 1.0, PrecisionAtK(truth, ids(3, 1), 2))
	assert.Equal(t, 0.5, PrecisionAtK(truth, ids(3, 9), 2))

	// Precision normalizes by the retrieved count when shorter than k.
	assert.Equal(t, 1.0, PrecisionAtK(truth, ids(5), 10))

	// Unlike recall, the whole ground truth counts, not just the top k.
	assert.Equal(t, 1.0, PrecisionAtK(truth, ids(5, 4), 2))

	assert.Equal(t, 0.0, PrecisionAtK(truth, nil, 5))
}

func TestMeanRecallAtK(t *testing.T) {
	truth := [][]model.VectorID{ids(1, 2), ids(3, 4)}
	retrieved := [][]model.VectorID{ids(1, 2), ids(3, 9)}

	assert.InDelta(t, 0.75, MeanRecallAtK(truth, retrieved, 2), 1e-9)
	assert.Equal(t, 0.0, MeanRecallAtK(nil, nil, 2))
}

func TestPercentiles(t *testing.T) {
	assert.Equal(t, LatencySummary{}, Percentiles(nil))

	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = float64(100 - i) // unsorted input
	}

	s := Percentiles(samples)
	assert.Equal(t, 50.0, s.P50)
	assert.Equal(t, 95.0, s.P95)
	assert.Equal(t, 99.0, s.P99)

	single := Percentiles([]float64{42})
	assert.Equal(t, 42.0, single.P50)
	assert.Equal(t, 42.0, single.P99)
}
