// Package metrics computes the retrieval quality and latency figures the
// evaluation drivers report.
package metrics

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/DrJDen31/tierann/model"
)

// RecallAtK returns the fraction of the true top-k neighbors present in the
// retrieved list. The denominator is always k, so a short retrieved list is
// penalized.
func RecallAtK(groundTruth, retrieved []model.VectorID, k int) float64 {
	if k <= 0 {
		return 0
	}

	truth := roaring.New()
	for i := 0; i < len(groundTruth) && i < k; i++ {
		truth.Add(uint32(groundTruth[i]))
	}

	hits := 0
	for i := 0; i < len(retrieved) && i < k; i++ {
		if truth.Contains(uint32(retrieved[i])) {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

// PrecisionAtK returns the fraction of retrieved results (up to k) that
// appear anywhere in the ground truth.
func PrecisionAtK(groundTruth, retrieved []model.VectorID, k int) float64 {
	n := len(retrieved)
	if n > k {
		n = k
	}
	if n == 0 {
		return 0
	}

	truth := roaring.New()
	for _, id := range groundTruth {
		truth.Add(uint32(id))
	}

	hits := 0
	for _, id := range retrieved[:n] {
		if truth.Contains(uint32(id)) {
			hits++
		}
	}
	return float64(hits) / float64(n)
}

// MeanRecallAtK averages RecallAtK over query/result pairs. Pairs beyond the
// shorter of the two slices are ignored.
func MeanRecallAtK(groundTruth, retrieved [][]model.VectorID, k int) float64 {
	n := len(groundTruth)
	if len(retrieved) < n {
		n = len(retrieved)
	}
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += RecallAtK(groundTruth[i], retrieved[i], k)
	}
	return sum / float64(n)
}

// LatencySummary holds percentile figures over per-query latencies in
// microseconds.
type LatencySummary struct {
	P50 float64 `json:"latency_us_p50"`
	P95 float64 `json:"latency_us_p95"`
	P99 float64 `json:"latency_us_p99"`
}

// Percentiles computes p50/p95/p99 by index interpolation over a sorted copy
// of the samples. An empty sample set yields zeroes.
func Percentiles(latenciesUs []float64) LatencySummary {
	if len(latenciesUs) == 0 {
		return LatencySummary{}
	}

	sorted := make([]float64, len(latenciesUs))
	copy(sorted, latenciesUs)
	sort.Float64s(sorted)

	pct := func(p float64) float64 {
		idx := int(p * float64(len(sorted)-1))
		return sorted[idx]
	}
	return LatencySummary{
		P50: pct(0.50),
		P95: pct(0.95),
		P99: pct(0.99),
	}
}
