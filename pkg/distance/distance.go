// Package distance provides the distance metrics used by the neighbor search.
//
// Every metric works on sparse rows and receives the precomputed L2 norms of both
// operands, so a search over N rows computes each norm once instead of N times.
package distance

import (
	"fmt"
	"math"

	"github.com/sanonone/shelfgraph/pkg/sparse"
)

// DistanceMetric defines the type of distance calculation to perform.
type DistanceMetric string

const (
	// Cosine represents the cosine distance metric (1 - cosine similarity).
	// The similarity of any vector with an all-zero vector is defined as 0.
	Cosine DistanceMetric = "cosine"
	// Euclidean represents the (non-squared) Euclidean distance metric.
	Euclidean DistanceMetric = "euclidean"
)

// Func computes the distance between two rows given their L2 norms.
type Func func(a, b sparse.Vector, normA, normB float64) float64

// funcs maps a distance metric to its implementation.
var funcs = map[DistanceMetric]Func{
	Cosine:    cosineDistance,
	Euclidean: euclideanDistance,
}

// GetFunc returns the implementation of a metric, or an error if it is unknown.
func GetFunc(metric DistanceMetric) (Func, error) {
	fn, ok := funcs[metric]
	if !ok {
		return nil, fmt.Errorf("metric '%s' not supported", metric)
	}
	return fn, nil
}

// ParseMetric converts a configuration string into a DistanceMetric.
// An empty string selects Cosine.
func ParseMetric(s string) (DistanceMetric, error) {
	if s == "" {
		return Cosine, nil
	}
	m := DistanceMetric(s)
	if _, ok := funcs[m]; !ok {
		return "", fmt.Errorf("metric '%s' not supported", s)
	}
	return m, nil
}

// CosineSimilarity returns the cosine similarity of two rows, clamped to [-1, 1].
// It returns 0 when either row is all-zero.
func CosineSimilarity(a, b sparse.Vector, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	return clampSimilarity(sparse.Dot(a, b) / (normA * normB))
}

// SimilarityFromDot converts a precomputed dot product to a clamped cosine similarity.
func SimilarityFromDot(dot, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	return clampSimilarity(dot / (normA * normB))
}

// clampSimilarity absorbs rounding that would push a similarity outside [-1, 1].
func clampSimilarity(sim float64) float64 {
	return math.Max(-1, math.Min(1, sim))
}

func cosineDistance(a, b sparse.Vector, normA, normB float64) float64 {
	return 1 - CosineSimilarity(a, b, normA, normB)
}

func euclideanDistance(a, b sparse.Vector, _, _ float64) float64 {
	return math.Sqrt(sparse.SquaredDistance(a, b))
}
