package store

import (
	"fmt"
	"math"

	"ragpipe/internal/domain"
)

// Metric selects how query and stored vectors are compared. It is
// fixed per store instance at construction.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricDot    Metric = "dot"
)

// ParseMetric maps a config string to a Metric. Empty input selects
// cosine.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricCosine, "":
		return MetricCosine, nil
	case MetricDot:
		return MetricDot, nil
	default:
		return "", fmt.Errorf("%w: unknown similarity metric %q", domain.ErrInvalidArgument, s)
	}
}

// Score computes the similarity between two vectors of equal length.
// Higher is more similar for both metrics.
func (m Metric) Score(a, b []float32) float64 {
	if m == MetricDot {
		return dotProduct(a, b)
	}
	return cosineSimilarity(a, b)
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// dotProduct calculates the inner product of two vectors.
func dotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
