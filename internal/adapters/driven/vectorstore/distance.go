package vectorstore

import (
	"math"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Distance returns the distance between a and b under metric. Lower is
// nearer. Vectors must have the same length; callers validate this.
func Distance(metric domain.DistanceMetric, a, b []float32) float64 {
	if metric == domain.DistanceL2 {
		return L2Distance(a, b)
	}
	return CosineDistance(a, b)
}

// CosineDistance returns 1 minus the cosine similarity of a and b.
// A zero-magnitude vector is treated as orthogonal to everything.
func CosineDistance(a, b []float32) float64 {
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na2)*math.Sqrt(nb2))
}

// L2Distance returns the Euclidean distance between a and b.
func L2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
