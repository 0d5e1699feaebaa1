// Package textsim holds the pure text and vector similarity functions shared
// by notification fan-out and search.
package textsim

import "math"

// CosineSimilarity returns the normalized dot product of a and b. It returns 0
// when either vector is absent, the lengths differ, or either has zero magnitude.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64

	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)))
}
