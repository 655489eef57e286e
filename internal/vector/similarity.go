package vector

import "math"

// Similarity returns the cosine similarity of two vectors: their dot
// product divided by the product of their magnitudes. It must not be called
// with zero-magnitude vectors; degraded-mode zero embeddings are filtered
// out by the search threshold before scores are compared.
func Similarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
