package corpus

import "math"

// CosineSimilarity computes the cosine similarity of two vectors, clamped
// to [0, 1]. Vectors of mismatched length and zero-magnitude vectors yield
// 0 rather than an error so that a single bad row cannot abort a search.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(magA) * math.Sqrt(magB))
	if math.IsNaN(sim) {
		return 0
	}

	// Clamp: anti-correlated vectors score 0, not negative.
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// Magnitude returns the Euclidean norm of a vector.
func Magnitude(vec []float64) float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	return math.Sqrt(sum)
}
