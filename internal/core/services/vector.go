package services

import "math"

// l2Norm returns the Euclidean length of v.
func l2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// normalize returns v scaled to unit length. ok is false for zero or
// non-finite vectors, which cannot be normalised.
func normalize(v []float32) (out []float32, ok bool) {
	norm := l2Norm(v)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, false
	}
	out = make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, true
}

// squaredDistance returns the squared Euclidean distance between a point
// and a centroid held in float64.
func squaredDistance(p []float64, c []float64) float64 {
	var sum float64
	for i := range p {
		d := p[i] - c[i]
		sum += d * d
	}
	return sum
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
