package matrix

import "github.com/born-ml/recurrent/internal/random"

// DefaultStd is the half-width of the uniform range used for trainable
// parameters.
const DefaultStd = 0.08

// NewRandom creates a matrix whose weights are drawn uniformly from
// [-std, std) using src. Deltas start at zero.
func NewRandom(rows, columns int, std float64, src *random.Source) *Matrix {
	m := New(rows, columns)
	for i := range m.Weights {
		m.Weights[i] = src.Float(-std, std)
	}
	return m
}
