package matrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/recurrent/internal/random"
)

// Softmax returns a new matrix holding the normalized exponentials of m.
//
// The overall maximum is subtracted before exponentiating, so the result is
// unchanged by adding a constant to every weight. Softmax records no
// backward step; callers set the gradient of the logits directly.
func Softmax(m *Matrix) *Matrix {
	out := New(m.Rows, m.Columns)
	if m.Len() == 0 {
		return out
	}

	maxVal := floats.Max(m.Weights)
	for i, w := range m.Weights {
		out.Weights[i] = math.Exp(w - maxVal)
	}
	floats.Scale(1/floats.Sum(out.Weights), out.Weights)
	return out
}

// Copy makes product a structural copy of m: shape, weights and deltas.
// The two matrices share no storage afterwards.
func Copy(product, m *Matrix) {
	product.Rows = m.Rows
	product.Columns = m.Columns
	product.Weights = append(product.Weights[:0], m.Weights...)
	product.Deltas = append(product.Deltas[:0], m.Deltas...)
}

// ArgMax returns the index of the largest weight. Ties resolve to the first
// occurrence. It returns -1 for an empty matrix.
func ArgMax(m *Matrix) int {
	if m.Len() == 0 {
		return -1
	}
	return floats.MaxIdx(m.Weights)
}

// SampleIndex draws an index with probability proportional to its weight,
// assuming the weights sum to 1 (cumulative-sum sampling).
func SampleIndex(m *Matrix, src *random.Source) (int, error) {
	if m.Len() == 0 {
		return 0, fmt.Errorf("%w: cannot sample from an empty matrix", ErrShapeMismatch)
	}

	r := src.Float64()
	var cumulative float64
	for i, w := range m.Weights {
		cumulative += w
		if cumulative > r {
			return i, nil
		}
	}

	// Rounding left the total just below r.
	return m.Len() - 1, nil
}
