package ops

import (
	"fmt"

	"github.com/born-ml/recurrent/internal/matrix"
	"github.com/born-ml/recurrent/internal/parallel"
)

// multiplyParallel splits large products across CPUs by output row.
var multiplyParallel = parallel.DefaultConfig()

func checkMultiply(o Operands) error {
	l, r, p := o.Left, o.Right, o.Product
	if l == nil || r == nil || p == nil {
		return missingOperand("multiply")
	}
	if l.Columns != r.Rows {
		return fmt.Errorf("%w: multiply of %v and %v", matrix.ErrShapeMismatch, l, r)
	}
	if p.Rows != l.Rows || p.Columns != r.Columns {
		return fmt.Errorf("%w: multiply product %v, want %dx%d", matrix.ErrShapeMismatch, p, l.Rows, r.Columns)
	}
	return nil
}

// Multiply computes the matrix product: left (m×k) · right (k×n) → product (m×n).
func Multiply(o Operands) error {
	if err := checkMultiply(o); err != nil {
		return err
	}

	l, r, p := o.Left, o.Right, o.Product
	k, n := l.Columns, r.Columns

	parallel.Ranges(l.Rows, k*n, func(lo, hi int) {
		for row := lo; row < hi; row++ {
			for col := 0; col < n; col++ {
				var sum float64
				for i := 0; i < k; i++ {
					sum += l.Weights[k*row+i] * r.Weights[n*i+col]
				}
				p.Weights[n*row+col] = sum
				p.Deltas[n*row+col] = 0
			}
		}
	}, multiplyParallel)
	return nil
}

// MultiplyBackward applies the chain rule to every dot-product term:
//
//	left.d[row, i]  += right.w[i, col] · product.d[row, col]
//	right.d[i, col] += left.w[row, i]  · product.d[row, col]
//
// The right-operand deltas are shared across output rows, so this runs
// sequentially.
func MultiplyBackward(o Operands) error {
	if err := checkMultiply(o); err != nil {
		return err
	}

	l, r, p := o.Left, o.Right, o.Product
	k, n := l.Columns, r.Columns

	for row := 0; row < l.Rows; row++ {
		for col := 0; col < n; col++ {
			d := p.Deltas[n*row+col]
			if d == 0 {
				continue
			}
			for i := 0; i < k; i++ {
				l.Deltas[k*row+i] += r.Weights[n*i+col] * d
				r.Deltas[n*i+col] += l.Weights[k*row+i] * d
			}
		}
	}
	return nil
}
