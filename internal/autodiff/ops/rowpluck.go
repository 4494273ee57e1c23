package ops

import (
	"fmt"

	"github.com/born-ml/recurrent/internal/matrix"
)

func checkRowPluck(o Operands) error {
	l, p := o.Left, o.Product
	if l == nil || p == nil {
		return missingOperand("rowPluck")
	}
	if o.Row < 0 || o.Row >= l.Rows {
		return fmt.Errorf("%w: rowPluck row %d of %v", matrix.ErrIndexOutOfRange, o.Row, l)
	}
	return checkLen("rowPluck", l.Columns, p)
}

// RowPluck copies row o.Row of left into a columns×1 product. Used as an
// embedding lookup.
func RowPluck(o Operands) error {
	if err := checkRowPluck(o); err != nil {
		return err
	}

	p, l := o.Product, o.Left
	offset := l.Columns * o.Row
	copy(p.Weights, l.Weights[offset:offset+l.Columns])
	clear(p.Deltas)
	return nil
}

// RowPluckBackward scatters the product gradient into the plucked row only.
func RowPluckBackward(o Operands) error {
	if err := checkRowPluck(o); err != nil {
		return err
	}

	p, l := o.Product, o.Left
	offset := l.Columns * o.Row
	for i, d := range p.Deltas {
		l.Deltas[offset+i] += d
	}
	return nil
}
