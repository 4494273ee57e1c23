package ops

import (
	"fmt"

	"github.com/born-ml/recurrent/internal/matrix"
)

// checkLen verifies every matrix is present and has exactly n elements.
func checkLen(name string, n int, ms ...*matrix.Matrix) error {
	for _, m := range ms {
		if m == nil {
			return missingOperand(name)
		}
		if m.Len() != n {
			return fmt.Errorf("%w: %s: %v has %d elements, want %d", matrix.ErrShapeMismatch, name, m, m.Len(), n)
		}
	}
	return nil
}

// checkUnary verifies a same-shape unary operation.
func checkUnary(name string, o Operands) error {
	if o.Left == nil {
		return missingOperand(name)
	}
	return checkLen(name, o.Left.Len(), o.Product)
}

// checkBinary verifies an element-wise binary operation.
func checkBinary(name string, o Operands) error {
	if o.Left == nil {
		return missingOperand(name)
	}
	return checkLen(name, o.Left.Len(), o.Right, o.Product)
}

func missingOperand(name string) error {
	return fmt.Errorf("%w: %s: missing operand", matrix.ErrShapeMismatch, name)
}
