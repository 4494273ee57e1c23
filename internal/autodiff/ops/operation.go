// Package ops defines the matrix operations that can be recorded on an Equation.
//
// Every operation is a Kind. A Kind resolves, once, at graph-build time, to a
// Kernel: a forward function that fills a pre-allocated product matrix and an
// optional backward function that pushes the product's deltas back into its
// operands.
//
// Supported operations:
//   - Add: element-wise addition (gradient flows unchanged to both operands)
//   - Multiply: matrix product (dL/dA = grad·Bᵀ, dL/dB = Aᵀ·grad)
//   - MultiplyElement: element-wise product (operands swap into each other's deltas)
//   - Relu, Sigmoid, Tanh: activations
//   - RowPluck: embedding lookup of one row as a column vector
//   - AllOnes, CloneNegative: building blocks for subtraction
//   - Input: copies an injected vector into the product
//
// Backward kernels accumulate into operand deltas. Forward kernels zero the
// product deltas, so a product consumed several times collects the sum of its
// consumers' gradients.
package ops

import (
	"fmt"

	"github.com/born-ml/recurrent/internal/matrix"
)

// Operands are the matrices and per-run values a kernel works on.
type Operands struct {
	Product *matrix.Matrix // Output, pre-allocated with the Kind's shape
	Left    *matrix.Matrix // First operand, nil for nullary kinds
	Right   *matrix.Matrix // Second operand, nil for unary kinds
	Row     int            // Row selected by RowPluck
	Value   []float64      // Vector injected by Input
}

// Func is a forward or backward kernel.
type Func func(o Operands) error

// Kernel pairs a forward function with its backward counterpart.
// Backward is nil for operations that pass no gradient.
type Kernel struct {
	Forward  Func
	Backward Func
}

// Kind identifies a recordable operation.
type Kind int

// Operation kinds.
const (
	KindAdd Kind = iota
	KindMultiply
	KindMultiplyElement
	KindRelu
	KindSigmoid
	KindTanh
	KindRowPluck
	KindAllOnes
	KindCloneNegative
	KindInput
)

var kindNames = [...]string{
	KindAdd:             "add",
	KindMultiply:        "multiply",
	KindMultiplyElement: "multiplyElement",
	KindRelu:            "relu",
	KindSigmoid:         "sigmoid",
	KindTanh:            "tanh",
	KindRowPluck:        "rowPluck",
	KindAllOnes:         "allOnes",
	KindCloneNegative:   "cloneNegative",
	KindInput:           "input",
}

// String returns the operation name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kernel returns the forward/backward pair implementing k.
func (k Kind) Kernel() Kernel {
	switch k {
	case KindAdd:
		return Kernel{Forward: Add, Backward: AddBackward}
	case KindMultiply:
		return Kernel{Forward: Multiply, Backward: MultiplyBackward}
	case KindMultiplyElement:
		return Kernel{Forward: MultiplyElement, Backward: MultiplyElementBackward}
	case KindRelu:
		return Kernel{Forward: Relu, Backward: ReluBackward}
	case KindSigmoid:
		return Kernel{Forward: Sigmoid, Backward: SigmoidBackward}
	case KindTanh:
		return Kernel{Forward: Tanh, Backward: TanhBackward}
	case KindRowPluck:
		return Kernel{Forward: RowPluck, Backward: RowPluckBackward}
	case KindAllOnes:
		return Kernel{Forward: AllOnes}
	case KindCloneNegative:
		return Kernel{Forward: CloneNegative, Backward: CloneNegativeBackward}
	case KindInput:
		return Kernel{Forward: Input}
	default:
		return Kernel{}
	}
}

// ProductShape validates the operands of k and returns the shape of its
// product. Nullary kinds (AllOnes, Input) take their shape from left.
func (k Kind) ProductShape(left, right *matrix.Matrix) (rows, columns int, err error) {
	if left == nil {
		return 0, 0, fmt.Errorf("%w: %s needs a left operand", matrix.ErrShapeMismatch, k)
	}

	switch k {
	case KindAdd, KindMultiplyElement:
		if right == nil || left.Len() != right.Len() {
			return 0, 0, misaligned(k, left, right)
		}
		return left.Rows, left.Columns, nil

	case KindMultiply:
		if right == nil || left.Columns != right.Rows {
			return 0, 0, misaligned(k, left, right)
		}
		return left.Rows, right.Columns, nil

	case KindRowPluck:
		return left.Columns, 1, nil

	case KindRelu, KindSigmoid, KindTanh, KindCloneNegative, KindAllOnes, KindInput:
		return left.Rows, left.Columns, nil

	default:
		return 0, 0, fmt.Errorf("unknown operation %s", k)
	}
}

func misaligned(k Kind, left, right *matrix.Matrix) error {
	return fmt.Errorf("%w: %s of %v and %v", matrix.ErrShapeMismatch, k, left, right)
}
