// Package autodiff implements reverse-mode automatic differentiation over
// dense matrices.
//
// An Equation is a tape: building it records operations and pre-allocates
// their product matrices; Run replays the forward kernels in order and
// RunBackpropagate replays the backward kernels in reverse, accumulating
// gradients into the deltas of every operand. The topology of an Equation
// never changes once built. Only the values flowing through it do, driven by
// the Context passed to each replay.
//
// Usage:
//
//	eq := autodiff.NewEquation()
//	x := eq.InputMatrixToRow(embedding)
//	h := eq.Relu(eq.Add(eq.Multiply(weight, x), bias))
//	out, err := eq.Run(autodiff.Context{InputRow: token})
//	// ... set out.Deltas ...
//	_, err = eq.RunBackpropagate(autodiff.Context{InputRow: token})
package autodiff

import (
	"errors"
	"fmt"

	"github.com/born-ml/recurrent/internal/autodiff/ops"
	"github.com/born-ml/recurrent/internal/matrix"
)

// ErrEmptyEquation is returned when replaying an equation with no steps.
var ErrEmptyEquation = errors.New("equation has no steps")

// Context carries the per-replay values of a time step.
type Context struct {
	InputRow   int       // Row plucked by InputMatrixToRow steps
	InputValue []float64 // Vector injected by Input steps
}

// step is one recorded operation.
type step struct {
	kind         ops.Kind
	kernel       ops.Kernel
	left         *matrix.Matrix
	right        *matrix.Matrix
	product      *matrix.Matrix
	row          int  // Fixed row for RowPluck
	rowFromInput bool // Take the row from Context.InputRow instead
}

func (s *step) operands(ctx Context) ops.Operands {
	o := ops.Operands{
		Product: s.product,
		Left:    s.left,
		Right:   s.right,
		Row:     s.row,
	}
	if s.rowFromInput {
		o.Row = ctx.InputRow
	}
	if s.kind == ops.KindInput {
		o.Value = ctx.InputValue
	}
	return o
}

// Equation records operations for one time step and replays them.
//
// Building an Equation never fails loudly: the first recording error is
// kept, every later recording call returns nil, and Err reports it. Run and
// RunBackpropagate refuse to replay a broken equation.
type Equation struct {
	steps []step
	err   error
}

// NewEquation creates an empty equation.
func NewEquation() *Equation {
	return &Equation{
		steps: make([]step, 0, 32),
	}
}

// Err returns the first error met while recording, if any.
func (e *Equation) Err() error {
	return e.err
}

// Len returns the number of recorded steps.
func (e *Equation) Len() int {
	return len(e.steps)
}

// Record appends an operation of the given kind and returns its product,
// allocated with the shape the kind dictates. It returns nil once the
// equation has failed.
func (e *Equation) Record(kind ops.Kind, left, right *matrix.Matrix) *matrix.Matrix {
	return e.record(step{kind: kind, left: left, right: right})
}

func (e *Equation) record(s step) *matrix.Matrix {
	if e.err != nil {
		return nil
	}

	rows, columns, err := s.kind.ProductShape(s.left, s.right)
	if err != nil {
		e.err = fmt.Errorf("step %d: %w", len(e.steps), err)
		return nil
	}
	if s.product == nil {
		s.product = matrix.New(rows, columns)
	}
	s.kernel = s.kind.Kernel()

	e.steps = append(e.steps, s)
	return s.product
}

// Add records left + right.
func (e *Equation) Add(left, right *matrix.Matrix) *matrix.Matrix {
	return e.Record(ops.KindAdd, left, right)
}

// Multiply records the matrix product left · right.
func (e *Equation) Multiply(left, right *matrix.Matrix) *matrix.Matrix {
	return e.Record(ops.KindMultiply, left, right)
}

// MultiplyElement records left ⊙ right.
func (e *Equation) MultiplyElement(left, right *matrix.Matrix) *matrix.Matrix {
	return e.Record(ops.KindMultiplyElement, left, right)
}

// Relu records max(0, m).
func (e *Equation) Relu(m *matrix.Matrix) *matrix.Matrix {
	return e.Record(ops.KindRelu, m, nil)
}

// Sigmoid records σ(m).
func (e *Equation) Sigmoid(m *matrix.Matrix) *matrix.Matrix {
	return e.Record(ops.KindSigmoid, m, nil)
}

// Tanh records tanh(m).
func (e *Equation) Tanh(m *matrix.Matrix) *matrix.Matrix {
	return e.Record(ops.KindTanh, m, nil)
}

// CloneNegative records -m.
func (e *Equation) CloneNegative(m *matrix.Matrix) *matrix.Matrix {
	return e.Record(ops.KindCloneNegative, m, nil)
}

// AllOnes records a rows×columns matrix of ones.
func (e *Equation) AllOnes(rows, columns int) *matrix.Matrix {
	shape := matrix.New(rows, columns)
	return e.record(step{kind: ops.KindAllOnes, left: shape, product: shape})
}

// Subtract records left - right as left + (-right).
func (e *Equation) Subtract(left, right *matrix.Matrix) *matrix.Matrix {
	if left != nil && right != nil && left.Len() != right.Len() {
		e.fail(fmt.Errorf("%w: subtract of %v and %v", matrix.ErrShapeMismatch, left, right))
		return nil
	}
	return e.Add(left, e.CloneNegative(right))
}

// OneMinus records 1 - m as ones + (-m).
func (e *Equation) OneMinus(m *matrix.Matrix) *matrix.Matrix {
	if m == nil {
		e.fail(fmt.Errorf("%w: oneMinus needs an operand", matrix.ErrShapeMismatch))
		return nil
	}
	return e.Add(e.AllOnes(m.Rows, m.Columns), e.CloneNegative(m))
}

// RowPluck records the extraction of a fixed row of m as a column vector.
func (e *Equation) RowPluck(m *matrix.Matrix, row int) *matrix.Matrix {
	if m != nil && (row < 0 || row >= m.Rows) {
		e.fail(fmt.Errorf("%w: row %d of %v", matrix.ErrIndexOutOfRange, row, m))
		return nil
	}
	return e.record(step{kind: ops.KindRowPluck, left: m, row: row})
}

// InputMatrixToRow records the extraction of the row of m selected by
// Context.InputRow at replay time.
func (e *Equation) InputMatrixToRow(m *matrix.Matrix) *matrix.Matrix {
	return e.record(step{kind: ops.KindRowPluck, left: m, rowFromInput: true})
}

// Input records the injection of Context.InputValue into m and returns m.
func (e *Equation) Input(m *matrix.Matrix) *matrix.Matrix {
	return e.record(step{kind: ops.KindInput, left: m, product: m})
}

func (e *Equation) fail(err error) {
	if e.err == nil {
		e.err = fmt.Errorf("step %d: %w", len(e.steps), err)
	}
}

func (e *Equation) replayable() error {
	if e.err != nil {
		return fmt.Errorf("equation build failed: %w", e.err)
	}
	if len(e.steps) == 0 {
		return ErrEmptyEquation
	}
	return nil
}

// Run executes every forward kernel in registration order and returns the
// product of the last step.
func (e *Equation) Run(ctx Context) (*matrix.Matrix, error) {
	if err := e.replayable(); err != nil {
		return nil, err
	}

	for i := range e.steps {
		s := &e.steps[i]
		if s.kernel.Forward == nil {
			continue
		}
		if err := s.kernel.Forward(s.operands(ctx)); err != nil {
			return nil, fmt.Errorf("forward step %d (%s): %w", i, s.kind, err)
		}
	}
	return e.steps[len(e.steps)-1].product, nil
}

// RunBackpropagate executes every backward kernel in reverse registration
// order and returns the product of the first step. The caller seeds the
// gradient by setting the deltas of the output matrix beforehand.
func (e *Equation) RunBackpropagate(ctx Context) (*matrix.Matrix, error) {
	if err := e.replayable(); err != nil {
		return nil, err
	}

	for i := len(e.steps) - 1; i >= 0; i-- {
		s := &e.steps[i]
		if s.kernel.Backward == nil {
			continue
		}
		if err := s.kernel.Backward(s.operands(ctx)); err != nil {
			return nil, fmt.Errorf("backward step %d (%s): %w", i, s.kind, err)
		}
	}
	return e.steps[0].product, nil
}
