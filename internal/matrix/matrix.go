// Package matrix implements the dense two-dimensional matrix used by the
// recurrent networks.
//
// A Matrix stores its weights row-major and carries a parallel slice of
// gradient accumulators (deltas) with the same shape. Kernels in the
// autodiff/ops package read and write both slices in place.
package matrix

import (
	"fmt"
)

// Matrix is a dense rows×columns matrix with gradient accumulators.
//
// Invariant: len(Weights) == len(Deltas) == Rows*Columns.
type Matrix struct {
	Rows    int
	Columns int
	Weights []float64
	Deltas  []float64
}

// New creates a zero-filled matrix.
func New(rows, columns int) *Matrix {
	return &Matrix{
		Rows:    rows,
		Columns: columns,
		Weights: make([]float64, rows*columns),
		Deltas:  make([]float64, rows*columns),
	}
}

// FromRows builds a matrix from nested rows.
//
// If deltaRows is nil the deltas are initialized to the weight values.
// Every row must have the same length as the first one.
func FromRows(weightRows, deltaRows [][]float64) (*Matrix, error) {
	if deltaRows == nil {
		deltaRows = weightRows
	}
	if len(deltaRows) != len(weightRows) {
		return nil, fmt.Errorf("%w: %d weight rows, %d delta rows", ErrShapeMismatch, len(weightRows), len(deltaRows))
	}

	rows := len(weightRows)
	columns := 0
	if rows > 0 {
		columns = len(weightRows[0])
	}

	m := New(rows, columns)
	for r := 0; r < rows; r++ {
		if len(weightRows[r]) != columns || len(deltaRows[r]) != columns {
			return nil, fmt.Errorf("%w: row %d is ragged", ErrShapeMismatch, r)
		}
		copy(m.Weights[r*columns:], weightRows[r])
		copy(m.Deltas[r*columns:], deltaRows[r])
	}
	return m, nil
}

// Len returns the number of elements.
func (m *Matrix) Len() int {
	return len(m.Weights)
}

// SameShape reports whether m and other have identical dimensions.
func (m *Matrix) SameShape(other *Matrix) bool {
	return m.Rows == other.Rows && m.Columns == other.Columns
}

// String returns a short shape description.
func (m *Matrix) String() string {
	return fmt.Sprintf("Matrix(%dx%d)", m.Rows, m.Columns)
}

func (m *Matrix) index(row, column int) (int, error) {
	if row < 0 || row >= m.Rows || column < 0 || column >= m.Columns {
		return 0, fmt.Errorf("%w: (%d, %d) in %dx%d", ErrIndexOutOfRange, row, column, m.Rows, m.Columns)
	}
	return m.Columns*row + column, nil
}

// Get returns the weight at (row, column).
func (m *Matrix) Get(row, column int) (float64, error) {
	i, err := m.index(row, column)
	if err != nil {
		return 0, err
	}
	return m.Weights[i], nil
}

// Set stores v as the weight at (row, column).
func (m *Matrix) Set(row, column int, v float64) error {
	i, err := m.index(row, column)
	if err != nil {
		return err
	}
	m.Weights[i] = v
	return nil
}

// GetDelta returns the gradient accumulator at (row, column).
func (m *Matrix) GetDelta(row, column int) (float64, error) {
	i, err := m.index(row, column)
	if err != nil {
		return 0, err
	}
	return m.Deltas[i], nil
}

// SetDelta stores v as the gradient accumulator at (row, column).
func (m *Matrix) SetDelta(row, column int, v float64) error {
	i, err := m.index(row, column)
	if err != nil {
		return err
	}
	m.Deltas[i] = v
	return nil
}

// ToRows returns the weights as nested rows.
func (m *Matrix) ToRows() [][]float64 {
	return toRows(m.Weights, m.Rows, m.Columns)
}

// DeltasToRows returns the deltas as nested rows.
func (m *Matrix) DeltasToRows() [][]float64 {
	return toRows(m.Deltas, m.Rows, m.Columns)
}

func toRows(values []float64, rows, columns int) [][]float64 {
	out := make([][]float64, rows)
	for r := range out {
		out[r] = append([]float64(nil), values[r*columns:(r+1)*columns]...)
	}
	return out
}

// ZeroDeltas clears the gradient accumulators.
func (m *Matrix) ZeroDeltas() {
	clear(m.Deltas)
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{
		Rows:    m.Rows,
		Columns: m.Columns,
		Weights: append([]float64(nil), m.Weights...),
		Deltas:  append([]float64(nil), m.Deltas...),
	}
}
