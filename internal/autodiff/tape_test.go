package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/recurrent/internal/autodiff"
	"github.com/born-ml/recurrent/internal/matrix"
)

func rows(t *testing.T, values ...[]float64) *matrix.Matrix {
	t.Helper()
	m, err := matrix.FromRows(values, nil)
	require.NoError(t, err)
	m.ZeroDeltas()
	return m
}

func TestEquation_RunAndBackpropagate(t *testing.T) {
	embedding := rows(t,
		[]float64{1, 2},
		[]float64{3, 4},
		[]float64{5, 6},
	)
	weight := rows(t, []float64{1, 0}, []float64{0, -1})
	bias := rows(t, []float64{0.5}, []float64{0.5})

	eq := autodiff.NewEquation()
	x := eq.InputMatrixToRow(embedding)
	out := eq.Relu(eq.Add(eq.Multiply(weight, x), bias))
	require.NoError(t, eq.Err())
	assert.Equal(t, 4, eq.Len())

	got, err := eq.Run(autodiff.Context{InputRow: 1})
	require.NoError(t, err)
	assert.Same(t, out, got)
	// weight·[3,4] + 0.5 = [3.5, -3.5] → relu → [3.5, 0]
	assert.Equal(t, []float64{3.5, 0}, got.Weights)

	copy(out.Deltas, []float64{1, 1})
	first, err := eq.RunBackpropagate(autodiff.Context{InputRow: 1})
	require.NoError(t, err)
	assert.Same(t, x, first)

	// Only the first output unit is active.
	assert.Equal(t, []float64{1, 0}, bias.Deltas)
	assert.Equal(t, []float64{3, 4, 0, 0}, weight.Deltas)
	assert.Equal(t, [][]float64{{0, 0}, {1, 0}, {0, 0}}, embedding.DeltasToRows())
}

func TestEquation_ContextSelectsRow(t *testing.T) {
	embedding := rows(t, []float64{1}, []float64{2}, []float64{3})

	eq := autodiff.NewEquation()
	eq.InputMatrixToRow(embedding)

	for row, want := range []float64{1, 2, 3} {
		got, err := eq.Run(autodiff.Context{InputRow: row})
		require.NoError(t, err)
		assert.Equal(t, []float64{want}, got.Weights)
	}

	_, err := eq.Run(autodiff.Context{InputRow: 3})
	assert.ErrorIs(t, err, matrix.ErrIndexOutOfRange)
}

func TestEquation_FixedRowPluck(t *testing.T) {
	m := rows(t, []float64{1, 2}, []float64{3, 4})

	eq := autodiff.NewEquation()
	eq.RowPluck(m, 1)

	got, err := eq.Run(autodiff.Context{InputRow: 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, got.Weights)

	bad := autodiff.NewEquation()
	assert.Nil(t, bad.RowPluck(m, 2))
	assert.ErrorIs(t, bad.Err(), matrix.ErrIndexOutOfRange)
}

func TestEquation_Subtract(t *testing.T) {
	a := rows(t, []float64{5, 7})
	b := rows(t, []float64{2, 10})

	eq := autodiff.NewEquation()
	d := eq.Subtract(a, b)

	got, err := eq.Run(autodiff.Context{})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, -3}, got.Weights)

	copy(d.Deltas, []float64{1, 2})
	_, err = eq.RunBackpropagate(autodiff.Context{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, a.Deltas)
	assert.Equal(t, []float64{-1, -2}, b.Deltas)
}

func TestEquation_OneMinus(t *testing.T) {
	z := rows(t, []float64{0.25, 1, -1})

	eq := autodiff.NewEquation()
	eq.OneMinus(z)

	got, err := eq.Run(autodiff.Context{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.75, 0, 2}, got.Weights)
}

func TestEquation_Input(t *testing.T) {
	in := matrix.New(3, 1)
	w := rows(t, []float64{1, 1, 1})

	eq := autodiff.NewEquation()
	eq.Multiply(w, eq.Input(in))

	got, err := eq.Run(autodiff.Context{InputValue: []float64{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []float64{6}, got.Weights)

	_, err = eq.Run(autodiff.Context{InputValue: []float64{1}})
	assert.ErrorIs(t, err, matrix.ErrShapeMismatch)
}

func TestEquation_StickyError(t *testing.T) {
	a := matrix.New(2, 3)
	b := matrix.New(2, 3)

	eq := autodiff.NewEquation()
	bad := eq.Multiply(a, b)
	assert.Nil(t, bad)
	require.ErrorIs(t, eq.Err(), matrix.ErrShapeMismatch)

	// Later steps are ignored and the first error is kept.
	assert.Nil(t, eq.Add(a, b))
	assert.Nil(t, eq.Subtract(a, matrix.New(1, 1)))
	assert.Equal(t, 0, eq.Len())
	assert.Contains(t, eq.Err().Error(), "multiply")

	_, err := eq.Run(autodiff.Context{})
	assert.ErrorIs(t, err, matrix.ErrShapeMismatch)
	_, err = eq.RunBackpropagate(autodiff.Context{})
	assert.ErrorIs(t, err, matrix.ErrShapeMismatch)
}

func TestEquation_Empty(t *testing.T) {
	eq := autodiff.NewEquation()

	_, err := eq.Run(autodiff.Context{})
	assert.ErrorIs(t, err, autodiff.ErrEmptyEquation)
	_, err = eq.RunBackpropagate(autodiff.Context{})
	assert.ErrorIs(t, err, autodiff.ErrEmptyEquation)
}

// TestEquation_SharedOperandAccumulates checks that a matrix used by two
// steps receives the sum of both gradients.
func TestEquation_SharedOperandAccumulates(t *testing.T) {
	x := rows(t, []float64{2, 3})

	eq := autodiff.NewEquation()
	y := eq.Add(x, x)

	_, err := eq.Run(autodiff.Context{})
	require.NoError(t, err)
	copy(y.Deltas, []float64{1, 1})
	_, err = eq.RunBackpropagate(autodiff.Context{})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2}, x.Deltas)
}

// TestEquation_ReplayIsStable checks that replaying a built equation does
// not change its topology.
func TestEquation_ReplayIsStable(t *testing.T) {
	w := rows(t, []float64{0.5, -0.5}, []float64{1, 2})
	x := rows(t, []float64{1}, []float64{1})

	eq := autodiff.NewEquation()
	out := eq.Tanh(eq.Multiply(w, x))
	n := eq.Len()

	first, err := eq.Run(autodiff.Context{})
	require.NoError(t, err)
	want := append([]float64(nil), first.Weights...)

	for _i := 0; _i < 3; _i++ {
		got, err := eq.Run(autodiff.Context{})
		require.NoError(t, err)
		assert.Same(t, out, got)
		assert.Equal(t, want, got.Weights)
	}
	assert.Equal(t, n, eq.Len())
}
