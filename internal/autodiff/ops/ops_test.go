package ops_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/recurrent/internal/autodiff/ops"
	"github.com/born-ml/recurrent/internal/matrix"
	"github.com/born-ml/recurrent/internal/random"
)

func mustRows(t *testing.T, rows ...[]float64) *matrix.Matrix {
	t.Helper()
	m, err := matrix.FromRows(rows, nil)
	require.NoError(t, err)
	m.ZeroDeltas()
	return m
}

func product(t *testing.T, k ops.Kind, left, right *matrix.Matrix) *matrix.Matrix {
	t.Helper()
	rows, cols, err := k.ProductShape(left, right)
	require.NoError(t, err)
	return matrix.New(rows, cols)
}

// TestAdd_BackwardPassesGradient checks that add's gradient reaches both
// operands unchanged.
func TestAdd_BackwardPassesGradient(t *testing.T) {
	l := mustRows(t, []float64{1, 2}, []float64{3, 4})
	r := mustRows(t, []float64{5, 6}, []float64{7, 8})
	p := product(t, ops.KindAdd, l, r)
	o := ops.Operands{Product: p, Left: l, Right: r}

	require.NoError(t, ops.Add(o))
	assert.Equal(t, []float64{6, 8, 10, 12}, p.Weights)

	g := []float64{0.5, -1, 2, 0.25}
	copy(p.Deltas, g)
	require.NoError(t, ops.AddBackward(o))

	assert.Equal(t, g, l.Deltas)
	assert.Equal(t, g, r.Deltas)
}

func TestForward_ZeroesProductDeltas(t *testing.T) {
	l := mustRows(t, []float64{1, -2, 3})
	p := product(t, ops.KindTanh, l, nil)
	for i := range p.Deltas {
		p.Deltas[i] = 42
	}

	require.NoError(t, ops.Tanh(ops.Operands{Product: p, Left: l}))
	assert.Equal(t, []float64{0, 0, 0}, p.Deltas)
}

// TestBackward_Accumulates checks that running a backward kernel twice sums
// the contributions instead of overwriting them.
func TestBackward_Accumulates(t *testing.T) {
	l := mustRows(t, []float64{1, 2})
	r := mustRows(t, []float64{3, 4})
	p := product(t, ops.KindMultiplyElement, l, r)
	o := ops.Operands{Product: p, Left: l, Right: r}

	require.NoError(t, ops.MultiplyElement(o))
	copy(p.Deltas, []float64{1, 1})
	require.NoError(t, ops.MultiplyElementBackward(o))
	require.NoError(t, ops.MultiplyElementBackward(o))

	assert.Equal(t, []float64{6, 8}, l.Deltas)
	assert.Equal(t, []float64{2, 4}, r.Deltas)
}

func TestSigmoid_Derivative(t *testing.T) {
	l := mustRows(t, []float64{-3, -0.5, 0, 0.5, 3})
	p := product(t, ops.KindSigmoid, l, nil)
	o := ops.Operands{Product: p, Left: l}

	require.NoError(t, ops.Sigmoid(o))
	for i := range p.Deltas {
		p.Deltas[i] = 1
	}
	require.NoError(t, ops.SigmoidBackward(o))

	for i, s := range p.Weights {
		assert.InDelta(t, s*(1-s), l.Deltas[i], 1e-12)
	}
	assert.InDelta(t, 0.5, p.Weights[2], 1e-12)
}

func TestRelu(t *testing.T) {
	l := mustRows(t, []float64{-1, 0, 2})
	p := product(t, ops.KindRelu, l, nil)
	o := ops.Operands{Product: p, Left: l}

	require.NoError(t, ops.Relu(o))
	assert.Equal(t, []float64{0, 0, 2}, p.Weights)

	copy(p.Deltas, []float64{5, 5, 5})
	require.NoError(t, ops.ReluBackward(o))
	assert.Equal(t, []float64{0, 0, 5}, l.Deltas)
}

func TestRowPluck_ScattersIntoSelectedRowOnly(t *testing.T) {
	l := mustRows(t,
		[]float64{1, 2, 3},
		[]float64{4, 5, 6},
		[]float64{7, 8, 9},
	)
	p := product(t, ops.KindRowPluck, l, nil)
	require.Equal(t, 3, p.Rows)
	require.Equal(t, 1, p.Columns)

	o := ops.Operands{Product: p, Left: l, Row: 1}
	require.NoError(t, ops.RowPluck(o))
	assert.Equal(t, []float64{4, 5, 6}, p.Weights)

	copy(p.Deltas, []float64{0.1, 0.2, 0.3})
	require.NoError(t, ops.RowPluckBackward(o))

	deltas := l.DeltasToRows()
	assert.Equal(t, []float64{0, 0, 0}, deltas[0])
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, deltas[1])
	assert.Equal(t, []float64{0, 0, 0}, deltas[2])
}

func TestRowPluck_OutOfRange(t *testing.T) {
	l := mustRows(t, []float64{1, 2})
	p := product(t, ops.KindRowPluck, l, nil)

	for _, row := range []int{-1, 1} {
		err := ops.RowPluck(ops.Operands{Product: p, Left: l, Row: row})
		assert.ErrorIs(t, err, matrix.ErrIndexOutOfRange)
	}
}

func TestCloneNegative(t *testing.T) {
	l := mustRows(t, []float64{1, -2})
	p := product(t, ops.KindCloneNegative, l, nil)
	o := ops.Operands{Product: p, Left: l}

	require.NoError(t, ops.CloneNegative(o))
	assert.Equal(t, []float64{-1, 2}, p.Weights)

	copy(p.Deltas, []float64{3, 4})
	require.NoError(t, ops.CloneNegativeBackward(o))
	assert.Equal(t, []float64{-3, -4}, l.Deltas)
}

func TestAllOnesAndInput(t *testing.T) {
	p := matrix.New(2, 2)
	p.Deltas[0] = 7

	require.NoError(t, ops.AllOnes(ops.Operands{Product: p}))
	assert.Equal(t, []float64{1, 1, 1, 1}, p.Weights)
	assert.Equal(t, []float64{0, 0, 0, 0}, p.Deltas)

	require.NoError(t, ops.Input(ops.Operands{Product: p, Value: []float64{1, 2, 3, 4}}))
	assert.Equal(t, []float64{1, 2, 3, 4}, p.Weights)

	err := ops.Input(ops.Operands{Product: p, Value: []float64{1}})
	assert.ErrorIs(t, err, matrix.ErrShapeMismatch)
}

func TestMultiply_MatchesGonum(t *testing.T) {
	src := random.New(3)
	l := matrix.NewRandom(4, 3, 1, src)
	r := matrix.NewRandom(3, 5, 1, src)
	p := product(t, ops.KindMultiply, l, r)
	require.Equal(t, 4, p.Rows)
	require.Equal(t, 5, p.Columns)

	require.NoError(t, ops.Multiply(ops.Operands{Product: p, Left: l, Right: r}))

	a := mat.NewDense(l.Rows, l.Columns, append([]float64(nil), l.Weights...))
	b := mat.NewDense(r.Rows, r.Columns, append([]float64(nil), r.Weights...))
	var want mat.Dense
	want.Mul(a, b)

	for i := 0; i < p.Rows; i++ {
		for j := 0; j < p.Columns; j++ {
			got, err := p.Get(i, j)
			require.NoError(t, err)
			assert.InDelta(t, want.At(i, j), got, 1e-12)
		}
	}
}

func TestMultiply_Parallel(t *testing.T) {
	src := random.New(9)
	l := matrix.NewRandom(128, 64, 1, src)
	r := matrix.NewRandom(64, 32, 1, src)
	p := product(t, ops.KindMultiply, l, r)

	require.NoError(t, ops.Multiply(ops.Operands{Product: p, Left: l, Right: r}))

	a := mat.NewDense(l.Rows, l.Columns, append([]float64(nil), l.Weights...))
	b := mat.NewDense(r.Rows, r.Columns, append([]float64(nil), r.Weights...))
	var want mat.Dense
	want.Mul(a, b)
	assert.InDeltaSlice(t, mat.DenseCopyOf(&want).RawMatrix().Data, p.Weights, 1e-9)
}

func TestShapeMismatch_BeforeMutation(t *testing.T) {
	l := mustRows(t, []float64{1, 2, 3})
	r := mustRows(t, []float64{1, 2})
	p := matrix.New(1, 3)
	p.Weights[0] = 9

	tests := []struct {
		name string
		fn   ops.Func
	}{
		{"add", ops.Add},
		{"addBackward", ops.AddBackward},
		{"multiplyElement", ops.MultiplyElement},
		{"multiplyElementBackward", ops.MultiplyElementBackward},
		{"multiply", ops.Multiply},
		{"multiplyBackward", ops.MultiplyBackward},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn(ops.Operands{Product: p, Left: l, Right: r})
			require.ErrorIs(t, err, matrix.ErrShapeMismatch)
			assert.Equal(t, []float64{9, 0, 0}, p.Weights)
			assert.Equal(t, []float64{0, 0, 0}, l.Deltas)
			assert.Equal(t, []float64{0, 0}, r.Deltas)
		})
	}
}

func TestProductShape(t *testing.T) {
	a := matrix.New(2, 3)
	b := matrix.New(3, 4)

	tests := []struct {
		kind        ops.Kind
		left, right *matrix.Matrix
		rows, cols  int
		wantErr     bool
	}{
		{ops.KindMultiply, a, b, 2, 4, false},
		{ops.KindMultiply, b, a, 0, 0, true},
		{ops.KindAdd, a, a, 2, 3, false},
		{ops.KindAdd, a, b, 0, 0, true},
		{ops.KindRowPluck, b, nil, 4, 1, false},
		{ops.KindTanh, a, nil, 2, 3, false},
		{ops.KindAdd, nil, a, 0, 0, true},
	}

	for _, tt := range tests {
		rows, cols, err := tt.kind.ProductShape(tt.left, tt.right)
		if tt.wantErr {
			assert.ErrorIs(t, err, matrix.ErrShapeMismatch, tt.kind.String())
			continue
		}
		require.NoError(t, err, tt.kind.String())
		assert.Equal(t, tt.rows, rows, tt.kind.String())
		assert.Equal(t, tt.cols, cols, tt.kind.String())
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "multiplyElement", ops.KindMultiplyElement.String())
	assert.Equal(t, "Kind(99)", ops.Kind(99).String())
	assert.Nil(t, ops.Kind(99).Kernel().Forward)
	assert.Nil(t, ops.KindAllOnes.Kernel().Backward)
}

// checkGradient compares each backward kernel against central finite
// differences of loss = Σ product.w · g with respect to left and right.
func checkGradient(t *testing.T, k ops.Kind, left, right *matrix.Matrix) {
	t.Helper()

	kernel := k.Kernel()
	p := product(t, k, left, right)
	g := matrix.NewRandom(p.Rows, p.Columns, 1, random.New(11)).Weights

	loss := func(target *matrix.Matrix) func(x []float64) float64 {
		return func(x []float64) float64 {
			saved := append([]float64(nil), target.Weights...)
			copy(target.Weights, x)
			err := kernel.Forward(ops.Operands{Product: p, Left: left, Right: right})
			copy(target.Weights, saved)
			require.NoError(t, err)
			return floats.Dot(p.Weights, g)
		}
	}

	o := ops.Operands{Product: p, Left: left, Right: right}
	require.NoError(t, kernel.Forward(o))
	left.ZeroDeltas()
	if right != nil {
		right.ZeroDeltas()
	}
	copy(p.Deltas, g)
	require.NoError(t, kernel.Backward(o))

	settings := &fd.Settings{Formula: fd.Central}
	for _, target := range []*matrix.Matrix{left, right} {
		if target == nil {
			continue
		}
		want := fd.Gradient(nil, loss(target), append([]float64(nil), target.Weights...), settings)
		assert.InDeltaSlice(t, want, target.Deltas, 1e-6, "%s", k)
	}
}

func TestGradients_FiniteDifference(t *testing.T) {
	src := random.New(5)

	checkGradient(t, ops.KindMultiply, matrix.NewRandom(3, 4, 1, src), matrix.NewRandom(4, 2, 1, src))
	checkGradient(t, ops.KindAdd, matrix.NewRandom(2, 3, 1, src), matrix.NewRandom(2, 3, 1, src))
	checkGradient(t, ops.KindMultiplyElement, matrix.NewRandom(2, 3, 1, src), matrix.NewRandom(2, 3, 1, src))
	checkGradient(t, ops.KindSigmoid, matrix.NewRandom(3, 2, 1, src), nil)
	checkGradient(t, ops.KindTanh, matrix.NewRandom(3, 2, 1, src), nil)
	checkGradient(t, ops.KindCloneNegative, matrix.NewRandom(3, 2, 1, src), nil)

	// Keep relu inputs away from the kink at zero.
	relu := mustRows(t, []float64{-1.5, 0.7}, []float64{2.1, -0.3})
	checkGradient(t, ops.KindRelu, relu, nil)
}
