package recurrent

import (
	"context"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/recurrent/internal/autodiff"
	"github.com/born-ml/recurrent/internal/matrix"
)

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func smallOptions(cell CellType) Options {
	return Options{
		Type:        cell,
		InputSize:   6,
		InputRange:  4,
		HiddenSizes: []int{20},
		OutputSize:  4,
		Seed:        7,
	}
}

func newSmall(t *testing.T, cell CellType) *Model {
	t.Helper()
	m, err := NewModel(smallOptions(cell), quietLogger())
	require.NoError(t, err)
	return m
}

func TestNewModel_Shapes(t *testing.T) {
	m, err := NewModel(Options{
		InputSize:   5,
		InputRange:  3,
		HiddenSizes: []int{7, 4},
		OutputSize:  2,
	}, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, CellRNN, m.Options().Type)
	assert.NotEmpty(t, m.ID())
	assert.Equal(t, [2]int{4, 5}, [2]int{m.input.Rows, m.input.Columns})
	require.Len(t, m.Layers(), 2)
	assert.Equal(t, 7, m.Layers()[0].Size())
	assert.Equal(t, 4, m.Layers()[1].Size())
	assert.Equal(t, [2]int{3, 4}, [2]int{m.outputConnector.Rows, m.outputConnector.Columns})
	assert.Equal(t, [2]int{3, 1}, [2]int{m.output.Rows, m.output.Columns})
	assert.Equal(t, 0, m.NumEquations())

	// embedding + 2×3 layer matrices + connector + bias
	assert.Len(t, m.Params(), 9)
	assert.Len(t, m.Named(), 9)
}

func TestNewLSTM_Params(t *testing.T) {
	m, err := NewLSTM(smallOptions(CellRNN), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, CellLSTM, m.Options().Type)
	assert.Len(t, m.Params(), 1+12+2)
	assert.Equal(t, "hidden.0.cellActivationBias", m.Named()[12].Name)

	rnn, err := NewRNN(smallOptions(CellLSTM), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, CellRNN, rnn.Options().Type)
}

func TestNewModel_SameSeedSameParameters(t *testing.T) {
	a := newSmall(t, CellRNN)
	b := newSmall(t, CellRNN)
	for i, p := range a.Params() {
		assert.Equal(t, p.Weights, b.Params()[i].Weights, "param %d", i)
	}

	opts := smallOptions(CellRNN)
	opts.Seed = 8
	c, err := NewModel(opts, quietLogger())
	require.NoError(t, err)
	assert.NotEqual(t, a.input.Weights, c.input.Weights)
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"unknown cell", func(o *Options) { o.Type = "gru" }},
		{"negative input size", func(o *Options) { o.InputSize = -1 }},
		{"zero hidden layer", func(o *Options) { o.HiddenSizes = []int{4, 0} }},
		{"negative learning rate", func(o *Options) { o.LearningRate = -0.1 }},
		{"decay rate of one", func(o *Options) { o.DecayRate = 1 }},
		{"negative prediction length", func(o *Options) { o.MaxPredictionLength = -5 }},
		{"unknown optimizer", func(o *Options) { o.Optimizer = "lbfgs" }},
		{"output beyond input range", func(o *Options) { o.OutputSize = o.InputRange + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := smallOptions(CellRNN)
			tt.modify(&opts)
			_, err := NewModel(opts, quietLogger())
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestOptions_Defaults(t *testing.T) {
	m, err := NewModel(Options{}, quietLogger())
	require.NoError(t, err)
	opts := m.Options()

	assert.Equal(t, DefaultOptions(), opts)

	// The returned options do not alias the model's.
	opts.HiddenSizes[0] = 99
	assert.Equal(t, 20, m.Options().HiddenSizes[0])
}

func TestOptions_ZeroSeedTakesDefault(t *testing.T) {
	opts := smallOptions(CellRNN)
	opts.Seed = 0
	a, err := NewModel(opts, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.Options().Seed)

	opts.Seed = 1
	b, err := NewModel(opts, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, a.input.Weights, b.input.Weights)
}

func TestOptions_DisableRegularizationAndClipping(t *testing.T) {
	opts := smallOptions(CellRNN)
	opts.Regc = -1
	opts.ClipVal = -1
	m, err := NewModel(opts, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, -1.0, m.Options().Regc)
	assert.Equal(t, -1.0, m.Options().ClipVal)

	_, err = m.TrainPattern([]int{0, 1, 2})
	require.NoError(t, err)
}

// TestRun_UntrainedNeverFeedsUnknownToken samples long runs from fresh
// models whose output layer is as wide as the embedding allows.
func TestRun_UntrainedNeverFeedsUnknownToken(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		m, err := NewModel(Options{
			InputSize:   4,
			InputRange:  2,
			OutputSize:  2,
			HiddenSizes: []int{4},
			Seed:        seed,
		}, quietLogger())
		require.NoError(t, err)

		for _i := 0; _i < 5; _i++ {
			out, err := m.Run(context.Background(), []int{1}, RunOptions{MaxLength: 20, Sample: true})
			require.NoError(t, err, "seed %d", seed)
			assert.LessOrEqual(t, len(out), 20)
			for _, token := range out {
				assert.True(t, token >= 0 && token < 2, "seed %d: token %d", seed, token)
			}
		}
	}

	_, err := NewModel(Options{InputSize: 4, InputRange: 2, OutputSize: 30, HiddenSizes: []int{4}}, quietLogger())
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestModel_Uninitialized(t *testing.T) {
	var m Model

	_, err := m.RunInput([]int{1})
	require.ErrorIs(t, err, ErrUninitialized)
	require.ErrorIs(t, m.BindEquation(), ErrUninitialized)
	require.ErrorIs(t, m.Step(), ErrUninitialized)
	_, err = m.Run(context.Background(), []int{1}, RunOptions{})
	require.ErrorIs(t, err, ErrUninitialized)
	_, err = m.Snapshot()
	require.ErrorIs(t, err, ErrUninitialized)
}

func TestBindEquation_Idempotent(t *testing.T) {
	m := newSmall(t, CellLSTM)

	_, err := m.RunInput([]int{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 4, m.NumEquations())
	bound := append([]*autodiff.Equation(nil), m.equations...)

	// A shorter sequence reuses the bound steps.
	_, err = m.RunInput([]int{1})
	require.NoError(t, err)
	require.Equal(t, 4, m.NumEquations())

	// A longer one only appends.
	_, err = m.RunInput([]int{1, 2, 3, 1, 2})
	require.NoError(t, err)
	require.Equal(t, 6, m.NumEquations())
	for i, eq := range bound {
		assert.Same(t, eq, m.equations[i], "equation %d", i)
	}
	assert.Equal(t, 3, m.Runs())
}

func TestBindEquation_ChainsState(t *testing.T) {
	m := newSmall(t, CellLSTM)
	require.NoError(t, m.bindTo(2))

	first, second := m.connections[0][0], m.connections[1][0]
	require.NotNil(t, first.Cell)
	assert.NotSame(t, first.Hidden, second.Hidden)
	assert.NotSame(t, first.Cell, second.Cell)

	out, err := m.equations[1].Run(autodiff.Context{InputRow: 1})
	require.NoError(t, err)
	assert.Same(t, m.outputs[1], out)
}

func TestRunInput_ErrorAndGradients(t *testing.T) {
	m := newSmall(t, CellRNN)

	bits, err := m.RunInput([]int{1, 2, 3})
	require.NoError(t, err)

	// An untrained model is close to uniform over outputSize+1 classes.
	assert.InDelta(t, math.Log2(5), bits, 0.1)
	assert.InDelta(t, m.TotalCost(), bits*4*math.Ln2, 1e-9)

	// Each output's deltas are softmax minus one-hot and sum to zero.
	for i, out := range m.outputs[:4] {
		var sum float64
		for _, d := range out.Deltas {
			sum += d
		}
		assert.InDelta(t, 0, sum, 1e-9, "step %d", i)
	}
	assert.Negative(t, m.outputs[0].Deltas[2], "START predicts token 1")
	assert.Negative(t, m.outputs[3].Deltas[0], "last step predicts END")
}

func TestRunInput_TokenOutOfRange(t *testing.T) {
	m := newSmall(t, CellRNN)

	_, err := m.RunInput([]int{1, 4})
	require.ErrorIs(t, err, matrix.ErrIndexOutOfRange)
	_, err = m.RunInput([]int{-1})
	require.ErrorIs(t, err, matrix.ErrIndexOutOfRange)
	assert.Equal(t, 0, m.NumEquations())
}

func TestRunBackpropagate_NeedsRunInput(t *testing.T) {
	m := newSmall(t, CellRNN)
	require.ErrorIs(t, m.RunBackpropagate([]int{1, 2}), ErrUninitialized)
}

func TestTrainPattern_AccumulatesAndClearsDeltas(t *testing.T) {
	m := newSmall(t, CellRNN)
	seq := []int{1, 2, 3}

	_, err := m.RunInput(seq)
	require.NoError(t, err)
	require.NoError(t, m.RunBackpropagate(seq))

	var nonZero bool
	for _, d := range m.outputConnector.Deltas {
		if d != 0 {
			nonZero = true
			break
		}
	}
	require.True(t, nonZero, "backpropagation reaches the output connector")

	before := append([]float64(nil), m.outputConnector.Weights...)
	require.NoError(t, m.Step())
	assert.NotEqual(t, before, m.outputConnector.Weights)
	for _, p := range m.Params() {
		for _, d := range p.Deltas {
			require.Zero(t, d)
		}
	}
}
