package recurrent

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/born-ml/recurrent/internal/autodiff"
	"github.com/born-ml/recurrent/internal/matrix"
	"github.com/born-ml/recurrent/internal/optim"
	"github.com/born-ml/recurrent/internal/random"
)

// Model is a recurrent sequence model over integer tokens.
//
// Token t is fed as embedding row t+1 and predicted as output index t+1;
// index 0 is the START/END sentinel. The model grows one Equation per time
// step on demand and keeps them for later sequences. Every Equation refers
// to the model's own parameter matrices, so a Model must not be trained or
// run from several goroutines at once.
type Model struct {
	id      string
	options Options
	src     *random.Source
	logger  *logrus.Logger

	input           *matrix.Matrix // (inputRange+1) × inputSize
	layers          []Layer
	outputConnector *matrix.Matrix // (outputSize+1) × last hidden size
	output          *matrix.Matrix // (outputSize+1) × 1

	initial     []State
	equations   []*autodiff.Equation
	outputs     []*matrix.Matrix // Output logits of each equation
	connections [][]State        // State produced by each layer, per time step

	optimizer optim.Optimizer
	totalCost float64
	runs      int
}

// NewModel creates and initializes a model. A nil logger selects the
// logrus standard logger.
func NewModel(options Options, logger *logrus.Logger) (*Model, error) {
	options = options.withDefaults()
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	m := &Model{
		id:      uuid.NewString(),
		options: options,
		logger:  logger,
	}
	if err := m.Initialize(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewRNN creates a model of relu RNN layers.
func NewRNN(options Options, logger *logrus.Logger) (*Model, error) {
	options.Type = CellRNN
	return NewModel(options, logger)
}

// NewLSTM creates a model of LSTM layers.
func NewLSTM(options Options, logger *logrus.Logger) (*Model, error) {
	options.Type = CellLSTM
	return NewModel(options, logger)
}

// Initialize draws fresh parameters from the seeded source, drops every
// bound Equation and resets the optimizer.
func (m *Model) Initialize() error {
	o := m.options
	m.src = random.New(o.Seed)

	m.input = matrix.NewRandom(o.InputRange+1, o.InputSize, matrix.DefaultStd, m.src)

	m.layers = make([]Layer, len(o.HiddenSizes))
	m.initial = make([]State, len(o.HiddenSizes))
	prevSize := o.InputSize
	for i, size := range o.HiddenSizes {
		m.layers[i] = newLayer(o.Type, size, prevSize, m.src)
		m.initial[i] = m.layers[i].InitialState()
		prevSize = size
	}

	m.outputConnector = matrix.NewRandom(o.OutputSize+1, prevSize, matrix.DefaultStd, m.src)
	m.output = matrix.New(o.OutputSize+1, 1)

	m.equations = nil
	m.outputs = nil
	m.connections = nil
	m.totalCost = 0
	m.runs = 0

	optimizer, err := optim.New(m.Params(), optim.Config{
		Name:     o.Optimizer,
		LR:       o.LearningRate,
		Momentum: o.Momentum,
	}, o.rmsprop())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	m.optimizer = optimizer
	return nil
}

func (m *Model) initialized() error {
	if m == nil || m.input == nil || m.optimizer == nil {
		return ErrUninitialized
	}
	return nil
}

// ID returns the model's identifier, kept across snapshots.
func (m *Model) ID() string { return m.id }

// Options returns the options the model was built with.
func (m *Model) Options() Options {
	o := m.options
	o.HiddenSizes = append([]int(nil), o.HiddenSizes...)
	return o
}

// Layers returns the hidden layers.
func (m *Model) Layers() []Layer { return m.layers }

// Optimizer returns the parameter update rule.
func (m *Model) Optimizer() optim.Optimizer { return m.optimizer }

// SetLogger replaces the logger.
func (m *Model) SetLogger(logger *logrus.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Params returns every trainable matrix: the embedding, each layer's
// parameters, the output connector and the output bias.
func (m *Model) Params() []*matrix.Matrix {
	params := []*matrix.Matrix{m.input}
	for _, l := range m.layers {
		params = append(params, l.Params()...)
	}
	return append(params, m.outputConnector, m.output)
}

// Named returns the trainable matrices with their snapshot names.
func (m *Model) Named() []NamedMatrix {
	named := []NamedMatrix{{"input", m.input}}
	for i, l := range m.layers {
		for _, n := range l.Named() {
			named = append(named, NamedMatrix{fmt.Sprintf("hidden.%d.%s", i, n.Name), n.Matrix})
		}
	}
	return append(named,
		NamedMatrix{"outputConnector", m.outputConnector},
		NamedMatrix{"output", m.output},
	)
}

// NumEquations returns the number of bound time steps.
func (m *Model) NumEquations() int { return len(m.equations) }

// TotalCost returns the natural-log cross entropy of the last RunInput.
func (m *Model) TotalCost() float64 { return m.totalCost }

// Runs returns the number of forward passes since the last Initialize.
func (m *Model) Runs() int { return m.runs }

// BindEquation appends the Equation of the next time step:
//
//	state_0 = layer_0(rowPluck(input, token), state_0')
//	state_i = layer_i(hidden_{i-1}, state_i')
//	output  = outputConnector·hidden_last + outputBias
//
// where state' is the layer's state at the previous time step, or the zero
// initial state at step 0.
func (m *Model) BindEquation() error {
	if err := m.initialized(); err != nil {
		return err
	}

	prev := m.initial
	if n := len(m.connections); n > 0 {
		prev = m.connections[n-1]
	}

	eq := autodiff.NewEquation()
	states := make([]State, len(m.layers))
	x := eq.InputMatrixToRow(m.input)
	for i, l := range m.layers {
		states[i] = l.Bind(eq, x, prev[i])
		x = states[i].Hidden
	}
	out := eq.Add(eq.Multiply(m.outputConnector, x), m.output)

	if err := eq.Err(); err != nil {
		return fmt.Errorf("bind time step %d: %w", len(m.equations), err)
	}

	m.equations = append(m.equations, eq)
	m.outputs = append(m.outputs, out)
	m.connections = append(m.connections, states)
	return nil
}

// bindTo makes sure at least n Equations are bound.
func (m *Model) bindTo(n int) error {
	for len(m.equations) < n {
		if err := m.BindEquation(); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) checkSequence(sequence []int) error {
	limit := min(m.options.InputRange, m.options.OutputSize)
	for i, token := range sequence {
		if token < 0 || token >= limit {
			return fmt.Errorf("%w: token %d at position %d outside [0, %d)", matrix.ErrIndexOutOfRange, token, i, limit)
		}
	}
	return nil
}

// RunInput runs the forward pass of sequence with teacher forcing and seeds
// the output gradients for RunBackpropagate.
//
// The step at position p (from -1, the START sentinel, to len-1) feeds
// token p and predicts token p+1, or END after the last token. It returns
// the error as mean bits per prediction.
func (m *Model) RunInput(sequence []int) (float64, error) {
	if err := m.initialized(); err != nil {
		return 0, err
	}
	if err := m.checkSequence(sequence); err != nil {
		return 0, err
	}
	m.runs++

	steps := len(sequence) + 1
	if err := m.bindTo(steps); err != nil {
		return 0, err
	}
	for _, s := range m.initial {
		s.zeroDeltas()
	}

	var log2ppl, cost float64
	for position := -1; position < len(sequence); position++ {
		source := sourceToken(sequence, position)
		target := 0
		if position < len(sequence)-1 {
			target = sequence[position+1] + 1
		}

		out, err := m.equations[position+1].Run(autodiff.Context{InputRow: source})
		if err != nil {
			return 0, fmt.Errorf("time step %d: %w", position+1, err)
		}

		probs := matrix.Softmax(out)
		p := probs.Weights[target]
		log2ppl -= math.Log2(p)
		cost -= math.Log(p)

		// Softmax cross-entropy gradient.
		copy(out.Deltas, probs.Weights)
		out.Deltas[target]--
	}

	m.totalCost = cost
	return log2ppl / float64(steps), nil
}

// RunBackpropagate replays the Equations of sequence in reverse, after
// RunInput on the same sequence.
func (m *Model) RunBackpropagate(sequence []int) error {
	if err := m.initialized(); err != nil {
		return err
	}
	if len(sequence)+1 > len(m.equations) {
		return fmt.Errorf("%w: %d time steps bound, sequence needs %d", ErrUninitialized, len(m.equations), len(sequence)+1)
	}

	for position := len(sequence) - 1; position >= -1; position-- {
		ctx := autodiff.Context{InputRow: sourceToken(sequence, position)}
		if _, err := m.equations[position+1].RunBackpropagate(ctx); err != nil {
			return fmt.Errorf("time step %d: %w", position+1, err)
		}
	}
	return nil
}

// Step applies the accumulated gradients to the parameters and clears them.
func (m *Model) Step() error {
	if err := m.initialized(); err != nil {
		return err
	}
	if err := m.optimizer.Step(); err != nil {
		return err
	}
	if rms, ok := m.optimizer.(*optim.RMSProp); ok && m.logger.IsLevelEnabled(logrus.DebugLevel) {
		m.logger.WithField("ratio_clipped", rms.RatioClipped()).Debug("parameters updated")
	}
	return nil
}

// TrainPattern runs one forward, backward and update cycle on sequence and
// returns its error.
func (m *Model) TrainPattern(sequence []int) (float64, error) {
	errValue, err := m.RunInput(sequence)
	if err != nil {
		return 0, err
	}
	if err := m.RunBackpropagate(sequence); err != nil {
		return 0, err
	}
	if err := m.Step(); err != nil {
		return 0, err
	}
	return errValue, nil
}

// sourceToken is the embedding row fed at position: the sentinel before
// the sequence, token+1 inside it.
func sourceToken(sequence []int, position int) int {
	if position < 0 {
		return 0
	}
	return sequence[position] + 1
}
