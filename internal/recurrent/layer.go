package recurrent

import (
	"github.com/born-ml/recurrent/internal/autodiff"
	"github.com/born-ml/recurrent/internal/matrix"
	"github.com/born-ml/recurrent/internal/random"
)

// State is what one layer hands to itself at the next time step.
// Cell is nil for RNN layers.
type State struct {
	Hidden *matrix.Matrix
	Cell   *matrix.Matrix
}

func (s State) zeroDeltas() {
	if s.Hidden != nil {
		s.Hidden.ZeroDeltas()
	}
	if s.Cell != nil {
		s.Cell.ZeroDeltas()
	}
}

// NamedMatrix pairs a parameter with its snapshot name.
type NamedMatrix struct {
	Name   string
	Matrix *matrix.Matrix
}

// Layer is one hidden layer of a sequence model.
//
// Bind records the layer's computation for one time step into eq: input is
// the layer's input column (the embedding row for the first layer, the
// previous layer's hidden state otherwise) and prev its own state from the
// previous time step.
type Layer interface {
	Size() int
	Params() []*matrix.Matrix
	Named() []NamedMatrix
	Bind(eq *autodiff.Equation, input *matrix.Matrix, prev State) State
	InitialState() State
}

// RNNLayer computes relu(Weight·x + Transition·h + Bias).
type RNNLayer struct {
	Weight     *matrix.Matrix // hidden × input
	Transition *matrix.Matrix // hidden × hidden
	Bias       *matrix.Matrix // hidden × 1
}

// NewRNNLayer creates a layer with random weights and a zero bias.
func NewRNNLayer(hiddenSize, inputSize int, src *random.Source) *RNNLayer {
	return &RNNLayer{
		Weight:     matrix.NewRandom(hiddenSize, inputSize, matrix.DefaultStd, src),
		Transition: matrix.NewRandom(hiddenSize, hiddenSize, matrix.DefaultStd, src),
		Bias:       matrix.New(hiddenSize, 1),
	}
}

// Size returns the hidden width.
func (l *RNNLayer) Size() int { return l.Bias.Rows }

// Params returns the trainable matrices.
func (l *RNNLayer) Params() []*matrix.Matrix {
	return []*matrix.Matrix{l.Weight, l.Transition, l.Bias}
}

// Named returns the parameters with their snapshot names.
func (l *RNNLayer) Named() []NamedMatrix {
	return []NamedMatrix{
		{"weight", l.Weight},
		{"transition", l.Transition},
		{"bias", l.Bias},
	}
}

// InitialState returns a zero hidden state.
func (l *RNNLayer) InitialState() State {
	return State{Hidden: matrix.New(l.Size(), 1)}
}

// Bind records the layer for one time step.
func (l *RNNLayer) Bind(eq *autodiff.Equation, input *matrix.Matrix, prev State) State {
	return State{Hidden: eq.Relu(gate(eq, l.Weight, l.Transition, l.Bias, input, prev.Hidden))}
}

// LSTMLayer is a long short-term memory layer. Each gate has an input
// matrix (hidden × input), a hidden matrix (hidden × hidden) and a bias.
type LSTMLayer struct {
	InputMatrix, InputHidden, InputBias                            *matrix.Matrix
	ForgetMatrix, ForgetHidden, ForgetBias                         *matrix.Matrix
	OutputMatrix, OutputHidden, OutputBias                         *matrix.Matrix
	CellActivationMatrix, CellActivationHidden, CellActivationBias *matrix.Matrix
}

// NewLSTMLayer creates a layer with random weights and zero biases.
func NewLSTMLayer(hiddenSize, inputSize int, src *random.Source) *LSTMLayer {
	weights := func() (*matrix.Matrix, *matrix.Matrix, *matrix.Matrix) {
		return matrix.NewRandom(hiddenSize, inputSize, matrix.DefaultStd, src),
			matrix.NewRandom(hiddenSize, hiddenSize, matrix.DefaultStd, src),
			matrix.New(hiddenSize, 1)
	}

	l := &LSTMLayer{}
	l.InputMatrix, l.InputHidden, l.InputBias = weights()
	l.ForgetMatrix, l.ForgetHidden, l.ForgetBias = weights()
	l.OutputMatrix, l.OutputHidden, l.OutputBias = weights()
	l.CellActivationMatrix, l.CellActivationHidden, l.CellActivationBias = weights()
	return l
}

// Size returns the hidden width.
func (l *LSTMLayer) Size() int { return l.InputBias.Rows }

// Params returns the trainable matrices.
func (l *LSTMLayer) Params() []*matrix.Matrix {
	named := l.Named()
	params := make([]*matrix.Matrix, len(named))
	for i, n := range named {
		params[i] = n.Matrix
	}
	return params
}

// Named returns the parameters with their snapshot names.
func (l *LSTMLayer) Named() []NamedMatrix {
	return []NamedMatrix{
		{"inputMatrix", l.InputMatrix},
		{"inputHidden", l.InputHidden},
		{"inputBias", l.InputBias},
		{"forgetMatrix", l.ForgetMatrix},
		{"forgetHidden", l.ForgetHidden},
		{"forgetBias", l.ForgetBias},
		{"outputMatrix", l.OutputMatrix},
		{"outputHidden", l.OutputHidden},
		{"outputBias", l.OutputBias},
		{"cellActivationMatrix", l.CellActivationMatrix},
		{"cellActivationHidden", l.CellActivationHidden},
		{"cellActivationBias", l.CellActivationBias},
	}
}

// InitialState returns zero hidden and cell states.
func (l *LSTMLayer) InitialState() State {
	return State{
		Hidden: matrix.New(l.Size(), 1),
		Cell:   matrix.New(l.Size(), 1),
	}
}

// Bind records the layer for one time step:
//
//	i = σ(gate_i)   f = σ(gate_f)   o = σ(gate_o)   g = tanh(gate_c)
//	cell   = f⊙cell' + i⊙g
//	hidden = o⊙tanh(cell)
func (l *LSTMLayer) Bind(eq *autodiff.Equation, input *matrix.Matrix, prev State) State {
	inputGate := eq.Sigmoid(gate(eq, l.InputMatrix, l.InputHidden, l.InputBias, input, prev.Hidden))
	forgetGate := eq.Sigmoid(gate(eq, l.ForgetMatrix, l.ForgetHidden, l.ForgetBias, input, prev.Hidden))
	outputGate := eq.Sigmoid(gate(eq, l.OutputMatrix, l.OutputHidden, l.OutputBias, input, prev.Hidden))
	cellWrite := eq.Tanh(gate(eq, l.CellActivationMatrix, l.CellActivationHidden, l.CellActivationBias, input, prev.Hidden))

	retain := eq.MultiplyElement(forgetGate, prev.Cell)
	write := eq.MultiplyElement(inputGate, cellWrite)
	cell := eq.Add(retain, write)

	return State{
		Hidden: eq.MultiplyElement(outputGate, eq.Tanh(cell)),
		Cell:   cell,
	}
}

// gate records weight·x + transition·h + bias.
func gate(eq *autodiff.Equation, weight, transition, bias, x, h *matrix.Matrix) *matrix.Matrix {
	return eq.Add(eq.Add(eq.Multiply(weight, x), eq.Multiply(transition, h)), bias)
}

func newLayer(cell CellType, hiddenSize, inputSize int, src *random.Source) Layer {
	if cell == CellLSTM {
		return NewLSTMLayer(hiddenSize, inputSize, src)
	}
	return NewRNNLayer(hiddenSize, inputSize, src)
}
