// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package recurrent provides RNN and LSTM sequence models trained by
// backpropagation through time.
//
// A Model predicts the next integer token of a sequence. Token t enters as
// embedding row t+1 and is predicted as output index t+1; index 0 marks the
// start and the end of every sequence. Training replays one Equation per
// time step forward, seeds the softmax cross-entropy gradients, replays
// them backward and applies an RMSProp step.
//
// TextModel wraps a Model with a Segmenter and a Vocabulary to train on and
// generate strings.
//
// Example:
//
//	import (
//	    "context"
//
//	    "github.com/born-ml/recurrent/recurrent"
//	)
//
//	func main() {
//	    opts := recurrent.DefaultOptions()
//	    opts.Type = recurrent.CellLSTM
//	    model := recurrent.NewTextModel(opts, nil, nil)
//
//	    ctx := context.Background()
//	    _, err := model.Train(ctx, []string{"Jane saw Doug."}, recurrent.DefaultTrainOptions())
//	    if err != nil {
//	        panic(err)
//	    }
//	    out, _ := model.Run(ctx, "Jane", recurrent.RunOptions{})
//	    println(out)
//	}
package recurrent

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/recurrent/internal/random"
	"github.com/born-ml/recurrent/internal/recurrent"
	"github.com/born-ml/recurrent/internal/tokenizer"
)

// Model is a recurrent sequence model over integer tokens.
type Model = recurrent.Model

// Options configures a sequence model.
type Options = recurrent.Options

// TrainOptions configures Model.Train.
type TrainOptions = recurrent.TrainOptions

// TrainStatus is the error and iteration count of training.
type TrainStatus = recurrent.TrainStatus

// RunOptions configures inference.
type RunOptions = recurrent.RunOptions

// CellType selects the recurrent cell.
type CellType = recurrent.CellType

// Supported cells.
const (
	CellRNN  = recurrent.CellRNN
	CellLSTM = recurrent.CellLSTM
)

// Layer is one hidden layer of a sequence model.
type Layer = recurrent.Layer

// State is what one layer hands to itself at the next time step.
type State = recurrent.State

// NamedMatrix pairs a parameter with its snapshot name.
type NamedMatrix = recurrent.NamedMatrix

// RNNLayer computes relu(Weight·x + Transition·h + Bias).
type RNNLayer = recurrent.RNNLayer

// LSTMLayer is a long short-term memory layer.
type LSTMLayer = recurrent.LSTMLayer

// Snapshot is the JSON form of a model.
type Snapshot = recurrent.Snapshot

// TextModel trains and runs a Model over strings.
type TextModel = recurrent.TextModel

// Pair is an input/output training example.
type Pair = recurrent.Pair

// TextResult is one streamed piece of generated text.
type TextResult = recurrent.TextResult

// Errors returned by models.
var (
	ErrUninitialized  = recurrent.ErrUninitialized
	ErrDivergence     = recurrent.ErrDivergence
	ErrInvalidOptions = recurrent.ErrInvalidOptions
	ErrEmptyDataset   = recurrent.ErrEmptyDataset
)

// DefaultOptions returns the default model options.
func DefaultOptions() Options {
	return recurrent.DefaultOptions()
}

// DefaultTrainOptions returns the default training options.
func DefaultTrainOptions() TrainOptions {
	return recurrent.DefaultTrainOptions()
}

// NewModel creates and initializes a model. A nil logger selects the
// logrus standard logger.
func NewModel(options Options, logger *logrus.Logger) (*Model, error) {
	return recurrent.NewModel(options, logger)
}

// NewRNN creates a model of relu RNN layers.
func NewRNN(options Options, logger *logrus.Logger) (*Model, error) {
	return recurrent.NewRNN(options, logger)
}

// NewLSTM creates a model of LSTM layers.
func NewLSTM(options Options, logger *logrus.Logger) (*Model, error) {
	return recurrent.NewLSTM(options, logger)
}

// NewRNNLayer creates an RNN layer with random weights.
func NewRNNLayer(hiddenSize, inputSize int, src *random.Source) *RNNLayer {
	return recurrent.NewRNNLayer(hiddenSize, inputSize, src)
}

// NewLSTMLayer creates an LSTM layer with random weights.
func NewLSTMLayer(hiddenSize, inputSize int, src *random.Source) *LSTMLayer {
	return recurrent.NewLSTMLayer(hiddenSize, inputSize, src)
}

// Perplexity converts an error in bits per prediction to perplexity.
func Perplexity(bits float64) float64 {
	return recurrent.Perplexity(bits)
}

// FromSnapshot rebuilds a model from s.
func FromSnapshot(s *Snapshot, logger *logrus.Logger) (*Model, error) {
	return recurrent.FromSnapshot(s, logger)
}

// FromJSON rebuilds a model from the output of Model.MarshalJSON.
func FromJSON(data []byte, logger *logrus.Logger) (*Model, error) {
	return recurrent.FromJSON(data, logger)
}

// Load reads a model written by Model.Save.
func Load(r io.Reader, logger *logrus.Logger) (*Model, error) {
	return recurrent.Load(r, logger)
}

// LoadFile reads a model written by Model.SaveFile.
func LoadFile(path string, logger *logrus.Logger) (*Model, error) {
	return recurrent.LoadFile(path, logger)
}

// NewTextModel creates an untrained text model. A nil segmenter splits
// text into runes.
func NewTextModel(options Options, segmenter tokenizer.Segmenter, logger *logrus.Logger) *TextModel {
	return recurrent.NewTextModel(options, segmenter, logger)
}

// TextFromJSON rebuilds a TextModel from the output of
// TextModel.MarshalJSON.
func TextFromJSON(data []byte, logger *logrus.Logger) (*TextModel, error) {
	return recurrent.TextFromJSON(data, logger)
}

// LoadText reads a TextModel written by TextModel.Save.
func LoadText(r io.Reader, logger *logrus.Logger) (*TextModel, error) {
	return recurrent.LoadText(r, logger)
}

// LoadTextFile reads a TextModel written by TextModel.SaveFile.
func LoadTextFile(path string, logger *logrus.Logger) (*TextModel, error) {
	return recurrent.LoadTextFile(path, logger)
}
