package recurrent

import (
	"errors"
	"fmt"
	"time"

	"github.com/born-ml/recurrent/internal/generate"
	"github.com/born-ml/recurrent/internal/optim"
)

// CellType selects the recurrent cell.
type CellType string

// Supported cells.
const (
	CellRNN  CellType = "rnn"
	CellLSTM CellType = "lstm"
)

var (
	// ErrUninitialized is returned when a model is used before its sizes
	// are known and its parameters built.
	ErrUninitialized = errors.New("model is not initialized")

	// ErrDivergence is returned when the training error stops being finite.
	ErrDivergence = errors.New("training error is not finite")

	// ErrInvalidOptions is returned for out-of-range options.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrEmptyDataset is returned when training gets no sequences.
	ErrEmptyDataset = errors.New("no training data")
)

// Options configures a sequence model.
//
// Zero-valued fields take their defaults (see DefaultOptions), so Seed 0
// means seed 1. A negative Regc turns L2 regularization off and a negative
// ClipVal turns gradient clipping off.
type Options struct {
	Type        CellType `yaml:"type" json:"type"`
	InputSize   int      `yaml:"input_size" json:"inputSize"`     // Width of the embedding rows
	InputRange  int      `yaml:"input_range" json:"inputRange"`   // Number of distinct input tokens
	HiddenSizes []int    `yaml:"hidden_sizes" json:"hiddenSizes"` // Width of each hidden layer
	OutputSize  int      `yaml:"output_size" json:"outputSize"`   // Number of distinct output tokens; at most InputRange

	LearningRate float64 `yaml:"learning_rate" json:"learningRate"`
	DecayRate    float64 `yaml:"decay_rate" json:"decayRate"`
	SmoothEps    float64 `yaml:"smooth_eps" json:"smoothEps"`
	Regc         float64 `yaml:"regc" json:"regc"`
	ClipVal      float64 `yaml:"clipval" json:"clipval"`

	// Optimizer is "rmsprop" (default), "sgd" or "adam".
	Optimizer string  `yaml:"optimizer" json:"optimizer,omitempty"`
	Momentum  float64 `yaml:"momentum" json:"momentum,omitempty"`

	// MaxPredictionLength caps generated tokens when Run gets no maximum.
	MaxPredictionLength int `yaml:"max_prediction_length" json:"maxPredictionLength"`

	// Seed drives parameter initialization and, unless the sampling
	// configuration brings its own seed, sampling.
	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultOptions returns the default model options.
func DefaultOptions() Options {
	rms := optim.DefaultRMSPropConfig()
	return Options{
		Type:                CellRNN,
		InputSize:           20,
		InputRange:          20,
		HiddenSizes:         []int{20, 20},
		OutputSize:          20,
		LearningRate:        rms.LR,
		DecayRate:           rms.DecayRate,
		SmoothEps:           rms.SmoothEps,
		Regc:                rms.Regc,
		ClipVal:             rms.ClipVal,
		MaxPredictionLength: 100,
		Seed:                1,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Type == "" {
		o.Type = d.Type
	}
	if o.InputSize == 0 {
		o.InputSize = d.InputSize
	}
	if o.InputRange == 0 {
		o.InputRange = d.InputRange
	}
	if len(o.HiddenSizes) == 0 {
		o.HiddenSizes = d.HiddenSizes
	} else {
		o.HiddenSizes = append([]int(nil), o.HiddenSizes...)
	}
	if o.OutputSize == 0 {
		o.OutputSize = d.OutputSize
	}
	if o.LearningRate == 0 {
		o.LearningRate = d.LearningRate
	}
	if o.DecayRate == 0 {
		o.DecayRate = d.DecayRate
	}
	if o.SmoothEps == 0 {
		o.SmoothEps = d.SmoothEps
	}
	if o.Regc == 0 {
		o.Regc = d.Regc
	}
	if o.ClipVal == 0 {
		o.ClipVal = d.ClipVal
	}
	if o.MaxPredictionLength == 0 {
		o.MaxPredictionLength = d.MaxPredictionLength
	}
	if o.Seed == 0 {
		o.Seed = d.Seed
	}
	return o
}

// Validate checks the options after defaults are applied.
func (o Options) Validate() error {
	if o.Type != CellRNN && o.Type != CellLSTM {
		return fmt.Errorf("%w: unknown cell type %q", ErrInvalidOptions, o.Type)
	}
	if o.InputSize < 1 || o.InputRange < 1 || o.OutputSize < 1 {
		return fmt.Errorf("%w: sizes must be positive (input %d, range %d, output %d)",
			ErrInvalidOptions, o.InputSize, o.InputRange, o.OutputSize)
	}
	if o.OutputSize > o.InputRange {
		// Predictions are fed back as inputs during Run.
		return fmt.Errorf("%w: output size %d exceeds input range %d",
			ErrInvalidOptions, o.OutputSize, o.InputRange)
	}
	for i, size := range o.HiddenSizes {
		if size < 1 {
			return fmt.Errorf("%w: hidden layer %d has size %d", ErrInvalidOptions, i, size)
		}
	}
	if o.LearningRate < 0 || o.SmoothEps < 0 {
		return fmt.Errorf("%w: negative learning hyperparameter", ErrInvalidOptions)
	}
	if o.DecayRate < 0 || o.DecayRate >= 1 {
		return fmt.Errorf("%w: decay rate %g outside [0, 1)", ErrInvalidOptions, o.DecayRate)
	}
	if o.MaxPredictionLength < 0 {
		return fmt.Errorf("%w: max prediction length %d", ErrInvalidOptions, o.MaxPredictionLength)
	}
	return nil
}

func (o Options) rmsprop() optim.RMSPropConfig {
	return optim.RMSPropConfig{
		LR:        o.LearningRate,
		DecayRate: o.DecayRate,
		SmoothEps: o.SmoothEps,
		Regc:      o.Regc,
		ClipVal:   o.ClipVal,
	}
}

// TrainStatus is reported to TrainOptions.Callback and returned by Train.
type TrainStatus struct {
	Error      float64 `json:"error"`      // Mean bits per prediction over the dataset
	Iterations int     `json:"iterations"` // Completed passes over the dataset
}

// TrainOptions configures Train.
//
// Zero-valued fields take their defaults (see DefaultTrainOptions).
type TrainOptions struct {
	Iterations     int               `yaml:"iterations" json:"iterations"`
	ErrorThresh    float64           `yaml:"error_thresh" json:"errorThresh"`
	Log            bool              `yaml:"log" json:"log"`
	LogPeriod      int               `yaml:"log_period" json:"logPeriod"`
	LearningRate   float64           `yaml:"learning_rate" json:"learningRate"` // Overrides the model's rate when set
	Callback       func(TrainStatus) `yaml:"-" json:"-"`
	CallbackPeriod int               `yaml:"callback_period" json:"callbackPeriod"`
	Timeout        time.Duration     `yaml:"timeout" json:"timeout"` // Stops training once elapsed; 0 = none
	Reinitialize   bool              `yaml:"reinitialize" json:"reinitialize"`
}

// DefaultTrainOptions returns the default training options.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Iterations:     20000,
		ErrorThresh:    0.005,
		LogPeriod:      10,
		CallbackPeriod: 10,
	}
}

func (o TrainOptions) withDefaults() TrainOptions {
	d := DefaultTrainOptions()
	if o.Iterations == 0 {
		o.Iterations = d.Iterations
	}
	if o.ErrorThresh == 0 {
		o.ErrorThresh = d.ErrorThresh
	}
	if o.LogPeriod == 0 {
		o.LogPeriod = d.LogPeriod
	}
	if o.CallbackPeriod == 0 {
		o.CallbackPeriod = d.CallbackPeriod
	}
	return o
}

// Validate checks the options after defaults are applied.
func (o TrainOptions) Validate() error {
	switch {
	case o.Iterations < 1:
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidOptions, o.Iterations)
	case o.ErrorThresh <= 0 || o.ErrorThresh >= 1:
		return fmt.Errorf("%w: error threshold must be in (0, 1), got %g", ErrInvalidOptions, o.ErrorThresh)
	case o.LogPeriod < 1:
		return fmt.Errorf("%w: log period must be positive, got %d", ErrInvalidOptions, o.LogPeriod)
	case o.CallbackPeriod < 1:
		return fmt.Errorf("%w: callback period must be positive, got %d", ErrInvalidOptions, o.CallbackPeriod)
	case o.Timeout < 0:
		return fmt.Errorf("%w: negative timeout %s", ErrInvalidOptions, o.Timeout)
	case o.LearningRate < 0:
		return fmt.Errorf("%w: negative learning rate %g", ErrInvalidOptions, o.LearningRate)
	}
	return nil
}

// RunOptions configures inference.
type RunOptions struct {
	// MaxLength caps generated tokens; 0 uses Options.MaxPredictionLength.
	MaxLength int

	// Sample draws from the distribution instead of taking the argmax.
	Sample bool

	// Temperature divides the logits before sampling; 0 means 1.
	Temperature float64

	// Sampling overrides Sample and Temperature with a full configuration.
	Sampling *generate.SamplingConfig
}

func (o RunOptions) sampling() generate.SamplingConfig {
	if o.Sampling != nil {
		return *o.Sampling
	}
	cfg := generate.DefaultSamplingConfig()
	if o.Sample {
		cfg.Temperature = o.Temperature
		if cfg.Temperature <= 0 {
			cfg.Temperature = 1
		}
	}
	return cfg
}
