// Package optim implements the parameter update rules used to train the
// recurrent networks.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - RMSProp: per-weight adaptive step with gradient clipping and L2 decay
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//
// Optimizers own no parameters. They hold references to the model's
// matrices, read the gradients accumulated in their Deltas, update the
// Weights in place and reset the Deltas for the next forward/backward cycle.
//
// Example usage:
//
//	optimizer := optim.NewRMSProp(model.Params(), optim.RMSPropConfig{
//	    LR: 0.01,
//	})
//
//	for range iterations {
//	    model.RunInput(sequence)
//	    model.RunBackpropagate(sequence)
//	    if err := optimizer.Step(); err != nil {
//	        return err
//	    }
//	}
package optim

import (
	"errors"
	"fmt"

	"github.com/born-ml/recurrent/internal/matrix"
)

// ErrUnknownOptimizer is returned by New for an unsupported name.
var ErrUnknownOptimizer = errors.New("unknown optimizer")

// Optimizer is the base interface for all optimization algorithms.
//
// All optimizers must implement:
//   - Step: Apply gradient updates to parameters and clear their deltas
//   - ZeroGrad: Clear gradients without updating
//   - GetLR/SetLR: Read or change the learning rate
type Optimizer interface {
	// Step applies one update to every parameter using its Deltas as the
	// gradient, then zeroes the Deltas.
	Step() error

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float64

	// SetLR updates the learning rate.
	SetLR(lr float64)
}

// Config selects and configures an optimizer by name.
type Config struct {
	Name     string  `yaml:"name" json:"name"`         // "rmsprop" (default), "sgd" or "adam"
	LR       float64 `yaml:"lr" json:"lr"`             // Learning rate
	Momentum float64 `yaml:"momentum" json:"momentum"` // SGD only
}

// New creates the optimizer named by cfg.Name over params. The RMSProp
// hyperparameters other than the learning rate come from rms.
func New(params []*matrix.Matrix, cfg Config, rms RMSPropConfig) (Optimizer, error) {
	switch cfg.Name {
	case "", "rmsprop":
		if cfg.LR != 0 {
			rms.LR = cfg.LR
		}
		return NewRMSProp(params, rms), nil
	case "sgd":
		return NewSGD(params, SGDConfig{LR: cfg.LR, Momentum: cfg.Momentum}), nil
	case "adam":
		return NewAdam(params, AdamConfig{LR: cfg.LR}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOptimizer, cfg.Name)
	}
}

func zeroGrad(params []*matrix.Matrix) {
	for _, p := range params {
		p.ZeroDeltas()
	}
}

// stateFor returns the per-parameter state slices, allocating them on first
// use. State is matched to parameters by position.
func stateFor(state [][]float64, params []*matrix.Matrix) ([][]float64, error) {
	if state == nil {
		state = make([][]float64, len(params))
		for i, p := range params {
			state[i] = make([]float64, p.Len())
		}
		return state, nil
	}
	if len(state) != len(params) {
		return nil, fmt.Errorf("%w: optimizer tracks %d parameters, got %d", matrix.ErrShapeMismatch, len(state), len(params))
	}
	for i, p := range params {
		if len(state[i]) != p.Len() {
			return nil, fmt.Errorf("%w: parameter %d is %v, optimizer state has %d values", matrix.ErrShapeMismatch, i, p, len(state[i]))
		}
	}
	return state, nil
}
