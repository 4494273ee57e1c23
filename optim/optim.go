// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/recurrent/internal/matrix"
	"github.com/born-ml/recurrent/internal/optim"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Config selects and configures an optimizer by name.
type Config = optim.Config

// ErrUnknownOptimizer is returned by New for an unsupported name.
var ErrUnknownOptimizer = optim.ErrUnknownOptimizer

// New creates the optimizer named by cfg.Name ("rmsprop", "sgd" or "adam").
func New(params []*matrix.Matrix, cfg Config, rms RMSPropConfig) (Optimizer, error) {
	return optim.New(params, cfg, rms)
}

// RMSProp

// RMSProp scales each step by a running average of squared gradients.
type RMSProp = optim.RMSProp

// RMSPropConfig contains configuration for the RMSProp optimizer.
type RMSPropConfig = optim.RMSPropConfig

// DefaultRMSPropConfig returns the default RMSProp hyperparameters.
func DefaultRMSPropConfig() RMSPropConfig {
	return optim.DefaultRMSPropConfig()
}

// NewRMSProp creates a new RMSProp optimizer.
//
// Example:
//
//	optimizer := optim.NewRMSProp(model.Params(), optim.RMSPropConfig{
//	    LR:        0.01,
//	    DecayRate: 0.999,
//	    ClipVal:   5,
//	})
func NewRMSProp(params []*matrix.Matrix, config RMSPropConfig) *RMSProp {
	return optim.NewRMSProp(params, config)
}

// SGD (Stochastic Gradient Descent)

// SGD represents the SGD optimizer with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
func NewSGD(params []*matrix.Matrix, config SGDConfig) *SGD {
	return optim.NewSGD(params, config)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer.
func NewAdam(params []*matrix.Matrix, config AdamConfig) *Adam {
	return optim.NewAdam(params, config)
}
