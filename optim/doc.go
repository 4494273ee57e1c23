// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the parameter update rules for training the
// recurrent models.
//
// # Overview
//
// This package contains:
//   - RMSProp: per-weight adaptive step with gradient clipping and L2 decay
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Optimizer interface for custom optimizers
//
// An optimizer reads the gradients accumulated in the Deltas of its
// parameters, updates their Weights in place and zeroes the Deltas.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/recurrent/optim"
//	    "github.com/born-ml/recurrent/recurrent"
//	)
//
//	func main() {
//	    model, _ := recurrent.NewRNN(recurrent.DefaultOptions(), nil)
//	    optimizer := optim.NewRMSProp(model.Params(), optim.RMSPropConfig{
//	        LR:      0.01,
//	        ClipVal: 5,
//	    })
//
//	    for range 100 {
//	        model.RunInput(sequence)
//	        model.RunBackpropagate(sequence)
//	        optimizer.Step()
//	    }
//	}
//
// Models select their optimizer through recurrent.Options.Optimizer, so
// most programs never construct one directly.
package optim
