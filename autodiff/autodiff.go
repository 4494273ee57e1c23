// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation over
// matrices.
//
// An Equation records operations as they are declared and can replay them
// any number of times: Run executes the forward kernels in recording order
// and RunBackpropagate the backward kernels in reverse, accumulating
// gradients into the Deltas of every operand. Per-replay values, such as the
// embedding row to pluck, come in through a Context.
//
// Example:
//
//	import (
//	    "github.com/born-ml/recurrent/autodiff"
//	    "github.com/born-ml/recurrent/matrix"
//	)
//
//	func main() {
//	    src := matrix.NewSource(1)
//	    embedding := matrix.NewRandom(10, 4, matrix.DefaultStd, src)
//	    weight := matrix.NewRandom(3, 4, matrix.DefaultStd, src)
//
//	    eq := autodiff.NewEquation()
//	    x := eq.InputMatrixToRow(embedding)
//	    out := eq.Tanh(eq.Multiply(weight, x))
//	    if err := eq.Err(); err != nil {
//	        return
//	    }
//
//	    eq.Run(autodiff.Context{InputRow: 2})
//	    out.Deltas[0] = 1
//	    eq.RunBackpropagate(autodiff.Context{InputRow: 2})
//	}
package autodiff

import "github.com/born-ml/recurrent/internal/autodiff"

// Equation is a replayable tape of matrix operations.
type Equation = autodiff.Equation

// Context carries the per-replay inputs of an Equation.
type Context = autodiff.Context

// ErrEmptyEquation is returned when replaying an equation with no steps.
var ErrEmptyEquation = autodiff.ErrEmptyEquation

// NewEquation creates an empty Equation.
func NewEquation() *Equation {
	return autodiff.NewEquation()
}
