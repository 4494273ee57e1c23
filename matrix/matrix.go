// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package matrix provides the dense float64 matrices the recurrent models
// are built from.
//
// A Matrix stores its values row-major in Weights and the matching
// gradients in Deltas. Random matrices draw from an explicit Source, so
// two matrices built from sources with the same seed are equal.
//
// Example:
//
//	import "github.com/born-ml/recurrent/matrix"
//
//	src := matrix.NewSource(1)
//	w := matrix.NewRandom(20, 10, matrix.DefaultStd, src)
//	v, err := w.Get(3, 4)
package matrix

import (
	"github.com/born-ml/recurrent/internal/matrix"
	"github.com/born-ml/recurrent/internal/random"
)

// Matrix is a dense row-major matrix with a gradient per weight.
type Matrix = matrix.Matrix

// Source is a seeded pseudo-random generator.
type Source = random.Source

// DefaultStd is the spread of freshly initialized weights.
const DefaultStd = matrix.DefaultStd

// Errors returned by matrix operations.
var (
	ErrShapeMismatch   = matrix.ErrShapeMismatch
	ErrIndexOutOfRange = matrix.ErrIndexOutOfRange
)

// New creates a zero matrix.
func New(rows, columns int) *Matrix {
	return matrix.New(rows, columns)
}

// FromRows creates a matrix from rows of weights and, optionally, rows of
// deltas.
func FromRows(weights, deltas [][]float64) (*Matrix, error) {
	return matrix.FromRows(weights, deltas)
}

// NewRandom creates a matrix of weights drawn uniformly from [-std, std).
func NewRandom(rows, columns int, std float64, src *Source) *Matrix {
	return matrix.NewRandom(rows, columns, std, src)
}

// NewSource creates a Source seeded with seed.
func NewSource(seed int64) *Source {
	return random.New(seed)
}

// Softmax returns the softmax of m's weights.
func Softmax(m *Matrix) *Matrix {
	return matrix.Softmax(m)
}

// ArgMax returns the index of the largest weight, -1 when m is empty.
func ArgMax(m *Matrix) int {
	return matrix.ArgMax(m)
}

// SampleIndex draws an index with probability proportional to m's weights.
func SampleIndex(m *Matrix, src *Source) (int, error) {
	return matrix.SampleIndex(m, src)
}
