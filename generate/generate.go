// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package generate provides token generation for the recurrent models.
//
// Components:
//   - Sampler: greedy, temperature, top-k, top-p, min-p and penalties
//   - Generator: feeds a prompt through a Stepper, then feeds back its own
//     predictions until a stop token or the token limit
//
// Example usage:
//
//	import "github.com/born-ml/recurrent/generate"
//
//	config := generate.SamplingConfig{
//	    Temperature: 0.7,
//	    TopK:        5,
//	    Seed:        42,
//	}
//	sampler := generate.NewSampler(config)
//	token, err := sampler.Sample(logits, previousTokens)
package generate

import (
	"github.com/born-ml/recurrent/internal/generate"
	"github.com/born-ml/recurrent/internal/random"
)

// SamplingConfig configures the sampling strategy.
type SamplingConfig = generate.SamplingConfig

// Sampler picks the next token from logits.
type Sampler = generate.Sampler

// GenerateConfig configures generation.
//
//nolint:revive // GenerateConfig is clearer than Config
type GenerateConfig = generate.GenerateConfig

// GenerateResult is one streamed generation result.
//
//nolint:revive // GenerateResult is clearer than Result
type GenerateResult = generate.GenerateResult

// Stepper is a model that advances one position at a time.
type Stepper = generate.Stepper

// Generator runs the autoregressive loop of a Stepper.
type Generator = generate.Generator

// Stop reasons reported in GenerateResult.
const (
	ReasonStopToken = generate.ReasonStopToken
	ReasonMaxTokens = generate.ReasonMaxTokens
)

// ErrEmptyPrompt is returned when generation starts without a prompt.
var ErrEmptyPrompt = generate.ErrEmptyPrompt

// DefaultSamplingConfig returns greedy decoding.
func DefaultSamplingConfig() SamplingConfig {
	return generate.DefaultSamplingConfig()
}

// NewSampler creates a sampler seeded from config.Seed.
func NewSampler(config SamplingConfig) *Sampler {
	return generate.NewSampler(config)
}

// NewSamplerWithSource creates a sampler drawing from src.
func NewSamplerWithSource(config SamplingConfig, src *random.Source) *Sampler {
	return generate.NewSamplerWithSource(config, src)
}

// DefaultGenerateConfig returns the default generation limits.
func DefaultGenerateConfig() GenerateConfig {
	return generate.DefaultGenerateConfig()
}

// NewGenerator creates a generator over model, choosing tokens with sampler.
func NewGenerator(model Stepper, sampler *Sampler) *Generator {
	return generate.NewGenerator(model, sampler)
}
