// Package generate provides autoregressive generation for the recurrent
// models.
//
// This package implements sampling strategies over next-token logits and the
// generation loop that feeds a prompt through a model and then feeds back the
// model's own predictions.
package generate

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/recurrent/internal/matrix"
	"github.com/born-ml/recurrent/internal/random"
)

// SamplingConfig configures the sampling strategy.
type SamplingConfig struct {
	// Temperature controls randomness. 0 = greedy, 1 = normal, >1 = more random.
	Temperature float64 `yaml:"temperature" json:"temperature"`

	// TopK limits sampling to top K tokens. 0 = disabled.
	TopK int `yaml:"top_k" json:"topK"`

	// TopP (nucleus sampling) limits to tokens with cumulative prob < P. 0 or 1 = disabled.
	TopP float64 `yaml:"top_p" json:"topP"`

	// MinP filters tokens with prob < max_prob * MinP. 0 = disabled.
	MinP float64 `yaml:"min_p" json:"minP"`

	// Repetition control
	RepeatPenalty    float64 `yaml:"repeat_penalty" json:"repeatPenalty"`       // Penalty for repeated tokens. 0 or 1 = no penalty.
	FrequencyPenalty float64 `yaml:"frequency_penalty" json:"frequencyPenalty"` // Penalty based on frequency. 0 = disabled.
	PresencePenalty  float64 `yaml:"presence_penalty" json:"presencePenalty"`   // Penalty for presence. 0 = disabled.
	RepeatWindow     int     `yaml:"repeat_window" json:"repeatWindow"`         // Number of tokens to consider. 0 = all.

	// Seed for reproducibility. -1 = random.
	Seed int64 `yaml:"seed" json:"seed"`
}

// DefaultSamplingConfig returns greedy decoding.
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Temperature:   0,
		TopP:          1.0,
		RepeatPenalty: 1.0,
		RepeatWindow:  64,
		Seed:          -1,
	}
}

// Sampler picks the next token from logits using configurable strategies.
// A Sampler is not safe for concurrent use.
type Sampler struct {
	config SamplingConfig
	src    *random.Source
}

// NewSampler creates a new sampler drawing from a Source seeded with
// config.Seed, or from a randomly seeded one when Seed is negative.
func NewSampler(config SamplingConfig) *Sampler {
	seed := config.Seed
	if seed < 0 {
		seed = rand.Int63() //nolint:gosec // User requested random seed
	}
	return NewSamplerWithSource(config, random.New(seed))
}

// NewSamplerWithSource creates a sampler drawing from src.
func NewSamplerWithSource(config SamplingConfig, src *random.Source) *Sampler {
	return &Sampler{
		config: config,
		src:    src,
	}
}

// Config returns the sampler configuration.
func (s *Sampler) Config() SamplingConfig {
	return s.config
}

// Sample returns the next token index from a logits column.
//
// The sampling process:
//  1. Apply repetition, frequency and presence penalties
//  2. Greedy argmax if temperature is 0
//  3. Apply temperature scaling
//  4. Apply Top-K, Top-P and Min-P filtering
//  5. Softmax and cumulative-sum draw
func (s *Sampler) Sample(logits *matrix.Matrix, previousTokens []int) (int, error) {
	if logits == nil || logits.Len() == 0 {
		return 0, fmt.Errorf("%w: no logits to sample from", matrix.ErrShapeMismatch)
	}

	// Make a copy to avoid modifying the model output
	work := matrix.New(logits.Rows, logits.Columns)
	copy(work.Weights, logits.Weights)
	values := work.Weights

	if s.config.RepeatPenalty != 0 && s.config.RepeatPenalty != 1.0 && len(previousTokens) > 0 {
		s.applyRepetitionPenalty(values, previousTokens)
	}
	if s.config.FrequencyPenalty != 0 || s.config.PresencePenalty != 0 {
		s.applyFrequencyPenalty(values, previousTokens)
	}

	if s.config.Temperature <= 0 {
		return matrix.ArgMax(work), nil
	}
	if s.config.Temperature != 1.0 {
		floats.Scale(1/s.config.Temperature, values)
	}

	if s.config.TopK > 0 && s.config.TopK < len(values) {
		s.topKFilter(values)
	}
	if s.config.TopP > 0 && s.config.TopP < 1.0 {
		s.topPFilter(values)
	}
	if s.config.MinP > 0 {
		s.minPFilter(values)
	}

	return matrix.SampleIndex(matrix.Softmax(work), s.src)
}

func recentTokens(prev []int, window int) []int {
	if window > 0 && len(prev) > window {
		return prev[len(prev)-window:]
	}
	return prev
}

// applyRepetitionPenalty penalizes tokens that appeared recently.
func (s *Sampler) applyRepetitionPenalty(logits []float64, prev []int) {
	penalty := s.config.RepeatPenalty

	seen := make(map[int]bool)
	for _, tok := range recentTokens(prev, s.config.RepeatWindow) {
		seen[tok] = true
	}

	for tok := range seen {
		if tok < 0 || tok >= len(logits) {
			continue
		}
		if logits[tok] > 0 {
			logits[tok] /= penalty
		} else {
			logits[tok] *= penalty
		}
	}
}

// applyFrequencyPenalty penalizes based on token frequency.
func (s *Sampler) applyFrequencyPenalty(logits []float64, prev []int) {
	freq := make(map[int]int)
	for _, tok := range recentTokens(prev, s.config.RepeatWindow) {
		freq[tok]++
	}

	for tok, count := range freq {
		if tok < 0 || tok >= len(logits) {
			continue
		}
		logits[tok] -= s.config.FrequencyPenalty * float64(count)
		logits[tok] -= s.config.PresencePenalty
	}
}

// topKFilter keeps only top K logits, sets rest to -inf.
func (s *Sampler) topKFilter(logits []float64) {
	sorted := append([]float64(nil), logits...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	threshold := sorted[s.config.TopK-1]

	for i := range logits {
		if logits[i] < threshold {
			logits[i] = math.Inf(-1)
		}
	}
}

// topPFilter implements nucleus sampling.
func (s *Sampler) topPFilter(logits []float64) {
	probs := softmax(logits)

	indices := make([]int, len(probs))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool { return probs[indices[i]] > probs[indices[j]] })

	cumSum := 0.0
	cutoff := len(indices) - 1
	for i, idx := range indices {
		cumSum += probs[idx]
		if cumSum > s.config.TopP {
			cutoff = i
			break
		}
	}

	keep := make(map[int]bool, cutoff+1)
	for _, idx := range indices[:cutoff+1] {
		keep[idx] = true
	}
	for i := range logits {
		if !keep[i] {
			logits[i] = math.Inf(-1)
		}
	}
}

// minPFilter keeps tokens with prob >= max_prob * minP.
func (s *Sampler) minPFilter(logits []float64) {
	probs := softmax(logits)
	threshold := floats.Max(probs) * s.config.MinP

	for i := range logits {
		if probs[i] < threshold {
			logits[i] = math.Inf(-1)
		}
	}
}

func softmax(logits []float64) []float64 {
	m := matrix.New(len(logits), 1)
	copy(m.Weights, logits)
	return matrix.Softmax(m).Weights
}
