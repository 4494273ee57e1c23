package optim

import (
	"fmt"
	"math"

	"github.com/born-ml/recurrent/internal/matrix"
)

// RMSProp implements RMSProp with gradient clipping and L2 regularization.
//
// Update rule, per weight:
//
//	cache = decay * cache + (1-decay) * grad²
//	grad  = clip(grad, -clipVal, clipVal)
//	w    += -lr * grad / sqrt(cache + eps) - regc * w
//
// A negative ClipVal disables clipping and a negative Regc disables L2
// regularization. The cache is fed the unclipped gradient. The share of clipped gradients in
// the last step is kept as a diagnostic (RatioClipped); it never changes
// the update.
type RMSProp struct {
	params       []*matrix.Matrix
	lr           float64
	decayRate    float64
	smoothEps    float64
	regc         float64
	clipVal      float64
	cache        [][]float64
	ratioClipped float64
	steps        int
}

// RMSPropConfig holds configuration for the RMSProp optimizer.
type RMSPropConfig struct {
	LR        float64 `yaml:"learning_rate" json:"learningRate"` // Learning rate (default: 0.01)
	DecayRate float64 `yaml:"decay_rate" json:"decayRate"`       // Cache decay (default: 0.999)
	SmoothEps float64 `yaml:"smooth_eps" json:"smoothEps"`       // Term for numerical stability (default: 1e-8)
	Regc      float64 `yaml:"regc" json:"regc"`                  // L2 regularization strength (default: 1e-6; < 0: none)
	ClipVal   float64 `yaml:"clipval" json:"clipval"`            // Gradient clipping bound (default: 5; < 0: none)
}

// DefaultRMSPropConfig returns the default hyperparameters.
func DefaultRMSPropConfig() RMSPropConfig {
	return RMSPropConfig{
		LR:        0.01,
		DecayRate: 0.999,
		SmoothEps: 1e-8,
		Regc:      1e-6,
		ClipVal:   5,
	}
}

// NewRMSProp creates a new RMSProp optimizer over params.
//
// Zero-valued fields of config take their defaults (see DefaultRMSPropConfig).
func NewRMSProp(params []*matrix.Matrix, config RMSPropConfig) *RMSProp {
	defaults := DefaultRMSPropConfig()
	if config.LR == 0 {
		config.LR = defaults.LR
	}
	if config.DecayRate == 0 {
		config.DecayRate = defaults.DecayRate
	}
	if config.SmoothEps == 0 {
		config.SmoothEps = defaults.SmoothEps
	}
	if config.Regc == 0 {
		config.Regc = defaults.Regc
	}
	if config.ClipVal == 0 {
		config.ClipVal = defaults.ClipVal
	}
	if config.Regc < 0 {
		config.Regc = 0
	}
	if config.ClipVal < 0 {
		config.ClipVal = math.Inf(1)
	}

	return &RMSProp{
		params:    params,
		lr:        config.LR,
		decayRate: config.DecayRate,
		smoothEps: config.SmoothEps,
		regc:      config.Regc,
		clipVal:   config.ClipVal,
	}
}

// Step updates every parameter from its deltas, then zeroes the deltas.
func (r *RMSProp) Step() error {
	cache, err := stateFor(r.cache, r.params)
	if err != nil {
		return err
	}
	r.cache = cache

	clipped, total := 0, 0
	for i, p := range r.params {
		c := r.cache[i]
		for j, g := range p.Deltas {
			c[j] = c[j]*r.decayRate + (1-r.decayRate)*g*g

			switch {
			case g > r.clipVal:
				g = r.clipVal
				clipped++
			case g < -r.clipVal:
				g = -r.clipVal
				clipped++
			}
			total++

			p.Weights[j] += -r.lr*g/math.Sqrt(c[j]+r.smoothEps) - r.regc*p.Weights[j]
			p.Deltas[j] = 0
		}
	}

	r.ratioClipped = 0
	if total > 0 {
		r.ratioClipped = float64(clipped) / float64(total)
	}
	r.steps++
	return nil
}

// ZeroGrad clears gradients for all parameters.
func (r *RMSProp) ZeroGrad() {
	zeroGrad(r.params)
}

// GetLR returns the current learning rate.
func (r *RMSProp) GetLR() float64 {
	return r.lr
}

// SetLR updates the learning rate.
func (r *RMSProp) SetLR(lr float64) {
	r.lr = lr
}

// RatioClipped returns the fraction of gradients clipped by the last Step.
func (r *RMSProp) RatioClipped() float64 {
	return r.ratioClipped
}

// Steps returns the number of completed steps.
func (r *RMSProp) Steps() int {
	return r.steps
}

// StateDict returns the optimizer state for serialization.
//
// State keys: "cache.{param_index}" -> gradient-variance cache shaped like
// the parameter. Before the first Step the map is empty.
func (r *RMSProp) StateDict() map[string]*matrix.Matrix {
	state := make(map[string]*matrix.Matrix, len(r.cache))
	for i, c := range r.cache {
		p := r.params[i]
		m := matrix.New(p.Rows, p.Columns)
		copy(m.Weights, c)
		state[fmt.Sprintf("cache.%d", i)] = m
	}
	return state
}

// LoadStateDict restores state produced by StateDict. Every parameter must
// have a cache entry of matching size.
func (r *RMSProp) LoadStateDict(state map[string]*matrix.Matrix) error {
	cache := make([][]float64, len(r.params))
	for i, p := range r.params {
		key := fmt.Sprintf("cache.%d", i)
		m, ok := state[key]
		if !ok {
			return fmt.Errorf("missing optimizer state %q", key)
		}
		if m.Len() != p.Len() {
			return fmt.Errorf("%w: optimizer state %q is %v, parameter is %v", matrix.ErrShapeMismatch, key, m, p)
		}
		cache[i] = append([]float64(nil), m.Weights...)
	}
	r.cache = cache
	return nil
}
