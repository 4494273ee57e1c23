package optim

import "github.com/born-ml/recurrent/internal/matrix"

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD struct {
	params     []*matrix.Matrix
	lr         float64
	momentum   float64
	velocities [][]float64
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
func NewSGD(params []*matrix.Matrix, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD{
		params:   params,
		lr:       config.LR,
		momentum: config.Momentum,
	}
}

// Step performs a single optimization step and zeroes the deltas.
func (s *SGD) Step() error {
	if s.momentum != 0 {
		v, err := stateFor(s.velocities, s.params)
		if err != nil {
			return err
		}
		s.velocities = v
	}

	for i, p := range s.params {
		for j, g := range p.Deltas {
			if s.momentum != 0 {
				s.velocities[i][j] = s.momentum*s.velocities[i][j] + g
				g = s.velocities[i][j]
			}
			p.Weights[j] -= s.lr * g
			p.Deltas[j] = 0
		}
	}
	return nil
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD) ZeroGrad() {
	zeroGrad(s.params)
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}
