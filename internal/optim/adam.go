package optim

import (
	"math"

	"github.com/born-ml/recurrent/internal/matrix"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	params []*matrix.Matrix
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	t      int         // Timestep for bias correction
	m      [][]float64 // First moment estimates
	v      [][]float64 // Second moment estimates
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(params []*matrix.Matrix, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
	}
}

// Step performs a single optimization step and zeroes the deltas.
func (a *Adam) Step() error {
	m, err := stateFor(a.m, a.params)
	if err != nil {
		return err
	}
	v, err := stateFor(a.v, a.params)
	if err != nil {
		return err
	}
	a.m, a.v = m, v

	a.t++
	biasCorrection1 := 1 - math.Pow(a.beta1, float64(a.t))
	biasCorrection2 := 1 - math.Pow(a.beta2, float64(a.t))

	for i, p := range a.params {
		mi, vi := a.m[i], a.v[i]
		for j, g := range p.Deltas {
			mi[j] = a.beta1*mi[j] + (1-a.beta1)*g
			vi[j] = a.beta2*vi[j] + (1-a.beta2)*g*g

			mHat := mi[j] / biasCorrection1
			vHat := vi[j] / biasCorrection2

			p.Weights[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
			p.Deltas[j] = 0
		}
	}
	return nil
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam) ZeroGrad() {
	zeroGrad(a.params)
}

// GetLR returns the current learning rate.
func (a *Adam) GetLR() float64 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}

// GetTimestep returns the current timestep.
func (a *Adam) GetTimestep() int {
	return a.t
}
