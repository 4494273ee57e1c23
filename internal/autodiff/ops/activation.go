package ops

import "math"

// Relu computes product = max(0, left).
func Relu(o Operands) error {
	if err := checkUnary("relu", o); err != nil {
		return err
	}

	p, l := o.Product, o.Left
	for i, w := range l.Weights {
		p.Weights[i] = math.Max(0, w)
		p.Deltas[i] = 0
	}
	return nil
}

// ReluBackward passes the gradient only where the input was positive.
func ReluBackward(o Operands) error {
	if err := checkUnary("relu", o); err != nil {
		return err
	}

	p, l := o.Product, o.Left
	for i, w := range l.Weights {
		if w > 0 {
			l.Deltas[i] += p.Deltas[i]
		}
	}
	return nil
}

// Sigmoid computes product = 1 / (1 + exp(-left)).
func Sigmoid(o Operands) error {
	if err := checkUnary("sigmoid", o); err != nil {
		return err
	}

	p, l := o.Product, o.Left
	for i, w := range l.Weights {
		p.Weights[i] = 1 / (1 + math.Exp(-w))
		p.Deltas[i] = 0
	}
	return nil
}

// SigmoidBackward uses the already computed output:
// d(σ(x))/dx = σ(x)·(1 - σ(x)).
func SigmoidBackward(o Operands) error {
	if err := checkUnary("sigmoid", o); err != nil {
		return err
	}

	p, l := o.Product, o.Left
	for i, w := range p.Weights {
		l.Deltas[i] += w * (1 - w) * p.Deltas[i]
	}
	return nil
}

// Tanh computes product = tanh(left).
func Tanh(o Operands) error {
	if err := checkUnary("tanh", o); err != nil {
		return err
	}

	p, l := o.Product, o.Left
	for i, w := range l.Weights {
		p.Weights[i] = math.Tanh(w)
		p.Deltas[i] = 0
	}
	return nil
}

// TanhBackward computes d(tanh(x))/dx = 1 - tanh²(x) from the output.
func TanhBackward(o Operands) error {
	if err := checkUnary("tanh", o); err != nil {
		return err
	}

	p, l := o.Product, o.Left
	for i, w := range p.Weights {
		l.Deltas[i] += (1 - w*w) * p.Deltas[i]
	}
	return nil
}
