package ops

// MultiplyElement computes product = left ⊙ right (Hadamard product).
func MultiplyElement(o Operands) error {
	if err := checkBinary("multiplyElement", o); err != nil {
		return err
	}

	p, l, r := o.Product, o.Left, o.Right
	for i := range p.Weights {
		p.Weights[i] = l.Weights[i] * r.Weights[i]
		p.Deltas[i] = 0
	}
	return nil
}

// MultiplyElementBackward computes d(a⊙b)/da = b and d(a⊙b)/db = a, each
// scaled by the product gradient.
func MultiplyElementBackward(o Operands) error {
	if err := checkBinary("multiplyElement", o); err != nil {
		return err
	}

	p, l, r := o.Product, o.Left, o.Right
	for i, d := range p.Deltas {
		lw := l.Weights[i]
		l.Deltas[i] += r.Weights[i] * d
		r.Deltas[i] += lw * d
	}
	return nil
}
