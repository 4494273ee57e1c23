package ops

// Add computes product = left + right element-wise.
func Add(o Operands) error {
	if err := checkBinary("add", o); err != nil {
		return err
	}

	p, l, r := o.Product, o.Left, o.Right
	for i := range p.Weights {
		p.Weights[i] = l.Weights[i] + r.Weights[i]
		p.Deltas[i] = 0
	}
	return nil
}

// AddBackward passes the product gradient unchanged to both operands,
// since d(a+b)/da = d(a+b)/db = 1.
func AddBackward(o Operands) error {
	if err := checkBinary("add", o); err != nil {
		return err
	}

	p, l, r := o.Product, o.Left, o.Right
	for i, d := range p.Deltas {
		l.Deltas[i] += d
		r.Deltas[i] += d
	}
	return nil
}
