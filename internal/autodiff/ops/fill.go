package ops

// AllOnes fills the product with ones. It records no gradient.
func AllOnes(o Operands) error {
	if o.Product == nil {
		return missingOperand("allOnes")
	}

	for i := range o.Product.Weights {
		o.Product.Weights[i] = 1
		o.Product.Deltas[i] = 0
	}
	return nil
}

// CloneNegative computes product = -left.
func CloneNegative(o Operands) error {
	if err := checkUnary("cloneNegative", o); err != nil {
		return err
	}

	p, l := o.Product, o.Left
	for i, w := range l.Weights {
		p.Weights[i] = -w
		p.Deltas[i] = 0
	}
	return nil
}

// CloneNegativeBackward negates the product gradient into left.
func CloneNegativeBackward(o Operands) error {
	if err := checkUnary("cloneNegative", o); err != nil {
		return err
	}

	p, l := o.Product, o.Left
	for i, d := range p.Deltas {
		l.Deltas[i] -= d
	}
	return nil
}

// Input copies o.Value into the product weights.
func Input(o Operands) error {
	if err := checkLen("input", len(o.Value), o.Product); err != nil {
		return err
	}

	copy(o.Product.Weights, o.Value)
	clear(o.Product.Deltas)
	return nil
}
