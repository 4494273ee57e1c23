package matrix

import "errors"

// Common errors.
var (
	// ErrShapeMismatch is returned when operand dimensions are incompatible.
	// Operations report it before mutating anything.
	ErrShapeMismatch = errors.New("misaligned operands")

	// ErrIndexOutOfRange is returned by accessors addressing outside the matrix.
	ErrIndexOutOfRange = errors.New("index out of range")
)
