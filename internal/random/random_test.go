package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSource_Deterministic(t *testing.T) {
	a := New(7)
	b := New(7)

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
		assert.Equal(t, a.Float(-1, 1), b.Float(-1, 1))
	}
}

func TestSource_SeedsDiffer(t *testing.T) {
	assert.NotEqual(t, New(1).Float64(), New(2).Float64())
}

func TestSource_FloatRange(t *testing.T) {
	s := New(1)
	for i := 0; i < 1000; i++ {
		v := s.Float(-0.08, 0.08)
		assert.GreaterOrEqual(t, v, -0.08)
		assert.Less(t, v, 0.08)
	}
}

func TestSource_Independent(t *testing.T) {
	a := New(3)
	b := New(3)

	// Draws from one source leave the other untouched.
	for i := 0; i < 10; i++ {
		a.Float64()
	}
	assert.Equal(t, New(3).Float64(), b.Float64())
}
