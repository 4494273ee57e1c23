// Package parallel splits row loops of the matrix kernels across CPUs.
//
// Every range handed out runs to completion before Ranges returns, so
// callers stay synchronous.
package parallel

import (
	"runtime"
	"sync"
)

// Config decides when and how wide a loop fans out.
type Config struct {
	Workers  int // goroutines at most; < 2 disables fan-out
	MinRows  int // rows per range at least
	MinWork  int // rows × cost below this runs inline
	Disabled bool
}

// DefaultConfig uses one worker per CPU.
func DefaultConfig() Config {
	return Config{
		Workers: runtime.NumCPU(),
		MinRows: 16,
		MinWork: 1 << 16,
	}
}

// inline reports whether n rows of the given cost should run on the
// calling goroutine.
func (c Config) inline(n, cost int) bool {
	return c.Disabled || c.Workers < 2 || n < 2*c.MinRows || n*cost < c.MinWork
}

// Ranges calls fn over disjoint [lo, hi) ranges covering [0, n). cost is
// the work of one row. fn must only write state owned by its rows.
func Ranges(n, cost int, fn func(lo, hi int), cfg Config) {
	if n <= 0 {
		return
	}
	if cfg.inline(n, cost) {
		fn(0, n)
		return
	}

	size := max((n+cfg.Workers-1)/cfg.Workers, cfg.MinRows)
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += size {
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, min(lo+size, n))
	}
	wg.Wait()
}
