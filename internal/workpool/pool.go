// Package workpool fans CPU-bound loops out over a bounded ants pool.
package workpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Pool runs indexed jobs on a fixed set of goroutines. A nil *Pool runs
// jobs inline. Jobs must not call Run on the same pool.
type Pool struct {
	pool *ants.Pool
}

// New creates a pool with size workers, or NumCPU when size < 1.
func New(size int) (*Pool, error) {
	if size < 1 {
		size = runtime.NumCPU()
	}
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	return &Pool{pool: p}, nil
}

// Run calls fn(i) for every i in [0, n) and waits for all of them. It stops
// submitting once ctx is done and returns ctx.Err().
func (p *Pool) Run(ctx context.Context, n int, fn func(i int)) error {
	if p == nil {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(i)
		}
		return nil
	}
	var wg sync.WaitGroup
	defer wg.Wait()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			fn(i)
		}); err != nil {
			wg.Done()
			return fmt.Errorf("submitting job %d: %w", i, err)
		}
	}
	return nil
}

func (p *Pool) Cap() int {
	if p == nil {
		return 1
	}
	return p.pool.Cap()
}

func (p *Pool) Release() {
	if p != nil {
		p.pool.Release()
	}
}
