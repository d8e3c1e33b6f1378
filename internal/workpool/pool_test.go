package workpool

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunVisitsEveryIndex(t *testing.T) {
	p, err := New(4)
	require.NoError(t, err)
	defer p.Release()

	out := make([]int, 100)
	require.NoError(t, p.Run(context.Background(), len(out), func(i int) { out[i] = i * i }))
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
	assert.Equal(t, 4, p.Cap())
}

func TestNilPoolRunsInline(t *testing.T) {
	var p *Pool
	var n int32
	require.NoError(t, p.Run(context.Background(), 10, func(int) { atomic.AddInt32(&n, 1) }))
	assert.Equal(t, int32(10), n)
	p.Release()
}

func TestRunStopsOnCancel(t *testing.T) {
	p, err := New(2)
	require.NoError(t, err)
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var n int32
	err = p.Run(ctx, 10, func(int) { atomic.AddInt32(&n, 1) })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), n)
}
