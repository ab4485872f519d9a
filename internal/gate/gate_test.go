package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_MutualExclusion(t *testing.T) {
	g := New()
	var inFlight int32
	var maxObserved int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := context.Background()
			require.NoError(t, g.Acquire(ctx))
			defer g.Release()

			cur := atomic.AddInt32(&inFlight, 1)
			for {
				max := atomic.LoadInt32(&maxObserved)
				if cur <= max || atomic.CompareAndSwapInt32(&maxObserved, max, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), maxObserved, "gate must never admit more than one caller")
}

func TestGate_FIFOOrder(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.Acquire(ctx))

	const n = 10
	order := make([]int, 0, n)
	var mu sync.Mutex
	var wg sync.WaitGroup

	// Launch waiters in strict arrival order, staggering slightly so
	// each has blocked on the channel before the next launches.
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			require.NoError(t, g.Acquire(ctx))
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			g.Release()
		}(i)
		time.Sleep(2 * time.Millisecond)
	}

	g.Release() // release the initial permit, kicking off the queue
	wg.Wait()

	require.Len(t, order, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, i, order[i], "gate must admit waiters in arrival order")
	}
}

func TestGate_AcquireRespectsContext(t *testing.T) {
	g := New()
	ctx := context.Background()
	require.NoError(t, g.Acquire(ctx))
	defer g.Release()

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := g.Acquire(cctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGate_ReleaseWithoutHoldingPanics(t *testing.T) {
	g := New()
	// permit is already free; releasing it again is a programming error
	assert.Panics(t, func() {
		g.Release()
	})
}
