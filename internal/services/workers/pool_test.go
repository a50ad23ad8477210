package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestPool_RunsAllJobs(t *testing.T) {
	pool := NewPool(context.Background(), 4, arbor.NewLogger())
	pool.Start()

	var count atomic.Int32
	for i := 0; i < 50; i++ {
		require.NoError(t, pool.Submit(func(ctx context.Context) error {
			count.Add(1)
			return nil
		}))
	}
	pool.Wait()

	assert.Equal(t, int32(50), count.Load())
	assert.Empty(t, pool.Errors())
}

func TestPool_CollectsErrors(t *testing.T) {
	pool := NewPool(context.Background(), 2, arbor.NewLogger())
	pool.Start()

	require.NoError(t, pool.Submit(func(ctx context.Context) error {
		return errors.New("boom")
	}))
	require.NoError(t, pool.Submit(func(ctx context.Context) error {
		return nil
	}))
	pool.Wait()

	assert.Len(t, pool.Errors(), 1)
}

func TestPool_DefaultWorkerCount(t *testing.T) {
	pool := NewPool(context.Background(), 0, arbor.NewLogger())
	pool.Start()

	var count atomic.Int32
	require.NoError(t, pool.Submit(func(ctx context.Context) error {
		count.Add(1)
		return nil
	}))
	pool.Wait()

	assert.Equal(t, int32(1), count.Load())
}

func TestPool_WaitReleasesContext(t *testing.T) {
	pool := NewPool(context.Background(), 2, arbor.NewLogger())
	pool.Start()

	var jobCtx context.Context
	require.NoError(t, pool.Submit(func(ctx context.Context) error {
		jobCtx = ctx
		return nil
	}))
	pool.Wait()

	// Wait cancels the derived context so it never outlives the pool
	require.NotNil(t, jobCtx)
	assert.ErrorIs(t, jobCtx.Err(), context.Canceled)
}

func TestPool_JobSeesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1, arbor.NewLogger())
	pool.Start()

	require.NoError(t, pool.Submit(func(jobCtx context.Context) error {
		cancel()
		<-jobCtx.Done()
		return jobCtx.Err()
	}))
	pool.Wait()

	// The job's cancellation error is collected like any other failure
	assert.Len(t, pool.Errors(), 1)
}
