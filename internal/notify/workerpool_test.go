package notify

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool(t *testing.T) {
	tests := []struct {
		name           string
		numTasks       int
		numWorkers     int
		expectedErrors int
	}{
		{
			name:           "Test worker pool with simple tasks",
			numTasks:       5,
			numWorkers:     2,
			expectedErrors: 0,
		},
		{
			name:           "Test worker pool with error in task",
			numTasks:       2,
			numWorkers:     2,
			expectedErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wp := NewWorkerPool(tt.numWorkers, tt.numTasks)

			var mu sync.Mutex
			var taskExecutionCount int
			var errorCount int

			for i := 0; i < tt.numTasks; i++ {
				i := i
				err := wp.TryAddTask(func() error {
					mu.Lock()
					defer mu.Unlock()
					if i == tt.numTasks-1 && tt.expectedErrors > 0 {
						errorCount++
						return assert.AnError
					}
					taskExecutionCount++
					return nil
				})
				require.NoError(t, err, "failed to add task to pool")
			}

			wp.Close()

			assert.Equal(t, tt.numTasks-tt.expectedErrors, taskExecutionCount, "number of executed tasks does not match")
			assert.Equal(t, tt.expectedErrors, errorCount, "number of errors does not match")
		})
	}
}

func TestWorkerPool_QueueFull(t *testing.T) {
	wp := NewWorkerPool(1, 1)
	defer wp.Close()

	block := make(chan struct{})
	require.NoError(t, wp.TryAddTask(func() error {
		<-block
		return nil
	}))
	require.Eventually(t, func() bool { return len(wp.pool) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, wp.TryAddTask(func() error { return nil }))

	assert.ErrorIs(t, wp.TryAddTask(func() error { return nil }), ErrQueueFull)
	close(block)
}

func TestWorkerPool_Closed(t *testing.T) {
	wp := NewWorkerPool(2, 4)
	var ran atomic.Int32
	require.NoError(t, wp.TryAddTask(func() error {
		ran.Add(1)
		return nil
	}))
	wp.Close()
	wp.Close()

	assert.Equal(t, int32(1), ran.Load())
	assert.ErrorIs(t, wp.TryAddTask(func() error { return nil }), ErrPoolClosed)
}
