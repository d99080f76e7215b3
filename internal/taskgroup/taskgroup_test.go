package taskgroup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubmitGroup_ContinuationFiresOnceAfterAllTerminal(t *testing.T) {
	runner := NewRunner(4, testLogger())

	const n = 12
	var completed atomic.Int64
	tasks := make([]Task, n)
	for i := 0; i < n; i++ {
		i := i
		tasks[i] = Task{
			Name: fmt.Sprintf("unit-%d", i),
			Run: func(ctx context.Context) error {
				time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
				completed.Add(1)
				if i%3 == 0 {
					return errors.New("boom")
				}
				return nil
			},
		}
	}

	var fired atomic.Int64
	done := make(chan GroupResult, 1)
	runner.SubmitGroup(context.Background(), tasks, func(res GroupResult) {
		fired.Add(1)
		done <- res
	})

	res := <-done
	// Every unit was terminal before the continuation ran.
	assert.Equal(t, int64(n), completed.Load())
	assert.Equal(t, int64(1), fired.Load())
	assert.Len(t, res.Results, n)
	assert.Equal(t, 4, res.Failed())
	assert.Len(t, res.Succeeded(), 8)
}

func TestSubmitGroup_RandomizedCompletionOrders(t *testing.T) {
	runner := NewRunner(8, testLogger())

	for trial := 0; trial < 25; trial++ {
		n := 1 + rand.Intn(10)
		failures := rand.Intn(n + 1)

		tasks := make([]Task, n)
		for i := 0; i < n; i++ {
			i := i
			tasks[i] = Task{
				Name: fmt.Sprintf("unit-%d", i),
				Run: func(ctx context.Context) error {
					time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
					if i < failures {
						return errors.New("failed unit")
					}
					return nil
				},
			}
		}

		res := runner.Wait(context.Background(), tasks)
		require.Len(t, res.Results, n, "trial %d", trial)
		assert.Equal(t, failures, res.Failed(), "trial %d", trial)
	}
}

func TestSubmitGroup_AllFailuresStillResolve(t *testing.T) {
	runner := NewRunner(2, testLogger())

	tasks := []Task{
		{Name: "a", Run: func(ctx context.Context) error { return errors.New("a failed") }},
		{Name: "b", Run: func(ctx context.Context) error { return errors.New("b failed") }},
	}

	done := make(chan GroupResult, 1)
	runner.SubmitGroup(context.Background(), tasks, func(res GroupResult) { done <- res })

	select {
	case res := <-done:
		assert.Equal(t, 2, res.Failed())
		assert.Empty(t, res.Succeeded())
	case <-time.After(2 * time.Second):
		t.Fatal("barrier did not resolve with all members failed")
	}
}

func TestSubmitGroup_EmptyGroupFiresImmediately(t *testing.T) {
	runner := NewRunner(2, testLogger())

	fired := false
	runner.SubmitGroup(context.Background(), nil, func(res GroupResult) { fired = true })
	assert.True(t, fired)
}

func TestSubmitGroup_PanickingTaskIsTerminalFailure(t *testing.T) {
	runner := NewRunner(2, testLogger())

	tasks := []Task{
		{Name: "panics", Run: func(ctx context.Context) error { panic("unexpected") }},
		{Name: "fine", Run: func(ctx context.Context) error { return nil }},
	}

	res := runner.Wait(context.Background(), tasks)
	assert.Equal(t, 1, res.Failed())
	assert.Equal(t, []string{"fine"}, res.Succeeded())
}

func TestWait_ResultsKeepSubmissionOrder(t *testing.T) {
	runner := NewRunner(4, testLogger())

	var mu sync.Mutex
	var order []string

	tasks := make([]Task, 5)
	for i := 0; i < 5; i++ {
		i := i
		tasks[i] = Task{
			Name: fmt.Sprintf("unit-%d", i),
			Run: func(ctx context.Context) error {
				time.Sleep(time.Duration(5-i) * time.Millisecond)
				mu.Lock()
				order = append(order, fmt.Sprintf("unit-%d", i))
				mu.Unlock()
				return nil
			},
		}
	}

	res := runner.Wait(context.Background(), tasks)
	for i, r := range res.Results {
		assert.Equal(t, fmt.Sprintf("unit-%d", i), r.Name)
	}
	// Completion order differs from submission order; results don't.
	assert.Len(t, order, 5)
}
