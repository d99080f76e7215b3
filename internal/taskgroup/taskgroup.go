// Package taskgroup provides the fan-out/fan-in primitive the analysis
// pipeline schedules on: submit N independent tasks, run one
// continuation exactly once after every task reaches a terminal state.
package taskgroup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Task is one independent unit of work. A returned error marks the unit
// terminal-failed; it never blocks the group's completion.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result is the terminal state of one task.
type Result struct {
	Name string
	Err  error
}

// GroupResult is handed to the continuation once the whole group is
// terminal.
type GroupResult struct {
	Results []Result
}

// Succeeded returns the names of tasks that completed without error, in
// submission order.
func (g *GroupResult) Succeeded() []string {
	var names []string
	for _, r := range g.Results {
		if r.Err == nil {
			names = append(names, r.Name)
		}
	}
	return names
}

// Failed counts terminal-failed tasks.
func (g *GroupResult) Failed() int {
	n := 0
	for _, r := range g.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Runner executes task groups on a bounded worker pool.
type Runner struct {
	workers int
	logger  *slog.Logger
}

func NewRunner(workers int, logger *slog.Logger) *Runner {
	if workers <= 0 {
		workers = 4
	}
	return &Runner{workers: workers, logger: logger}
}

// SubmitGroup launches every task and returns immediately. The
// continuation fires exactly once, after the last task reaches a
// terminal state, regardless of completion order; failed members count
// toward completion like successful ones, so the barrier can never hang
// on a failure. An empty group fires the continuation synchronously.
//
// The join is an atomically decremented pending count: the goroutine
// that moves it to zero, whichever finishes last, invokes the
// continuation.
func (r *Runner) SubmitGroup(ctx context.Context, tasks []Task, onAllComplete func(GroupResult)) {
	if len(tasks) == 0 {
		onAllComplete(GroupResult{})
		return
	}

	results := make([]Result, len(tasks))
	var pending atomic.Int64
	pending.Store(int64(len(tasks)))

	sem := make(chan struct{}, r.workers)
	for i, task := range tasks {
		go func(idx int, t Task) {
			sem <- struct{}{}
			defer func() { <-sem }()

			err := r.runOne(ctx, t)
			results[idx] = Result{Name: t.Name, Err: err}

			if pending.Add(-1) == 0 {
				onAllComplete(GroupResult{Results: results})
			}
		}(i, task)
	}
}

// Wait is SubmitGroup for callers that want to block until the group is
// terminal.
func (r *Runner) Wait(ctx context.Context, tasks []Task) GroupResult {
	var (
		wg  sync.WaitGroup
		out GroupResult
	)
	wg.Add(1)
	r.SubmitGroup(ctx, tasks, func(res GroupResult) {
		out = res
		wg.Done()
	})
	wg.Wait()
	return out
}

// runOne isolates panics: a panicking task is a terminal failure, not a
// crashed barrier.
func (r *Runner) runOne(ctx context.Context, t Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task %s panicked: %v", t.Name, rec)
			r.logger.Error("task panicked", "task", t.Name, "panic", rec)
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.Run(ctx)
}
