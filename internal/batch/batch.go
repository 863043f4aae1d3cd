// Package batch runs independent tasks on a bounded worker pool. A failing
// task never stops its siblings; failures are counted and reported.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds in-flight tasks when Options leaves it unset.
const DefaultConcurrency = 3

// ErrSkipped marks a task that chose not to run, e.g. a duplicate.
var ErrSkipped = errors.New("skipped")

// Status is the outcome of one task.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	// StatusCancelled means the task never started because the context was
	// cancelled or the batch was halted.
	StatusCancelled Status = "cancelled"
)

// Task is one unit of work.
type Task[T any] struct {
	ID  string
	Run func(ctx context.Context) (T, error)
}

// Result records what happened to one task.
type Result[T any] struct {
	Index  int
	ID     string
	Status Status
	Value  T
	Err    error
}

// Progress is reported after every task finishes.
type Progress struct {
	ID        string
	Status    Status
	Err       error
	Done      int
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

// Options configures Run.
type Options struct {
	Concurrency int
	// IsTerminal reports errors that should stop scheduling further tasks.
	// Tasks already running finish normally.
	IsTerminal func(error) bool
	// OnProgress is called once per finished task. Calls are serialized.
	OnProgress func(Progress)
}

// Summary collects the results of a batch in task order.
type Summary[T any] struct {
	Results   []Result[T]
	Succeeded int
	Failed    int
	Skipped   int
	Cancelled int
	// HaltErr is the terminal error that stopped the batch, if any.
	HaltErr error
}

// Halted reports whether a terminal error stopped the batch early.
func (s *Summary[T]) Halted() bool { return s.HaltErr != nil }

// Values returns the values of succeeded tasks in task order.
func (s *Summary[T]) Values() []T {
	var out []T
	for _, r := range s.Results {
		if r.Status == StatusSucceeded {
			out = append(out, r.Value)
		}
	}
	return out
}

// Run executes tasks with at most opts.Concurrency in flight. Cancelling
// ctx or hitting a terminal error stops tasks that have not started yet.
func Run[T any](ctx context.Context, tasks []Task[T], opts Options) *Summary[T] {
	limit := opts.Concurrency
	if limit < 1 {
		limit = DefaultConcurrency
	}

	var (
		g                          errgroup.Group
		mu                         sync.Mutex
		results                    = make([]Result[T], 0, len(tasks))
		succeeded, failed, skipped atomic.Int64
		cancelled                  atomic.Int64
		halted                     atomic.Bool
		haltErr                    error
	)
	g.SetLimit(limit)

	record := func(r Result[T]) {
		switch r.Status {
		case StatusSucceeded:
			succeeded.Add(1)
		case StatusFailed:
			failed.Add(1)
		case StatusSkipped:
			skipped.Add(1)
		case StatusCancelled:
			cancelled.Add(1)
		}
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
		if opts.OnProgress != nil && r.Status != StatusCancelled {
			opts.OnProgress(Progress{
				ID:        r.ID,
				Status:    r.Status,
				Err:       r.Err,
				Done:      int(succeeded.Load() + failed.Load() + skipped.Load()),
				Total:     len(tasks),
				Succeeded: int(succeeded.Load()),
				Failed:    int(failed.Load()),
				Skipped:   int(skipped.Load()),
			})
		}
	}

	stopped := func() bool { return ctx.Err() != nil || halted.Load() }

	for i, task := range tasks {
		if stopped() {
			record(Result[T]{Index: i, ID: task.ID, Status: StatusCancelled, Err: stopReason(ctx)})
			continue
		}
		g.Go(func() error {
			if stopped() {
				record(Result[T]{Index: i, ID: task.ID, Status: StatusCancelled, Err: stopReason(ctx)})
				return nil
			}
			v, err := runTask(ctx, task)
			r := Result[T]{Index: i, ID: task.ID, Value: v, Err: err}
			switch {
			case err == nil:
				r.Status = StatusSucceeded
			case errors.Is(err, ErrSkipped):
				r.Status = StatusSkipped
			default:
				r.Status = StatusFailed
				if opts.IsTerminal != nil && opts.IsTerminal(err) {
					mu.Lock()
					if haltErr == nil {
						haltErr = err
					}
					mu.Unlock()
					halted.Store(true)
				}
			}
			record(r)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(a, b int) bool { return results[a].Index < results[b].Index })
	return &Summary[T]{
		Results:   results,
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Skipped:   int(skipped.Load()),
		Cancelled: int(cancelled.Load()),
		HaltErr:   haltErr,
	}
}

var errHalted = errors.New("batch halted")

func stopReason(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errHalted
}

// runTask converts a panic into a failed result.
func runTask[T any](ctx context.Context, task Task[T]) (v T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task %s panicked: %v", task.ID, rec)
		}
	}()
	return task.Run(ctx)
}
