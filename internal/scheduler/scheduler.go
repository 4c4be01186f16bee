// Package scheduler fans generation tasks out under a shared capacity limit.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/dusk-indust/convforge/internal/generator"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Runner executes one task to a terminal outcome.
type Runner interface {
	Run(ctx context.Context, task generator.Task) generator.Outcome
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, task generator.Task) generator.Outcome

// Run calls f(ctx, task).
func (f RunnerFunc) Run(ctx context.Context, task generator.Task) generator.Outcome {
	return f(ctx, task)
}

// Summary tallies the terminal outcomes of a batch.
type Summary struct {
	BatchID   string
	Total     int
	Persisted int
	Discarded int
	Exhausted int
	Failed    int
	// Skipped counts tasks never admitted because the context ended first.
	Skipped  int
	Calls    int
	Outcomes []generator.Outcome
}

// Completed is the number of tasks that reached a terminal state.
func (s Summary) Completed() int {
	return s.Persisted + s.Discarded + s.Exhausted + s.Failed
}

func (s *Summary) record(o generator.Outcome) {
	s.Calls += o.Calls
	switch o.State {
	case generator.StatePersisted:
		s.Persisted++
	case generator.StateDiscarded:
		s.Discarded++
	case generator.StateExhausted:
		s.Exhausted++
	default:
		s.Failed++
	}
}

// Scheduler dispatches tasks in parallel, at most capacity at a time. A
// task holds its slot for its whole lifecycle, repair calls included. Tasks
// are isolated: an outcome or panic in one never cancels another.
type Scheduler struct {
	gate       *Gate
	onProgress func(ProgressEvent)
}

// New creates a Scheduler with the given capacity. onProgress is called
// synchronously from task goroutines; it may be nil.
func New(capacity int, onProgress func(ProgressEvent)) *Scheduler {
	return &Scheduler{
		gate:       NewGate(capacity),
		onProgress: onProgress,
	}
}

// Gate exposes the admission gate, mainly for inspection.
func (s *Scheduler) Gate() *Gate {
	return s.gate
}

// Run executes every task through runner and blocks until all admitted tasks
// finish. Completion order is unconstrained. If ctx ends, tasks not yet
// admitted are skipped; admitted tasks still run to completion.
func (s *Scheduler) Run(ctx context.Context, tasks []generator.Task, runner Runner) Summary {
	summary := Summary{
		BatchID:  uuid.NewString(),
		Total:    len(tasks),
		Outcomes: make([]generator.Outcome, 0, len(tasks)),
	}
	var (
		mu        sync.Mutex
		completed int
		g         errgroup.Group
	)
	done := func() int {
		mu.Lock()
		defer mu.Unlock()
		return completed
	}

	for i, task := range tasks {
		s.emit(ProgressEvent{TaskID: task.ID, Scenario: task.Scenario.Name, Status: ProgressPending, Completed: done(), Total: len(tasks)})

		if err := s.gate.Acquire(ctx); err != nil {
			mu.Lock()
			summary.Skipped = len(tasks) - i
			mu.Unlock()
			break
		}

		g.Go(func() error {
			defer s.gate.Release()

			s.emit(ProgressEvent{TaskID: task.ID, Scenario: task.Scenario.Name, Status: ProgressWorking, Completed: done(), Total: len(tasks)})
			out := runIsolated(ctx, runner, task)

			mu.Lock()
			summary.record(out)
			summary.Outcomes = append(summary.Outcomes, out)
			completed++
			n := completed
			mu.Unlock()

			s.emit(ProgressEvent{
				TaskID:    task.ID,
				Scenario:  task.Scenario.Name,
				Status:    ProgressComplete,
				State:     out.State,
				Completed: n,
				Total:     len(tasks),
			})
			return nil
		})
	}

	_ = g.Wait()
	return summary
}

// runIsolated converts a panic in runner, or an outcome that is not
// terminal, into a failed outcome.
func runIsolated(ctx context.Context, runner Runner, task generator.Task) (out generator.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = generator.Outcome{
				TaskID: task.ID,
				State:  generator.StateFailed,
				Err:    fmt.Errorf("scheduler: task panicked: %v", r),
				Reason: fmt.Sprint(r),
			}
		}
	}()
	out = runner.Run(ctx, task)
	if !out.State.Terminal() {
		out.Err = fmt.Errorf("scheduler: task ended in non-terminal state %q", out.State)
		out.State = generator.StateFailed
	}
	return out
}

// emit sends a progress event if a callback is registered.
func (s *Scheduler) emit(ev ProgressEvent) {
	if s.onProgress != nil {
		s.onProgress(ev)
	}
}
