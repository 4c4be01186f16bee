package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dusk-indust/convforge/internal/generator"
	"github.com/dusk-indust/convforge/internal/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTasks(n int) []generator.Task {
	tasks := make([]generator.Task, n)
	for i := range tasks {
		tasks[i] = generator.Task{
			ID:       fmt.Sprintf("task-%d", i),
			Scenario: scenario.Scenario{Name: fmt.Sprintf("s%d.yaml", i%3)},
		}
	}
	return tasks
}

func TestScheduler_NeverExceedsCapacity(t *testing.T) {
	const capacity = 3
	var inside, peak atomic.Int32

	runner := RunnerFunc(func(ctx context.Context, task generator.Task) generator.Outcome {
		n := inside.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inside.Add(-1)
		return generator.Outcome{TaskID: task.ID, State: generator.StatePersisted, Calls: 1}
	})

	s := New(capacity, nil)
	summary := s.Run(context.Background(), makeTasks(20), runner)

	assert.LessOrEqual(t, int(peak.Load()), capacity)
	assert.LessOrEqual(t, s.Gate().Peak(), capacity)
	assert.Equal(t, 0, s.Gate().InFlight())
	assert.Equal(t, 20, summary.Total)
	assert.Equal(t, 20, summary.Persisted)
	assert.Equal(t, 20, summary.Calls)
	assert.Equal(t, 20, summary.Completed())
	assert.NotEmpty(t, summary.BatchID)
}

func TestScheduler_UsesFullCapacity(t *testing.T) {
	const capacity = 4
	release := make(chan struct{})
	var started atomic.Int32

	runner := RunnerFunc(func(ctx context.Context, task generator.Task) generator.Outcome {
		started.Add(1)
		<-release
		return generator.Outcome{TaskID: task.ID, State: generator.StatePersisted}
	})

	s := New(capacity, nil)
	done := make(chan Summary)
	go func() { done <- s.Run(context.Background(), makeTasks(10), runner) }()

	require.Eventually(t, func() bool { return started.Load() == capacity }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(capacity), started.Load(), "excess tasks wait for a slot")

	close(release)
	summary := <-done
	assert.Equal(t, 10, summary.Persisted)
}

func TestScheduler_TallyAndIsolation(t *testing.T) {
	states := []generator.State{
		generator.StatePersisted,
		generator.StateDiscarded,
		generator.StateExhausted,
		generator.StateFailed,
	}
	runner := RunnerFunc(func(ctx context.Context, task generator.Task) generator.Outcome {
		var i int
		fmt.Sscanf(task.ID, "task-%d", &i)
		if i == 4 {
			panic("boom")
		}
		return generator.Outcome{TaskID: task.ID, State: states[i%len(states)], Calls: 2}
	})

	summary := New(2, nil).Run(context.Background(), makeTasks(6), runner)
	assert.Equal(t, 6, summary.Completed())
	assert.Equal(t, 1, summary.Persisted)
	assert.Equal(t, 2, summary.Discarded) // task-1, task-5
	assert.Equal(t, 1, summary.Exhausted)
	assert.Equal(t, 2, summary.Failed) // task-3 and the panic
	assert.Equal(t, 10, summary.Calls)
	require.Len(t, summary.Outcomes, 6)

	var panicked bool
	for _, o := range summary.Outcomes {
		if o.TaskID == "task-4" {
			panicked = true
			assert.Equal(t, generator.StateFailed, o.State)
			assert.Contains(t, o.Err.Error(), "panicked")
		}
	}
	assert.True(t, panicked)
}

func TestScheduler_NonTerminalOutcomeCountsAsFailed(t *testing.T) {
	runner := RunnerFunc(func(_ context.Context, task generator.Task) generator.Outcome {
		return generator.Outcome{TaskID: task.ID, State: generator.StateNeedsRepair}
	})

	summary := New(1, nil).Run(context.Background(), makeTasks(2), runner)
	assert.Equal(t, 2, summary.Failed)
	require.Len(t, summary.Outcomes, 2)
	for _, o := range summary.Outcomes {
		assert.Equal(t, generator.StateFailed, o.State)
		require.Error(t, o.Err)
		assert.Contains(t, o.Err.Error(), "non-terminal")
	}
}

func TestScheduler_ProgressEvents(t *testing.T) {
	var (
		mu     sync.Mutex
		events []ProgressEvent
	)
	onProgress := func(ev ProgressEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}
	runner := RunnerFunc(func(ctx context.Context, task generator.Task) generator.Outcome {
		return generator.Outcome{TaskID: task.ID, State: generator.StatePersisted}
	})

	New(2, onProgress).Run(context.Background(), makeTasks(5), runner)

	counts := map[ProgressStatus]int{}
	seen := map[int]bool{}
	for _, ev := range events {
		counts[ev.Status]++
		assert.Equal(t, 5, ev.Total)
		if ev.Status == ProgressComplete {
			seen[ev.Completed] = true
		}
	}
	assert.Equal(t, 5, counts[ProgressPending])
	assert.Equal(t, 5, counts[ProgressWorking])
	assert.Equal(t, 5, counts[ProgressComplete])
	for n := 1; n <= 5; n++ {
		assert.True(t, seen[n], "completed count %d reported", n)
	}
}

func TestScheduler_CancelledContextSkipsUnadmitted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Int32

	runner := RunnerFunc(func(_ context.Context, task generator.Task) generator.Outcome {
		if ran.Add(1) == 1 {
			cancel()
		}
		time.Sleep(20 * time.Millisecond)
		return generator.Outcome{TaskID: task.ID, State: generator.StatePersisted}
	})

	summary := New(1, nil).Run(ctx, makeTasks(5), runner)
	assert.GreaterOrEqual(t, summary.Completed(), 1)
	assert.Equal(t, 5, summary.Completed()+summary.Skipped)
	assert.Greater(t, summary.Skipped, 0)
}

func TestScheduler_Empty(t *testing.T) {
	summary := New(3, nil).Run(context.Background(), nil, RunnerFunc(func(context.Context, generator.Task) generator.Outcome {
		t.Fatal("runner must not be called")
		return generator.Outcome{}
	}))
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, summary.Completed())
}

func TestGate_MinimumCapacity(t *testing.T) {
	g := NewGate(0)
	assert.Equal(t, 1, g.Capacity())
	require.NoError(t, g.Acquire(context.Background()))
	assert.Equal(t, 1, g.InFlight())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, g.Acquire(ctx), "second holder must wait")

	g.Release()
	assert.Equal(t, 0, g.InFlight())
	assert.Equal(t, 1, g.Peak())
}

func TestProgressReporter_EmitWhenFull_DoesNotBlock(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			pr.Emit(ProgressEvent{Status: ProgressWorking})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked when the channel was full")
	}
}

func TestProgressReporter_DeliverKeepsEveryEvent(t *testing.T) {
	pr := NewProgressReporter()

	const n = 500
	go func() {
		for i := 0; i < n; i++ {
			pr.Deliver(ProgressEvent{Status: ProgressComplete, Completed: i + 1, Total: n})
		}
		pr.Close()
	}()

	var last, count int
	for ev := range pr.Subscribe() {
		count++
		last = ev.Completed
	}
	assert.Equal(t, n, count)
	assert.Equal(t, n, last)
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "[2/5] ✓ a.yaml persisted", FormatProgress(ProgressEvent{
		Scenario: "a.yaml", Status: ProgressComplete, State: generator.StatePersisted, Completed: 2, Total: 5,
	}))
	assert.Equal(t, "[2/5] ✗ a.yaml exhausted", FormatProgress(ProgressEvent{
		Scenario: "a.yaml", Status: ProgressComplete, State: generator.StateExhausted, Completed: 2, Total: 5,
	}))
	assert.Equal(t, "[0/1] ● b.yaml...", FormatProgress(ProgressEvent{Scenario: "b.yaml", Status: ProgressWorking, Total: 1}))
}
