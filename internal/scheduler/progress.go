package scheduler

import (
	"fmt"

	"github.com/dusk-indust/convforge/internal/generator"
)

// ProgressStatus is the state of a task within a batch.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
)

// ProgressEvent is emitted as tasks move through the batch. Completed and
// Total describe the whole batch at the time of the event.
type ProgressEvent struct {
	TaskID    string
	Scenario  string
	Status    ProgressStatus
	State     generator.State
	Completed int
	Total     int
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan ProgressEvent, 64),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Deliver sends a progress event, blocking until the subscriber takes it.
// Use it for events that must not be lost, such as completions.
func (pr *ProgressReporter) Deliver(event ProgressEvent) {
	pr.ch <- event
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a single status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressPending:
		return fmt.Sprintf("[%d/%d] ○ %s (pending)", event.Completed, event.Total, event.Scenario)
	case ProgressWorking:
		return fmt.Sprintf("[%d/%d] ● %s...", event.Completed, event.Total, event.Scenario)
	case ProgressComplete:
		marker := "✗"
		if event.State == generator.StatePersisted {
			marker = "✓"
		}
		return fmt.Sprintf("[%d/%d] %s %s %s", event.Completed, event.Total, marker, event.Scenario, event.State)
	default:
		return fmt.Sprintf("[%d/%d] ? %s (unknown status)", event.Completed, event.Total, event.Scenario)
	}
}
