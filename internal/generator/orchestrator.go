// Package generator turns one seed scenario into at most one accepted
// conversation: prompt, parse, validate, repair, normalize, filter, persist.
package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dusk-indust/convforge/internal/conversation"
	"github.com/dusk-indust/convforge/internal/llm"
	"github.com/dusk-indust/convforge/internal/logging"
	"github.com/dusk-indust/convforge/internal/scenario"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// State is a step of one invocation's lifecycle.
type State string

const (
	StatePrompted    State = "prompted"
	StateParsing     State = "parsing"
	StateValid       State = "valid"
	StateNeedsRepair State = "needs_repair"

	// Terminal states.
	StatePersisted State = "persisted"
	StateDiscarded State = "discarded"
	StateExhausted State = "exhausted"
	StateFailed    State = "failed"
)

// Terminal reports whether s ends an invocation.
func (s State) Terminal() bool {
	switch s {
	case StatePersisted, StateDiscarded, StateExhausted, StateFailed:
		return true
	}
	return false
}

// DefaultMaxAttempts bounds the model calls made per invocation.
const DefaultMaxAttempts = 2

var (
	// ErrExhausted means no attempt produced a schema-valid conversation.
	ErrExhausted = errors.New("generator: repair attempts exhausted")

	// ErrExcluded means the conversation contained an excluded phrase.
	ErrExcluded = errors.New("generator: excluded phrase")

	// ErrTooShort means normalization left fewer than two turns.
	ErrTooShort = errors.New("generator: too few turns after normalization")
)

// Task is one (scenario, repetition) pair.
type Task struct {
	ID         string
	Scenario   scenario.Scenario
	Repetition int
}

// Expand creates one Task per requested generation of every scenario.
func Expand(scenarios []scenario.Scenario) []Task {
	tasks := make([]Task, 0, scenario.TotalGenerations(scenarios))
	for _, s := range scenarios {
		for rep := 0; rep < s.Generations; rep++ {
			tasks = append(tasks, Task{
				ID:         uuid.NewString(),
				Scenario:   s,
				Repetition: rep,
			})
		}
	}
	return tasks
}

// Outcome is the terminal result of one invocation.
type Outcome struct {
	TaskID string
	State  State
	Calls  int
	Turns  int
	Reason string
	Err    error
}

// Sink persists accepted conversations. Implementations must serialize
// concurrent appends.
type Sink interface {
	Append(conversation.Conversation) error
}

// Orchestrator runs the generate/validate/repair cycle for single tasks. It
// holds no per-task state and may be shared by concurrent invocations.
type Orchestrator struct {
	transport   llm.Transport
	sink        Sink
	validator   conversation.Validator
	filter      conversation.Filter
	maxAttempts int
	generate    llm.SamplingParams
	reformat    llm.SamplingParams
	log         logrus.FieldLogger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithValidator replaces the default fixed/human-first validator.
func WithValidator(v conversation.Validator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithFilter sets the content filter. The default excludes DefaultExclusions.
func WithFilter(f conversation.Filter) Option {
	return func(o *Orchestrator) { o.filter = f }
}

// WithMaxAttempts sets the total number of model calls allowed per task.
// Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(o *Orchestrator) {
		if n >= 1 {
			o.maxAttempts = n
		}
	}
}

// WithSampling overlays generation and repair sampling knobs on the defaults.
func WithSampling(generate, reformat llm.SamplingParams) Option {
	return func(o *Orchestrator) {
		o.generate = o.generate.Merge(generate)
		o.reformat = o.reformat.Merge(reformat)
	}
}

// WithLogger sets where state transitions are reported. Nil discards them.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// NewOrchestrator creates an Orchestrator that calls transport and writes
// accepted conversations to sink.
func NewOrchestrator(transport llm.Transport, sink Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		transport:   transport,
		sink:        sink,
		validator:   conversation.Validator{Mode: conversation.FirstSpeakerFixed, FirstSpeaker: conversation.Human},
		filter:      conversation.NewFilter(conversation.DefaultExclusions),
		maxAttempts: DefaultMaxAttempts,
		generate:    DefaultGenerateParams(),
		reformat:    DefaultReformatParams(),
		log:         logging.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// step is the result of checking one raw response. When NeedsRepair is set,
// Raw holds the text to resubmit and Reason says why; otherwise Conv is the
// validated conversation.
type step struct {
	NeedsRepair bool
	Raw         string
	Reason      error
	Conv        conversation.Conversation
}

// Run drives task to a terminal state. It never panics on model output and
// never returns an error: failures are reported in the Outcome.
func (o *Orchestrator) Run(ctx context.Context, task Task) Outcome {
	out := Outcome{TaskID: task.ID}
	log := o.log.WithFields(logrus.Fields{
		"invocation": task.ID,
		"scenario":   task.Scenario.Name,
	})

	prompt := GenerationPrompt(task.Scenario, o.firstSpeaker())
	raw, err := o.submit(ctx, log, &out, prompt, o.generate)
	if err != nil {
		return o.fail(log, out, err)
	}

	var conv conversation.Conversation
	for attempt := 1; ; attempt++ {
		log.WithFields(logrus.Fields{"state": StateParsing, "attempt": attempt}).Debug("checking response")
		s := o.check(raw)
		if !s.NeedsRepair {
			log.WithFields(logrus.Fields{"state": StateValid, "attempt": attempt}).Debug("response valid")
			conv = s.Conv
			break
		}
		log.WithFields(logrus.Fields{"state": StateNeedsRepair, "attempt": attempt}).
			WithError(s.Reason).Info("response needs reformatting")

		if attempt >= o.maxAttempts {
			out.State = StateExhausted
			out.Err = ErrExhausted
			out.Reason = s.Reason.Error()
			log.WithFields(logrus.Fields{"state": out.State, "attempt": attempt}).Warn("no valid conversation after maximum attempts, skipping")
			return out
		}

		raw, err = o.submit(ctx, log, &out, ReformatPrompt(s.Raw), o.reformat)
		if err != nil {
			return o.fail(log, out, err)
		}
	}

	if last, ok := conv.Last(); ok && last.From == conversation.Human {
		log.Debug("dropping trailing human turn")
	}
	conv = conversation.Normalize(conv)
	if conv.Len() < conversation.MinTurns {
		return o.discard(log, out, ErrTooShort, fmt.Sprintf("%d turn(s) left", conv.Len()))
	}

	if phrase, found := o.filter.Match(conv); found {
		return o.discard(log, out, ErrExcluded, phrase)
	}

	if err := o.sink.Append(conv); err != nil {
		return o.fail(log, out, fmt.Errorf("generator: persist: %w", err))
	}

	out.State = StatePersisted
	out.Turns = conv.Len()
	log.WithFields(logrus.Fields{"state": out.State, "turns": out.Turns}).Info("conversation persisted")
	return out
}

// check parses and validates raw, collapsing every failure into NeedsRepair.
func (o *Orchestrator) check(raw string) step {
	v, err := conversation.Parse(raw)
	if err != nil {
		return step{NeedsRepair: true, Raw: raw, Reason: err}
	}
	conv, err := o.validator.Decode(v)
	if err != nil {
		return step{NeedsRepair: true, Raw: raw, Reason: err}
	}
	return step{Conv: conv}
}

func (o *Orchestrator) submit(ctx context.Context, log *logrus.Entry, out *Outcome, prompt string, params llm.SamplingParams) (string, error) {
	out.Calls++
	log.WithFields(logrus.Fields{"state": StatePrompted, "attempt": out.Calls}).Debug("submitting request")
	resp, err := o.transport.Submit(ctx, []llm.Message{{Role: llm.RoleSystem, Content: prompt}}, params)
	if err != nil {
		return "", err
	}
	if resp.Truncated {
		log.WithField("attempt", out.Calls).Warn("response stream was cut off")
	}
	return resp.Text, nil
}

func (o *Orchestrator) discard(log *logrus.Entry, out Outcome, err error, reason string) Outcome {
	out.State = StateDiscarded
	out.Err = err
	out.Reason = reason
	log.WithFields(logrus.Fields{"state": out.State, "reason": reason}).Info(err.Error())
	return out
}

func (o *Orchestrator) fail(log *logrus.Entry, out Outcome, err error) Outcome {
	out.State = StateFailed
	out.Err = err
	out.Reason = err.Error()
	log.WithField("state", out.State).WithError(err).Error("invocation failed")
	return out
}

func (o *Orchestrator) firstSpeaker() conversation.Speaker {
	if o.validator.Mode == conversation.FirstSpeakerFixed && o.validator.FirstSpeaker != "" {
		return o.validator.FirstSpeaker
	}
	return conversation.Human
}
