// Package pipeline runs one generation batch end to end: it loads the seed
// scenarios, expands them into tasks and drives every task through the
// orchestrator under the scheduler's concurrency limit.
package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dusk-indust/convforge/internal/config"
	"github.com/dusk-indust/convforge/internal/dataset"
	"github.com/dusk-indust/convforge/internal/generator"
	"github.com/dusk-indust/convforge/internal/llm"
	"github.com/dusk-indust/convforge/internal/logging"
	"github.com/dusk-indust/convforge/internal/scenario"
	"github.com/dusk-indust/convforge/internal/scheduler"
)

// NewTransport builds the HTTP transport described by the api section.
func NewTransport(cfg *config.Config) (*llm.HTTPClient, error) {
	if err := cfg.RequireAPI(); err != nil {
		return nil, err
	}
	opts := []llm.ClientOption{llm.WithAPIKey(cfg.API.APIKey)}
	if cfg.API.RequestTimeout > 0 {
		opts = append(opts, llm.WithTimeout(cfg.API.RequestTimeout))
	}
	return llm.NewHTTPClient(cfg.API.BaseURL, cfg.API.Model, opts...), nil
}

// Plan loads the scenarios and expands them into tasks.
func Plan(cfg *config.Config) ([]scenario.Scenario, []generator.Task, error) {
	scenarios, err := scenario.LoadDir(cfg.Path.Experiences)
	if err != nil {
		return nil, nil, err
	}
	return scenarios, generator.Expand(scenarios), nil
}

// Run executes a full batch and returns its summary. Per-task failures are
// tallied in the summary, not returned. The error is non-nil only when the
// batch could not start, or when ctx ended before every task was admitted.
func Run(ctx context.Context, cfg *config.Config, transport llm.Transport, log logrus.FieldLogger, onProgress func(scheduler.ProgressEvent)) (scheduler.Summary, error) {
	if log == nil {
		log = logging.Discard()
	}
	if err := cfg.Validate(); err != nil {
		return scheduler.Summary{}, err
	}

	scenarios, tasks, err := Plan(cfg)
	if err != nil {
		return scheduler.Summary{}, err
	}
	log.WithFields(logrus.Fields{
		"scenarios":   len(scenarios),
		"generations": len(tasks),
		"concurrency": cfg.System.ConcurrencyLimit,
	}).Infof("total generations to be made: %d", len(tasks))

	writer, err := dataset.Open(cfg.OutputPath())
	if err != nil {
		return scheduler.Summary{}, err
	}
	defer writer.Close()

	orch := generator.NewOrchestrator(transport, writer,
		generator.WithValidator(cfg.Validator()),
		generator.WithFilter(cfg.ContentFilter()),
		generator.WithMaxAttempts(cfg.System.MaxAttempts),
		generator.WithSampling(cfg.Sampling.Generate, cfg.Sampling.Reformat),
		generator.WithLogger(log),
	)

	sched := scheduler.New(cfg.System.ConcurrencyLimit, onProgress)
	summary := sched.Run(ctx, tasks, orch)

	log.WithFields(logrus.Fields{
		"batch":     summary.BatchID,
		"persisted": summary.Persisted,
		"discarded": summary.Discarded,
		"exhausted": summary.Exhausted,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
		"calls":     summary.Calls,
		"appended":  writer.Count(),
		"peak":      sched.Gate().Peak(),
		"output":    writer.Path(),
	}).Info("batch finished")

	if summary.Skipped > 0 {
		return summary, fmt.Errorf("pipeline: %d task(s) not started: %w", summary.Skipped, ctx.Err())
	}
	return summary, nil
}
