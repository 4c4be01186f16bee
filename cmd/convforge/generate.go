package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/convforge/internal/pipeline"
	"github.com/dusk-indust/convforge/internal/scheduler"
)

type generateFlags struct {
	experiences      string
	output           string
	concurrency      int
	maxAttempts      int
	firstSpeakerMode string
	quiet            bool
}

func newGenerateCmd(a *app) *cobra.Command {
	var f generateFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate conversations for every seed scenario",
		Long: `Generate conversations for every seed scenario in the experiences
directory. Each scenario is generated as many times as its "generations"
key asks. Malformed model output is sent back for reformatting until the
attempt budget is spent; accepted conversations are appended to the dataset.

Interrupting the run stops new generations from starting. Generations
already in flight finish and are written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, a, f)
		},
	}

	cmd.Flags().StringVar(&f.experiences, "experiences", "", "seed scenario directory")
	cmd.Flags().StringVar(&f.output, "output", "", "output directory for the dataset")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "maximum in-flight generations")
	cmd.Flags().IntVar(&f.maxAttempts, "max-attempts", 0, "total model calls allowed per generation")
	cmd.Flags().StringVar(&f.firstSpeakerMode, "first-speaker-mode", "", "fixed or infer")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "suppress the progress display")
	return cmd
}

func runGenerate(cmd *cobra.Command, a *app, f generateFlags) error {
	cfg := a.cfg
	flags := cmd.Flags()
	if flags.Changed("experiences") {
		cfg.Path.Experiences = f.experiences
	}
	if flags.Changed("output") {
		cfg.Path.Output = f.output
	}
	if flags.Changed("concurrency") {
		cfg.System.ConcurrencyLimit = f.concurrency
	}
	if flags.Changed("max-attempts") {
		cfg.System.MaxAttempts = f.maxAttempts
	}
	if flags.Changed("first-speaker-mode") {
		cfg.System.FirstSpeakerMode = f.firstSpeakerMode
	}

	transport, err := pipeline.NewTransport(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	var onProgress func(scheduler.ProgressEvent)
	var printer *progressPrinter
	if !f.quiet {
		printer = newProgressPrinter(out, isTerminal(os.Stdout))
		onProgress = printer.Emit
	}

	summary, err := pipeline.Run(ctx, cfg, transport, a.log, onProgress)
	if printer != nil {
		printer.Close()
	}
	if summary.Total == 0 && err == nil {
		fmt.Fprintln(out, "No generations scheduled.")
		return nil
	}
	if summary.BatchID != "" {
		printSummary(out, summary, cfg.OutputPath())
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
