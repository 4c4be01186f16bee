package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/convforge/internal/conversation"
	"github.com/dusk-indust/convforge/internal/dataset"
)

func newValidateCmd(a *app) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "validate [file.jsonl]",
		Short: "Check an existing dataset against the schema and the content filter",
		Long: `Check every line of a JSONL dataset against the alternating-speaker
schema, the no-trailing-human rule and the exclusion phrase list. Reports
each offending line. Defaults to the configured output file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.OutputPath()
			if len(args) == 1 {
				path = args[0]
			}
			v := a.cfg.Validator()
			if mode != "" {
				m, err := conversation.ParseFirstSpeakerMode(mode)
				if err != nil {
					return err
				}
				v.Mode = m
			}

			stats, issues, err := dataset.Scan(path, v, a.cfg.ContentFilter())
			if err != nil {
				return err
			}
			if !stats.Exists {
				return fmt.Errorf("dataset %s does not exist", path)
			}

			out := cmd.OutOrStdout()
			for _, is := range issues {
				fmt.Fprintf(out, "%s line %d: %s\n", color.RedString("✗"), is.Line, is.Reason)
			}
			fmt.Fprintf(out, "%d valid conversation(s), %d turn(s), %d invalid line(s)\n",
				stats.Conversations, stats.Turns, stats.Invalid)
			if stats.Invalid > 0 {
				return fmt.Errorf("%s has %d invalid line(s)", path, stats.Invalid)
			}
			fmt.Fprintf(out, "%s %s is clean\n", color.GreenString("✓"), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "first-speaker-mode", "", "fixed or infer (default: configured mode)")
	return cmd
}
