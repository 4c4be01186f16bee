package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/convforge/internal/status"
)

func newStatusCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show seed scenarios and dataset progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := status.Collect(a.cfg.Path.Experiences, a.cfg.OutputPath(), a.cfg.Validator(), a.cfg.ContentFilter())
			if err != nil {
				return err
			}
			if asJSON {
				out, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal JSON: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(append(out, '\n'))
				return err
			}
			printStatus(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printStatus(w io.Writer, r status.Report) {
	if !r.ScenariosFound {
		fmt.Fprintf(w, "No experiences directory at %s.\n", r.ExperiencesDir)
		fmt.Fprintln(w, "Run 'convforge init' to create one.")
	} else {
		fmt.Fprintf(w, "Scenarios (%s):\n", r.ExperiencesDir)
		for _, s := range r.Scenarios {
			fmt.Fprintf(w, "  %-32s %3d generation(s)  %2d seed turn(s)\n", s.Name, s.Generations, s.SeedTurns)
		}
		fmt.Fprintf(w, "Total generations scheduled: %d\n", r.TotalGenerations)
	}
	fmt.Fprintln(w)

	if !r.Dataset.Exists {
		fmt.Fprintf(w, "Dataset %s: not created yet\n", r.Dataset.Path)
		return
	}
	fmt.Fprintf(w, "Dataset %s:\n", r.DatasetFile())
	fmt.Fprintf(w, "  conversations  %d\n", r.Dataset.Conversations)
	fmt.Fprintf(w, "  turns          %d (%.1f per conversation)\n", r.Dataset.Turns, r.Dataset.AverageTurns())
	if r.Dataset.Invalid > 0 {
		fmt.Fprintf(w, "  invalid lines  %d (run 'convforge validate' for details)\n", r.Dataset.Invalid)
	}
}
