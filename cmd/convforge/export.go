package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/convforge/internal/export"
	"github.com/dusk-indust/convforge/internal/scenario"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		outPath string
		seeds   bool
	)

	cmd := &cobra.Command{
		Use:   "export [file.jsonl]",
		Short: "Export the dataset as one JSON document",
		Long: `Export the JSONL dataset as a single JSON document with metadata.
Defaults to the configured output file and writes to stdout.

With --seeds, the seed dialogues of the experiences directory are
converted to ShareGPT conversations and written as JSONL instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOutput(cmd.OutOrStdout(), outPath, func(w io.Writer) error {
				if seeds {
					return exportSeeds(w, a.cfg.Path.Experiences)
				}

				path := a.cfg.OutputPath()
				if len(args) == 1 {
					path = args[0]
				}
				data, err := export.Dataset(path, a.cfg.Validator())
				if err != nil {
					return fmt.Errorf("export failed: %w", err)
				}
				out, err := json.MarshalIndent(data, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal JSON: %w", err)
				}
				_, err = w.Write(append(out, '\n'))
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&seeds, "seeds", false, "export the seed dialogues as ShareGPT JSONL")
	return cmd
}

func exportSeeds(w io.Writer, dir string) error {
	scenarios, err := scenario.LoadDir(dir)
	if err != nil {
		return err
	}
	for _, c := range export.Seeds(scenarios) {
		line, err := c.MarshalLine()
		if err != nil {
			return fmt.Errorf("encode seed: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// writeOutput calls fn with stdout, or with the file at path when path is
// set. A failed close is reported, since it can mean the data never reached
// disk.
func writeOutput(stdout io.Writer, path string, fn func(io.Writer) error) (err error) {
	if path == "" {
		return fn(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return fn(f)
}
